package chat

import "time"

// TokenHeader carries the opaque app token.
const TokenHeader = "X-APP-TOKEN"

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
	Persona string `json:"persona,omitempty" validate:"max=4000"`
	Model   string `json:"model,omitempty" validate:"max=128"`
}

// ChatResponse is the body of every /chat answer. Error answers only fill Reply.
type ChatResponse struct {
	Reply     string     `json:"reply"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Model     string     `json:"model,omitempty"`
}
