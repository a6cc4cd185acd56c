package session

import (
	"context"
	"time"

	"github.com/zhouzirui/chatty/internal/model/chat"
)

// Status classifies a backend response.
type Status int

const (
	StatusOK Status = iota
	StatusRateLimited
	StatusUnauthorized
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRateLimited:
		return "rate_limited"
	case StatusUnauthorized:
		return "unauthorized"
	default:
		return "error"
	}
}

// Request is what one exchange sends to the backend.
type Request struct {
	Message string
	Persona string
	Model   string
	Token   string
}

// Response is the backend answer. Text holds the reply for StatusOK, the
// server-supplied notice for 429/401, and the raw body otherwise.
type Response struct {
	Status Status
	Text   string
}

// Transport delivers one request and returns one response.
type Transport interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// Bubble identifies a rendered message.
type Bubble int

// Presenter displays the conversation. It receives data only and never
// touches controller state.
type Presenter interface {
	RenderTurn(text string, role chat.Role, label string) Bubble
	ShowPending() (remove func())
	SetBubbleText(b Bubble, text string)
	SetInputEnabled(enabled bool)
}

// CredentialStore keeps the auth token for the lifetime of the login session.
type CredentialStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Clock schedules the pauses of a reveal.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// RealClock sleeps on timers.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
