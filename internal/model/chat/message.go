package chat

import "time"

// Role attributes a turn to one side of the conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Turn is one entry of the conversation history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemTurn returns the persona turn that opens every conversation.
func SystemTurn(persona string) Turn {
	return Turn{Role: RoleSystem, Content: persona}
}

// Snapshot is the exportable view of a conversation.
type Snapshot struct {
	ExportedAt   time.Time `json:"exported_at"`
	Conversation []Turn    `json:"conversation"`
}

// Record is one entry of the server-side conversation archive.
type Record struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Conversation []Turn    `json:"conversation"`
}
