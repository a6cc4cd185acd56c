package chat

// SessionState is the client-side state of one conversation.
//
// History always starts with the system persona turn and is append-only.
// Sending is true while exactly one exchange is outstanding.
type SessionState struct {
	History   []Turn
	Sending   bool
	AuthToken string
}

// NewSessionState seeds a session with the persona turn.
func NewSessionState(persona, token string) *SessionState {
	return &SessionState{
		History:   []Turn{SystemTurn(persona)},
		AuthToken: token,
	}
}

// CloneTurns returns a copy of turns that shares no backing array.
func CloneTurns(turns []Turn) []Turn {
	copied := make([]Turn, len(turns))
	copy(copied, turns)
	return copied
}
