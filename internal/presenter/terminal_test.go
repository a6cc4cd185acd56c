package presenter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/chatty/internal/model/chat"
)

func fixedNow() time.Time { return time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC) }

func newTestTerminal() (*Terminal, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewTerminal(&buf, WithClock(fixedNow)), &buf
}

func TestRenderUserTurn(t *testing.T) {
	term, buf := newTestTerminal()

	term.RenderTurn("ahoy", chat.RoleUser, "You")

	assert.Equal(t, "09:30 You: ahoy\n", buf.String())
}

func TestRevealWritesOnlyNewCharacters(t *testing.T) {
	term, buf := newTestTerminal()

	id := term.RenderTurn("", chat.RoleAssistant, "AI")
	for _, prefix := range []string{"h", "he", "hel", "hell", "hello"} {
		term.SetBubbleText(id, prefix)
	}
	term.SetInputEnabled(true)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "09:30 AI: hello\n"), out)
}

func TestRewriteWhenTextIsNotAnExtension(t *testing.T) {
	term, buf := newTestTerminal()

	id := term.RenderTurn("", chat.RoleAssistant, "AI")
	term.SetBubbleText(id, "abc")
	term.SetBubbleText(id, "xyz")

	assert.Equal(t, "09:30 AI: abc"+clearLine+"09:30 AI: xyz", buf.String())
}

func TestPendingIndicatorIsErased(t *testing.T) {
	term, buf := newTestTerminal()

	remove := term.ShowPending()
	remove()
	remove()

	assert.Equal(t, "09:30 AI: • • •"+clearLine, buf.String())
}

func TestInputToggle(t *testing.T) {
	term, buf := newTestTerminal()

	term.SetInputEnabled(false)
	assert.False(t, term.InputEnabled())
	assert.Empty(t, buf.String())

	term.Info("still busy")
	assert.Contains(t, buf.String(), "still busy (Waiting for reply...)")

	term.SetInputEnabled(true)
	assert.True(t, term.InputEnabled())
	assert.True(t, strings.HasSuffix(buf.String(), "> "))
}

func TestToggleTheme(t *testing.T) {
	term, _ := newTestTerminal()

	assert.Equal(t, ThemeLight, term.ToggleTheme())
	assert.Equal(t, ThemeDark, term.ToggleTheme())
	assert.Equal(t, ThemeLight, ParseTheme("light"))
	assert.Equal(t, ThemeDark, ParseTheme("anything"))
}

func TestUnknownBubbleIgnored(t *testing.T) {
	term, buf := newTestTerminal()
	term.SetBubbleText(42, "nope")
	assert.Empty(t, buf.String())
}

func TestInfoDuringRevealKeepsBubbleOpen(t *testing.T) {
	term, buf := newTestTerminal()

	term.SetInputEnabled(false)
	id := term.RenderTurn("", chat.RoleAssistant, "AI")
	term.SetBubbleText(id, "h")
	term.SetBubbleText(id, "he")
	term.Info("Still waiting for the previous reply")
	for _, prefix := range []string{"hel", "hell", "hello"} {
		term.SetBubbleText(id, prefix)
	}

	assert.Equal(t,
		"09:30 AI: he\n"+
			"Still waiting for the previous reply (Waiting for reply...)\n"+
			"09:30 AI: hello",
		buf.String())
	assert.Equal(t, 2, strings.Count(buf.String(), "AI:"))
}

func TestInfoWhilePendingRedrawsIndicator(t *testing.T) {
	term, buf := newTestTerminal()

	remove := term.ShowPending()
	term.Info("note")
	remove()

	assert.Equal(t, "09:30 AI: • • •"+clearLine+"note\n09:30 AI: • • •"+clearLine, buf.String())
}
