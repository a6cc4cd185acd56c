package presenter

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/zhouzirui/chatty/internal/model/chat"
	"github.com/zhouzirui/chatty/internal/session"
)

const (
	pendingText   = "• • •"
	readyPrompt   = "Say hi - press Enter to send"
	waitingPrompt = "Waiting for reply..."
	timeLayout    = "15:04"
	clearLine     = "\r" + ansi.EraseEntireLine
	noBubble      = session.Bubble(0)
)

type bubble struct {
	role  chat.Role
	label string
	text  string
}

// Terminal renders the conversation as one line per bubble on a writer.
// A bubble being revealed keeps its line open and only the new characters
// are written.
type Terminal struct {
	mu       sync.Mutex
	out      io.Writer
	renderer *lipgloss.Renderer
	theme    Theme
	styles   styles
	now      func() time.Time

	bubbles map[session.Bubble]*bubble
	last    session.Bubble
	open    session.Bubble
	pending bool
	enabled bool
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithTheme selects the initial palette.
func WithTheme(t Theme) Option {
	return func(term *Terminal) { term.theme = t }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(term *Terminal) { term.now = now }
}

// NewTerminal writes to out.
func NewTerminal(out io.Writer, opts ...Option) *Terminal {
	t := &Terminal{
		out:      out,
		renderer: lipgloss.NewRenderer(out),
		theme:    ThemeDark,
		now:      time.Now,
		bubbles:  make(map[session.Bubble]*bubble),
		enabled:  true,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.styles = newStyles(t.renderer, t.theme)
	return t
}

var _ session.Presenter = (*Terminal)(nil)

// RenderTurn starts a new bubble. An empty assistant bubble stays open for a reveal.
func (t *Terminal) RenderTurn(text string, role chat.Role, label string) session.Bubble {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeOpenLocked()
	t.last++
	id := t.last
	t.bubbles[id] = &bubble{role: role, label: label, text: text}

	t.write(t.header(role, label) + t.styles.text.Render(text))
	if text == "" && role != chat.RoleUser {
		t.open = id
		return id
	}
	t.write("\n")
	return id
}

// ShowPending prints a waiting indicator and returns its remover.
func (t *Terminal) ShowPending() func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeOpenLocked()
	t.pending = true
	t.write(t.header(chat.RoleAssistant, "AI") + t.styles.muted.Render(pendingText))

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.pending {
				t.write(clearLine)
				t.pending = false
			}
		})
	}
}

// SetBubbleText shows text as the bubble's content.
func (t *Terminal) SetBubbleText(id session.Bubble, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.bubbles[id]
	if !ok {
		return
	}
	switch {
	case id == t.open && strings.HasPrefix(text, b.text):
		t.write(t.styles.text.Render(text[len(b.text):]))
	case id == t.open:
		t.write(clearLine + t.header(b.role, b.label) + t.styles.text.Render(text))
	default:
		t.closeOpenLocked()
		t.write(t.header(b.role, b.label) + t.styles.text.Render(text) + "\n")
	}
	b.text = text
}

// SetInputEnabled closes any open bubble and shows the input hint.
func (t *Terminal) SetInputEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	if !enabled {
		return
	}
	t.closeOpenLocked()
	t.write(t.styles.muted.Render(readyPrompt) + "\n" + t.styles.prompt.Render("> "))
}

// InputEnabled reports whether a new message would be accepted.
func (t *Terminal) InputEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Info prints a dim line that is not part of the conversation. A bubble
// being revealed, or the pending indicator, is redrawn below the line and
// stays open.
func (t *Terminal) Info(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	if !t.enabled {
		msg += " (" + waitingPrompt + ")"
	}

	switch {
	case t.pending:
		t.write(clearLine)
	case t.open != noBubble:
		t.write("\n")
	}
	t.write(t.styles.muted.Render(msg) + "\n")

	switch {
	case t.pending:
		t.write(t.header(chat.RoleAssistant, "AI") + t.styles.muted.Render(pendingText))
	case t.open != noBubble:
		b := t.bubbles[t.open]
		t.write(t.header(b.role, b.label) + t.styles.text.Render(b.text))
	}
}

// Prompt reprints the input prompt.
func (t *Terminal) Prompt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled {
		t.write(t.styles.prompt.Render("> "))
	}
}

// ToggleTheme switches between the dark and light palettes.
func (t *Terminal) ToggleTheme() Theme {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.theme = t.theme.Toggle()
	t.styles = newStyles(t.renderer, t.theme)
	return t.theme
}

func (t *Terminal) header(role chat.Role, label string) string {
	style := t.styles.assistantLabel
	if role == chat.RoleUser {
		style = t.styles.userLabel
	}
	return t.styles.muted.Render(t.now().Format(timeLayout)) + " " + style.Render(label+":") + " "
}

func (t *Terminal) closeOpenLocked() {
	if t.pending {
		t.write(clearLine)
		t.pending = false
	}
	if t.open != noBubble {
		t.write("\n")
		t.open = noBubble
	}
}

func (t *Terminal) write(s string) {
	// write errors on a terminal leave nothing useful to do
	_, _ = io.WriteString(t.out, s)
}
