package presenter

import "github.com/charmbracelet/lipgloss"

// Theme names a palette.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Palette holds the colors of a theme.
type Palette struct {
	User      lipgloss.Color
	Assistant lipgloss.Color
	Text      lipgloss.Color
	TextMuted lipgloss.Color
	Accent    lipgloss.Color
}

var palettes = map[Theme]Palette{
	ThemeDark: {
		User:      lipgloss.Color("#7dd3fc"),
		Assistant: lipgloss.Color("#a7f3d0"),
		Text:      lipgloss.Color("#e5e7eb"),
		TextMuted: lipgloss.Color("#808080"),
		Accent:    lipgloss.Color("62"),
	},
	ThemeLight: {
		User:      lipgloss.Color("#0369a1"),
		Assistant: lipgloss.Color("#047857"),
		Text:      lipgloss.Color("#0b1220"),
		TextMuted: lipgloss.Color("#6b7280"),
		Accent:    lipgloss.Color("#4f46e5"),
	},
}

// ParseTheme maps a name to a Theme, defaulting to dark.
func ParseTheme(name string) Theme {
	if Theme(name) == ThemeLight {
		return ThemeLight
	}
	return ThemeDark
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

type styles struct {
	userLabel      lipgloss.Style
	assistantLabel lipgloss.Style
	text           lipgloss.Style
	muted          lipgloss.Style
	prompt         lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, t Theme) styles {
	p := palettes[t]
	return styles{
		userLabel:      r.NewStyle().Bold(true).Foreground(p.User),
		assistantLabel: r.NewStyle().Bold(true).Foreground(p.Assistant),
		text:           r.NewStyle().Foreground(p.Text),
		muted:          r.NewStyle().Foreground(p.TextMuted),
		prompt:         r.NewStyle().Bold(true).Foreground(p.Accent),
	}
}
