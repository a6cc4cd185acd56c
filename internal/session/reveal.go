package session

import (
	"context"
	"iter"
	"time"
	"unicode/utf8"
)

// DefaultRevealDelay is the pause between two revealed characters.
const DefaultRevealDelay = 6 * time.Millisecond

// Reveal yields every successively longer prefix of text, one rune at a
// time. An empty text yields nothing.
func Reveal(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for i := 0; i < len(text); {
			_, size := utf8.DecodeRuneInString(text[i:])
			i += size
			if !yield(text[:i]) {
				return
			}
		}
	}
}

// Play shows text in bubble through the reveal sequence, pausing delay
// between characters. If ctx ends early the rest of the text is shown at
// once so the bubble always ends on the full text.
func Play(ctx context.Context, p Presenter, bubble Bubble, text string, delay time.Duration, clock Clock) {
	shown := ""
	for prefix := range Reveal(text) {
		p.SetBubbleText(bubble, prefix)
		shown = prefix
		if len(prefix) == len(text) {
			break
		}
		if err := clock.Sleep(ctx, delay); err != nil {
			break
		}
	}
	if shown != text {
		p.SetBubbleText(bubble, text)
	}
}
