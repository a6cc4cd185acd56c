package session

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevealVisitsEveryPrefixOnce(t *testing.T) {
	got := slices.Collect(Reveal("hello"))
	assert.Equal(t, []string{"h", "he", "hel", "hell", "hello"}, got)
}

func TestRevealSplitsOnRunes(t *testing.T) {
	got := slices.Collect(Reveal("né✓"))
	assert.Equal(t, []string{"n", "né", "né✓"}, got)
}

func TestRevealEmpty(t *testing.T) {
	assert.Empty(t, slices.Collect(Reveal("")))
}

func TestRevealStopsWhenConsumerStops(t *testing.T) {
	var seen []string
	for prefix := range Reveal("abcdef") {
		seen = append(seen, prefix)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "ab"}, seen)
}

func TestPlayPacesBetweenCharacters(t *testing.T) {
	p := newRecordingPresenter()
	clock := newStepClock()

	Play(context.Background(), p, Bubble(7), "hello", 10*time.Millisecond, clock)

	assert.Equal(t, []string{"h", "he", "hel", "hell", "hello"}, p.texts[Bubble(7)])
	require.Len(t, clock.sleeps, 4)
	for _, d := range clock.sleeps {
		assert.Equal(t, 10*time.Millisecond, d)
	}
}

func TestPlayFlushesRemainderWhenInterrupted(t *testing.T) {
	p := newRecordingPresenter()
	clock := newStepClock()
	clock.failAt = 2

	Play(context.Background(), p, Bubble(1), "hello", time.Millisecond, clock)

	assert.Equal(t, []string{"h", "he", "hello"}, p.texts[Bubble(1)])
}

func TestRealClockSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RealClock().Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, RealClock().Sleep(context.Background(), time.Microsecond))
}
