package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zhouzirui/chatty/internal/model/chat"
)

type fakeTransport struct {
	mu       sync.Mutex
	resp     Response
	err      error
	requests []Request
	// when set, Send blocks until release is closed
	started chan struct{}
	release chan struct{}
}

func (f *fakeTransport) Send(ctx context.Context, req Request) (Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}
	return f.resp, f.err
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type renderedTurn struct {
	Text  string
	Role  chat.Role
	Label string
}

type recordingPresenter struct {
	mu           sync.Mutex
	turns        []renderedTurn
	texts        map[Bubble][]string
	pending      int
	removed      int
	inputChanges []bool
	panicOnSet   bool
}

func newRecordingPresenter() *recordingPresenter {
	return &recordingPresenter{texts: make(map[Bubble][]string)}
}

func (p *recordingPresenter) RenderTurn(text string, role chat.Role, label string) Bubble {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.turns = append(p.turns, renderedTurn{Text: text, Role: role, Label: label})
	return Bubble(len(p.turns))
}

func (p *recordingPresenter) ShowPending() func() {
	p.mu.Lock()
	p.pending++
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.removed++
		p.mu.Unlock()
	}
}

func (p *recordingPresenter) SetBubbleText(b Bubble, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panicOnSet {
		panic("presenter broke")
	}
	p.texts[b] = append(p.texts[b], text)
}

func (p *recordingPresenter) SetInputEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inputChanges = append(p.inputChanges, enabled)
}

func (p *recordingPresenter) lastTurn() renderedTurn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.turns[len(p.turns)-1]
}

type stepClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	// fail the sleep with this index (1-based); 0 never fails
	failAt int
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	if c.failAt > 0 && len(c.sleeps) == c.failAt {
		return context.Canceled
	}
	return nil
}

type memoryCreds struct {
	values map[string]string
	getErr error
}

func newMemoryCreds() *memoryCreds { return &memoryCreds{values: make(map[string]string)} }

func (m *memoryCreds) Get(key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	return m.values[key], nil
}

func (m *memoryCreds) Set(key, value string) error {
	m.values[key] = value
	return nil
}

func (m *memoryCreds) Delete(key string) error {
	delete(m.values, key)
	return nil
}

var errUnreachable = errors.New("dial tcp 127.0.0.1:8080: connect: connection refused")
