package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/chatty/internal/model/chat"
)

// TokenKey is the credential store key of the auth token.
const TokenKey = "APP_TOKEN"

const (
	userLabel      = "You"
	assistantLabel = "AI"

	rateLimitedFallback  = "[Rate limited]"
	unauthorizedFallback = "[Unauthorized]"
	serverErrorPrefix    = "[Server error] "
	networkErrorPrefix   = "Network error: "
)

var ErrTransportRequired = errors.New("transport is required")

// Outcome reports how a SubmitMessage call ended.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeBusy
	OutcomeReplied
	OutcomeRateLimited
	OutcomeUnauthorized
	OutcomeServerError
	OutcomeTransportFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeBusy:
		return "busy"
	case OutcomeReplied:
		return "replied"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeServerError:
		return "server_error"
	default:
		return "transport_failed"
	}
}

// Result describes one submit cycle. Notice is the text shown for any
// outcome other than OutcomeReplied.
type Result struct {
	Outcome Outcome
	Reply   string
	Notice  string
}

// Options tunes a Controller.
type Options struct {
	Model       string
	RevealDelay time.Duration
	Clock       Clock
	Credentials CredentialStore
	Logger      zerolog.Logger
}

// Controller owns one conversation: its history, the single-flight flag and
// the auth token. Presenter and Transport only ever see copies of that data.
type Controller struct {
	id        string
	transport Transport
	presenter Presenter
	creds     CredentialStore
	clock     Clock
	delay     time.Duration
	logger    zerolog.Logger

	mu      sync.Mutex
	state   *chat.SessionState
	persona string
	model   string
}

// NewController seeds a session with persona as its system turn. A token
// already held by the credential store is picked up once here.
func NewController(persona string, transport Transport, presenter Presenter, opts Options) (*Controller, error) {
	if transport == nil {
		return nil, ErrTransportRequired
	}
	if presenter == nil {
		presenter = nopPresenter{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = RealClock()
	}
	delay := opts.RevealDelay
	if delay < 0 {
		delay = 0
	}

	token := ""
	if opts.Credentials != nil {
		stored, err := opts.Credentials.Get(TokenKey)
		if err != nil {
			opts.Logger.Warn().Err(err).Msg("could not read stored token")
		}
		token = strings.TrimSpace(stored)
	}

	c := &Controller{
		id:        uuid.NewString(),
		transport: transport,
		presenter: presenter,
		creds:     opts.Credentials,
		clock:     clock,
		delay:     delay,
		state:     chat.NewSessionState(persona, token),
		persona:   persona,
		model:     strings.TrimSpace(opts.Model),
	}
	c.logger = opts.Logger.With().Str("session", c.id).Logger()
	return c, nil
}

// ID identifies this session in logs.
func (c *Controller) ID() string { return c.id }

// SubmitMessage runs one exchange with the backend. Blank text and calls made
// while another exchange is outstanding are refused without side effects.
// Every other call ends with exactly one new bot bubble and the controller
// ready for the next message.
func (c *Controller) SubmitMessage(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Outcome: OutcomeIgnored}
	}

	c.mu.Lock()
	if c.state.Sending {
		c.mu.Unlock()
		c.logger.Debug().Msg("submit refused, exchange in flight")
		return Result{Outcome: OutcomeBusy}
	}
	c.state.Sending = true
	c.state.History = append(c.state.History, chat.Turn{Role: chat.RoleUser, Content: text})
	req := Request{
		Message: text,
		Persona: c.persona,
		Model:   c.model,
		Token:   c.state.AuthToken,
	}
	c.mu.Unlock()

	defer c.finish()

	c.presenter.RenderTurn(text, chat.RoleUser, userLabel)
	c.presenter.SetInputEnabled(false)
	removePending := c.presenter.ShowPending()

	started := c.clock.Now()
	resp, err := c.transport.Send(ctx, req)
	if removePending != nil {
		removePending()
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("transport failure")
		return c.notice(OutcomeTransportFailed, networkErrorPrefix+err.Error())
	}

	c.logger.Debug().
		Str("status", resp.Status.String()).
		Dur("elapsed", c.clock.Now().Sub(started)).
		Msg("response received")

	switch resp.Status {
	case StatusRateLimited:
		return c.notice(OutcomeRateLimited, orDefault(resp.Text, rateLimitedFallback))
	case StatusUnauthorized:
		return c.notice(OutcomeUnauthorized, orDefault(resp.Text, unauthorizedFallback))
	case StatusOK:
	default:
		return c.notice(OutcomeServerError, serverErrorPrefix+resp.Text)
	}

	bubble := c.presenter.RenderTurn("", chat.RoleAssistant, assistantLabel)
	c.mu.Lock()
	c.state.History = append(c.state.History, chat.Turn{Role: chat.RoleAssistant, Content: resp.Text})
	c.mu.Unlock()

	Play(ctx, c.presenter, bubble, resp.Text, c.delay, c.clock)
	return Result{Outcome: OutcomeReplied, Reply: resp.Text}
}

func (c *Controller) notice(outcome Outcome, text string) Result {
	c.presenter.RenderTurn(text, chat.RoleAssistant, assistantLabel)
	return Result{Outcome: outcome, Notice: text}
}

// finish runs on every exit path of an exchange, panics included.
func (c *Controller) finish() {
	c.mu.Lock()
	c.state.Sending = false
	c.mu.Unlock()
	c.presenter.SetInputEnabled(true)
}

// Sending reports whether an exchange is outstanding.
func (c *Controller) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Sending
}

// History returns a copy of the conversation so far.
func (c *Controller) History() []chat.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return chat.CloneTurns(c.state.History)
}

// Export snapshots the conversation. It never changes the history.
func (c *Controller) Export() chat.Snapshot {
	return chat.Snapshot{
		ExportedAt:   c.clock.Now(),
		Conversation: c.History(),
	}
}

// Token returns the auth token sent with each request, if any.
func (c *Controller) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.AuthToken
}

// SetToken replaces the auth token. An empty value clears it.
func (c *Controller) SetToken(token string) error {
	token = strings.TrimSpace(token)

	c.mu.Lock()
	c.state.AuthToken = token
	c.mu.Unlock()

	if c.creds == nil {
		return nil
	}
	if token == "" {
		return c.creds.Delete(TokenKey)
	}
	return c.creds.Set(TokenKey, token)
}

// Persona returns the persona text sent with each request.
func (c *Controller) Persona() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persona
}

// SetPersona changes the persona sent with later requests. The system turn
// recorded at session start is left as it was.
func (c *Controller) SetPersona(persona string) {
	c.mu.Lock()
	c.persona = persona
	c.mu.Unlock()
}

// Model returns the model selector sent with each request.
func (c *Controller) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// SetModel changes the model selector. Empty lets the backend choose.
func (c *Controller) SetModel(model string) {
	c.mu.Lock()
	c.model = strings.TrimSpace(model)
	c.mu.Unlock()
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

type nopPresenter struct{}

func (nopPresenter) RenderTurn(string, chat.Role, string) Bubble { return 0 }
func (nopPresenter) ShowPending() func()                         { return func() {} }
func (nopPresenter) SetBubbleText(Bubble, string)                {}
func (nopPresenter) SetInputEnabled(bool)                        {}
