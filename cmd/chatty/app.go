package main

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/chatty/internal/config"
	"github.com/zhouzirui/chatty/internal/export"
	"github.com/zhouzirui/chatty/internal/model/chat"
	"github.com/zhouzirui/chatty/internal/model/persona"
	"github.com/zhouzirui/chatty/internal/presenter"
	"github.com/zhouzirui/chatty/internal/session"
	"github.com/zhouzirui/chatty/internal/transport"
)

const (
	greeting = "Hi! I'm Chatty - ready to chat. Set persona/model or just ask a question."
	busyHint = "Still waiting for the previous reply"
	helpText = `Commands:
  /export [dir]     save this conversation as chatty_conversation.json
  /download [dir]   fetch the backend's conversation.json archive
  /token [value]    set the app token for this session (empty clears it)
  /persona [text]   show or change the persona (preset ID or literal prompt)
  /model [name]     show or change the model (empty uses the backend default)
  /theme            toggle dark and light colors
  /help             show this help
  /quit             leave`
)

// app is one interactive chat session bound to a terminal.
type app struct {
	cfg      *config.ClientConfig
	d        deps
	client   *transport.HTTPClient
	term     *presenter.Terminal
	ctrl     *session.Controller
	personas persona.Store
	logger   zerolog.Logger

	inflight atomic.Bool
	wg       sync.WaitGroup
}

func newApp(cfg *config.ClientConfig, out io.Writer, d deps, logger zerolog.Logger) (*app, error) {
	client, err := newTransport(cfg, transport.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	personas := persona.NewMemoryStore(persona.Seed())
	term := presenter.NewTerminal(out, presenter.WithTheme(presenter.ParseTheme(cfg.Theme)))

	ctrl, err := session.NewController(persona.Resolve(personas, cfg.Persona), client, term, session.Options{
		Model:       cfg.Model,
		RevealDelay: cfg.RevealDelay,
		Credentials: d.creds,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		d:        d,
		client:   client,
		term:     term,
		ctrl:     ctrl,
		personas: personas,
		logger:   logger.With().Str("session", ctrl.ID()).Logger(),
	}, nil
}

// run reads lines from in until EOF, /quit or ctx ends. It returns once any
// exchange still in flight has finished.
func (a *app) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.wg.Wait()

	a.term.RenderTurn(greeting, chat.RoleAssistant, "AI")
	a.term.SetInputEnabled(true)

	lines := readLines(ctx, in)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := a.handleLine(ctx, line); quit {
				return nil
			}
		}
	}
}

// readLines feeds in to a channel from its own goroutine, so input typed
// while a reply is pending still reaches the loop.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// handleLine dispatches one input line and reports whether to quit.
func (a *app) handleLine(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "/") {
		quit := a.command(ctx, trimmed)
		if !quit {
			a.term.Prompt()
		}
		return quit
	}

	if !a.inflight.CompareAndSwap(false, true) {
		a.report(session.Result{Outcome: session.OutcomeBusy})
		return false
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.inflight.Store(false)
		a.report(a.ctrl.SubmitMessage(ctx, line))
	}()
	return false
}

func (a *app) report(res session.Result) {
	a.logger.Debug().Str("outcome", res.Outcome.String()).Msg("submit finished")
	switch res.Outcome {
	case session.OutcomeBusy:
		a.term.Info(busyHint)
	case session.OutcomeIgnored:
		a.term.Prompt()
	}
}

func (a *app) command(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/quit", "/exit":
		return true
	case "/help":
		a.term.Info(helpText)
	case "/export":
		path, err := export.Snapshot(a.saver(arg), a.ctrl.Export())
		if err != nil {
			a.term.Info("Export failed: %v", err)
			return false
		}
		a.term.Info("Conversation exported to %s", path)
	case "/download":
		path, err := export.Download(ctx, a.client, a.saver(arg))
		if err != nil {
			a.term.Info("Download failed: %v", err)
			return false
		}
		a.term.Info("Server conversation saved to %s", path)
	case "/token":
		if err := a.ctrl.SetToken(arg); err != nil {
			a.term.Info("Token kept for this run only: %v", err)
			return false
		}
		if arg == "" {
			a.term.Info("Token cleared")
		} else {
			a.term.Info("Token saved for this session")
		}
	case "/persona":
		if arg == "" {
			a.term.Info("Persona: %s", a.ctrl.Persona())
			return false
		}
		a.ctrl.SetPersona(persona.Resolve(a.personas, arg))
		a.term.Info("Persona set")
	case "/model":
		if arg == "" && a.ctrl.Model() != "" {
			a.ctrl.SetModel("")
			a.term.Info("Model reset to the backend default")
			return false
		}
		if arg == "" {
			a.term.Info("Using the backend default model")
			return false
		}
		a.ctrl.SetModel(arg)
		a.term.Info("Model set to %s", arg)
	case "/theme":
		a.term.Info("Theme: %s", a.term.ToggleTheme())
	default:
		a.term.Info("Unknown command %s, try /help", name)
	}
	return false
}

func (a *app) saver(dir string) export.Saver {
	if dir == "" {
		dir = a.cfg.ExportDir
	}
	return export.NewDirSaver(a.d.fs, dir)
}
