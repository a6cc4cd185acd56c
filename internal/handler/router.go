package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/chatty/internal/handler/chat"
	"github.com/zhouzirui/chatty/internal/handler/conversation"
	"github.com/zhouzirui/chatty/internal/handler/persona"
	"github.com/zhouzirui/chatty/internal/middleware"
	personaModel "github.com/zhouzirui/chatty/internal/model/persona"
	"github.com/zhouzirui/chatty/internal/observability"
	chatService "github.com/zhouzirui/chatty/internal/service/chat"
)

// Archive is the conversation file the chat handler writes and the download route serves.
type Archive interface {
	chat.Archiver
	conversation.Source
}

// Deps bundles everything the router wires together.
type Deps struct {
	Logger       zerolog.Logger
	Personas     personaModel.Store
	Conversation *chatService.Service
	Replier      chat.Replier
	Archive      Archive
	Metrics      *observability.Metrics
	RateLimiter  *middleware.RateLimiter
	AppToken     string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS)

	chatOpts := []chat.Option{chat.WithArchive(deps.Archive)}
	if deps.Metrics != nil {
		chatOpts = append(chatOpts, chat.WithMetrics(deps.Metrics))
	}
	chatHandler := chat.New(deps.Replier, deps.Conversation, deps.Personas, chatOpts...)

	r.Group(func(g chi.Router) {
		if deps.RateLimiter != nil {
			g.Use(deps.RateLimiter.Middleware)
		}
		g.Use(middleware.RequireToken(deps.AppToken))
		chatHandler.RegisterRoutes(g)
	})

	conversation.New(deps.Archive).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		persona.New(deps.Personas).RegisterRoutes(api)
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	return r
}
