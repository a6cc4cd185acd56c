package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/zhouzirui/chatty/internal/config"
	"github.com/zhouzirui/chatty/internal/handler"
	"github.com/zhouzirui/chatty/internal/handler/chat"
	"github.com/zhouzirui/chatty/internal/middleware"
	"github.com/zhouzirui/chatty/internal/model/persona"
	"github.com/zhouzirui/chatty/internal/observability"
	"github.com/zhouzirui/chatty/internal/service/ai"
	chatService "github.com/zhouzirui/chatty/internal/service/chat"
	"github.com/zhouzirui/chatty/internal/store/conversation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		logger.Info().Err(err).Msg("no .env file loaded, continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.Level(cfg.LogLevel)
	log.Logger = logger

	personaStore := persona.NewMemoryStore(persona.Seed())
	defaultPersona, _ := personaStore.FindByID(persona.DefaultID)
	conversationSvc := chatService.NewService(defaultPersona.Prompt)

	var replier chat.Replier = ai.Unconfigured{Model: cfg.AI.Model}
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize AI service, replies will report missing credentials")
		} else {
			replier = aiService
			logger.Info().Str("model", aiService.DefaultModel()).Msg("AI service initialized")
		}
	} else {
		logger.Warn().Msg("Ark 凭证未配置，回复将提示缺少 ARK_API_KEY")
	}

	if cfg.Auth.Enabled() {
		logger.Info().Msg("app token required on /chat")
	}

	router := handler.NewRouter(handler.Deps{
		Logger:       logger,
		Personas:     personaStore,
		Conversation: conversationSvc,
		Replier:      replier,
		Archive:      conversation.NewArchive(afero.NewOsFs(), cfg.Archive.Path, logger),
		Metrics:      observability.NewMetrics("chatty"),
		RateLimiter:  middleware.NewRateLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window),
		AppToken:     cfg.Auth.AppToken,
	})

	startServer(ctx, logger, cfg.Server, router)
}

func startServer(ctx context.Context, logger zerolog.Logger, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", addr).Msg("chatty backend listening")
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
