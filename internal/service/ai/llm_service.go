package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/chatty/internal/config"
	"github.com/zhouzirui/chatty/internal/model/chat"
)

const (
	// MissingCredentialsReply is returned when no chat model is configured.
	MissingCredentialsReply = "[No ARK_API_KEY set in backend environment]"

	// UnconfiguredModel names the model in replies when none is configured.
	UnconfiguredModel = "unconfigured"
)

var ErrNoUserTurn = errors.New("conversation does not end with a user turn")

// Service generates assistant replies for a conversation.
type Service struct {
	chatModel    model.BaseChatModel
	defaultModel string
	chain        compose.Runnable[map[string]any, *schema.Message]
	logger       zerolog.Logger
	maxTokens    int
	temperature  float32
}

// Option tunes generation for every reply.
type Option func(*Service)

// WithMaxTokens caps the length of each reply.
func WithMaxTokens(n int) Option {
	return func(s *Service) { s.maxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(s *Service) { s.temperature = t }
}

// NewService creates the Ark-backed service from configuration.
func NewService(ctx context.Context, cfg config.AIConfig, logger zerolog.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	var opts []Option
	if cfg.MaxTokens != nil {
		opts = append(opts, WithMaxTokens(*cfg.MaxTokens))
	}
	if cfg.Temperature != nil {
		opts = append(opts, WithTemperature(float32(*cfg.Temperature)))
	}
	return NewServiceWithModel(ctx, chatModel, cfg.Model, logger, opts...)
}

// NewServiceWithModel builds the prompt chain around an existing chat model.
// Generation defaults to config.DefaultMaxTokens and config.DefaultTemperature.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, defaultModel string, logger zerolog.Logger, opts ...Option) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	s := &Service{
		chatModel:    chatModel,
		defaultModel: defaultModel,
		chain:        runnable,
		logger:       logger,
		maxTokens:    config.DefaultMaxTokens,
		temperature:  float32(config.DefaultTemperature),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DefaultModel is the model used when a request does not pick one.
func (s *Service) DefaultModel() string {
	return s.defaultModel
}

// Reply answers the last user turn of turns. modelName overrides the
// configured model when non-empty.
func (s *Service) Reply(ctx context.Context, turns []chat.Turn, modelName string) (string, error) {
	input, err := buildChainInput(turns)
	if err != nil {
		return "", err
	}

	opts := []model.Option{
		model.WithMaxTokens(s.maxTokens),
		model.WithTemperature(s.temperature),
	}
	if modelName != "" {
		opts = append(opts, model.WithModel(modelName))
	}

	response, err := s.chain.Invoke(ctx, input, compose.WithChatModelOption(opts...))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	s.logger.Info().
		Str("model", orDefault(modelName, s.defaultModel)).
		Int("turns", len(turns)).
		Int("length", len(response.Content)).
		Msg("generated reply")
	return response.Content, nil
}

// buildChainInput splits a conversation into the system prompt, the prior
// history and the query being answered.
func buildChainInput(turns []chat.Turn) (map[string]any, error) {
	if len(turns) == 0 || turns[len(turns)-1].Role != chat.RoleUser {
		return nil, ErrNoUserTurn
	}

	system := ""
	rest := turns[:len(turns)-1]
	if len(rest) > 0 && rest[0].Role == chat.RoleSystem {
		system = rest[0].Content
		rest = rest[1:]
	}

	return map[string]any{
		"system":  system,
		"history": buildHistoryMessages(rest),
		"query":   turns[len(turns)-1].Content,
	}, nil
}

func buildHistoryMessages(turns []chat.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// Unconfigured stands in for the model when no credentials are set.
// Model is reported as the default model so replies keep their shape.
type Unconfigured struct {
	Model string
}

// Reply always reports the missing credentials as the reply text.
func (Unconfigured) Reply(context.Context, []chat.Turn, string) (string, error) {
	return MissingCredentialsReply, nil
}

// DefaultModel returns Model, or UnconfiguredModel when it is empty.
func (u Unconfigured) DefaultModel() string {
	return orDefault(u.Model, UnconfiguredModel)
}
