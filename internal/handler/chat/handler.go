package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/hlog"

	"github.com/zhouzirui/chatty/internal/model/chat"
	"github.com/zhouzirui/chatty/internal/model/persona"
	"github.com/zhouzirui/chatty/internal/observability"
	chatService "github.com/zhouzirui/chatty/internal/service/chat"
	"github.com/zhouzirui/chatty/pkg/utils"
)

// EmptyMessageReply 消息为空时返回的提示。
const EmptyMessageReply = "Please type a message."

// Replier 根据会话生成助手回复。
type Replier interface {
	Reply(ctx context.Context, turns []chat.Turn, modelName string) (string, error)
	DefaultModel() string
}

// Archiver 在每轮对话结束后保存会话。
type Archiver interface {
	Save(turns []chat.Turn) (chat.Record, error)
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	replier      Replier
	conversation *chatService.Service
	personas     persona.Store
	archive      Archiver
	metrics      *observability.Metrics
	validate     *validator.Validate
	now          func() time.Time

	// exchange 串行处理请求，避免不同客户端的轮次交错。
	exchange sync.Mutex
}

// Option 定制聊天处理器。
type Option func(*Handler)

// WithMetrics 记录请求结果与回复耗时。
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithArchive 每次回复后保存会话存档。
func WithArchive(a Archiver) Option {
	return func(h *Handler) { h.archive = a }
}

// WithClock 替换时间戳来源。
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// New 创建聊天处理器
func New(replier Replier, conversation *chatService.Service, personas persona.Store, opts ...Option) *Handler {
	h := &Handler{
		replier:      replier,
		conversation: conversation,
		personas:     personas,
		validate:     validator.New(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)

	var payload chat.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.count("invalid")
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		h.count("invalid")
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		h.count("empty")
		utils.RespondJSON(w, http.StatusOK, chat.ChatResponse{Reply: EmptyMessageReply})
		return
	}

	systemPrompt := persona.Resolve(h.personas, strings.TrimSpace(payload.Persona))
	modelName := strings.TrimSpace(payload.Model)
	if modelName == "" {
		modelName = h.replier.DefaultModel()
	}

	h.exchange.Lock()
	defer h.exchange.Unlock()

	turns, err := h.conversation.BeginExchange(r.Context(), systemPrompt, message)
	if err != nil {
		h.count("invalid")
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	started := time.Now()
	reply, err := h.replier.Reply(r.Context(), turns, modelName)
	if h.metrics != nil {
		h.metrics.ObserveReplyLatency(time.Since(started))
	}
	outcome := "replied"
	if err != nil {
		logger.Error().Err(err).Str("model", modelName).Msg("reply generation failed")
		reply = "[LLM error: " + err.Error() + "]"
		outcome = "llm_error"
	}

	turns, err = h.conversation.CompleteExchange(r.Context(), reply)
	if err != nil && !errors.Is(err, chatService.ErrNoPendingTurn) {
		logger.Warn().Err(err).Msg("could not record assistant turn")
	}
	h.save(r, turns)
	h.count(outcome)

	ts := h.now().UTC()
	utils.RespondJSON(w, http.StatusOK, chat.ChatResponse{
		Reply:     reply,
		Timestamp: &ts,
		Model:     modelName,
	})
}

// save 保存会话存档，失败只记录日志，不影响响应。
func (h *Handler) save(r *http.Request, turns []chat.Turn) {
	if h.archive == nil || len(turns) == 0 {
		return
	}
	result := "ok"
	record, err := h.archive.Save(turns)
	if err != nil {
		result = "error"
		hlog.FromRequest(r).Warn().Err(err).Msg("failed to archive conversation")
	} else {
		hlog.FromRequest(r).Debug().Str("record_id", record.ID).Int("turns", len(turns)).Msg("conversation archived")
	}
	if h.metrics != nil {
		h.metrics.ArchiveSaves.WithLabelValues(result).Inc()
	}
}

func (h *Handler) count(outcome string) {
	if h.metrics != nil {
		h.metrics.ChatRequests.WithLabelValues(outcome).Inc()
	}
}
