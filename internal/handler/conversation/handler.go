package conversation

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	archive "github.com/zhouzirui/chatty/internal/store/conversation"
	"github.com/zhouzirui/chatty/pkg/utils"
)

// NotFoundMessage 尚无存档时返回的错误信息。
const NotFoundMessage = "No conversation file found."

// Source 提供存档文件的原始内容。
type Source interface {
	Raw() ([]byte, error)
}

// Handler 会话存档下载的HTTP处理器
type Handler struct {
	source Source
}

// New 创建会话存档处理器
func New(source Source) *Handler {
	return &Handler{source: source}
}

// RegisterRoutes 注册会话存档下载路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversation.json", h.handleDownload)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	data, err := h.source.Raw()
	if errors.Is(err, archive.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, NotFoundMessage)
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to read conversation file")
		utils.RespondError(w, http.StatusInternalServerError, "failed to read conversation file")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="conversation.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
