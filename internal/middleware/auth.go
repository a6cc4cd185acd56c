package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/zhouzirui/chatty/internal/model/chat"
	"github.com/zhouzirui/chatty/pkg/utils"
)

// UnauthorizedReply is the notice sent with a 401.
const UnauthorizedReply = "[Unauthorized - missing or invalid app token]"

// RequireToken rejects requests whose X-APP-TOKEN does not match token.
// An empty token disables the check.
func RequireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		expected := []byte(token)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(chat.TokenHeader)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				hlog.FromRequest(r).Info().Msg("rejected request with missing or invalid app token")
				utils.RespondJSON(w, http.StatusUnauthorized, chat.ChatResponse{Reply: UnauthorizedReply})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
