package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/dreschagin/monitoring-core/internal/interfaces/http/middleware"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// AuthAPIHandler выдает cookie с токеном для клиентов живой ленты,
// которые не могут передать заголовок Authorization при открытии WebSocket
type AuthAPIHandler struct {
	authConfig middleware.AuthConfig
	cookieTTL  time.Duration
	logger     *logger.Logger
}

type authLoginRequest struct {
	Token string `json:"token"`
}

func NewAuthAPIHandler(authConfig middleware.AuthConfig, cookieTTL time.Duration, log *logger.Logger) *AuthAPIHandler {
	if cookieTTL <= 0 {
		cookieTTL = 12 * time.Hour
	}
	return &AuthAPIHandler{
		authConfig: authConfig,
		cookieTTL:  cookieTTL,
		logger:     log,
	}
}

// Login проверяет токен и сохраняет его в cookie
func (h *AuthAPIHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.authConfig.Enabled {
		middleware.WriteJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"auth_enabled": false,
		})
		return
	}

	var req authLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.authConfig.BearerToken)) != 1 {
		h.logger.Warn("Auth login failed", "remote_addr", r.RemoteAddr)
		writeErrorMessage(w, http.StatusUnauthorized, "invalid token")
		return
	}

	middleware.WriteAuthCookie(w, token, r.TLS != nil, int(h.cookieTTL.Seconds()))
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"auth_enabled": true,
	})
}

// Logout удаляет cookie
func (h *AuthAPIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearAuthCookie(w, r.TLS != nil)
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

// Status сообщает, авторизован ли текущий запрос
func (h *AuthAPIHandler) Status(w http.ResponseWriter, r *http.Request) {
	err := middleware.ValidateRequestAuth(r, h.authConfig)
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"auth_enabled":   h.authConfig.Enabled,
		"authenticated":  err == nil,
		"cookie_present": hasAuthCookie(r),
	})
}

func hasAuthCookie(r *http.Request) bool {
	c, err := r.Cookie(middleware.AuthCookieName)
	if err != nil {
		return false
	}
	return strings.TrimSpace(c.Value) != ""
}
