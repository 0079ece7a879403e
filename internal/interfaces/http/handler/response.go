package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/interfaces/http/middleware"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// maxBodyBytes ограничивает тело запроса админского API
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor сопоставляет доменную ошибку HTTP статусу
func statusFor(err error) int {
	switch {
	case errs.IsNotFound(err):
		return http.StatusNotFound
	case errs.IsConflict(err):
		return http.StatusConflict
	case errs.IsInvalidInput(err):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrSourceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError пишет ошибку; внутренние ошибки логируются, а клиенту уходит общий текст
func writeError(w http.ResponseWriter, err error, log *logger.Logger, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error(msg, err)
		writeErrorMessage(w, status, "internal server error")
		return
	}
	writeErrorMessage(w, status, err.Error())
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	middleware.WriteJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON читает тело запроса; при ошибке сам отвечает 400
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeErrorMessage(w, http.StatusBadRequest, "request body is required")
			return false
		}
		writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// parseTimeParam разбирает RFC3339 или unix секунды; пустое значение дает нулевое время
func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be RFC3339 or unix seconds: %w", name, errs.ErrInvalidTimeRange)
	}
	return t, nil
}

// parseDurationParam разбирает длительность; пустое значение дает def
func parseDurationParam(r *http.Request, name string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration: %w", name, errs.ErrInvalidTimeRange)
	}
	return d, nil
}

// parseVersionParam читает ожидаемую версию из ?version= или If-Match
func parseVersionParam(r *http.Request) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("version"))
	if raw == "" {
		raw = strings.Trim(strings.TrimSpace(r.Header.Get("If-Match")), `"`)
	}
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, errs.ConfigInvalid("version must be a non-negative integer")
	}
	return &v, nil
}
