// Package httpx — общие middleware и хелперы JSON-ответов для HTTP-адаптеров сервисов.
package httpx

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"una/internal/shared/logger"
	"una/internal/shared/utils"
)

type contextKey string

const (
	ContextKeyUserID    contextKey = "user_id"
	ContextKeyRequestID contextKey = "request_id"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderDeviceID  = "X-Device-ID"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
)

// TokenValidator — проверка bearer-токена (auth.JWTService)
type TokenValidator interface {
	ExtractUserID(token string) (string, error)
}

// Middleware — обёртка над обработчиком
type Middleware func(http.HandlerFunc) http.HandlerFunc

// RequestID берёт X-Request-ID из запроса или генерирует новый и возвращает его в ответе
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if id == "" {
			id = utils.NewUUID()
		}
		w.Header().Set(HeaderRequestID, id)

		ctx := context.WithValue(r.Context(), ContextKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack — для апгрейда /ws до WebSocket
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Logging пишет одну запись на запрос
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			entry := logger.Entry{
				Action:    "http_request",
				Message:   r.Method + " " + r.URL.Path,
				RequestID: RequestIDFromContext(r.Context()),
				DeviceID:  r.Header.Get(HeaderDeviceID),
				Additional: map[string]any{
					"status":      rec.status,
					"duration_ms": time.Since(start).Milliseconds(),
				},
			}
			if rec.status >= http.StatusInternalServerError {
				log.Error(entry)
				return
			}
			log.Debug(entry)
		})
	}
}

// OptionalAuth — без заголовка Authorization запрос идёт анонимно, с невалидным токеном — 401
func OptionalAuth(tokens TokenValidator, log *logger.Logger) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next(w, r)
				return
			}
			authenticate(tokens, log, next)(w, r)
		}
	}
}

// RequireAuth — только с валидным bearer-токеном
func RequireAuth(tokens TokenValidator, log *logger.Logger) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return authenticate(tokens, log, next)
	}
}

func authenticate(tokens TokenValidator, log *logger.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r)
		if err != nil {
			log.Warn(logger.Entry{
				Action:    "auth_invalid_header",
				Message:   err.Error(),
				RequestID: RequestIDFromContext(r.Context()),
			})
			RespondError(w, http.StatusUnauthorized, err.Error())
			return
		}

		userID, err := tokens.ExtractUserID(token)
		if err != nil {
			log.Warn(logger.Entry{
				Action:    "auth_token_rejected",
				Message:   err.Error(),
				RequestID: RequestIDFromContext(r.Context()),
				Error:     &logger.ErrObj{Msg: err.Error()},
			})
			RespondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
		next(w, r.WithContext(ctx))
	}
}

// BearerToken извлекает токен из "Authorization: Bearer <token>"
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingAuthHeader
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrInvalidAuthHeader
	}
	return strings.TrimSpace(parts[1]), nil
}

// UserIDFromContext — userID, положенный auth middleware
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyUserID).(string)
	return id, ok && id != ""
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}
