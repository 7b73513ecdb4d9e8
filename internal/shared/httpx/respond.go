package httpx

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// ErrorResponse — тело всех ошибок
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// ReadJSON декодирует ровно один JSON-объект, неизвестные поля — ошибка
func ReadJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return io.ErrUnexpectedEOF
	}
	return nil
}

// ClientIP — публичный адрес клиента (X-Forwarded-For, X-Real-IP, RemoteAddr).
// Для loopback и приватных адресов пусто: сервис геолокации определит адрес сам.
func ClientIP(r *http.Request) string {
	candidates := []string{}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		candidates = append(candidates, strings.Split(xff, ",")[0])
	}
	candidates = append(candidates, r.Header.Get("X-Real-IP"))
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		candidates = append(candidates, host)
	} else {
		candidates = append(candidates, r.RemoteAddr)
	}

	for _, c := range candidates {
		ip := net.ParseIP(strings.TrimSpace(c))
		if ip == nil {
			continue
		}
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
			return ""
		}
		return ip.String()
	}
	return ""
}

// Health — liveness probe
func Health(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": service})
	}
}
