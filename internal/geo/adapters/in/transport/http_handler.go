package transport

import (
	"errors"
	"net/http"

	in "una/internal/geo/application/ports/in"
	out "una/internal/geo/application/ports/out"
	"una/internal/geo/domain"
	"una/internal/shared/httpx"
	"una/internal/shared/logger"
)

type HTTPHandler struct {
	locator  in.LocateUseCase
	presence in.PresenceUseCase
	devices  out.DeviceLocator
	log      *logger.Logger
}

func NewHTTPHandler(locator in.LocateUseCase, presence in.PresenceUseCase, devices out.DeviceLocator, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{locator: locator, presence: presence, devices: devices, log: log}
}

// RegisterRoutes — все маршруты требуют авторизации
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux, auth httpx.Middleware) {
	mux.HandleFunc("GET /location", auth(h.handleLocate))
	mux.HandleFunc("POST /presence/open", auth(h.handleOpen))
	mux.HandleFunc("DELETE /presence/open", auth(h.handleClose))
	mux.HandleFunc("GET /presence", auth(h.handleList))
}

// GET /location — текущие координаты устройства пользователя
func (h *HTTPHandler) handleLocate(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	res, err := h.locator.CurrentLocation(r.Context(), h.devices.ForUser(userID))
	if err != nil {
		h.respondError(w, r, "locate_failed", err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, res)
}

// POST /presence/open
func (h *HTTPHandler) handleOpen(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	res, err := h.presence.OpenToHang(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, "open_to_hang_failed", err)
		return
	}

	status := http.StatusCreated
	if res.Reused {
		status = http.StatusOK
	}
	httpx.RespondJSON(w, status, OpenResponse{
		Presence: toPresenceResponse(res.Presence),
		Reused:   res.Reused,
	})
}

// DELETE /presence/open
func (h *HTTPHandler) handleClose(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if err := h.presence.CloseHang(r.Context(), userID); err != nil {
		h.respondError(w, r, "close_hang_failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /presence
func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.presence.ListOpen(r.Context())
	if err != nil {
		h.respondError(w, r, "list_presence_failed", err)
		return
	}

	resp := make([]PresenceResponse, 0, len(list))
	for _, p := range list {
		resp = append(resp, toPresenceResponse(p))
	}
	httpx.RespondJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, r *http.Request, action string, err error) {
	var lerr *domain.LocationError
	switch {
	case errors.As(err, &lerr):
		attempts := make([]string, 0, len(lerr.Attempts))
		for _, a := range lerr.Attempts {
			attempts = append(attempts, a.Stage)
		}
		h.log.Warn(logger.Entry{
			Action:    action,
			Message:   lerr.Error(),
			RequestID: httpx.RequestIDFromContext(r.Context()),
		})
		httpx.RespondJSON(w, http.StatusUnprocessableEntity, LocationErrorResponse{
			Error:    http.StatusText(http.StatusUnprocessableEntity),
			Kind:     lerr.Kind,
			Message:  lerr.Message,
			Attempts: attempts,
		})
	case errors.Is(err, domain.ErrPresenceNotFound):
		httpx.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUserRequired), errors.Is(err, domain.ErrInvalidCoordinates):
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error(logger.Entry{
			Action:    action,
			Message:   err.Error(),
			RequestID: httpx.RequestIDFromContext(r.Context()),
			Error:     &logger.ErrObj{Msg: err.Error()},
		})
		httpx.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
