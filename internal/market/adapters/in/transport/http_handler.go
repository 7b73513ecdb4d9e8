package transport

import (
	"errors"
	"net/http"

	in "una/internal/market/application/ports/in"
	out "una/internal/market/application/ports/out"
	"una/internal/market/domain"
	"una/internal/shared/httpx"
	"una/internal/shared/logger"
)

const maxDeviceIDLen = 128

type HTTPHandler struct {
	markets in.MarketUseCase
	caches  out.LocalCacheFactory
	log     *logger.Logger
}

func NewHTTPHandler(markets in.MarketUseCase, caches out.LocalCacheFactory, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{markets: markets, caches: caches, log: log}
}

// RegisterRoutes. auth — httpx.OptionalAuth: рынок доступен и анонимным устройствам.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux, auth httpx.Middleware) {
	mux.HandleFunc("GET /markets", h.handleListMarkets)
	mux.HandleFunc("GET /market", auth(h.handleResolve))
	mux.HandleFunc("PUT /market", auth(h.handleSetMarket))
	mux.HandleFunc("PUT /market/language", auth(h.handleSetLanguage))
}

// GET /market
func (h *HTTPHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subject(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	pref := h.markets.Resolve(r.Context(), subject)
	h.respondPreference(w, pref)
}

// PUT /market
func (h *HTTPHandler) handleSetMarket(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subject(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req SetMarketRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		h.log.Warn(logger.Entry{
			Action:    "set_market_invalid_request",
			Message:   err.Error(),
			RequestID: httpx.RequestIDFromContext(r.Context()),
		})
		httpx.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	market, err := domain.ParseMarket(req.Market)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	pref, err := h.markets.SetMarket(r.Context(), in.SetMarketInput{Subject: subject, Market: market})
	if err != nil {
		h.respondUseCaseError(w, r, "set_market_failed", err)
		return
	}
	h.respondPreference(w, pref)
}

// PUT /market/language
func (h *HTTPHandler) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subject(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req SetLanguageRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		h.log.Warn(logger.Entry{
			Action:    "set_language_invalid_request",
			Message:   err.Error(),
			RequestID: httpx.RequestIDFromContext(r.Context()),
		})
		httpx.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lang, err := domain.ParseLanguage(req.Language)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	pref, err := h.markets.SetLanguage(r.Context(), in.SetLanguageInput{Subject: subject, Language: lang})
	if err != nil {
		h.respondUseCaseError(w, r, "set_language_failed", err)
		return
	}
	h.respondPreference(w, pref)
}

// GET /markets
func (h *HTTPHandler) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	lang, err := domain.ParseLanguage(r.URL.Query().Get("lang"))
	if err != nil {
		lang = domain.LanguageEnglish
	}

	markets := domain.Markets()
	resp := make([]MarketInfo, 0, len(markets))
	for _, m := range markets {
		p := m.Profile()
		resp = append(resp, MarketInfo{
			Market:          m,
			DefaultLanguage: p.DefaultLanguage,
			Currency:        p.Currency,
			Name:            m.DisplayName(lang),
		})
	}
	httpx.RespondJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) subject(r *http.Request) (in.Subject, error) {
	deviceID := r.Header.Get(httpx.HeaderDeviceID)
	if deviceID == "" || len(deviceID) > maxDeviceIDLen {
		return in.Subject{}, domain.ErrDeviceRequired
	}

	userID, authenticated := httpx.UserIDFromContext(r.Context())
	return in.Subject{
		Authenticated: authenticated,
		UserID:        userID,
		DeviceID:      deviceID,
		ClientIP:      httpx.ClientIP(r),
		Cache:         h.caches.ForDevice(deviceID),
	}, nil
}

func (h *HTTPHandler) respondPreference(w http.ResponseWriter, pref domain.Preference) {
	w.Header().Set("Content-Language", pref.Language.Tag().String())
	httpx.RespondJSON(w, http.StatusOK, toPreferenceResponse(pref))
}

func (h *HTTPHandler) respondUseCaseError(w http.ResponseWriter, r *http.Request, action string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidMarket), errors.Is(err, domain.ErrInvalidLanguage):
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
