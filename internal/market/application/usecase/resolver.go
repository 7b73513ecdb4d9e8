package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	in "una/internal/market/application/ports/in"
	out "una/internal/market/application/ports/out"
	"una/internal/market/domain"
	"una/internal/shared/logger"

	"golang.org/x/sync/singleflight"
)

const (
	defaultIPTimeout    = 8 * time.Second
	defaultStoreTimeout = 5 * time.Second
)

// Resolver — stateless реализация in.MarketUseCase.
// Порядок источников: хранилище пользователя → выбор на устройстве → IP → детекция из кеша → дефолт.
type Resolver struct {
	prefs        out.PreferenceRepository
	locator      out.IPLocator
	notifier     out.Notifier
	events       out.EventPublisher
	log          *logger.Logger
	ipTimeout    time.Duration
	storeTimeout time.Duration
	now          func() time.Time

	flight singleflight.Group
}

type Option func(*Resolver)

// WithEventPublisher включает публикацию событий рынка
func WithEventPublisher(p out.EventPublisher) Option {
	return func(r *Resolver) { r.events = p }
}

// WithIPTimeout ограничивает ожидание сервиса геолокации
func WithIPTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.ipTimeout = d
		}
	}
}

// WithStoreTimeout ограничивает одно обращение к хранилищу предпочтений
func WithStoreTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.storeTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver. prefs, locator и notifier могут быть nil: соответствующий шаг пропускается.
func NewResolver(
	prefs out.PreferenceRepository,
	locator out.IPLocator,
	notifier out.Notifier,
	log *logger.Logger,
	opts ...Option,
) *Resolver {
	r := &Resolver{
		prefs:        prefs,
		locator:      locator,
		notifier:     notifier,
		log:          log,
		ipTimeout:    defaultIPTimeout,
		storeTimeout: defaultStoreTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ in.MarketUseCase = (*Resolver)(nil)

// Resolve — одновременные вызовы с одного устройства схлопываются в один.
// Устройства одного пользователя резолвятся отдельно: у каждого свой IP и свой кеш.
func (r *Resolver) Resolve(ctx context.Context, s in.Subject) domain.Preference {
	key := flightKey(s)
	if key == "" {
		return r.resolve(ctx, s)
	}

	v, _, _ := r.flight.Do(key, func() (any, error) {
		// результат разделяют несколько запросов: отмена первого не должна портить остальные
		return r.resolve(context.WithoutCancel(ctx), s), nil
	})
	return v.(domain.Preference)
}

func flightKey(s in.Subject) string {
	switch {
	case s.IsUser():
		return "user:" + s.UserID + "|device:" + s.DeviceID
	case s.DeviceID != "":
		return "device:" + s.DeviceID
	default:
		return ""
	}
}

func (r *Resolver) resolve(ctx context.Context, s in.Subject) domain.Preference {
	pref := r.resolveChain(ctx, s)

	r.log.Info(logger.Entry{
		Action:   "market_resolved",
		Message:  string(pref.Market),
		UserID:   s.UserID,
		DeviceID: s.DeviceID,
		Additional: map[string]any{
			"language":    pref.Language,
			"source":      pref.Source,
			"auto_detect": pref.AutoDetect,
		},
	})
	return pref
}

func (r *Resolver) resolveChain(ctx context.Context, s in.Subject) domain.Preference {
	if r.persists(s) {
		if stored, ok := r.loadStored(ctx, s); ok {
			pref := stored.Preference()
			if !pref.AutoDetect {
				return pref
			}
			detected, ok := r.detect(ctx, s)
			if !ok {
				return pref
			}
			r.persist(ctx, s, detected)
			return detected
		}

		if detected, ok := r.detect(ctx, s); ok {
			r.persist(ctx, s, detected)
			return detected
		}
		return r.fallback(ctx, s)
	}

	if pref, ok := r.selected(ctx, s); ok {
		return pref
	}
	if detected, ok := r.detect(ctx, s); ok {
		return detected
	}
	return r.fallback(ctx, s)
}

// Peek — текущее предпочтение без сети и без записи
func (r *Resolver) Peek(ctx context.Context, s in.Subject) domain.Preference {
	if r.persists(s) {
		if stored, ok := r.loadStored(ctx, s); ok {
			return stored.Preference()
		}
	}
	if pref, ok := r.selected(ctx, s); ok {
		return pref
	}
	return r.fallback(ctx, s)
}

// SetMarket — ручной выбор рынка: язык из рынка, autoDetect=false
func (r *Resolver) SetMarket(ctx context.Context, input in.SetMarketInput) (domain.Preference, error) {
	if !input.Market.Valid() {
		return domain.Preference{}, domain.ErrInvalidMarket
	}
	s := input.Subject

	pref := domain.ForMarket(input.Market, false, domain.SourceLocalCache)
	r.cacheSet(ctx, s, domain.KeySelectedMarket, string(pref.Market))
	r.cacheSet(ctx, s, domain.KeySelectedLanguage, string(pref.Language))

	if r.persists(s) {
		if err := r.store(ctx, s.UserID, pref); err != nil {
			r.notify(ctx, s, domain.SaveFailedNotice(pref.Language))
		} else {
			pref.Source = domain.SourceDatabase
		}
	}

	r.notify(ctx, s, domain.MarketChangedNotice(pref.Market))
	r.publish(ctx, s, domain.EventMarketChanged, pref, "")

	r.log.Info(logger.Entry{
		Action:   "market_selected",
		Message:  string(pref.Market),
		UserID:   s.UserID,
		DeviceID: s.DeviceID,
		Additional: map[string]any{
			"language": pref.Language,
			"source":   pref.Source,
		},
	})
	return pref, nil
}

// SetLanguage — ручной выбор языка; рынок и autoDetect не меняются
func (r *Resolver) SetLanguage(ctx context.Context, input in.SetLanguageInput) (domain.Preference, error) {
	if !input.Language.Valid() {
		return domain.Preference{}, domain.ErrInvalidLanguage
	}
	s := input.Subject

	var base domain.Preference
	switch {
	case input.Current != nil && input.Current.Market.Valid():
		base = *input.Current
		if s.IsUser() {
			// autoDetect живёт в хранилище; сессия могла его не знать
			if stored, ok := r.loadStored(ctx, s); ok {
				base.AutoDetect = stored.AutoDetect
			}
		}
	default:
		base = r.Peek(ctx, s)
	}

	pref := domain.Preference{
		Market:     base.Market,
		Language:   input.Language,
		AutoDetect: base.AutoDetect,
		Source:     domain.SourceLocalCache,
	}
	r.cacheSet(ctx, s, domain.KeySelectedLanguage, string(pref.Language))

	if r.persists(s) {
		if err := r.store(ctx, s.UserID, pref); err != nil {
			r.notify(ctx, s, domain.SaveFailedNotice(pref.Language))
		} else {
			pref.Source = domain.SourceDatabase
		}
	}

	r.publish(ctx, s, domain.EventLanguageChanged, pref, "")

	r.log.Info(logger.Entry{
		Action:   "language_selected",
		Message:  string(pref.Language),
		UserID:   s.UserID,
		DeviceID: s.DeviceID,
		Additional: map[string]any{
			"market": pref.Market,
		},
	})
	return pref, nil
}

// persists — есть куда сохранять: пользователь вошёл и хранилище подключено.
// Без хранилища выбор живёт только в кеше устройства, как у анонимного.
func (r *Resolver) persists(s in.Subject) bool {
	return s.IsUser() && r.prefs != nil
}

// loadStored — ошибка чтения логируется и считается отсутствием строки
func (r *Resolver) loadStored(ctx context.Context, s in.Subject) (*domain.StoredPreference, bool) {
	if r.prefs == nil {
		return nil, false
	}

	sctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()

	stored, err := r.prefs.Get(sctx, s.UserID)
	switch {
	case errors.Is(err, domain.ErrPreferenceNotFound):
		return nil, false
	case err != nil:
		r.log.Error(logger.Entry{
			Action:  "preference_read_failed",
			Message: err.Error(),
			UserID:  s.UserID,
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return nil, false
	case stored == nil || !stored.Market.Valid():
		return nil, false
	}
	return stored, true
}

func (r *Resolver) store(ctx context.Context, userID string, pref domain.Preference) error {
	if r.prefs == nil {
		return errors.New("preference store not configured")
	}

	sctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()

	err := r.prefs.Upsert(sctx, domain.StoredPreference{
		UserID:     userID,
		Market:     pref.Market,
		Language:   pref.Language,
		AutoDetect: pref.AutoDetect,
		UpdatedAt:  r.now().UTC(),
	})
	if err != nil {
		r.log.Error(logger.Entry{
			Action:  "preference_write_failed",
			Message: err.Error(),
			UserID:  userID,
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	return err
}

// persist — фоновое сохранение результата детекции, ошибка только логируется
func (r *Resolver) persist(ctx context.Context, s in.Subject, pref domain.Preference) {
	if !r.persists(s) {
		return
	}
	_ = r.store(ctx, s.UserID, pref)
}

// detect — шаг IP-детекции. ok=false при любой ошибке, таймауте или пустом country_code.
func (r *Resolver) detect(ctx context.Context, s in.Subject) (domain.Preference, bool) {
	if r.locator == nil {
		return domain.Preference{}, false
	}

	dctx, cancel := context.WithTimeout(ctx, r.ipTimeout)
	defer cancel()

	loc, err := r.locator.Locate(dctx, s.ClientIP)
	if err != nil {
		r.log.Warn(logger.Entry{
			Action:   "ip_detection_failed",
			Message:  err.Error(),
			UserID:   s.UserID,
			DeviceID: s.DeviceID,
			Error:    &logger.ErrObj{Msg: err.Error()},
		})
		return domain.Preference{}, false
	}
	if loc == nil || strings.TrimSpace(loc.CountryCode) == "" {
		r.log.Warn(logger.Entry{
			Action:   "ip_detection_failed",
			Message:  domain.ErrCountryUnknown.Error(),
			UserID:   s.UserID,
			DeviceID: s.DeviceID,
		})
		return domain.Preference{}, false
	}

	market := domain.MarketForCountry(loc.CountryCode)
	pref := domain.ForMarket(market, true, domain.SourceIPDetection)

	r.cacheSet(ctx, s, domain.KeyDetectedMarket, string(pref.Market))
	r.cacheSet(ctx, s, domain.KeyDetectedLanguage, string(pref.Language))
	r.publish(ctx, s, domain.EventMarketDetected, pref, strings.ToUpper(strings.TrimSpace(loc.CountryCode)))

	return pref, true
}

// selected — ручной выбор на устройстве; нужны оба ключа
func (r *Resolver) selected(ctx context.Context, s in.Subject) (domain.Preference, bool) {
	m, okM := r.cacheGet(ctx, s, domain.KeySelectedMarket)
	l, okL := r.cacheGet(ctx, s, domain.KeySelectedLanguage)
	if !okM || !okL {
		return domain.Preference{}, false
	}

	market, lang := domain.Market(m), domain.Language(l)
	if !market.Valid() || !lang.Valid() {
		r.log.Warn(logger.Entry{
			Action:   "local_selection_invalid",
			Message:  m + "/" + l,
			DeviceID: s.DeviceID,
		})
		return domain.Preference{}, false
	}

	return domain.Preference{
		Market:     market,
		Language:   lang,
		AutoDetect: false,
		Source:     domain.SourceLocalCache,
	}, true
}

// fallback — последняя удачная детекция на устройстве, иначе israel/he
func (r *Resolver) fallback(ctx context.Context, s in.Subject) domain.Preference {
	m, ok := r.cacheGet(ctx, s, domain.KeyDetectedMarket)
	market := domain.Market(m)
	if !ok || !market.Valid() {
		return domain.DefaultPreference()
	}

	pref := domain.ForMarket(market, true, domain.SourceLocalCache)
	if l, ok := r.cacheGet(ctx, s, domain.KeyDetectedLanguage); ok && domain.Language(l).Valid() {
		pref.Language = domain.Language(l)
	}
	return pref
}

func (r *Resolver) cacheGet(ctx context.Context, s in.Subject, key string) (string, bool) {
	if s.Cache == nil {
		return "", false
	}
	v, ok, err := s.Cache.Get(ctx, key)
	if err != nil {
		r.log.Warn(logger.Entry{
			Action:   "local_cache_read_failed",
			Message:  err.Error(),
			DeviceID: s.DeviceID,
			Additional: map[string]any{
				"key": key,
			},
		})
		return "", false
	}
	return v, ok && v != ""
}

func (r *Resolver) cacheSet(ctx context.Context, s in.Subject, key, value string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Set(ctx, key, value); err != nil {
		r.log.Warn(logger.Entry{
			Action:   "local_cache_write_failed",
			Message:  err.Error(),
			DeviceID: s.DeviceID,
			Additional: map[string]any{
				"key": key,
			},
		})
	}
}

func (r *Resolver) notify(ctx context.Context, s in.Subject, n domain.Notification) {
	if r.notifier == nil {
		return
	}
	r.notifier.Notify(ctx, out.Recipient{UserID: s.UserID, DeviceID: s.DeviceID}, n)
}

func (r *Resolver) publish(ctx context.Context, s in.Subject, eventType string, pref domain.Preference, country string) {
	if r.events == nil {
		return
	}
	event := domain.Event{
		Type:       eventType,
		DeviceID:   s.DeviceID,
		Market:     pref.Market,
		Language:   pref.Language,
		AutoDetect: pref.AutoDetect,
		Country:    country,
		Timestamp:  r.now().UTC(),
	}
	if s.IsUser() {
		event.UserID = s.UserID
	}
	if err := r.events.Publish(ctx, event); err != nil {
		r.log.Warn(logger.Entry{
			Action:   "market_event_publish_failed",
			Message:  err.Error(),
			UserID:   s.UserID,
			DeviceID: s.DeviceID,
			Error:    &logger.ErrObj{Msg: err.Error()},
		})
	}
}
