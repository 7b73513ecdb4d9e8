package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	in "una/internal/geo/application/ports/in"
	out "una/internal/geo/application/ports/out"
	"una/internal/geo/domain"
	"una/internal/shared/logger"
	"una/internal/shared/utils"

	"golang.org/x/sync/singleflight"
)

const (
	defaultShareInterval = time.Hour
	defaultPresenceTTL   = 2 * time.Hour

	// storeBudget — чтение последней отметки и запись новой
	storeBudget = 10 * time.Second
)

// PresenceService — "open to hang". Повторный запрос координат не чаще ShareInterval.
type PresenceService struct {
	locator     in.LocateUseCase
	devices     out.DeviceLocator
	repo        out.PresenceRepository
	publisher   out.PresencePublisher
	broadcaster out.PresenceBroadcaster
	interval    time.Duration
	ttl         time.Duration
	flightLimit time.Duration
	now         func() time.Time
	log         *logger.Logger

	flight singleflight.Group
}

type PresenceOption func(*PresenceService)

func WithPublisher(p out.PresencePublisher) PresenceOption {
	return func(s *PresenceService) { s.publisher = p }
}

func WithBroadcaster(b out.PresenceBroadcaster) PresenceOption {
	return func(s *PresenceService) { s.broadcaster = b }
}

// WithShareInterval — минимальный интервал между запросами координат одного пользователя
func WithShareInterval(d time.Duration) PresenceOption {
	return func(s *PresenceService) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithPresenceTTL(d time.Duration) PresenceOption {
	return func(s *PresenceService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithFlightTimeout ограничивает общий каскад, который делят одновременные вызовы пользователя
func WithFlightTimeout(d time.Duration) PresenceOption {
	return func(s *PresenceService) {
		if d > 0 {
			s.flightLimit = d
		}
	}
}

func WithPresenceClock(now func() time.Time) PresenceOption {
	return func(s *PresenceService) { s.now = now }
}

func NewPresenceService(
	locator in.LocateUseCase,
	devices out.DeviceLocator,
	repo out.PresenceRepository,
	log *logger.Logger,
	opts ...PresenceOption,
) *PresenceService {
	s := &PresenceService{
		locator:  locator,
		devices:  devices,
		repo:     repo,
		interval:    defaultShareInterval,
		ttl:         defaultPresenceTTL,
		flightLimit: domain.MaxWait(domain.DefaultStages()) + storeBudget,
		now:         time.Now,
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ in.PresenceUseCase = (*PresenceService)(nil)

// OpenToHang делится текущим местом пользователя. Параллельные вызовы одного пользователя
// ждут один каскад; отмена одного вызывающего не прерывает каскад для остальных.
func (s *PresenceService) OpenToHang(ctx context.Context, userID string) (in.OpenResult, error) {
	if userID == "" {
		return in.OpenResult{}, domain.ErrUserRequired
	}

	ch := s.flight.DoChan(userID, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.flightLimit)
		defer cancel()
		return s.openToHang(fctx, userID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return in.OpenResult{}, res.Err
		}
		return res.Val.(in.OpenResult), nil
	case <-ctx.Done():
		return in.OpenResult{}, ctx.Err()
	}
}

func (s *PresenceService) openToHang(ctx context.Context, userID string) (in.OpenResult, error) {
	now := s.now().UTC()

	latest, err := s.repo.LatestActive(ctx, userID, now)
	switch {
	case err == nil && now.Sub(latest.SharedAt) < s.interval:
		s.log.Debug(logger.Entry{
			Action:  "presence_reused",
			Message: latest.ID,
			UserID:  userID,
		})
		return in.OpenResult{Presence: *latest, Reused: true}, nil
	case err != nil && !errors.Is(err, domain.ErrPresenceNotFound):
		return in.OpenResult{}, fmt.Errorf("load latest presence: %w", err)
	}

	loc, err := s.locator.CurrentLocation(ctx, s.devices.ForUser(userID))
	if err != nil {
		return in.OpenResult{}, err
	}

	sharedAt := s.now().UTC()
	p := domain.Presence{
		ID:           utils.NewUUID(),
		UserID:       userID,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		Accuracy:     loc.Accuracy,
		AccuracyTier: loc.AccuracyTier,
		SharedAt:     sharedAt,
		ExpiresAt:    sharedAt.Add(s.ttl),
	}

	if err := s.repo.Save(ctx, p); err != nil {
		return in.OpenResult{}, fmt.Errorf("save presence: %w", err)
	}

	s.emit(ctx, domain.PresenceEvent{
		Type:      domain.EventPresenceShared,
		UserID:    userID,
		Presence:  &p,
		Timestamp: sharedAt,
	})

	s.log.Info(logger.Entry{
		Action:  "presence_shared",
		Message: p.ID,
		UserID:  userID,
		Additional: map[string]any{
			"tier":       p.AccuracyTier,
			"expires_at": p.ExpiresAt,
		},
	})
	return in.OpenResult{Presence: p}, nil
}

// CloseHang закрывает активную отметку пользователя
func (s *PresenceService) CloseHang(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrUserRequired
	}

	now := s.now().UTC()
	n, err := s.repo.Expire(ctx, userID, now)
	if err != nil {
		return fmt.Errorf("expire presence: %w", err)
	}
	if n == 0 {
		return domain.ErrPresenceNotFound
	}

	s.emit(ctx, domain.PresenceEvent{
		Type:      domain.EventPresenceClosed,
		UserID:    userID,
		Timestamp: now,
	})

	s.log.Info(logger.Entry{
		Action:  "presence_closed",
		Message: fmt.Sprintf("%d share(s) expired", n),
		UserID:  userID,
	})
	return nil
}

// ListOpen — активные отметки для карты
func (s *PresenceService) ListOpen(ctx context.Context) ([]domain.Presence, error) {
	list, err := s.repo.ListActive(ctx, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list presence: %w", err)
	}
	return list, nil
}

func (s *PresenceService) emit(ctx context.Context, event domain.PresenceEvent) {
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.log.Warn(logger.Entry{
				Action:  "presence_publish_failed",
				Message: err.Error(),
				UserID:  event.UserID,
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(ctx, event)
	}
}
