package usecase

import (
	"context"
	"fmt"
	"time"

	in "una/internal/geo/application/ports/in"
	out "una/internal/geo/application/ports/out"
	"una/internal/geo/domain"
	"una/internal/shared/logger"
)

// Locator — трёхшаговый каскад геолокации. Состояния между вызовами не хранит.
type Locator struct {
	stages []domain.Stage
	log    *logger.Logger
}

// NewLocator. Пустой stages — domain.DefaultStages().
func NewLocator(stages []domain.Stage, log *logger.Logger) *Locator {
	if len(stages) == 0 {
		stages = domain.DefaultStages()
	}
	return &Locator{stages: stages, log: log}
}

var _ in.LocateUseCase = (*Locator)(nil)

type outcome struct {
	pos domain.Position
	err error
}

// CurrentLocation проходит шаги по порядку до первого успеха.
// Отказ в доступе прерывает каскад сразу.
func (l *Locator) CurrentLocation(ctx context.Context, src out.PositionSource) (*domain.GeolocationResult, error) {
	attempts := make([]domain.AttemptError, 0, len(l.stages))

	for _, stage := range l.stages {
		pos, err := l.attempt(ctx, src, stage)
		if err == nil {
			l.log.Debug(logger.Entry{
				Action:  "geolocation_resolved",
				Message: stage.Name,
				Additional: map[string]any{
					"tier":     stage.Tier,
					"accuracy": pos.Accuracy,
					"attempts": len(attempts) + 1,
				},
			})
			return &domain.GeolocationResult{
				Latitude:     pos.Latitude,
				Longitude:    pos.Longitude,
				Accuracy:     pos.Accuracy,
				AccuracyTier: stage.Tier,
			}, nil
		}

		attempts = append(attempts, domain.AttemptError{Stage: stage.Name, Err: err})
		l.log.Debug(logger.Entry{
			Action:  "geolocation_stage_failed",
			Message: err.Error(),
			Additional: map[string]any{
				"stage": stage.Name,
			},
		})

		if domain.IsPermissionDenied(err) || ctx.Err() != nil {
			break
		}
	}

	lerr := domain.NewLocationError(attempts)
	l.log.Warn(logger.Entry{
		Action:  "geolocation_failed",
		Message: lerr.Error(),
		Additional: map[string]any{
			"kind": lerr.Kind,
		},
	})
	return nil, lerr
}

// attempt — один шаг. Источник гоняется против собственного таймера шага;
// ответ, пришедший после таймера, уходит в буфер канала и никем не читается.
func (l *Locator) attempt(ctx context.Context, src out.PositionSource, stage domain.Stage) (domain.Position, error) {
	stageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan outcome, 1)
	go func() {
		pos, err := src.RequestPosition(stageCtx, stage.Options)
		results <- outcome{pos: pos, err: err}
	}()

	timer := time.NewTimer(max(stage.Options.Timeout, 0))
	defer timer.Stop()

	select {
	case r := <-results:
		if r.err != nil {
			return domain.Position{}, r.err
		}
		if err := domain.ValidateCoordinates(r.pos.Latitude, r.pos.Longitude); err != nil {
			return domain.Position{}, &domain.PositionError{
				Code:    domain.CodePositionUnavailable,
				Message: fmt.Sprintf("%v: %f,%f", err, r.pos.Latitude, r.pos.Longitude),
			}
		}
		return r.pos, nil

	case <-timer.C:
		return domain.Position{}, &domain.PositionError{
			Code:    domain.CodeTimeout,
			Message: fmt.Sprintf("%s stage timed out after %s", stage.Name, stage.Options.Timeout),
		}

	case <-ctx.Done():
		return domain.Position{}, ctx.Err()
	}
}
