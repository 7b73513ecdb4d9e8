package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	out "una/internal/geo/application/ports/out"
	"una/internal/geo/domain"
	"una/internal/shared/logger"
	"una/internal/shared/utils"
	"una/internal/shared/ws"
)

// Типы сообщений протокола координат
const (
	MessagePositionRequest = "position_request"
	MessagePositionReport  = "position_report"
	MessagePositionError   = "position_error"
)

var ErrUnknownRequest = errors.New("unknown or expired position request")

type positionRequest struct {
	RequestID    string `json:"request_id"`
	HighAccuracy bool   `json:"high_accuracy"`
	TimeoutMs    int64  `json:"timeout_ms"`
	MaximumAgeMs int64  `json:"maximum_age_ms"`
}

type positionReport struct {
	RequestID string  `json:"request_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	// Timestamp — мс с эпохи, как у платформенного API
	Timestamp int64 `json:"timestamp"`
}

type positionFailure struct {
	RequestID string                   `json:"request_id"`
	Code      domain.PositionErrorCode `json:"code"`
	Message   string                   `json:"message"`
}

type reply struct {
	pos domain.Position
	err error
}

type pendingRequest struct {
	userID string
	ch     chan reply
}

// PositionBroker — платформенный API геолокации поверх WebSocket: запрос уходит на все
// устройства пользователя, засчитывается первый ответ. Ответы на неизвестные
// или уже закрытые request_id отбрасываются.
type PositionBroker struct {
	hub *ws.Hub
	log *logger.Logger

	mu      sync.Mutex
	pending map[string]pendingRequest
}

func NewPositionBroker(hub *ws.Hub, log *logger.Logger) *PositionBroker {
	b := &PositionBroker{
		hub:     hub,
		log:     log,
		pending: make(map[string]pendingRequest),
	}
	hub.Handle(MessagePositionReport, b.handleReport)
	hub.Handle(MessagePositionError, b.handleError)
	return b
}

var _ out.DeviceLocator = (*PositionBroker)(nil)

func (b *PositionBroker) ForUser(userID string) out.PositionSource {
	return out.PositionSourceFunc(func(ctx context.Context, opts domain.PositionOptions) (domain.Position, error) {
		return b.request(ctx, userID, opts)
	})
}

func (b *PositionBroker) request(ctx context.Context, userID string, opts domain.PositionOptions) (domain.Position, error) {
	if !b.hub.IsUserConnected(userID) {
		return domain.Position{}, &domain.PositionError{
			Code:    domain.CodePositionUnavailable,
			Message: "no connected device",
		}
	}

	id := utils.NewUUID()
	ch := make(chan reply, 1)

	b.mu.Lock()
	b.pending[id] = pendingRequest{userID: userID, ch: ch}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	sent, err := b.hub.SendTypedToUser(userID, MessagePositionRequest, positionRequest{
		RequestID:    id,
		HighAccuracy: opts.HighAccuracy,
		TimeoutMs:    opts.Timeout.Milliseconds(),
		MaximumAgeMs: opts.MaximumAge.Milliseconds(),
	})
	if err != nil {
		return domain.Position{}, fmt.Errorf("send position request: %w", err)
	}
	if sent == 0 {
		return domain.Position{}, &domain.PositionError{
			Code:    domain.CodePositionUnavailable,
			Message: "no connected device",
		}
	}

	select {
	case r := <-ch:
		return r.pos, r.err
	case <-ctx.Done():
		return domain.Position{}, ctx.Err()
	}
}

// resolve отдаёт ответ ожидающему запросу. Ответ чужого пользователя не принимается.
func (b *PositionBroker) resolve(client *ws.Client, requestID string, r reply) error {
	b.mu.Lock()
	p, ok := b.pending[requestID]
	b.mu.Unlock()

	if !ok || p.userID != client.UserID {
		b.log.Debug(logger.Entry{
			Action:   "position_reply_dropped",
			Message:  requestID,
			UserID:   client.UserID,
			DeviceID: client.DeviceID,
		})
		return nil
	}

	select {
	case p.ch <- r:
	default:
		// на запрос уже ответило другое устройство
	}
	return nil
}

func (b *PositionBroker) handleReport(client *ws.Client, data json.RawMessage) error {
	var msg positionReport
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode position report: %w", err)
	}

	pos := domain.Position{
		Latitude:  msg.Latitude,
		Longitude: msg.Longitude,
		Accuracy:  msg.Accuracy,
	}
	if msg.Timestamp > 0 {
		pos.Timestamp = time.UnixMilli(msg.Timestamp).UTC()
	}
	return b.resolve(client, msg.RequestID, reply{pos: pos})
}

func (b *PositionBroker) handleError(client *ws.Client, data json.RawMessage) error {
	var msg positionFailure
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode position error: %w", err)
	}
	return b.resolve(client, msg.RequestID, reply{err: &domain.PositionError{
		Code:    msg.Code,
		Message: msg.Message,
	}})
}

// Pending — число ожидающих запросов
func (b *PositionBroker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
