package out

import (
	"context"

	"una/internal/market/domain"
)

// Recipient — кому показать тост
type Recipient struct {
	UserID   string
	DeviceID string
}

// Notifier — fire-and-forget доставка тостов
type Notifier interface {
	Notify(ctx context.Context, to Recipient, n domain.Notification)
}
