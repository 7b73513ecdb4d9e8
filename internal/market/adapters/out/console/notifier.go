package console

import (
	"context"
	"fmt"
	"io"
	"sync"

	out "una/internal/market/application/ports/out"
	"una/internal/market/domain"
)

// Notifier печатает тосты в терминал
type Notifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{w: w}
}

var _ out.Notifier = (*Notifier)(nil)

func (n *Notifier) Notify(_ context.Context, _ out.Recipient, msg domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.w, "[%s] %s: %s\n", msg.Severity, msg.Title, msg.Description)
}
