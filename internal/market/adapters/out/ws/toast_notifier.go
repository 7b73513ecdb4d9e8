package ws

import (
	"context"

	out "una/internal/market/application/ports/out"
	"una/internal/market/domain"
	"una/internal/shared/logger"
	"una/internal/shared/ws"
)

// MessageToast — тип сообщения с тостом
const MessageToast = "toast"

type toastNotifier struct {
	hub *ws.Hub
	log *logger.Logger
}

// NewToastNotifier доставляет тост на устройство-инициатор, а если оно не подключено — всем устройствам пользователя
func NewToastNotifier(hub *ws.Hub, log *logger.Logger) out.Notifier {
	return &toastNotifier{hub: hub, log: log}
}

func (n *toastNotifier) Notify(_ context.Context, to out.Recipient, msg domain.Notification) {
	var (
		delivered int
		err       error
	)

	if to.DeviceID != "" {
		delivered, err = n.hub.SendTypedToDevice(to.DeviceID, MessageToast, msg)
	}
	if err == nil && delivered == 0 && to.UserID != "" {
		delivered, err = n.hub.SendTypedToUser(to.UserID, MessageToast, msg)
	}

	if err != nil {
		n.log.Warn(logger.Entry{
			Action:   "toast_encode_failed",
			Message:  err.Error(),
			UserID:   to.UserID,
			DeviceID: to.DeviceID,
		})
		return
	}

	if delivered == 0 {
		n.log.Debug(logger.Entry{
			Action:   "toast_not_delivered",
			Message:  msg.Title,
			UserID:   to.UserID,
			DeviceID: to.DeviceID,
		})
		return
	}

	n.log.Debug(logger.Entry{
		Action:   "toast_sent",
		Message:  msg.Title,
		UserID:   to.UserID,
		DeviceID: to.DeviceID,
		Additional: map[string]any{
			"severity":  msg.Severity,
			"delivered": delivered,
		},
	})
}
