package in

import out "una/internal/market/application/ports/out"

// Subject — кто обращается: устройство и, если вошёл, пользователь
type Subject struct {
	Authenticated bool
	UserID        string
	DeviceID      string
	// ClientIP — адрес устройства для IP-детекции; пусто — определяет сам сервис геолокации
	ClientIP string
	// Cache — локальный кеш именно этого устройства
	Cache out.LocalCache
}

// IsUser — авторизован и есть идентификатор для хранилища
func (s Subject) IsUser() bool {
	return s.Authenticated && s.UserID != ""
}
