package domain

import "errors"

var (
	// ErrInvalidMarket неизвестный рынок
	ErrInvalidMarket = errors.New("invalid market")

	// ErrInvalidLanguage неподдерживаемый язык
	ErrInvalidLanguage = errors.New("invalid language")

	// ErrPreferenceNotFound у пользователя нет сохранённого предпочтения
	ErrPreferenceNotFound = errors.New("market preference not found")

	// ErrCountryUnknown сервис геолокации не вернул country_code
	ErrCountryUnknown = errors.New("country code missing from geolocation response")

	// ErrDeviceRequired запрос без идентификатора устройства
	ErrDeviceRequired = errors.New("device id is required")
)
