package out

import "context"

// IPLocation — ответ сервиса геолокации по IP
type IPLocation struct {
	IP          string `json:"ip"`
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name,omitempty"`
	City        string `json:"city,omitempty"`
}

// IPLocator определяет страну по IP. Пустой ip — адрес самого вызывающего.
type IPLocator interface {
	Locate(ctx context.Context, ip string) (*IPLocation, error)
}
