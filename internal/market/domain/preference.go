package domain

import "time"

// Source — откуда взято значение предпочтения. Не сохраняется.
type Source string

const (
	SourceDatabase    Source = "database"
	SourceLocalCache  Source = "local-cache"
	SourceIPDetection Source = "ip-detection"
	SourceDefault     Source = "default"
)

// Ключи локального кеша устройства
const (
	KeySelectedMarket   = "selectedMarket"
	KeySelectedLanguage = "selectedLanguage"
	KeyDetectedMarket   = "detectedMarket"
	KeyDetectedLanguage = "detectedLanguage"
)

// Preference — рынок и язык текущей сессии
type Preference struct {
	Market     Market   `json:"market"`
	Language   Language `json:"language"`
	AutoDetect bool     `json:"auto_detect"`
	Source     Source   `json:"source"`
}

// DefaultPreference — жёсткий дефолт israel/he
func DefaultPreference() Preference {
	return Preference{
		Market:     DefaultMarket,
		Language:   DefaultMarket.Language(),
		AutoDetect: true,
		Source:     SourceDefault,
	}
}

// ForMarket — предпочтение с языком, выведенным из рынка
func ForMarket(m Market, autoDetect bool, src Source) Preference {
	return Preference{
		Market:     m,
		Language:   m.Language(),
		AutoDetect: autoDetect,
		Source:     src,
	}
}

// Currency — валюта рынка
func (p Preference) Currency() string {
	return p.Market.Profile().Currency
}

// StoredPreference — строка market_preferences
type StoredPreference struct {
	UserID     string    `json:"user_id" db:"user_id"`
	Market     Market    `json:"market" db:"market"`
	Language   Language  `json:"language" db:"language"`
	AutoDetect bool      `json:"auto_detect" db:"auto_detect"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Preference переводит сохранённую строку в предпочтение сессии.
// Невалидный язык в строке заменяется языком рынка.
func (s StoredPreference) Preference() Preference {
	lang := s.Language
	if !lang.Valid() {
		lang = s.Market.Language()
	}
	return Preference{
		Market:     s.Market,
		Language:   lang,
		AutoDetect: s.AutoDetect,
		Source:     SourceDatabase,
	}
}
