package domain

import "fmt"

// Severity тоста
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification — тост для пользователя
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// MarketChangedNotice — подтверждение смены рынка на языке нового рынка
func MarketChangedNotice(m Market) Notification {
	lang := m.Language()
	name := m.DisplayName(lang)

	switch lang {
	case LanguageSpanish:
		return Notification{
			Title:       "Mercado actualizado",
			Description: fmt.Sprintf("Ahora estás viendo contenido de %s", name),
			Severity:    SeveritySuccess,
		}
	case LanguageEnglish:
		return Notification{
			Title:       "Market updated",
			Description: fmt.Sprintf("You are now browsing %s", name),
			Severity:    SeveritySuccess,
		}
	default:
		return Notification{
			Title:       "השוק עודכן",
			Description: fmt.Sprintf("כעת מוצג תוכן מ%s", name),
			Severity:    SeveritySuccess,
		}
	}
}

// SaveFailedNotice — общая ошибка сохранения настроек на языке lang
func SaveFailedNotice(lang Language) Notification {
	switch lang {
	case LanguageSpanish:
		return Notification{
			Title:       "Error",
			Description: "No pudimos guardar tu preferencia. Se aplicará solo en este dispositivo.",
			Severity:    SeverityError,
		}
	case LanguageEnglish:
		return Notification{
			Title:       "Error",
			Description: "We couldn't save your preference. It applies to this device only.",
			Severity:    SeverityError,
		}
	default:
		return Notification{
			Title:       "שגיאה",
			Description: "לא הצלחנו לשמור את ההעדפה. היא תחול רק במכשיר הזה.",
			Severity:    SeverityError,
		}
	}
}
