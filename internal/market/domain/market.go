package domain

import (
	"strings"

	"golang.org/x/text/language"
)

// Market — региональная конфигурация продукта
type Market string

const (
	MarketIsrael    Market = "israel"
	MarketArgentina Market = "argentina"

	DefaultMarket = MarketIsrael
)

// Language — язык интерфейса
type Language string

const (
	LanguageHebrew  Language = "he"
	LanguageSpanish Language = "es"
	LanguageEnglish Language = "en"
)

// Profile — что стоит за рынком: язык по умолчанию, валюта, названия
type Profile struct {
	Market          Market
	DefaultLanguage Language
	Currency        string
	Names           map[Language]string
}

var profiles = map[Market]Profile{
	MarketIsrael: {
		Market:          MarketIsrael,
		DefaultLanguage: LanguageHebrew,
		Currency:        "ILS",
		Names: map[Language]string{
			LanguageHebrew:  "ישראל",
			LanguageSpanish: "Israel",
			LanguageEnglish: "Israel",
		},
	},
	MarketArgentina: {
		Market:          MarketArgentina,
		DefaultLanguage: LanguageSpanish,
		Currency:        "ARS",
		Names: map[Language]string{
			LanguageHebrew:  "ארגנטינה",
			LanguageSpanish: "Argentina",
			LanguageEnglish: "Argentina",
		},
	},
}

// countryMarkets — ISO 3166-1 alpha-2 → рынок. Всё, чего нет в таблице, идёт в DefaultMarket.
var countryMarkets = map[string]Market{
	"IL": MarketIsrael,
	"PS": MarketIsrael,
	"AR": MarketArgentina,
	"UY": MarketArgentina,
	"CL": MarketArgentina,
}

// Markets — все поддерживаемые рынки
func Markets() []Market {
	return []Market{MarketIsrael, MarketArgentina}
}

func (m Market) Valid() bool {
	_, ok := profiles[m]
	return ok
}

// Profile возвращает профиль рынка; для неизвестного — профиль DefaultMarket
func (m Market) Profile() Profile {
	if p, ok := profiles[m]; ok {
		return p
	}
	return profiles[DefaultMarket]
}

// Language — язык, жёстко привязанный к рынку (israel→he, argentina→es)
func (m Market) Language() Language {
	return m.Profile().DefaultLanguage
}

// DisplayName — название рынка на языке lang
func (m Market) DisplayName(lang Language) string {
	p := m.Profile()
	if n, ok := p.Names[lang]; ok {
		return n
	}
	return p.Names[LanguageEnglish]
}

// ParseMarket нормализует и проверяет значение рынка
func ParseMarket(s string) (Market, error) {
	m := Market(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", ErrInvalidMarket
	}
	return m, nil
}

// MarketForCountry — рынок по коду страны. Пустой код не сюда: это отказ детекции.
func MarketForCountry(countryCode string) Market {
	if m, ok := countryMarkets[strings.ToUpper(strings.TrimSpace(countryCode))]; ok {
		return m
	}
	return DefaultMarket
}

func (l Language) Valid() bool {
	switch l {
	case LanguageHebrew, LanguageSpanish, LanguageEnglish:
		return true
	}
	return false
}

// Tag — BCP 47 тег языка
func (l Language) Tag() language.Tag {
	return language.Make(string(l))
}

// ParseLanguage принимает BCP 47 тег ("es-AR", "he-IL", "EN") и сводит его к базовому языку.
func ParseLanguage(s string) (Language, error) {
	tag, err := language.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", ErrInvalidLanguage
	}
	base, _ := tag.Base()
	l := Language(base.String())
	if !l.Valid() {
		return "", ErrInvalidLanguage
	}
	return l, nil
}
