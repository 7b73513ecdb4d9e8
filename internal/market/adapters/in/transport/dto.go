package transport

import "una/internal/market/domain"

// PreferenceResponse — предпочтение сессии
type PreferenceResponse struct {
	Market     domain.Market   `json:"market"`
	Language   domain.Language `json:"language"`
	AutoDetect bool            `json:"auto_detect"`
	Source     domain.Source   `json:"source"`
	Currency   string          `json:"currency"`
	MarketName string          `json:"market_name"`
}

func toPreferenceResponse(p domain.Preference) PreferenceResponse {
	return PreferenceResponse{
		Market:     p.Market,
		Language:   p.Language,
		AutoDetect: p.AutoDetect,
		Source:     p.Source,
		Currency:   p.Currency(),
		MarketName: p.Market.DisplayName(p.Language),
	}
}

type SetMarketRequest struct {
	Market string `json:"market"`
}

type SetLanguageRequest struct {
	Language string `json:"language"`
}

// MarketInfo — элемент GET /markets
type MarketInfo struct {
	Market          domain.Market   `json:"market"`
	DefaultLanguage domain.Language `json:"default_language"`
	Currency        string          `json:"currency"`
	Name            string          `json:"name"`
}
