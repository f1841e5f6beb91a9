package model

import "tickerflow/internal/model/enum"

// MarketPair is a tradable base/quote combination of one exchange.
type MarketPair struct {
	MainID     int               `json:"mainId"`
	MainSymbol string            `json:"mainSymbol"`
	BaseID     int               `json:"baseId"`
	BaseSymbol string            `json:"baseSymbol"`
	Category   enum.DataCategory `json:"category"`
}

// ExchangeSnapshot is the cached reference data of one active exchange.
type ExchangeSnapshot struct {
	ID      int          `json:"id"`
	Name    string       `json:"name"`
	Markets []MarketPair `json:"markets"`
}

// HasCategory reports whether at least one market pair carries the category.
func (e ExchangeSnapshot) HasCategory(c enum.DataCategory) bool {
	for _, m := range e.Markets {
		if m.Category == c {
			return true
		}
	}
	return false
}
