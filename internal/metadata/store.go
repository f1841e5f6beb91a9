package metadata

import (
	"context"
	"strings"

	"tickerflow/internal/model"
	"tickerflow/internal/model/enum"
)

// Store is the read-only source of active exchanges and their markets.
type Store interface {
	ActiveExchanges(ctx context.Context) ([]model.ExchangeSnapshot, error)
}

// ExchangeDoc is an exchange document.
type ExchangeDoc struct {
	ExchangeID int    `bson:"exchangeId"`
	Name       string `bson:"name"`
	Slug       string `bson:"slug,omitempty"`
	IsActive   bool   `bson:"isActive"`
}

// MarketDoc is a market document.
type MarketDoc struct {
	MarketID           int    `bson:"marketId"`
	ExchangeID         int    `bson:"exchangeId"`
	BaseID             int    `bson:"baseCryptoCurrencyId"`
	BaseSymbol         string `bson:"baseSymbol"`
	BaseSymbolOverride string `bson:"baseSymbolOverride,omitempty"`
	MainID             int    `bson:"mainCryptoCurrencyId"`
	MainSymbol         string `bson:"mainSymbol"`
	MainSymbolOverride string `bson:"mainSymbolOverride,omitempty"`
	Category           string `bson:"category"`
	IsActive           bool   `bson:"isActive"`
}

// Pair converts the document into a market pair. Non-blank symbol overrides win.
func (m MarketDoc) Pair() model.MarketPair {
	category, ok := enum.ParseCategory(m.Category)
	if !ok {
		category = enum.DataCategory(m.Category)
	}
	return model.MarketPair{
		BaseID:     m.BaseID,
		BaseSymbol: ifBlank(m.BaseSymbolOverride, m.BaseSymbol),
		MainID:     m.MainID,
		MainSymbol: ifBlank(m.MainSymbolOverride, m.MainSymbol),
		Category:   category,
	}
}

// Reduce groups markets under their exchange and drops exchanges without markets.
// The exchange order of the input is kept.
func Reduce(exchanges []ExchangeDoc, markets []MarketDoc) []model.ExchangeSnapshot {
	byExchange := make(map[int][]model.MarketPair, len(exchanges))
	for _, m := range markets {
		byExchange[m.ExchangeID] = append(byExchange[m.ExchangeID], m.Pair())
	}

	snapshots := make([]model.ExchangeSnapshot, 0, len(exchanges))
	for _, e := range exchanges {
		pairs := byExchange[e.ExchangeID]
		if len(pairs) == 0 {
			continue
		}
		snapshots = append(snapshots, model.ExchangeSnapshot{
			ID:      e.ExchangeID,
			Name:    e.Name,
			Markets: pairs,
		})
	}
	return snapshots
}

func ifBlank(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
