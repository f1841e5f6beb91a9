package enum

import "strings"

// DataCategory tags the kind of market data a task asks an exchange for.
type DataCategory string

const (
	CategorySpot      DataCategory = "Spot"
	CategoryPerpetual DataCategory = "Perpetual"
	CategoryFuture    DataCategory = "Future"
	CategoryOption    DataCategory = "Option"
	CategoryOrderBook DataCategory = "OrderBook"
)

func (c DataCategory) IsAvailable() bool {
	switch c {
	case CategorySpot, CategoryPerpetual, CategoryFuture, CategoryOption, CategoryOrderBook:
		return true
	default:
		return false
	}
}

func (c DataCategory) String() string {
	return string(c)
}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(s string) (DataCategory, bool) {
	s = strings.TrimSpace(s)
	for _, c := range []DataCategory{CategorySpot, CategoryPerpetual, CategoryFuture, CategoryOption, CategoryOrderBook} {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}
