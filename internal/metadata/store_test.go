package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickerflow/internal/model/enum"
)

func TestReduce(t *testing.T) {
	exchanges := []ExchangeDoc{
		{ExchangeID: 270, Name: "Binance"},
		{ExchangeID: 24, Name: "Kraken"},
		{ExchangeID: 311, Name: "KuCoin"},
	}
	markets := []MarketDoc{
		{ExchangeID: 270, BaseSymbol: "BTC", MainSymbol: "USDT", Category: "Spot"},
		{ExchangeID: 311, BaseSymbol: "XBT", BaseSymbolOverride: "BTC", MainSymbol: "USDT", MainSymbolOverride: " ", Category: "perpetual"},
		{ExchangeID: 270, BaseSymbol: "ETH", MainSymbol: "BTC", Category: "Spot"},
		{ExchangeID: 999, BaseSymbol: "X", MainSymbol: "Y", Category: "Spot"},
	}

	snapshots := Reduce(exchanges, markets)
	require.Len(t, snapshots, 2)

	assert.Equal(t, 270, snapshots[0].ID)
	assert.Len(t, snapshots[0].Markets, 2)
	assert.True(t, snapshots[0].HasCategory(enum.CategorySpot))

	kucoin := snapshots[1]
	assert.Equal(t, "KuCoin", kucoin.Name)
	require.Len(t, kucoin.Markets, 1)
	assert.Equal(t, "BTC", kucoin.Markets[0].BaseSymbol)
	assert.Equal(t, "USDT", kucoin.Markets[0].MainSymbol)
	assert.Equal(t, enum.CategoryPerpetual, kucoin.Markets[0].Category)
	assert.False(t, kucoin.HasCategory(enum.CategorySpot))
}

func TestReduceEmpty(t *testing.T) {
	assert.Empty(t, Reduce(nil, nil))
	assert.Empty(t, Reduce([]ExchangeDoc{{ExchangeID: 1}}, nil))
}
