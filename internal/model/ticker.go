package model

import (
	"time"

	"github.com/shopspring/decimal"

	"tickerflow/internal/model/enum"
)

// DefaultChunkSize is the largest entry count a single result message carries.
const DefaultChunkSize = 100

// Ticker is a spot quote of one market pair.
type Ticker struct {
	BaseSymbol   string          `json:"baseSymbol"`
	MainSymbol   string          `json:"mainSymbol"`
	Quote        decimal.Decimal `json:"quote"`
	MainVolume   decimal.Decimal `json:"mainVolume"`
	BaseContract string          `json:"baseContract,omitempty"`
	MainContract string          `json:"mainContract,omitempty"`
}

// DerivativesTicker is a quote of one derivatives contract.
type DerivativesTicker struct {
	ProductType     string          `json:"productType"`
	TickerID        string          `json:"tickerId"`
	BaseSymbol      string          `json:"baseSymbol"`
	MainSymbol      string          `json:"mainSymbol"`
	Quote           decimal.Decimal `json:"quote"`
	USDVolume       decimal.Decimal `json:"usdVolume"`
	High            decimal.Decimal `json:"high"`
	Low             decimal.Decimal `json:"low"`
	Bid             decimal.Decimal `json:"bid"`
	Ask             decimal.Decimal `json:"ask"`
	OpenInterestUSD decimal.Decimal `json:"openInterestUsd"`
	FundingRate     decimal.Decimal `json:"fundingRate"`
	IndexPrice      decimal.Decimal `json:"indexPrice"`
	MakerFee        decimal.Decimal `json:"makerFee"`
	TakerFee        decimal.Decimal `json:"takerFee"`
	DeliveryTime    string          `json:"deliveryTime,omitempty"`
	ExpiryTimestamp *time.Time      `json:"expiryTimestamp,omitempty"`
}

// TickerResult is the normalized output of one fetch.
type TickerResult struct {
	ExchangeID        int                 `json:"exchangeId"`
	ExchangeName      string              `json:"exchangeName"`
	DataType          enum.DataCategory   `json:"dataType"`
	TranID            string              `json:"tranId"`
	PushTime          time.Time           `json:"pushTime"`
	UpdatedTime       time.Time           `json:"updatedTime"`
	Tickers           []Ticker            `json:"cmcTickers,omitempty"`
	DerivativesTicker []DerivativesTicker `json:"derivativesTicker,omitempty"`
}

// Len returns the number of entries the result carries.
func (r TickerResult) Len() int {
	return len(r.Tickers) + len(r.DerivativesTicker)
}

// header returns a copy of r without any entries.
func (r TickerResult) header() TickerResult {
	r.Tickers = nil
	r.DerivativesTicker = nil
	return r
}

// Chunks splits r into results of at most size entries. Each chunk keeps the
// metadata of r and owns a contiguous, disjoint slice of its entries. Spot and
// derivatives entries never share a chunk. A result within the limit is
// returned as is and an empty result yields no chunk.
func (r TickerResult) Chunks(size int) []TickerResult {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if r.Len() == 0 {
		return nil
	}
	if len(r.Tickers) <= size && len(r.DerivativesTicker) == 0 {
		return []TickerResult{r}
	}
	if len(r.DerivativesTicker) <= size && len(r.Tickers) == 0 {
		return []TickerResult{r}
	}

	chunks := make([]TickerResult, 0, ceilDiv(len(r.Tickers), size)+ceilDiv(len(r.DerivativesTicker), size))
	for beg := 0; beg < len(r.Tickers); beg += size {
		end := min(beg+size, len(r.Tickers))
		c := r.header()
		c.Tickers = r.Tickers[beg:end:end]
		chunks = append(chunks, c)
	}
	for beg := 0; beg < len(r.DerivativesTicker); beg += size {
		end := min(beg+size, len(r.DerivativesTicker))
		c := r.header()
		c.DerivativesTicker = r.DerivativesTicker[beg:end:end]
		chunks = append(chunks, c)
	}
	return chunks
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}
