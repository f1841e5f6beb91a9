package exchange

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"golang.org/x/sync/errgroup"

	"tickerflow/internal/model"
	"tickerflow/pkg/exception"
)

const (
	binanceBaseURL      = "https://api.binance.com"
	binanceTickerPath   = "/api/v1/ticker/24hr"
	binanceExchangePath = "/api/v3/exchangeInfo"
	binanceTrading      = "TRADING"
)

// Binance collects spot tickers from Binance.
type Binance struct {
	Base
	baseURL string
}

func NewBinance(deps Deps) *Binance {
	return &Binance{
		Base:    NewBase(IDBinance, "Binance", deps),
		baseURL: binanceBaseURL,
	}
}

type binanceTicker struct {
	Symbol    string          `json:"symbol"`
	LastPrice decimal.Decimal `json:"lastPrice"`
	Volume    decimal.Decimal `json:"volume"`
}

type binanceExchangeInfo struct {
	Symbols []binanceSymbol `json:"symbols"`
}

type binanceSymbol struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}

func (b *Binance) FetchSpot(ctx context.Context, _ model.ScheduleTask, trace *model.ExecutionLog) (*model.TickerResult, error) {
	var (
		tickers []binanceTicker
		info    binanceExchangeInfo
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		body, err := b.get(egCtx, b.baseURL+binanceTickerPath, trace)
		if err != nil {
			return errors.Wrap(err, "get binance tickers")
		}
		if err := sonic.ConfigStd.Unmarshal(body, &tickers); err != nil {
			return errors.Wrap(err, "unmarshal binance tickers")
		}
		return nil
	})
	eg.Go(func() error {
		body, err := b.get(egCtx, b.baseURL+binanceExchangePath, nil)
		if err != nil {
			return errors.Wrap(err, "get binance exchange info")
		}
		if err := sonic.ConfigStd.Unmarshal(body, &info); err != nil {
			return errors.Wrap(err, "unmarshal binance exchange info")
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, exception.ErrExchangeEmptyResponse
	}

	symbols := make(map[string]binanceSymbol, len(info.Symbols))
	for _, s := range info.Symbols {
		symbols[s.Symbol] = s
	}

	result := b.newResult(len(tickers))
	for _, t := range tickers {
		s, ok := symbols[t.Symbol]
		if !ok || s.Status != binanceTrading {
			continue
		}
		result.Tickers = append(result.Tickers, model.Ticker{
			BaseSymbol: s.BaseAsset,
			MainSymbol: s.QuoteAsset,
			Quote:      t.LastPrice,
			MainVolume: t.Volume.Mul(t.LastPrice),
		})
	}
	return result, nil
}
