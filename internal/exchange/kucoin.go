package exchange

import (
	"context"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"tickerflow/internal/model"
	"tickerflow/internal/model/enum"
	"tickerflow/pkg/exception"
)

const (
	kucoinBaseURL       = "https://api.kucoin.com"
	kucoinFuturesURL    = "https://api-futures.kucoin.com"
	kucoinTickersPath   = "/api/v1/market/allTickers"
	kucoinContractsPath = "/api/v1/contracts/active"
	kucoinCodeOK        = "200000"
	kucoinPerpetualType = "FFWCSX"
	kucoinUSDT          = "USDT"
)

// KuCoin collects spot and perpetual tickers from KuCoin.
type KuCoin struct {
	Base
	baseURL    string
	futuresURL string
}

func NewKuCoin(deps Deps) *KuCoin {
	return &KuCoin{
		Base:       NewBase(IDKuCoin, "KuCoin", deps),
		baseURL:    kucoinBaseURL,
		futuresURL: kucoinFuturesURL,
	}
}

type kucoinTickersResponse struct {
	Code string `json:"code"`
	Data struct {
		Time    int64          `json:"time"`
		Tickers []kucoinTicker `json:"ticker"`
	} `json:"data"`
}

type kucoinTicker struct {
	Symbol string          `json:"symbol"`
	Last   decimal.Decimal `json:"last"`
	Vol    decimal.Decimal `json:"vol"`
}

type kucoinContractsResponse struct {
	Code string           `json:"code"`
	Data []kucoinContract `json:"data"`
}

type kucoinContract struct {
	Symbol         string          `json:"symbol"`
	Type           string          `json:"type"`
	BaseCurrency   string          `json:"baseCurrency"`
	QuoteCurrency  string          `json:"quoteCurrency"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	LastTradePrice decimal.Decimal `json:"lastTradePrice"`
	HighPrice      decimal.Decimal `json:"highPrice"`
	LowPrice       decimal.Decimal `json:"lowPrice"`
	IndexPrice     decimal.Decimal `json:"indexPrice"`
	VolumeOf24h    decimal.Decimal `json:"volumeOf24h"`
	TurnoverOf24h  decimal.Decimal `json:"turnoverOf24h"`
	OpenInterest   decimal.Decimal `json:"openInterest"`
	FundingFeeRate decimal.Decimal `json:"fundingFeeRate"`
	MakerFeeRate   decimal.Decimal `json:"makerFeeRate"`
	TakerFeeRate   decimal.Decimal `json:"takerFeeRate"`
}

func (k *KuCoin) FetchSpot(ctx context.Context, _ model.ScheduleTask, trace *model.ExecutionLog) (*model.TickerResult, error) {
	body, err := k.get(ctx, k.baseURL+kucoinTickersPath, trace)
	if err != nil {
		return nil, errors.Wrap(err, "get kucoin tickers")
	}
	var resp kucoinTickersResponse
	if err := sonic.ConfigStd.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "unmarshal kucoin tickers")
	}
	if resp.Code != kucoinCodeOK {
		return nil, errors.Wrapf(exception.ErrExchangeBadStatus, "kucoin code: %s", resp.Code)
	}

	result := k.newResult(len(resp.Data.Tickers))
	for _, t := range resp.Data.Tickers {
		base, quote, ok := SplitDash(t.Symbol)
		if !ok {
			continue
		}
		result.Tickers = append(result.Tickers, model.Ticker{
			BaseSymbol: base,
			MainSymbol: quote,
			Quote:      t.Last,
			MainVolume: t.Last.Mul(t.Vol),
		})
	}
	return result, nil
}

func (k *KuCoin) FetchPerpetual(ctx context.Context, _ model.ScheduleTask, trace *model.ExecutionLog) (*model.TickerResult, error) {
	body, err := k.get(ctx, k.futuresURL+kucoinContractsPath, trace)
	if err != nil {
		return nil, errors.Wrap(err, "get kucoin contracts")
	}
	var resp kucoinContractsResponse
	if err := sonic.ConfigStd.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "unmarshal kucoin contracts")
	}
	if resp.Code != kucoinCodeOK {
		return nil, errors.Wrapf(exception.ErrExchangeBadStatus, "kucoin code: %s", resp.Code)
	}

	result := k.newResult(0)
	for _, c := range resp.Data {
		if c.Type != kucoinPerpetualType {
			continue
		}
		volume := c.VolumeOf24h
		openInterest := c.OpenInterest
		if strings.EqualFold(c.QuoteCurrency, kucoinUSDT) {
			volume = c.TurnoverOf24h
			openInterest = c.OpenInterest.Mul(c.Multiplier).Mul(c.LastTradePrice)
		}
		result.DerivativesTicker = append(result.DerivativesTicker, model.DerivativesTicker{
			ProductType:     enum.CategoryPerpetual.String(),
			TickerID:        c.Symbol,
			BaseSymbol:      normalizeKuCoinBase(c.BaseCurrency),
			MainSymbol:      strings.ToUpper(c.QuoteCurrency),
			Quote:           c.LastTradePrice,
			USDVolume:       volume,
			High:            c.HighPrice,
			Low:             c.LowPrice,
			OpenInterestUSD: openInterest,
			FundingRate:     c.FundingFeeRate,
			IndexPrice:      c.IndexPrice,
			MakerFee:        c.MakerFeeRate,
			TakerFee:        c.TakerFeeRate,
			DeliveryTime:    enum.CategoryPerpetual.String(),
		})
	}
	return result, nil
}

// normalizeKuCoinBase maps the futures "XBT" ticker back to BTC.
func normalizeKuCoinBase(base string) string {
	base = strings.ToUpper(base)
	if base == "XBT" {
		return "BTC"
	}
	return base
}
