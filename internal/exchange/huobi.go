package exchange

import (
	"context"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"tickerflow/internal/model"
	"tickerflow/pkg/exception"
)

const (
	huobiBaseURL     = "https://api.huobi.pro"
	huobiTickersPath = "/market/tickers"
	huobiStatusOK    = "ok"
)

// Huobi collects spot tickers from Huobi Global.
type Huobi struct {
	Base
	baseURL string
}

func NewHuobi(deps Deps) *Huobi {
	return &Huobi{
		Base:    NewBase(IDHuobiGlobal, "Huobi Global", deps),
		baseURL: huobiBaseURL,
	}
}

type huobiResponse struct {
	Status  string       `json:"status"`
	Ts      int64        `json:"ts"`
	ErrMsg  string       `json:"err-msg"`
	Tickers []huobiDatum `json:"data"`
}

type huobiDatum struct {
	Symbol string          `json:"symbol"`
	Close  decimal.Decimal `json:"close"`
	Vol    decimal.Decimal `json:"vol"`
}

func (h *Huobi) FetchSpot(ctx context.Context, _ model.ScheduleTask, trace *model.ExecutionLog) (*model.TickerResult, error) {
	body, err := h.get(ctx, h.baseURL+huobiTickersPath, trace)
	if err != nil {
		return nil, errors.Wrap(err, "get huobi tickers")
	}
	var resp huobiResponse
	if err := sonic.ConfigStd.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "unmarshal huobi tickers")
	}
	if resp.Status != huobiStatusOK {
		return nil, errors.Wrapf(exception.ErrExchangeBadStatus, "huobi status: %s, msg: %s", resp.Status, resp.ErrMsg)
	}

	result := h.newResult(len(resp.Tickers))
	for _, d := range resp.Tickers {
		pair := strings.ToUpper(d.Symbol)
		ticker := model.Ticker{
			BaseSymbol: pair,
			Quote:      d.Close,
			MainVolume: d.Vol,
		}
		if base, quote, ok := SplitSuffix(pair); ok {
			ticker.BaseSymbol = base
			ticker.MainSymbol = quote
		}
		result.Tickers = append(result.Tickers, ticker)
	}
	return result, nil
}
