package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickerflow/internal/model"
	"tickerflow/internal/model/enum"
	"tickerflow/pkg/exception"
	"tickerflow/pkg/httpx"
)

var fixedNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func testDeps() Deps {
	return Deps{
		HTTP: httpx.New(httpx.Config{
			Timeout:  time.Second,
			Attempts: 1,
			Backoff:  httpx.Backoff{Min: time.Millisecond},
		}),
		Now: func() time.Time { return fixedNow },
	}
}

func serve(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range routes {
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBinanceFetchSpot(t *testing.T) {
	srv := serve(t, map[string]string{
		binanceTickerPath: `[
			{"symbol":"BTCUSDT","lastPrice":"60000.5","volume":"2"},
			{"symbol":"ETHBTC","lastPrice":"0.05","volume":"10"},
			{"symbol":"OLDBTC","lastPrice":"1","volume":"1"}
		]`,
		binanceExchangePath: `{"symbols":[
			{"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"},
			{"symbol":"ETHBTC","status":"TRADING","baseAsset":"ETH","quoteAsset":"BTC"},
			{"symbol":"OLDBTC","status":"BREAK","baseAsset":"OLD","quoteAsset":"BTC"}
		]}`,
	})

	b := NewBinance(testDeps())
	b.baseURL = srv.URL
	trace := model.NewExecutionLog(model.ScheduleTask{ExchangeID: IDBinance}, fixedNow)

	result, err := b.FetchSpot(t.Context(), model.ScheduleTask{}, trace)
	require.NoError(t, err)
	require.Len(t, result.Tickers, 2)

	btc := result.Tickers[0]
	assert.Equal(t, "BTC", btc.BaseSymbol)
	assert.Equal(t, "USDT", btc.MainSymbol)
	assert.True(t, decimal.RequireFromString("60000.5").Equal(btc.Quote))
	assert.True(t, decimal.RequireFromString("120001").Equal(btc.MainVolume))
	assert.Equal(t, IDBinance, result.ExchangeID)
	assert.Equal(t, enum.LogHasResponse, trace.Status)
	assert.Equal(t, srv.URL+binanceTickerPath, trace.URL)
}

func TestHuobiFetchSpot(t *testing.T) {
	srv := serve(t, map[string]string{
		huobiTickersPath: `{"status":"ok","ts":1,"data":[
			{"symbol":"btcusdt","close":60000,"vol":1500},
			{"symbol":"ethbtc","close":0.05,"vol":3},
			{"symbol":"weird","close":1,"vol":1}
		]}`,
	})

	h := NewHuobi(testDeps())
	h.baseURL = srv.URL
	result, err := h.FetchSpot(t.Context(), model.ScheduleTask{}, nil)
	require.NoError(t, err)
	require.Len(t, result.Tickers, 3)
	assert.Equal(t, "BTC", result.Tickers[0].BaseSymbol)
	assert.Equal(t, "USDT", result.Tickers[0].MainSymbol)
	assert.Equal(t, "ETH", result.Tickers[1].BaseSymbol)
	assert.Equal(t, "BTC", result.Tickers[1].MainSymbol)
	assert.Equal(t, "WEIRD", result.Tickers[2].BaseSymbol)
	assert.Empty(t, result.Tickers[2].MainSymbol)
}

func TestHuobiErrorStatus(t *testing.T) {
	srv := serve(t, map[string]string{
		huobiTickersPath: `{"status":"error","err-msg":"bad"}`,
	})

	h := NewHuobi(testDeps())
	h.baseURL = srv.URL
	_, err := h.FetchSpot(t.Context(), model.ScheduleTask{}, nil)
	require.Error(t, err)
}

func TestKuCoinFetchSpotAndPerpetual(t *testing.T) {
	srv := serve(t, map[string]string{
		kucoinTickersPath: `{"code":"200000","data":{"time":1,"ticker":[
			{"symbol":"BTC-USDT","last":"100","vol":"3"},
			{"symbol":"","last":"1","vol":"1"}
		]}}`,
		kucoinContractsPath: `{"code":"200000","data":[
			{"symbol":"XBTUSDTM","type":"FFWCSX","baseCurrency":"XBT","quoteCurrency":"USDT","multiplier":0.001,
			 "lastTradePrice":100,"openInterest":"1000","turnoverOf24h":5000,"volumeOf24h":50,"fundingFeeRate":0.0001},
			{"symbol":"XBTMZ24","type":"FFICSX","baseCurrency":"XBT","quoteCurrency":"USD"}
		]}`,
	})

	k := NewKuCoin(testDeps())
	k.baseURL = srv.URL
	k.futuresURL = srv.URL

	spot, err := k.FetchSpot(t.Context(), model.ScheduleTask{}, nil)
	require.NoError(t, err)
	require.Len(t, spot.Tickers, 1)
	assert.True(t, decimal.NewFromInt(300).Equal(spot.Tickers[0].MainVolume))

	perp, err := k.FetchPerpetual(t.Context(), model.ScheduleTask{}, nil)
	require.NoError(t, err)
	require.Len(t, perp.DerivativesTicker, 1)
	d := perp.DerivativesTicker[0]
	assert.Equal(t, "BTC", d.BaseSymbol)
	assert.Equal(t, "USDT", d.MainSymbol)
	assert.True(t, decimal.NewFromInt(5000).Equal(d.USDVolume))
	assert.True(t, decimal.NewFromInt(100).Equal(d.OpenInterestUSD))
}

func TestBaseDefaultsToNoData(t *testing.T) {
	h := NewHuobi(testDeps())
	ctx := context.Background()
	for _, fetch := range []func(context.Context, model.ScheduleTask, *model.ExecutionLog) (*model.TickerResult, error){
		h.FetchSwap, h.FetchOptions, h.FetchPerpetual, h.FetchFutures,
	} {
		result, err := fetch(ctx, model.ScheduleTask{}, nil)
		assert.NoError(t, err)
		assert.Nil(t, result)
	}
}

func TestRegistry(t *testing.T) {
	r, err := DefaultRegistry(testDeps())
	require.NoError(t, err)
	assert.Equal(t, []int{IDHuobiGlobal, IDBinance, IDKuCoin}, r.IDs())

	a, err := r.Lookup(IDBinance)
	require.NoError(t, err)
	assert.Equal(t, "Binance", a.Name())

	_, err = r.Lookup(IDKraken)
	assert.ErrorIs(t, err, exception.ErrExchangeNotFound)

	assert.ErrorIs(t, r.Register(NewBinance(testDeps())), exception.ErrExchangeDuplicate)
}

func TestSplitSymbols(t *testing.T) {
	testCases := []struct {
		desc  string
		split func(string) (string, string, bool)
		input string
		base  string
		quote string
		ok    bool
	}{
		{"dash", SplitDash, "btc-usdt", "BTC", "USDT", true},
		{"dash missing quote", SplitDash, "BTC-", "", "", false},
		{"dash no separator", SplitDash, "BTCUSDT", "", "", false},
		{"suffix usdt", SplitSuffix, "btcusdt", "BTC", "USDT", true},
		{"suffix longest wins", SplitSuffix, "ETHUSDT", "ETH", "USDT", true},
		{"suffix btc", SplitSuffix, "ethbtc", "ETH", "BTC", true},
		{"suffix only quote", SplitSuffix, "USDT", "", "", false},
		{"suffix unknown", SplitSuffix, "abcxyz", "", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			base, quote, ok := tc.split(tc.input)
			if ok != tc.ok || base != tc.base || quote != tc.quote {
				t.Fatalf("split mismatch! should be (%s, %s, %v) but got (%s, %s, %v)", tc.base, tc.quote, tc.ok, base, quote, ok)
			}
		})
	}
}
