package exchange

// Known exchange ids.
const (
	IDKraken      = 24
	IDBitfinex    = 37
	IDHuobiGlobal = 102
	IDGemini      = 151
	IDBinance     = 270
	IDGateIO      = 302
	IDKuCoin      = 311
	IDFTX         = 524
	IDBinanceUS   = 630
	IDCryptoCom   = 1149
)
