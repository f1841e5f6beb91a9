package exception

import "errors"

var (
	ErrExchangeNotFound      = errors.New("exchange: adapter not found")
	ErrExchangeDuplicate     = errors.New("exchange: duplicate adapter id")
	ErrExchangeUnsupported   = errors.New("exchange: unsupported category")
	ErrExchangeEmptyResponse = errors.New("exchange: empty response body")
	ErrExchangeBadStatus     = errors.New("exchange: unexpected response status")
	ErrHTTPStatus            = errors.New("http: unexpected status code")
	ErrHTTPEmptyURL          = errors.New("http: empty url")
)
