package exception

import "errors"

var (
	ErrCacheNotLoaded   = errors.New("cache: value not loaded")
	ErrCacheNilLoader   = errors.New("cache: nil loader")
	ErrCacheReloadBusy  = errors.New("cache: reload pool saturated")
	ErrCacheEmptyValue  = errors.New("cache: loader returned empty value")
	ErrDispatchCategory = errors.New("dispatch: category is unset")
	ErrDispatchTopic    = errors.New("dispatch: schedule topic is unset")
	ErrDispatchNoTask   = errors.New("dispatch: no task produced")
	ErrDispatchNoSend   = errors.New("dispatch: nothing published")
	ErrDispatchLocked   = errors.New("dispatch: cycle held by another scheduler")
	ErrSinkQueueFull    = errors.New("sink: queue full")
	ErrSinkClosed       = errors.New("sink: closed")
)
