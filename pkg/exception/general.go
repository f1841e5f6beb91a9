package exception

import "errors"

// General errors
var (
	ErrAlreadyStart = errors.New("already started")
)
