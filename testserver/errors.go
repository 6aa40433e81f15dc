package testserver

import "errors"

var (
	ErrBind        = errors.New("bind ephemeral port")
	ErrNotRunning  = errors.New("not running")
	ErrShutdown    = errors.New("shutdown")
	ErrInvalidJSON = errors.New("invalid json")

	ErrConfigNotFound = errors.New("config not found")
)
