package core

import "errors"

// Sentinel errors returned by MatchingEngine lifecycle and request methods.
var (
	ErrEngineRunning    = errors.New("core: engine is already running")
	ErrEngineNotRunning = errors.New("core: engine is not running")
	ErrSymbolExists     = errors.New("core: symbol already registered")
	ErrSymbolUnknown    = errors.New("core: symbol not registered")
)
