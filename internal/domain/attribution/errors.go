package attribution

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnknownModel   = errors.New("unknown attribution model")
	ErrInvalidWeights = errors.New("invalid attribution weights")
)
