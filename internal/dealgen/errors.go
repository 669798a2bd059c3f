package dealgen

import "errors"

var (
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrRejected      = errors.New("request rejected")
	ErrNotSettled    = errors.New("ledger did not settle")
	ErrOrdering      = errors.New("standings out of order")
	ErrConservation  = errors.New("revenue not conserved")
	ErrInvalidConfig = errors.New("invalid load configuration")
)
