package repository

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrNotFound      = errors.New("partner not found")
	ErrInvalidLimit  = errors.New("invalid partners limit")
	ErrDuplicateDeal = errors.New("deal already credited")
	ErrInvalidCredit = errors.New("invalid credit")
)
