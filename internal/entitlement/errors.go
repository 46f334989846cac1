package entitlement

import "errors"

var (
	// ErrInsufficientEntitlement means no eligible allowance remains for the user.
	ErrInsufficientEntitlement = errors.New("insufficient entitlement")

	// ErrNegativeBalance rejects an adjustment that would drive a credit
	// balance below zero. The ledger never persists a negative balance.
	ErrNegativeBalance = errors.New("negative credit balance")
)
