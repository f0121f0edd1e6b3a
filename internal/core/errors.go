package core

import "errors"

var (
	// ErrNotFound is returned when a referenced entity is absent or owned by another user.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientFunds is returned when a completed transaction would drive
	// an account balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds: balance cannot be negative")

	// ErrValidation wraps every malformed-input error reaching the core.
	ErrValidation = errors.New("validation failed")
)
