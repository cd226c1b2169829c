package domain

import "errors"

var (
	// Balance errors
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownLane       = errors.New("unknown balance lane")

	// Transfer errors
	ErrSamePlayer         = errors.New("cannot transfer to same player")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrCompensationFailed = errors.New("transfer compensation failed")

	// Storage errors
	ErrRecordNotFound = errors.New("player record not found")
	ErrInvalidID      = errors.New("player id must not be empty")
)
