package wallet

import "errors"

// Facade errors.
var (
	// ErrInsufficientBalance indicates a debit could not be covered by the
	// whole chain in view. The mutation is not applied.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrNonPositiveAmount indicates a credit or debit amount of zero or less.
	ErrNonPositiveAmount = errors.New("amount must be positive")
)
