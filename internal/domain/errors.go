package domain

import "errors"

var (
	ErrTransientNetwork        = errors.New("transient network error")
	ErrProviderLogic           = errors.New("provider logic error")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrTimeout                 = errors.New("transaction confirmation timed out")
	ErrExpired                 = errors.New("transaction expired")
	ErrNotFound                = errors.New("asset not found")
	ErrPriceUnavailable        = errors.New("price unavailable")
	ErrNoPosition              = errors.New("no position held")
	ErrUnknownAcquisitionPrice = errors.New("acquisition price unknown")
	ErrSellInProgress          = errors.New("sell already in progress")
	ErrInvalidIntent           = errors.New("invalid swap intent")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientNetwork)
}
