package escrow

import "errors"

var (
	ErrEscrowNotFound    = errors.New("escrow not found")
	ErrNotHeld           = errors.New("escrow is not held")
	ErrInvalidTransition = errors.New("invalid escrow transition")
	// ErrConcurrentUpdate means another writer changed the row since it was read.
	ErrConcurrentUpdate = errors.New("escrow was modified concurrently")
	// ErrDuplicateEscrow means a concurrent first hold created the (event, payer) row.
	ErrDuplicateEscrow = errors.New("escrow already exists for event and payer")
)

// Result codes returned in FundResult.Code.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeEventNotFound       = "EVENT_NOT_FOUND"
	CodeWalletNotFound      = "WALLET_NOT_FOUND"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeInternal            = "INTERNAL_ERROR"
)
