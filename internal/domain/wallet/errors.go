package wallet

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrPaymentDeclined   = errors.New("payment provider declined the operation")
)

// IntegrityError reports a balance that would go negative. It signals an earlier
// bookkeeping error and is never corrected silently.
type IntegrityError struct {
	UserID uuid.UUID
	Field  string
	Have   int64
	Need   int64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("wallet %s: %s is %d, cannot debit %d", e.UserID, e.Field, e.Have, e.Need)
}

// IsIntegrityError reports whether err wraps an *IntegrityError.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
