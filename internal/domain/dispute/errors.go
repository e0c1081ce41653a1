package dispute

import "errors"

var (
	ErrDisputeNotFound       = errors.New("dispute not found")
	ErrRefundRequestNotFound = errors.New("refund request not found")
	ErrAlreadyResolved       = errors.New("already resolved")
	ErrInvalidDecision       = errors.New("invalid decision")
	ErrEscrowNotHeld         = errors.New("escrow is not held")
	ErrEscrowNotFound        = errors.New("escrow not found")
	ErrNoEscrowHeld          = errors.New("event has no escrow held")
	ErrNotParty              = errors.New("user is not a party to this escrow")
)
