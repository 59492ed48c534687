package domain

import "errors"

// Sentinel errors for the recoverable failure taxonomy. Callers match with
// errors.Is; repositories and services wrap them with entity context.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrOverAllocation     = errors.New("allocation exceeds budget at completion")
	ErrOverInvoiced       = errors.New("invoice exceeds committed amount")
	ErrOverpayment        = errors.New("payment exceeds invoiced amount")
	ErrImmutableNode      = errors.New("non-leaf node figures are derived and cannot be edited")
	ErrInvalidHierarchy   = errors.New("invalid cost hierarchy")
	ErrBaselineRequired   = errors.New("no baselined budget for the requested date")
	ErrNotApproved        = errors.New("revision is not approved")
	ErrPrematureClose     = errors.New("control account is not ready to close")
	ErrCurrencyConversion = errors.New("no exchange rate available")

	// ErrConcurrencyConflict signals a write against stale row data.
	// It is retryable: reload and reapply.
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
)
