package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidHousePrice        = errors.New("house price must be positive")
	ErrInvalidPopulation        = errors.New("population must not be negative")
	ErrInvalidPolicy            = errors.New("invalid lending policy")
	ErrInvalidParameters        = errors.New("invalid bank parameters")
	ErrInvalidTerminationReason = errors.New("invalid termination reason")
	ErrMortgageNotFound         = errors.New("mortgage not found")
	ErrInvariantViolation       = errors.New("lending invariant violated")
	ErrUnknownQuote             = errors.New("agreement was not quoted by this bank")
	ErrAlreadyCommitted         = errors.New("agreement already committed")
	ErrStaleQuote               = errors.New("quote issued in an earlier month")
)

// InvariantError 审批过程中出现的逻辑错误，不可被截断或忽略
type InvariantError struct {
	Op           string
	BorrowerID   string
	DownPayment  float64
	LiquidWealth float64
	Reason       string
}

func (e *InvariantError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", ErrInvariantViolation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s (borrower=%s down_payment=%.2f liquid_wealth=%.2f)",
		ErrInvariantViolation, e.Op, e.Reason, e.BorrowerID, e.DownPayment, e.LiquidWealth)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}
