package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientFunds is the sentinel wrapped by every
	// InsufficientFundsError; use errors.Is to test for the class and
	// errors.As to reach the details.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidRecurrence is the sentinel wrapped by every
	// InvalidRecurrenceError.
	ErrInvalidRecurrence = errors.New("invalid recurrence")
)

// InsufficientFundsError reports a rejected balance adjustment that would
// have driven a balance-enforcing account below zero. The triggering
// mutation must not be committed.
type InsufficientFundsError struct {
	AccountID int64
	Balance   Money
	Requested Money // the (negative) delta that was rejected
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on account %d: balance %s, requested change %s",
		e.AccountID, e.Balance, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// InvalidRecurrenceError reports a recurring template that cannot be
// expanded: missing or unknown frequency, or a contradictory flag
// combination. Not retriable; surfaced in the expansion report.
type InvalidRecurrenceError struct {
	TemplateID int64
	Reason     string
}

func (e *InvalidRecurrenceError) Error() string {
	if e.TemplateID == 0 {
		return "invalid recurrence: " + e.Reason
	}
	return fmt.Sprintf("invalid recurrence on template %d: %s", e.TemplateID, e.Reason)
}

func (e *InvalidRecurrenceError) Unwrap() error {
	return ErrInvalidRecurrence
}
