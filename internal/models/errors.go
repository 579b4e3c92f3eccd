package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ValidationError reports malformed or out-of-range input. Operations that
// fail validation leave all persisted state untouched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a missing request, category, beneficiary, or payment.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InvalidTransitionError reports a status edge outside the transition table.
type InvalidTransitionError struct {
	From RequestStatus
	To   RequestStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// PastPeriodError reports a reservation attempt for a closed accounting
// period: the request's start date falls before the first day of the
// current calendar month.
type PastPeriodError struct {
	StartDate   time.Time
	PeriodStart time.Time
}

func (e *PastPeriodError) Error() string {
	return fmt.Sprintf("start date %s falls in a closed period (current period begins %s)",
		e.StartDate.Format("2006-01-02"), e.PeriodStart.Format("2006-01-02"))
}

// InsufficientFundsError reports that a reservation or deduction would
// drive a category's available balance negative.
type InsufficientFundsError struct {
	CategoryID string
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in category %s: available %s, requested %s",
		e.CategoryID, e.Available, e.Requested)
}
