package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus is the lifecycle state of a payment request.
//
// Transitions:
//
//	CREATED → PENDING | COMPLETED
//	PENDING → COMPLETED
//	COMPLETED → (terminal)
type RequestStatus string

const (
	StatusCreated   RequestStatus = "CREATED"
	StatusPending   RequestStatus = "PENDING"
	StatusCompleted RequestStatus = "COMPLETED"
)

// IsValid reports whether s is one of the known lifecycle states.
func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusCreated, StatusPending, StatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether the edge s → to is in the transition table.
func (s RequestStatus) CanTransition(to RequestStatus) bool {
	switch s {
	case StatusCreated:
		return to == StatusPending || to == StatusCompleted
	case StatusPending:
		return to == StatusCompleted
	}
	return false
}

// PaymentType classifies how a request disburses funds.
type PaymentType string

const (
	PaymentOneTime   PaymentType = "ONE_TIME"
	PaymentSeasonal  PaymentType = "SEASONAL"
	PaymentRecurring PaymentType = "RECURRING"
)

// Frequency is the recurrence interval for RECURRING requests.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// MaxDescriptionLen caps the free-text description on requests and payments.
const MaxDescriptionLen = 500

// PaymentRequest tracks intent-to-pay from CREATED through COMPLETED.
// While PENDING, its amount is held as a reservation on the funding
// category; the reservation is released on delete and settled on completion.
type PaymentRequest struct {
	ID            string          `json:"id"`
	BeneficiaryID string          `json:"beneficiary_id"`
	TreasuryID    string          `json:"treasury_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentType   PaymentType     `json:"payment_type"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       *time.Time      `json:"end_date,omitempty"`
	Frequency     Frequency       `json:"frequency,omitempty"`
	Status        RequestStatus   `json:"status"`
	Description   string          `json:"description"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// RequestPatch is a partial update to a payment request. Nil fields are
// left untouched. Status is not patchable here; status changes go through
// the lifecycle transition.
type RequestPatch struct {
	TreasuryID  *string          `json:"treasury_id,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	PaymentType *PaymentType     `json:"payment_type,omitempty"`
	StartDate   *time.Time       `json:"start_date,omitempty"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	Frequency   *Frequency       `json:"frequency,omitempty"`
	Description *string          `json:"description,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p RequestPatch) IsZero() bool {
	return p.TreasuryID == nil && p.Amount == nil && p.PaymentType == nil &&
		p.StartDate == nil && p.EndDate == nil && p.Frequency == nil &&
		p.Description == nil && p.Notes == nil
}
