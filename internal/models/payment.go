package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provenance records how the funds behind a payment were deducted.
type Provenance string

const (
	// ProvenanceDirect marks a payment whose amount was deducted from the
	// category's available balance at creation time.
	ProvenanceDirect Provenance = "DIRECT_DEDUCTION"
	// ProvenanceReservation marks a payment settled from a reservation made
	// when its originating request entered PENDING. No further deduction is
	// performed for these.
	ProvenanceReservation Provenance = "FROM_RESERVATION"
)

// IsValid reports whether p is a known provenance marker.
func (p Provenance) IsValid() bool {
	return p == ProvenanceDirect || p == ProvenanceReservation
}

// Payment is a committed disbursement record.
type Payment struct {
	ID            string          `json:"id"`
	ReferenceID   string          `json:"reference_id"`
	RequestID     string          `json:"request_id,omitempty"`
	BeneficiaryID string          `json:"beneficiary_id"`
	CategoryID    string          `json:"category_id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	PaymentType   PaymentType     `json:"payment_type"`
	Provenance    Provenance      `json:"provenance"`
	Description   string          `json:"description"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
