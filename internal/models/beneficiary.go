package models

import (
	"time"
)

// Beneficiary is a recipient of disbursements. The payment-request
// lifecycle resolves beneficiaries by id and never mutates them.
type Beneficiary struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullname"`
	Contact   string    `json:"contact,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
