package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TreasuryCategory is a named fund that finances payments. Available and
// Reserved are tracked separately so the conservation invariant is directly
// checkable: Total() never changes except by direct deductions and
// settlements, and neither field may go negative in a committed state.
type TreasuryCategory struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Available decimal.Decimal `json:"available"`
	Reserved  decimal.Decimal `json:"reserved"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Total returns available plus reserved funds.
func (c TreasuryCategory) Total() decimal.Decimal {
	return c.Available.Add(c.Reserved)
}
