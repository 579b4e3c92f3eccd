// Package storage defines the persistence contracts consumed by the
// services. Implementations must be safe to call under an active
// transaction scope: every method takes the caller's context so that
// operations issued inside a unit of work join that unit.
package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/baytalmal/treasury-gobackend/internal/models"
)

// CategoryStore persists treasury categories. AdjustBalance must only be
// called inside an active unit of work, after a GetCategory issued in the
// same unit; deltas computed from reads taken outside the unit are not
// valid inputs.
type CategoryStore interface {
	GetCategory(ctx context.Context, id string) (*models.TreasuryCategory, error)
	ListCategories(ctx context.Context) ([]models.TreasuryCategory, error)
	CreateCategory(ctx context.Context, category *models.TreasuryCategory) (string, error)
	// AdjustBalance applies the given deltas to the available and reserved
	// balances and returns the updated category.
	AdjustBalance(ctx context.Context, id string, availableDelta, reservedDelta decimal.Decimal) (*models.TreasuryCategory, error)
}

// RequestStore persists payment requests. Mutating calls are issued only
// from within the lifecycle's unit of work.
type RequestStore interface {
	GetRequest(ctx context.Context, id string) (*models.PaymentRequest, error)
	// ListRequests returns all requests ordered newest start-date first.
	ListRequests(ctx context.Context) ([]models.PaymentRequest, error)
	CreateRequest(ctx context.Context, request *models.PaymentRequest) (string, error)
	UpdateRequest(ctx context.Context, id string, patch models.RequestPatch) error
	SetRequestStatus(ctx context.Context, id string, status models.RequestStatus) error
	DeleteRequest(ctx context.Context, id string) error
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	CategoryID    string
	BeneficiaryID string
	Provenance    models.Provenance
}

// PaymentStore persists committed disbursement records.
type PaymentStore interface {
	InsertPayment(ctx context.Context, payment *models.Payment) (string, error)
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	// ListPayments returns payments ordered newest first.
	ListPayments(ctx context.Context, filter PaymentFilter) ([]models.Payment, error)
}

// BeneficiaryStore persists disbursement recipients.
type BeneficiaryStore interface {
	GetBeneficiary(ctx context.Context, id string) (*models.Beneficiary, error)
	ListBeneficiaries(ctx context.Context) ([]models.Beneficiary, error)
	CreateBeneficiary(ctx context.Context, beneficiary *models.Beneficiary) (string, error)
}
