package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/baytalmal/treasury-gobackend/internal/events"
	"github.com/baytalmal/treasury-gobackend/internal/models"
	"github.com/baytalmal/treasury-gobackend/internal/storage"
	"github.com/baytalmal/treasury-gobackend/internal/txn"
	"github.com/baytalmal/treasury-gobackend/internal/validator"
)

// PaymentService records disbursements. It serves two callers: the
// request lifecycle, which settles completed requests through
// CreateFromRequest inside its own unit of work, and the direct payment
// endpoint, which deducts available funds in a unit of its own.
type PaymentService struct {
	payments      storage.PaymentStore
	categories    storage.CategoryStore
	beneficiaries storage.BeneficiaryStore
	runner        txn.Runner
	notifier      *events.Notifier
	logger        *zap.SugaredLogger
}

func NewPaymentService(
	payments storage.PaymentStore,
	categories storage.CategoryStore,
	beneficiaries storage.BeneficiaryStore,
	runner txn.Runner,
	notifier *events.Notifier,
	logger *zap.SugaredLogger,
) *PaymentService {
	return &PaymentService{
		payments:      payments,
		categories:    categories,
		beneficiaries: beneficiaries,
		runner:        runner,
		notifier:      notifier,
		logger:        logger,
	}
}

// CreateFromRequest records the payment materialized by a completed
// request. The provenance marker is validated at this boundary; no
// balance is adjusted here for either kind, since the lifecycle has
// already performed the deduction or holds the reservation.
func (s *PaymentService) CreateFromRequest(ctx context.Context, request *models.PaymentRequest, provenance models.Provenance) (*models.Payment, error) {
	if !provenance.IsValid() {
		return nil, models.NewValidationError("provenance", fmt.Sprintf("unknown provenance %q", provenance))
	}

	now := time.Now().UTC()
	payment := &models.Payment{
		RequestID:     request.ID,
		BeneficiaryID: request.BeneficiaryID,
		CategoryID:    request.TreasuryID,
		Amount:        request.Amount,
		Date:          now,
		PaymentType:   request.PaymentType,
		Provenance:    provenance,
		Description:   request.Description,
		Notes:         request.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	id, err := s.payments.InsertPayment(ctx, payment)
	if err != nil {
		return nil, err
	}
	payment.ID = id
	payment.ReferenceID = "pay_" + id

	return payment, nil
}

// CreatePaymentInput is the payload for a direct payment.
type CreatePaymentInput struct {
	BeneficiaryID string             `json:"beneficiary_id" validate:"required,objectid"`
	CategoryID    string             `json:"category_id" validate:"required,objectid"`
	Amount        decimal.Decimal    `json:"amount"`
	Date          time.Time          `json:"date"`
	PaymentType   models.PaymentType `json:"payment_type" validate:"required,oneof=ONE_TIME SEASONAL RECURRING"`
	Description   string             `json:"description" validate:"max=500"`
	Notes         string             `json:"notes"`
}

// Create records a direct payment, deducting its amount from the
// category's available balance in one atomic unit.
func (s *PaymentService) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	if err := validator.Validate.Struct(input); err != nil {
		return nil, asValidationError(err)
	}
	if !input.Amount.IsPositive() {
		return nil, models.NewValidationError("amount", "must be greater than zero")
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	now := time.Now().UTC()
	payment := &models.Payment{
		BeneficiaryID: input.BeneficiaryID,
		CategoryID:    input.CategoryID,
		Amount:        input.Amount,
		Date:          date,
		PaymentType:   input.PaymentType,
		Provenance:    models.ProvenanceDirect,
		Description:   input.Description,
		Notes:         input.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.runner.Run(ctx, func(ctx context.Context) error {
		if _, err := s.beneficiaries.GetBeneficiary(ctx, input.BeneficiaryID); err != nil {
			return err
		}

		category, err := s.categories.GetCategory(ctx, input.CategoryID)
		if err != nil {
			return err
		}

		if category.Available.LessThan(input.Amount) {
			return &models.InsufficientFundsError{CategoryID: category.ID, Available: category.Available, Requested: input.Amount}
		}

		if _, err := s.categories.AdjustBalance(ctx, category.ID, input.Amount.Neg(), decimal.Zero); err != nil {
			return err
		}

		id, err := s.payments.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id
		payment.ReferenceID = "pay_" + id
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("payment created", "payment_id", payment.ID, "category_id", payment.CategoryID, "amount", payment.Amount)
	s.notifier.Publish(events.Event{Operation: events.OpPaymentCreated, PaymentID: payment.ID, CategoryID: payment.CategoryID})

	return payment, nil
}

// Get returns a single payment by id.
func (s *PaymentService) Get(ctx context.Context, id string) (*models.Payment, error) {
	return s.payments.GetPayment(ctx, id)
}

// List returns payments, newest first, optionally filtered.
func (s *PaymentService) List(ctx context.Context, filter storage.PaymentFilter) ([]models.Payment, error) {
	return s.payments.ListPayments(ctx, filter)
}
