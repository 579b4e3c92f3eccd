package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/baytalmal/treasury-gobackend/internal/events"
	"github.com/baytalmal/treasury-gobackend/internal/models"
	"github.com/baytalmal/treasury-gobackend/internal/storage"
	"github.com/baytalmal/treasury-gobackend/internal/txn"
	"github.com/baytalmal/treasury-gobackend/internal/validator"
)

// PaymentCreator materializes a payment record for a completed request.
// It is called from within the lifecycle's unit of work and must not
// adjust any category balance itself: the lifecycle owns the ledger for
// both provenance kinds.
type PaymentCreator interface {
	CreateFromRequest(ctx context.Context, request *models.PaymentRequest, provenance models.Provenance) (*models.Payment, error)
}

// RequestService drives the payment-request lifecycle: it validates
// requested transitions, computes the ledger adjustment for each one, and
// runs the atomic unit of work committing request, category balance, and
// payment record together.
type RequestService struct {
	requests   storage.RequestStore
	categories storage.CategoryStore
	payments   PaymentCreator
	runner     txn.Runner
	notifier   *events.Notifier
	logger     *zap.SugaredLogger
}

func NewRequestService(
	requests storage.RequestStore,
	categories storage.CategoryStore,
	payments PaymentCreator,
	runner txn.Runner,
	notifier *events.Notifier,
	logger *zap.SugaredLogger,
) *RequestService {
	return &RequestService{
		requests:   requests,
		categories: categories,
		payments:   payments,
		runner:     runner,
		notifier:   notifier,
		logger:     logger,
	}
}

// CreateRequestInput is the payload for creating a payment request.
type CreateRequestInput struct {
	BeneficiaryID string             `json:"beneficiary_id" validate:"required,objectid"`
	TreasuryID    string             `json:"treasury_id" validate:"required,objectid"`
	Amount        decimal.Decimal    `json:"amount"`
	PaymentType   models.PaymentType `json:"payment_type" validate:"required,oneof=ONE_TIME SEASONAL RECURRING"`
	StartDate     time.Time          `json:"start_date" validate:"required"`
	EndDate       *time.Time         `json:"end_date,omitempty"`
	Frequency     models.Frequency   `json:"frequency,omitempty" validate:"omitempty,oneof=weekly monthly quarterly yearly"`
	Description   string             `json:"description" validate:"max=500"`
	Notes         string             `json:"notes"`
}

func (in CreateRequestInput) validate() error {
	if err := validator.Validate.Struct(in); err != nil {
		return asValidationError(err)
	}
	if !in.Amount.IsPositive() {
		return models.NewValidationError("amount", "must be greater than zero")
	}
	if in.PaymentType != models.PaymentRecurring {
		if in.Frequency != "" {
			return models.NewValidationError("frequency", "only valid for recurring requests")
		}
		if in.EndDate != nil {
			return models.NewValidationError("end_date", "only valid for recurring requests")
		}
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return models.NewValidationError("end_date", "must not precede start date")
	}
	return nil
}

// asValidationError converts the first field failure reported by the
// struct validator into the domain taxonomy.
func asValidationError(err error) error {
	var fieldErrs govalidator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return models.NewValidationError(fe.Field(), fmt.Sprintf("failed %q constraint", fe.Tag()))
	}
	return models.NewValidationError("", err.Error())
}

// Create inserts a request with status CREATED and no balance effect,
// after confirming the funding category exists.
func (s *RequestService) Create(ctx context.Context, input CreateRequestInput) (*models.PaymentRequest, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	request := &models.PaymentRequest{
		BeneficiaryID: input.BeneficiaryID,
		TreasuryID:    input.TreasuryID,
		Amount:        input.Amount,
		PaymentType:   input.PaymentType,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		Frequency:     input.Frequency,
		Status:        models.StatusCreated,
		Description:   input.Description,
		Notes:         input.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.runner.Run(ctx, func(ctx context.Context) error {
		if _, err := s.categories.GetCategory(ctx, input.TreasuryID); err != nil {
			return err
		}

		id, err := s.requests.CreateRequest(ctx, request)
		if err != nil {
			return err
		}
		request.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("payment request created", "request_id", request.ID, "treasury_id", request.TreasuryID, "amount", request.Amount)
	s.notifier.Publish(events.Event{Operation: events.OpRequestCreated, RequestID: request.ID, CategoryID: request.TreasuryID})

	return request, nil
}

// List returns all requests, newest start date first. Read-only; no
// transaction scope is needed.
func (s *RequestService) List(ctx context.Context) ([]models.PaymentRequest, error) {
	return s.requests.ListRequests(ctx)
}

// Get returns a single request by id.
func (s *RequestService) Get(ctx context.Context, id string) (*models.PaymentRequest, error) {
	return s.requests.GetRequest(ctx, id)
}

// TransitionStatus moves a request along the lifecycle, adjusting the
// funding category's balance in lock-step. The whole operation commits or
// aborts as one unit.
func (s *RequestService) TransitionStatus(ctx context.Context, id string, newStatus models.RequestStatus) error {
	if !newStatus.IsValid() {
		return models.NewValidationError("status", fmt.Sprintf("unknown status %q", newStatus))
	}

	var (
		categoryID string
		paymentID  string
	)

	err := s.runner.Run(ctx, func(ctx context.Context) error {
		request, err := s.requests.GetRequest(ctx, id)
		if err != nil {
			return err
		}

		if !request.Status.CanTransition(newStatus) {
			return &models.InvalidTransitionError{From: request.Status, To: newStatus}
		}

		category, err := s.categories.GetCategory(ctx, request.TreasuryID)
		if err != nil {
			return err
		}
		categoryID = category.ID

		switch newStatus {
		case models.StatusPending:
			periodStart := startOfCurrentMonth()
			if request.StartDate.Before(periodStart) {
				return &models.PastPeriodError{StartDate: request.StartDate, PeriodStart: periodStart}
			}
			if category.Available.LessThan(request.Amount) {
				return &models.InsufficientFundsError{CategoryID: category.ID, Available: category.Available, Requested: request.Amount}
			}
			if _, err := s.categories.AdjustBalance(ctx, category.ID, request.Amount.Neg(), request.Amount); err != nil {
				return err
			}

		case models.StatusCompleted:
			if request.Status == models.StatusPending {
				// Amount was already moved to reserved at the PENDING
				// transition; settle the reservation without touching
				// available funds.
				if _, err := s.categories.AdjustBalance(ctx, category.ID, decimal.Zero, request.Amount.Neg()); err != nil {
					return err
				}
				payment, err := s.payments.CreateFromRequest(ctx, request, models.ProvenanceReservation)
				if err != nil {
					return err
				}
				paymentID = payment.ID
			} else {
				if category.Available.LessThan(request.Amount) {
					return &models.InsufficientFundsError{CategoryID: category.ID, Available: category.Available, Requested: request.Amount}
				}
				if _, err := s.categories.AdjustBalance(ctx, category.ID, request.Amount.Neg(), decimal.Zero); err != nil {
					return err
				}
				payment, err := s.payments.CreateFromRequest(ctx, request, models.ProvenanceDirect)
				if err != nil {
					return err
				}
				paymentID = payment.ID
			}
		}

		return s.requests.SetRequestStatus(ctx, id, newStatus)
	})
	if err != nil {
		return err
	}

	s.logger.Infow("payment request transitioned", "request_id", id, "status", newStatus)
	s.notifier.Publish(events.Event{
		Operation:  events.OpRequestTransitioned,
		RequestID:  id,
		CategoryID: categoryID,
		PaymentID:  paymentID,
	})

	return nil
}

// Amend applies a partial update. For PENDING requests touching amount or
// category, the existing reservation is restored first and the effective
// amount re-reserved against the effective category, all in one unit.
// Otherwise the patch is a plain metadata update.
func (s *RequestService) Amend(ctx context.Context, id string, patch models.RequestPatch) (*models.PaymentRequest, error) {
	if patch.Amount != nil && !patch.Amount.IsPositive() {
		return nil, models.NewValidationError("amount", "must be greater than zero")
	}
	if patch.Description != nil && len(*patch.Description) > models.MaxDescriptionLen {
		return nil, models.NewValidationError("description", fmt.Sprintf("must not exceed %d characters", models.MaxDescriptionLen))
	}

	var amended *models.PaymentRequest

	err := s.runner.Run(ctx, func(ctx context.Context) error {
		request, err := s.requests.GetRequest(ctx, id)
		if err != nil {
			return err
		}

		if request.Status == models.StatusCompleted {
			return models.NewValidationError("status", "completed requests are immutable")
		}

		movesReservation := request.Status == models.StatusPending &&
			(patch.Amount != nil || patch.TreasuryID != nil)

		if movesReservation {
			current, err := s.categories.GetCategory(ctx, request.TreasuryID)
			if err != nil {
				return err
			}

			// Restore the existing reservation before computing the new one.
			if _, err := s.categories.AdjustBalance(ctx, current.ID, request.Amount, request.Amount.Neg()); err != nil {
				return err
			}

			effectiveCategoryID := request.TreasuryID
			if patch.TreasuryID != nil {
				effectiveCategoryID = *patch.TreasuryID
			}
			effectiveAmount := request.Amount
			if patch.Amount != nil {
				effectiveAmount = *patch.Amount
			}

			effective, err := s.categories.GetCategory(ctx, effectiveCategoryID)
			if err != nil {
				return err
			}

			if effective.Available.LessThan(effectiveAmount) {
				return &models.InsufficientFundsError{CategoryID: effective.ID, Available: effective.Available, Requested: effectiveAmount}
			}

			if _, err := s.categories.AdjustBalance(ctx, effectiveCategoryID, effectiveAmount.Neg(), effectiveAmount); err != nil {
				return err
			}
		}

		if err := s.requests.UpdateRequest(ctx, id, patch); err != nil {
			return err
		}

		amended, err = s.requests.GetRequest(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("payment request amended", "request_id", id)
	s.notifier.Publish(events.Event{Operation: events.OpRequestAmended, RequestID: id, CategoryID: amended.TreasuryID})

	return amended, nil
}

// Delete removes a request. A PENDING request has its reservation restored
// to its funding category inside the same unit. COMPLETED deletion does
// not reverse the payment or the deduction.
func (s *RequestService) Delete(ctx context.Context, id string) error {
	var categoryID string

	err := s.runner.Run(ctx, func(ctx context.Context) error {
		request, err := s.requests.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		categoryID = request.TreasuryID

		if request.Status == models.StatusPending {
			category, err := s.categories.GetCategory(ctx, request.TreasuryID)
			if err != nil {
				return err
			}
			if _, err := s.categories.AdjustBalance(ctx, category.ID, request.Amount, request.Amount.Neg()); err != nil {
				return err
			}
		}

		return s.requests.DeleteRequest(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Infow("payment request deleted", "request_id", id)
	s.notifier.Publish(events.Event{Operation: events.OpRequestDeleted, RequestID: id, CategoryID: categoryID})

	return nil
}

// startOfCurrentMonth is the accounting-period boundary for reservations:
// requests starting before it belong to a closed period.
func startOfCurrentMonth() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
