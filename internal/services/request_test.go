package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/baytalmal/treasury-gobackend/internal/events"
	"github.com/baytalmal/treasury-gobackend/internal/models"
	"github.com/baytalmal/treasury-gobackend/internal/services"
	"github.com/baytalmal/treasury-gobackend/internal/storage"
	"github.com/baytalmal/treasury-gobackend/internal/storage/memory"
)

func dec(i int64) decimal.Decimal {
	return decimal.NewFromInt(i)
}

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	requests *services.RequestService
	payments *services.PaymentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	runner := memory.NewRunner(store)
	notifier := events.NewNotifier()
	logger := zap.NewNop().Sugar()

	payments := services.NewPaymentService(store, store, store, runner, notifier, logger)
	requests := services.NewRequestService(store, store, payments, runner, notifier, logger)

	return &fixture{
		ctx:      context.Background(),
		store:    store,
		requests: requests,
		payments: payments,
	}
}

func (f *fixture) category(t *testing.T, name string, available int64) string {
	t.Helper()
	id, err := f.store.CreateCategory(f.ctx, &models.TreasuryCategory{
		Name:      name,
		Available: dec(available),
		Reserved:  decimal.Zero,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) beneficiary(t *testing.T) string {
	t.Helper()
	id, err := f.store.CreateBeneficiary(f.ctx, &models.Beneficiary{FullName: "Amina Yusuf"})
	require.NoError(t, err)
	return id
}

func (f *fixture) request(t *testing.T, categoryID string, amount int64) *models.PaymentRequest {
	t.Helper()
	req, err := f.requests.Create(f.ctx, services.CreateRequestInput{
		BeneficiaryID: f.beneficiary(t),
		TreasuryID:    categoryID,
		Amount:        dec(amount),
		PaymentType:   models.PaymentOneTime,
		StartDate:     time.Now().UTC(),
		Description:   "food support",
	})
	require.NoError(t, err)
	return req
}

func (f *fixture) categoryState(t *testing.T, id string) models.TreasuryCategory {
	t.Helper()
	c, err := f.store.GetCategory(f.ctx, id)
	require.NoError(t, err)
	return *c
}

func TestCreateRequestLeavesBalanceUntouched(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 1000)

	req := f.request(t, catID, 300)

	assert.Equal(t, models.StatusCreated, req.Status)
	assert.False(t, req.CreatedAt.IsZero())

	cat := f.categoryState(t, catID)
	assert.True(t, cat.Available.Equal(dec(1000)))
	assert.True(t, cat.Reserved.IsZero())
}

func TestCreateRequestCategoryNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.requests.Create(f.ctx, services.CreateRequestInput{
		BeneficiaryID: f.beneficiary(t),
		TreasuryID:    primitive.NewObjectID().Hex(),
		Amount:        dec(100),
		PaymentType:   models.PaymentOneTime,
		StartDate:     time.Now().UTC(),
	})

	var notFound *models.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "category", notFound.Entity)

	requests, err := f.requests.List(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestCreateRequestValidation(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 1000)
	benID := f.beneficiary(t)

	base := services.CreateRequestInput{
		BeneficiaryID: benID,
		TreasuryID:    catID,
		Amount:        dec(100),
		PaymentType:   models.PaymentOneTime,
		StartDate:     time.Now().UTC(),
	}

	t.Run("non-positive amount", func(t *testing.T) {
		in := base
		in.Amount = decimal.Zero
		_, err := f.requests.Create(f.ctx, in)
		var vErr *models.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("frequency on one-time", func(t *testing.T) {
		in := base
		in.Frequency = models.FrequencyMonthly
		_, err := f.requests.Create(f.ctx, in)
		var vErr *models.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("recurring with frequency is fine", func(t *testing.T) {
		in := base
		in.PaymentType = models.PaymentRecurring
		in.Frequency = models.FrequencyMonthly
		_, err := f.requests.Create(f.ctx, in)
		assert.NoError(t, err)
	})

	t.Run("oversized description", func(t *testing.T) {
		in := base
		for len(in.Description) <= models.MaxDescriptionLen {
			in.Description += "xxxxxxxxxx"
		}
		_, err := f.requests.Create(f.ctx, in)
		var vErr *models.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("malformed category id", func(t *testing.T) {
		in := base
		in.TreasuryID = "not-an-id"
		_, err := f.requests.Create(f.ctx, in)
		var vErr *models.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})
}

func TestTransitionToPendingReservesFunds(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 1000)
	req := f.request(t, catID, 300)

	require.NoError(t, f.requests.TransitionStatus(f.ctx, req.ID, models.StatusPending))

	cat := f.categoryState(t, catID)
	assert.True(t, cat.Available.Equal(dec(700)), "available = %s", cat.Available)
	assert.True(t, cat.Reserved.Equal(dec(300)), "reserved = %s", cat.Reserved)
	assert.True(t, cat.Total().Equal(dec(1000)))

	updated, err := f.requests.Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)
}

func TestPendingToCompletedSettlesWithoutDoubleDeduction(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 1000)
	req := f.request(t, catID, 300)

	require.NoError(t, f.requests.TransitionStatus(f.ctx, req.ID, models.StatusPending))
	require.NoError(t, f.requests.TransitionStatus(f.ctx, req.ID, models.StatusCompleted))

	cat := f.categoryState(t, catID)
	assert.True(t, cat.Available.Equal(dec(700)), "total deduction must be exactly the amount once")
	assert.True(t, cat.Reserved.IsZero())

	payments, err := f.payments.List(f.ctx, storage.PaymentFilter{})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, models.ProvenanceReservation, payments[0].Provenance)
	assert.Equal(t, req.ID, payments[0].RequestID)
	assert.True(t, payments[0].Amount.Equal(dec(300)))
}

func TestCreatedToCompletedDeductsDirectly(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "sadaqah", 500)
	req := f.request(t, catID, 200)

	require.NoError(t, f.requests.TransitionStatus(f.ctx, req.ID, models.StatusCompleted))

	cat := f.categoryState(t, catID)
	assert.True(t, cat.Available.Equal(dec(300)))
	assert.True(t, cat.Reserved.IsZero())

	payments, err := f.payments.List(f.ctx, storage.PaymentFilter{})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, models.ProvenanceDirect, payments[0].Provenance)
}

func TestTransitionInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 700)
	req := f.request(t, catID, 900)

	err := f.requests.TransitionStatus(f.ctx, req.ID, models.StatusPending)
	var fundsErr *models.InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.True(t, fundsErr.Available.Equal(dec(700)))

	cat := f.categoryState(t, catID)
	assert.True(t, cat.Available.Equal(dec(700)))

	updated, err := f.requests.Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, updated.Status)
}

func TestTransitionPastPeriodRejected(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 1000)

	req, err := f.requests.Create(f.ctx, services.CreateRequestInput{
		BeneficiaryID: f.beneficiary(t),
		TreasuryID:    catID,
		Amount:        dec(100),
		PaymentType:   models.PaymentOneTime,
		StartDate:     time.Now().UTC().AddDate(0, -2, 0),
	})
	require.NoError(t, err)

	err = f.requests.TransitionStatus(f.ctx, req.ID, models.StatusPending)
	var pastErr *models.PastPeriodError
	require.ErrorAs(t, err, &pastErr)

	cat := f.categoryState(t, catID)
	assert.True(t, cat.Available.Equal(dec(1000)))

	// direct completion is not subject to the period check
	require.NoError(t, f.requests.TransitionStatus(f.ctx, req.ID, models.StatusCompleted))
}

func TestIllegalTransitionsLeaveStateUnchanged(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 1000)
	req := f.request(t, catID, 300)

	require.NoError(t, f.requests.TransitionStatus(f.ctx, req.ID, models.StatusPending))
	require.NoError(t, f.requests.TransitionStatus(f.ctx, req.ID, models.StatusCompleted))

	before, err := f.requests.Get(f.ctx, req.ID)
	require.NoError(t, err)
	catBefore := f.categoryState(t, catID)

	for _, target := range []models.RequestStatus{models.StatusCreated, models.StatusPending, models.StatusCompleted} {
		err := f.requests.TransitionStatus(f.ctx, req.ID, target)
		var transErr *models.InvalidTransitionError
		require.ErrorAs(t, err, &transErr, "COMPLETED -> %s must be rejected", target)
	}

	after, err := f.requests.Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, catBefore, f.categoryState(t, catID))
}

func TestTransitionUnknownStatusAndMissingRequest(t *testing.T) {
	f := newFixture(t)

	err := f.requests.TransitionStatus(f.ctx, primitive.NewObjectID().Hex(), models.RequestStatus("ARCHIVED"))
	var vErr *models.ValidationError
	assert.ErrorAs(t, err, &vErr)

	err = f.requests.TransitionStatus(f.ctx, primitive.NewObjectID().Hex(), models.StatusPending)
	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

type failingCreator struct{}

func (failingCreator) CreateFromRequest(context.Context, *models.PaymentRequest, models.Provenance) (*models.Payment, error) {
	return nil, errors.New("payment store unavailable")
}

func TestCompletionAbortsAtomicallyWhenPaymentFails(t *testing.T) {
	store := memory.NewStore()
	runner := memory.NewRunner(store)
	logger := zap.NewNop().Sugar()
	requests := services.NewRequestService(store, store, failingCreator{}, runner, events.NewNotifier(), logger)

	ctx := context.Background()
	catID, err := store.CreateCategory(ctx, &models.TreasuryCategory{Name: "zakat", Available: dec(1000)})
	require.NoError(t, err)
	benID, err := store.CreateBeneficiary(ctx, &models.Beneficiary{FullName: "Amina Yusuf"})
	require.NoError(t, err)

	req, err := requests.Create(ctx, services.CreateRequestInput{
		BeneficiaryID: benID,
		TreasuryID:    catID,
		Amount:        dec(300),
		PaymentType:   models.PaymentOneTime,
		StartDate:     time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, requests.TransitionStatus(ctx, req.ID, models.StatusPending))

	err = requests.TransitionStatus(ctx, req.ID, models.StatusCompleted)
	require.Error(t, err)

	// the whole unit rolled back: reservation intact, status unchanged
	cat, err := store.GetCategory(ctx, catID)
	require.NoError(t, err)
	assert.True(t, cat.Available.Equal(dec(700)))
	assert.True(t, cat.Reserved.Equal(dec(300)))

	updated, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)
}

func TestAmendPendingAmountRestoresThenReserves(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 1000)
	req := f.request(t, catID, 300)

	require.NoError(t, f.requests.TransitionStatus(f.ctx, req.ID, models.StatusPending))

	newAmount := dec(500)
	amended, err := f.requests.Amend(f.ctx, req.ID, models.RequestPatch{Amount: &newAmount})
	require.NoError(t, err)
	assert.True(t, amended.Amount.Equal(dec(500)))

	cat := f.categoryState(t, catID)
	assert.True(t, cat.Available.Equal(dec(500)), "restore 300 then reserve 500")
	assert.True(t, cat.Reserved.Equal(dec(500)))
}

func TestAmendPendingCategoryMovesReservation(t *testing.T) {
	f := newFixture(t)
	fromID := f.category(t, "zakat", 1000)
	toID := f.category(t, "sadaqah", 400)
	req := f.request(t, fromID, 300)

	require.NoError(t, f.requests.TransitionStatus(f.ctx, req.ID, models.StatusPending))

	amended, err := f.requests.Amend(f.ctx, req.ID, models.RequestPatch{TreasuryID: &toID})
	require.NoError(t, err)
	assert.Equal(t, toID, amended.TreasuryID)

	from := f.categoryState(t, fromID)
	assert.True(t, from.Available.Equal(dec(1000)))
	assert.True(t, from.Reserved.IsZero())

	to := f.categoryState(t, toID)
	assert.True(t, to.Available.Equal(dec(100)))
	assert.True(t, to.Reserved.Equal(dec(300)))
}

func TestAmendPendingInsufficientFundsRollsBack(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 1000)
	req := f.request(t, catID, 300)

	require.NoError(t, f.requests.TransitionStatus(f.ctx, req.ID, models.StatusPending))

	// restoration yields 1000 available; 1200 still cannot be covered
	newAmount := dec(1200)
	_, err := f.requests.Amend(f.ctx, req.ID, models.RequestPatch{Amount: &newAmount})
	var fundsErr *models.InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)

	cat := f.categoryState(t, catID)
	assert.True(t, cat.Available.Equal(dec(700)), "restoration must be rolled back")
	assert.True(t, cat.Reserved.Equal(dec(300)))

	updated, err := f.requests.Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(dec(300)))
}

func TestAmendReservationGrowthWithinRestoredBalance(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 1000)
	req := f.request(t, catID, 800)

	require.NoError(t, f.requests.TransitionStatus(f.ctx, req.ID, models.StatusPending))

	// only 200 available, but restoring the 800 reservation first makes
	// 1000 coverable
	newAmount := dec(1000)
	_, err := f.requests.Amend(f.ctx, req.ID, models.RequestPatch{Amount: &newAmount})
	require.NoError(t, err)

	cat := f.categoryState(t, catID)
	assert.True(t, cat.Available.IsZero())
	assert.True(t, cat.Reserved.Equal(dec(1000)))
}

func TestAmendCreatedIsMetadataOnly(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 1000)
	req := f.request(t, catID, 300)

	newAmount := dec(450)
	notes := "updated by committee"
	amended, err := f.requests.Amend(f.ctx, req.ID, models.RequestPatch{Amount: &newAmount, Notes: &notes})
	require.NoError(t, err)
	assert.True(t, amended.Amount.Equal(dec(450)))
	assert.Equal(t, notes, amended.Notes)

	cat := f.categoryState(t, catID)
	assert.True(t, cat.Available.Equal(dec(1000)))
	assert.True(t, cat.Reserved.IsZero())
}

func TestAmendCompletedRejected(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 1000)
	req := f.request(t, catID, 300)
	require.NoError(t, f.requests.TransitionStatus(f.ctx, req.ID, models.StatusCompleted))

	notes := "too late"
	_, err := f.requests.Amend(f.ctx, req.ID, models.RequestPatch{Notes: &notes})
	var vErr *models.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestAmendValidation(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 1000)
	req := f.request(t, catID, 300)

	bad := decimal.Zero
	_, err := f.requests.Amend(f.ctx, req.ID, models.RequestPatch{Amount: &bad})
	var vErr *models.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestDeletePendingRestoresReservation(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 1000)
	req := f.request(t, catID, 300)

	require.NoError(t, f.requests.TransitionStatus(f.ctx, req.ID, models.StatusPending))

	// amendments while PENDING must not affect the exactness of the
	// restoration
	newAmount := dec(500)
	_, err := f.requests.Amend(f.ctx, req.ID, models.RequestPatch{Amount: &newAmount})
	require.NoError(t, err)

	require.NoError(t, f.requests.Delete(f.ctx, req.ID))

	cat := f.categoryState(t, catID)
	assert.True(t, cat.Available.Equal(dec(1000)))
	assert.True(t, cat.Reserved.IsZero())

	_, err = f.requests.Get(f.ctx, req.ID)
	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestDeleteCreatedAndCompletedHaveNoLedgerEffect(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 1000)

	created := f.request(t, catID, 300)
	require.NoError(t, f.requests.Delete(f.ctx, created.ID))
	assert.True(t, f.categoryState(t, catID).Available.Equal(dec(1000)))

	completed := f.request(t, catID, 200)
	require.NoError(t, f.requests.TransitionStatus(f.ctx, completed.ID, models.StatusCompleted))
	require.NoError(t, f.requests.Delete(f.ctx, completed.ID))

	// no reversal of completed payments
	cat := f.categoryState(t, catID)
	assert.True(t, cat.Available.Equal(dec(800)))

	payments, err := f.payments.List(f.ctx, storage.PaymentFilter{})
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestDeleteMissingRequest(t *testing.T) {
	f := newFixture(t)

	err := f.requests.Delete(f.ctx, primitive.NewObjectID().Hex())
	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestListRequestsNewestStartDateFirst(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 1000)
	benID := f.beneficiary(t)

	dates := []time.Time{
		time.Now().UTC().AddDate(0, 0, 1),
		time.Now().UTC().AddDate(0, 1, 0),
		time.Now().UTC(),
	}
	for _, d := range dates {
		_, err := f.requests.Create(f.ctx, services.CreateRequestInput{
			BeneficiaryID: benID,
			TreasuryID:    catID,
			Amount:        dec(10),
			PaymentType:   models.PaymentOneTime,
			StartDate:     d,
		})
		require.NoError(t, err)
	}

	requests, err := f.requests.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, requests, 3)
	for i := 1; i < len(requests); i++ {
		assert.False(t, requests[i-1].StartDate.Before(requests[i].StartDate))
	}
}

func TestConservationAcrossLifecycle(t *testing.T) {
	f := newFixture(t)
	catID := f.category(t, "zakat", 1000)

	total := func() decimal.Decimal {
		cat := f.categoryState(t, catID)
		return cat.Total()
	}

	reqA := f.request(t, catID, 300)
	reqB := f.request(t, catID, 200)
	assert.True(t, total().Equal(dec(1000)))

	require.NoError(t, f.requests.TransitionStatus(f.ctx, reqA.ID, models.StatusPending))
	require.NoError(t, f.requests.TransitionStatus(f.ctx, reqB.ID, models.StatusPending))
	assert.True(t, total().Equal(dec(1000)))

	newAmount := dec(250)
	_, err := f.requests.Amend(f.ctx, reqA.ID, models.RequestPatch{Amount: &newAmount})
	require.NoError(t, err)
	assert.True(t, total().Equal(dec(1000)))

	require.NoError(t, f.requests.Delete(f.ctx, reqB.ID))
	assert.True(t, total().Equal(dec(1000)))
}
