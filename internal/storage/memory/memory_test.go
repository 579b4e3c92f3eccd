package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baytalmal/treasury-gobackend/internal/models"
	"github.com/baytalmal/treasury-gobackend/internal/storage/memory"
)

func TestRunnerRestoresSnapshotOnFailure(t *testing.T) {
	store := memory.NewStore()
	runner := memory.NewRunner(store)
	ctx := context.Background()

	catID, err := store.CreateCategory(ctx, &models.TreasuryCategory{
		Name:      "zakat",
		Available: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = runner.Run(ctx, func(ctx context.Context) error {
		if _, err := store.AdjustBalance(ctx, catID, decimal.NewFromInt(-400), decimal.NewFromInt(400)); err != nil {
			return err
		}
		if _, err := store.CreateRequest(ctx, &models.PaymentRequest{TreasuryID: catID}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	cat, err := store.GetCategory(ctx, catID)
	require.NoError(t, err)
	assert.True(t, cat.Available.Equal(decimal.NewFromInt(1000)))
	assert.True(t, cat.Reserved.IsZero())

	requests, err := store.ListRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestRunnerCommitsOnSuccess(t *testing.T) {
	store := memory.NewStore()
	runner := memory.NewRunner(store)
	ctx := context.Background()

	catID, err := store.CreateCategory(ctx, &models.TreasuryCategory{
		Name:      "zakat",
		Available: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	err = runner.Run(ctx, func(ctx context.Context) error {
		_, err := store.AdjustBalance(ctx, catID, decimal.NewFromInt(-400), decimal.NewFromInt(400))
		return err
	})
	require.NoError(t, err)

	cat, err := store.GetCategory(ctx, catID)
	require.NoError(t, err)
	assert.True(t, cat.Available.Equal(decimal.NewFromInt(600)))
	assert.True(t, cat.Reserved.Equal(decimal.NewFromInt(400)))
}

func TestGetReturnsCopy(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	catID, err := store.CreateCategory(ctx, &models.TreasuryCategory{
		Name:      "zakat",
		Available: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	cat, err := store.GetCategory(ctx, catID)
	require.NoError(t, err)
	cat.Available = decimal.NewFromInt(0)
	cat.Name = "tampered"

	fresh, err := store.GetCategory(ctx, catID)
	require.NoError(t, err)
	assert.Equal(t, "zakat", fresh.Name)
	assert.True(t, fresh.Available.Equal(decimal.NewFromInt(100)))
}
