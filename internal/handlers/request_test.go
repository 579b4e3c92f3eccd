package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/baytalmal/treasury-gobackend/internal/events"
	"github.com/baytalmal/treasury-gobackend/internal/handlers"
	"github.com/baytalmal/treasury-gobackend/internal/models"
	"github.com/baytalmal/treasury-gobackend/internal/services"
	"github.com/baytalmal/treasury-gobackend/internal/storage/memory"
)

type apiFixture struct {
	store  *memory.Store
	router *mux.Router
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := memory.NewStore()
	runner := memory.NewRunner(store)
	notifier := events.NewNotifier()
	logger := zap.NewNop().Sugar()

	payments := services.NewPaymentService(store, store, store, runner, notifier, logger)
	requests := services.NewRequestService(store, store, payments, runner, notifier, logger)
	handler := handlers.NewRequestHandler(requests, logger)

	router := mux.NewRouter()
	router.HandleFunc("/api/request", handler.CreateRequest).Methods(http.MethodPost)
	router.HandleFunc("/api/requests", handler.ListRequests).Methods(http.MethodGet)
	router.HandleFunc("/api/request/{requestID}", handler.GetRequest).Methods(http.MethodGet)
	router.HandleFunc("/api/request/{requestID}", handler.AmendRequest).Methods(http.MethodPatch)
	router.HandleFunc("/api/request/{requestID}", handler.DeleteRequest).Methods(http.MethodDelete)
	router.HandleFunc("/api/request/{requestID}/status", handler.TransitionRequest).Methods(http.MethodPost)

	return &apiFixture{store: store, router: router}
}

func (f *apiFixture) seed(t *testing.T, available int64) (categoryID, beneficiaryID string) {
	t.Helper()
	ctx := context.Background()

	categoryID, err := f.store.CreateCategory(ctx, &models.TreasuryCategory{
		Name:      "zakat",
		Available: decimal.NewFromInt(available),
	})
	require.NoError(t, err)

	beneficiaryID, err = f.store.CreateBeneficiary(ctx, &models.Beneficiary{FullName: "Amina Yusuf"})
	require.NoError(t, err)
	return categoryID, beneficiaryID
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func createBody(categoryID, beneficiaryID string, amount int64) map[string]any {
	return map[string]any{
		"beneficiary_id": beneficiaryID,
		"treasury_id":    categoryID,
		"amount":         amount,
		"payment_type":   "ONE_TIME",
		"start_date":     time.Now().UTC().Format(time.RFC3339),
		"description":    "food support",
	}
}

func TestCreateRequestEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	catID, benID := f.seed(t, 1000)

	rec := f.do(t, http.MethodPost, "/api/request", createBody(catID, benID, 300))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.PaymentRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.StatusCreated, created.Status)
}

func TestCreateRequestEndpointErrors(t *testing.T) {
	f := newAPIFixture(t)
	catID, benID := f.seed(t, 1000)

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/request", bytes.NewBufferString("{nope"))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation failure", func(t *testing.T) {
		body := createBody(catID, benID, 300)
		body["amount"] = 0
		rec := f.do(t, http.MethodPost, "/api/request", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown category", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/request", createBody(primitive.NewObjectID().Hex(), benID, 300))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTransitionEndpointStatusCodes(t *testing.T) {
	f := newAPIFixture(t)
	catID, benID := f.seed(t, 1000)

	rec := f.do(t, http.MethodPost, "/api/request", createBody(catID, benID, 300))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.PaymentRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	statusPath := fmt.Sprintf("/api/request/%s/status", created.ID)

	t.Run("unknown status", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, statusPath, map[string]string{"status": "ARCHIVED"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		big := f.do(t, http.MethodPost, "/api/request", createBody(catID, benID, 5000))
		require.Equal(t, http.StatusCreated, big.Code)
		var bigReq models.PaymentRequest
		require.NoError(t, json.Unmarshal(big.Body.Bytes(), &bigReq))

		rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/request/%s/status", bigReq.ID), map[string]string{"status": "PENDING"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("valid transitions", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, statusPath, map[string]string{"status": "PENDING"})
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.do(t, http.MethodPost, statusPath, map[string]string{"status": "COMPLETED"})
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("illegal transition conflicts", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, statusPath, map[string]string{"status": "PENDING"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing request", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/request/%s/status", primitive.NewObjectID().Hex()), map[string]string{"status": "PENDING"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAmendAndDeleteEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	catID, benID := f.seed(t, 1000)

	rec := f.do(t, http.MethodPost, "/api/request", createBody(catID, benID, 300))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.PaymentRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = f.do(t, http.MethodPatch, "/api/request/"+created.ID, map[string]any{"notes": "approved by committee"})
	require.Equal(t, http.StatusOK, rec.Code)
	var amended models.PaymentRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &amended))
	assert.Equal(t, "approved by committee", amended.Notes)

	rec = f.do(t, http.MethodDelete, "/api/request/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/request/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
