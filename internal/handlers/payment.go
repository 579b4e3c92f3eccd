package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/baytalmal/treasury-gobackend/internal/models"
	"github.com/baytalmal/treasury-gobackend/internal/services"
	"github.com/baytalmal/treasury-gobackend/internal/storage"
)

// PaymentHandler handles HTTP requests for disbursement records.
type PaymentHandler struct {
	service *services.PaymentService
	logger  *zap.SugaredLogger
}

func NewPaymentHandler(service *services.PaymentService, logger *zap.SugaredLogger) *PaymentHandler {
	return &PaymentHandler{service: service, logger: logger}
}

// CreatePayment handles POST /api/payment
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var input services.CreatePaymentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	payment, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Warnw("create payment failed", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, payment)
}

// GetPayment handles GET /api/payment/{paymentID}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["paymentID"]

	payment, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payment)
}

// ListPayments handles GET /api/payments with optional category_id,
// beneficiary_id, and provenance query filters.
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	filter := storage.PaymentFilter{
		CategoryID:    r.URL.Query().Get("category_id"),
		BeneficiaryID: r.URL.Query().Get("beneficiary_id"),
		Provenance:    models.Provenance(r.URL.Query().Get("provenance")),
	}
	if filter.Provenance != "" && !filter.Provenance.IsValid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid provenance filter"})
		return
	}

	payments, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Errorw("list payments failed", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payments)
}
