package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/baytalmal/treasury-gobackend/internal/services"
)

// BeneficiaryHandler handles HTTP requests for beneficiaries.
type BeneficiaryHandler struct {
	service *services.BeneficiaryService
	logger  *zap.SugaredLogger
}

func NewBeneficiaryHandler(service *services.BeneficiaryService, logger *zap.SugaredLogger) *BeneficiaryHandler {
	return &BeneficiaryHandler{service: service, logger: logger}
}

// CreateBeneficiary handles POST /api/beneficiary
func (h *BeneficiaryHandler) CreateBeneficiary(w http.ResponseWriter, r *http.Request) {
	var input services.CreateBeneficiaryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	beneficiary, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Warnw("create beneficiary failed", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, beneficiary)
}

// GetBeneficiary handles GET /api/beneficiary/{beneficiaryID}
func (h *BeneficiaryHandler) GetBeneficiary(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["beneficiaryID"]

	beneficiary, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, beneficiary)
}

// ListBeneficiaries handles GET /api/beneficiaries
func (h *BeneficiaryHandler) ListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	beneficiaries, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Errorw("list beneficiaries failed", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, beneficiaries)
}
