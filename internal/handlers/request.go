package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/baytalmal/treasury-gobackend/internal/models"
	"github.com/baytalmal/treasury-gobackend/internal/services"
)

// RequestHandler handles HTTP requests for the payment-request lifecycle.
type RequestHandler struct {
	service *services.RequestService
	logger  *zap.SugaredLogger
}

func NewRequestHandler(service *services.RequestService, logger *zap.SugaredLogger) *RequestHandler {
	return &RequestHandler{service: service, logger: logger}
}

// CreateRequest handles POST /api/request
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var input services.CreateRequestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	request, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Warnw("create request failed", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, request)
}

// ListRequests handles GET /api/requests
func (h *RequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Errorw("list requests failed", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requests)
}

// GetRequest handles GET /api/request/{requestID}
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["requestID"]

	request, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, request)
}

// TransitionRequest handles POST /api/request/{requestID}/status
func (h *RequestHandler) TransitionRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["requestID"]

	var body struct {
		Status models.RequestStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.service.TransitionStatus(r.Context(), id, body.Status); err != nil {
		h.logger.Warnw("status transition failed", "request_id", id, "status", body.Status, "error", err)
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AmendRequest handles PATCH /api/request/{requestID}
func (h *RequestHandler) AmendRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["requestID"]

	var patch models.RequestPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	request, err := h.service.Amend(r.Context(), id, patch)
	if err != nil {
		h.logger.Warnw("amend request failed", "request_id", id, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, request)
}

// DeleteRequest handles DELETE /api/request/{requestID}
func (h *RequestHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["requestID"]

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Warnw("delete request failed", "request_id", id, "error", err)
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
