package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/baytalmal/treasury-gobackend/internal/services"
)

// CategoryHandler handles HTTP requests for treasury categories.
type CategoryHandler struct {
	service *services.CategoryService
	logger  *zap.SugaredLogger
}

func NewCategoryHandler(service *services.CategoryService, logger *zap.SugaredLogger) *CategoryHandler {
	return &CategoryHandler{service: service, logger: logger}
}

// CreateCategory handles POST /api/category
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input services.CreateCategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	category, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Warnw("create category failed", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, category)
}

// GetCategory handles GET /api/category/{categoryID}
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["categoryID"]

	category, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, category)
}

// ListCategories handles GET /api/categories
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Errorw("list categories failed", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, categories)
}
