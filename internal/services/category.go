package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/baytalmal/treasury-gobackend/internal/events"
	"github.com/baytalmal/treasury-gobackend/internal/models"
	"github.com/baytalmal/treasury-gobackend/internal/storage"
	"github.com/baytalmal/treasury-gobackend/internal/validator"
)

// CategoryService manages treasury categories. Balance mutations are not
// exposed here; they happen only inside the lifecycle and payment units
// of work.
type CategoryService struct {
	categories storage.CategoryStore
	notifier   *events.Notifier
	logger     *zap.SugaredLogger
}

func NewCategoryService(categories storage.CategoryStore, notifier *events.Notifier, logger *zap.SugaredLogger) *CategoryService {
	return &CategoryService{categories: categories, notifier: notifier, logger: logger}
}

// CreateCategoryInput is the payload for creating a treasury category.
type CreateCategoryInput struct {
	Name           string          `json:"name" validate:"required,notblank,max=100"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// Create inserts a category with its opening balance held as available
// funds and nothing reserved.
func (s *CategoryService) Create(ctx context.Context, input CreateCategoryInput) (*models.TreasuryCategory, error) {
	if err := validator.Validate.Struct(input); err != nil {
		return nil, asValidationError(err)
	}
	if input.OpeningBalance.IsNegative() {
		return nil, models.NewValidationError("opening_balance", "must not be negative")
	}

	now := time.Now().UTC()
	category := &models.TreasuryCategory{
		Name:      input.Name,
		Available: input.OpeningBalance,
		Reserved:  decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := s.categories.CreateCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	category.ID = id

	s.logger.Infow("treasury category created", "category_id", id, "name", category.Name)
	s.notifier.Publish(events.Event{Operation: events.OpCategoryCreated, CategoryID: id})

	return category, nil
}

// Get returns a single category by id.
func (s *CategoryService) Get(ctx context.Context, id string) (*models.TreasuryCategory, error) {
	return s.categories.GetCategory(ctx, id)
}

// List returns all categories ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]models.TreasuryCategory, error) {
	return s.categories.ListCategories(ctx)
}
