package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/baytalmal/treasury-gobackend/internal/models"
	"github.com/baytalmal/treasury-gobackend/internal/storage"
	"github.com/baytalmal/treasury-gobackend/internal/validator"
)

// BeneficiaryService manages disbursement recipients. The lifecycle only
// ever resolves beneficiaries by id; creation and listing live here, on
// the administrative surface.
type BeneficiaryService struct {
	beneficiaries storage.BeneficiaryStore
	logger        *zap.SugaredLogger
}

func NewBeneficiaryService(beneficiaries storage.BeneficiaryStore, logger *zap.SugaredLogger) *BeneficiaryService {
	return &BeneficiaryService{beneficiaries: beneficiaries, logger: logger}
}

// CreateBeneficiaryInput is the payload for registering a beneficiary.
type CreateBeneficiaryInput struct {
	FullName string `json:"fullname" validate:"required,notblank,max=200"`
	Contact  string `json:"contact" validate:"max=100"`
	Notes    string `json:"notes" validate:"max=500"`
}

func (s *BeneficiaryService) Create(ctx context.Context, input CreateBeneficiaryInput) (*models.Beneficiary, error) {
	if err := validator.Validate.Struct(input); err != nil {
		return nil, asValidationError(err)
	}

	beneficiary := &models.Beneficiary{
		FullName:  input.FullName,
		Contact:   input.Contact,
		Notes:     input.Notes,
		CreatedAt: time.Now().UTC(),
	}

	id, err := s.beneficiaries.CreateBeneficiary(ctx, beneficiary)
	if err != nil {
		return nil, err
	}
	beneficiary.ID = id

	s.logger.Infow("beneficiary registered", "beneficiary_id", id)

	return beneficiary, nil
}

// Get returns a single beneficiary by id.
func (s *BeneficiaryService) Get(ctx context.Context, id string) (*models.Beneficiary, error) {
	return s.beneficiaries.GetBeneficiary(ctx, id)
}

// List returns all beneficiaries ordered by name.
func (s *BeneficiaryService) List(ctx context.Context) ([]models.Beneficiary, error) {
	return s.beneficiaries.ListBeneficiaries(ctx)
}
