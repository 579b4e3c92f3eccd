// Package memory is a map-backed implementation of the storage contracts.
// Its Runner snapshots the whole store before a unit of work and restores
// the snapshot if the unit fails, mirroring the all-or-nothing commit
// semantics of the MongoDB transaction runner. Used by tests and local
// development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/baytalmal/treasury-gobackend/internal/models"
	"github.com/baytalmal/treasury-gobackend/internal/storage"
)

// Store holds all entities in memory.
type Store struct {
	mu            sync.Mutex
	categories    map[string]models.TreasuryCategory
	requests      map[string]models.PaymentRequest
	payments      map[string]models.Payment
	beneficiaries map[string]models.Beneficiary
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		categories:    make(map[string]models.TreasuryCategory),
		requests:      make(map[string]models.PaymentRequest),
		payments:      make(map[string]models.Payment),
		beneficiaries: make(map[string]models.Beneficiary),
	}
}

type snapshot struct {
	categories    map[string]models.TreasuryCategory
	requests      map[string]models.PaymentRequest
	payments      map[string]models.Payment
	beneficiaries map[string]models.Beneficiary
}

func copyMap[T any](src map[string]T) map[string]T {
	dst := make(map[string]T, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		categories:    copyMap(s.categories),
		requests:      copyMap(s.requests),
		payments:      copyMap(s.payments),
		beneficiaries: copyMap(s.beneficiaries),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = snap.categories
	s.requests = snap.requests
	s.payments = snap.payments
	s.beneficiaries = snap.beneficiaries
}

// Runner executes units of work against a Store with rollback on failure.
type Runner struct {
	store *Store
	mu    sync.Mutex
}

// NewRunner wraps the store.
func NewRunner(store *Store) *Runner {
	return &Runner{store: store}
}

// Run serializes units of work and restores the pre-unit snapshot when fn
// fails, so no partial write is ever observable.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.store.snapshot()
	if err := fn(ctx); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// --- CategoryStore ---

func (s *Store) GetCategory(_ context.Context, id string) (*models.TreasuryCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "category", ID: id}
	}
	return &c, nil
}

func (s *Store) ListCategories(_ context.Context) ([]models.TreasuryCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.TreasuryCategory, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, category *models.TreasuryCategory) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *category
	c.ID = newID()
	s.categories[c.ID] = c
	return c.ID, nil
}

func (s *Store) AdjustBalance(_ context.Context, id string, availableDelta, reservedDelta decimal.Decimal) (*models.TreasuryCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "category", ID: id}
	}
	c.Available = c.Available.Add(availableDelta)
	c.Reserved = c.Reserved.Add(reservedDelta)
	c.UpdatedAt = time.Now().UTC()
	s.categories[id] = c
	return &c, nil
}

// --- RequestStore ---

func (s *Store) GetRequest(_ context.Context, id string) (*models.PaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "request", ID: id}
	}
	return &r, nil
}

func (s *Store) ListRequests(_ context.Context) ([]models.PaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.PaymentRequest, 0, len(s.requests))
	for _, r := range s.requests {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (s *Store) CreateRequest(_ context.Context, request *models.PaymentRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *request
	r.ID = newID()
	s.requests[r.ID] = r
	return r.ID, nil
}

func (s *Store) UpdateRequest(_ context.Context, id string, patch models.RequestPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return &models.NotFoundError{Entity: "request", ID: id}
	}

	if patch.TreasuryID != nil {
		r.TreasuryID = *patch.TreasuryID
	}
	if patch.Amount != nil {
		r.Amount = *patch.Amount
	}
	if patch.PaymentType != nil {
		r.PaymentType = *patch.PaymentType
	}
	if patch.StartDate != nil {
		r.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		r.EndDate = patch.EndDate
	}
	if patch.Frequency != nil {
		r.Frequency = *patch.Frequency
	}
	if patch.Description != nil {
		r.Description = *patch.Description
	}
	if patch.Notes != nil {
		r.Notes = *patch.Notes
	}
	r.UpdatedAt = time.Now().UTC()

	s.requests[id] = r
	return nil
}

func (s *Store) SetRequestStatus(_ context.Context, id string, status models.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return &models.NotFoundError{Entity: "request", ID: id}
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	s.requests[id] = r
	return nil
}

func (s *Store) DeleteRequest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[id]; !ok {
		return &models.NotFoundError{Entity: "request", ID: id}
	}
	delete(s.requests, id)
	return nil
}

// --- PaymentStore ---

func (s *Store) InsertPayment(_ context.Context, payment *models.Payment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *payment
	p.ID = newID()
	if p.ReferenceID == "" {
		p.ReferenceID = "pay_" + p.ID
	}
	s.payments[p.ID] = p
	return p.ID, nil
}

func (s *Store) GetPayment(_ context.Context, id string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "payment", ID: id}
	}
	return &p, nil
}

func (s *Store) ListPayments(_ context.Context, filter storage.PaymentFilter) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.BeneficiaryID != "" && p.BeneficiaryID != filter.BeneficiaryID {
			continue
		}
		if filter.Provenance != "" && p.Provenance != filter.Provenance {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- BeneficiaryStore ---

func (s *Store) GetBeneficiary(_ context.Context, id string) (*models.Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.beneficiaries[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "beneficiary", ID: id}
	}
	return &b, nil
}

func (s *Store) ListBeneficiaries(_ context.Context) ([]models.Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Beneficiary, 0, len(s.beneficiaries))
	for _, b := range s.beneficiaries {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (s *Store) CreateBeneficiary(_ context.Context, beneficiary *models.Beneficiary) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := *beneficiary
	b.ID = newID()
	s.beneficiaries[b.ID] = b
	return b.ID, nil
}
