package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/baytalmal/treasury-gobackend/internal/models"
)

type requestDoc struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty"`
	BeneficiaryID string               `bson:"beneficiary_id"`
	TreasuryID    string               `bson:"treasury_id"`
	Amount        primitive.Decimal128 `bson:"amount"`
	PaymentType   string               `bson:"payment_type"`
	StartDate     time.Time            `bson:"start_date"`
	EndDate       *time.Time           `bson:"end_date,omitempty"`
	Frequency     string               `bson:"frequency,omitempty"`
	Status        string               `bson:"status"`
	Description   string               `bson:"description"`
	Notes         string               `bson:"notes"`
	CreatedAt     time.Time            `bson:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at"`
}

func (d requestDoc) toModel() (*models.PaymentRequest, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}

	return &models.PaymentRequest{
		ID:            d.ID.Hex(),
		BeneficiaryID: d.BeneficiaryID,
		TreasuryID:    d.TreasuryID,
		Amount:        amount,
		PaymentType:   models.PaymentType(d.PaymentType),
		StartDate:     d.StartDate,
		EndDate:       d.EndDate,
		Frequency:     models.Frequency(d.Frequency),
		Status:        models.RequestStatus(d.Status),
		Description:   d.Description,
		Notes:         d.Notes,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

func (s *Storage) GetRequest(ctx context.Context, id string) (*models.PaymentRequest, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.NewValidationError("request_id", "invalid id format")
	}

	var doc requestDoc
	if err := s.db.Collection(requestsCollection).FindOne(ctx, bson.M{"_id": objID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Entity: "request", ID: id}
		}
		return nil, fmt.Errorf("fetch request %s: %w", id, err)
	}

	return doc.toModel()
}

func (s *Storage) ListRequests(ctx context.Context) ([]models.PaymentRequest, error) {
	cur, err := s.db.Collection(requestsCollection).Find(ctx, bson.D{}, options.Find().SetSort(bson.M{"start_date": -1}))
	if err != nil {
		return nil, fmt.Errorf("fetch requests: %w", err)
	}
	defer cur.Close(ctx)

	var docs []requestDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode requests: %w", err)
	}

	requests := make([]models.PaymentRequest, 0, len(docs))
	for _, d := range docs {
		r, err := d.toModel()
		if err != nil {
			return nil, err
		}
		requests = append(requests, *r)
	}

	return requests, nil
}

func (s *Storage) CreateRequest(ctx context.Context, request *models.PaymentRequest) (string, error) {
	amount, err := toDecimal128(request.Amount)
	if err != nil {
		return "", err
	}

	doc := requestDoc{
		ID:            primitive.NewObjectID(),
		BeneficiaryID: request.BeneficiaryID,
		TreasuryID:    request.TreasuryID,
		Amount:        amount,
		PaymentType:   string(request.PaymentType),
		StartDate:     request.StartDate,
		EndDate:       request.EndDate,
		Frequency:     string(request.Frequency),
		Status:        string(request.Status),
		Description:   request.Description,
		Notes:         request.Notes,
		CreatedAt:     request.CreatedAt,
		UpdatedAt:     request.UpdatedAt,
	}

	if _, err := s.db.Collection(requestsCollection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert request: %w", err)
	}

	return doc.ID.Hex(), nil
}

func (s *Storage) UpdateRequest(ctx context.Context, id string, patch models.RequestPatch) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.NewValidationError("request_id", "invalid id format")
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.TreasuryID != nil {
		set["treasury_id"] = *patch.TreasuryID
	}
	if patch.Amount != nil {
		amount, err := toDecimal128(*patch.Amount)
		if err != nil {
			return err
		}
		set["amount"] = amount
	}
	if patch.PaymentType != nil {
		set["payment_type"] = string(*patch.PaymentType)
	}
	if patch.StartDate != nil {
		set["start_date"] = *patch.StartDate
	}
	if patch.EndDate != nil {
		set["end_date"] = *patch.EndDate
	}
	if patch.Frequency != nil {
		set["frequency"] = string(*patch.Frequency)
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Notes != nil {
		set["notes"] = *patch.Notes
	}

	res, err := s.db.Collection(requestsCollection).UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update request %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return &models.NotFoundError{Entity: "request", ID: id}
	}

	return nil
}

func (s *Storage) SetRequestStatus(ctx context.Context, id string, status models.RequestStatus) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.NewValidationError("request_id", "invalid id format")
	}

	update := bson.M{"$set": bson.M{
		"status":     string(status),
		"updated_at": time.Now().UTC(),
	}}

	res, err := s.db.Collection(requestsCollection).UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("set request %s status: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return &models.NotFoundError{Entity: "request", ID: id}
	}

	return nil
}

func (s *Storage) DeleteRequest(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.NewValidationError("request_id", "invalid id format")
	}

	res, err := s.db.Collection(requestsCollection).DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("delete request %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return &models.NotFoundError{Entity: "request", ID: id}
	}

	return nil
}
