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
	"github.com/baytalmal/treasury-gobackend/internal/storage"
)

type paymentDoc struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty"`
	ReferenceID   string               `bson:"reference_id"`
	RequestID     string               `bson:"request_id,omitempty"`
	BeneficiaryID string               `bson:"beneficiary_id"`
	CategoryID    string               `bson:"category_id"`
	Amount        primitive.Decimal128 `bson:"amount"`
	Date          time.Time            `bson:"date"`
	PaymentType   string               `bson:"payment_type"`
	Provenance    string               `bson:"provenance"`
	Description   string               `bson:"description"`
	Notes         string               `bson:"notes"`
	CreatedAt     time.Time            `bson:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at"`
}

func (d paymentDoc) toModel() (*models.Payment, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}

	return &models.Payment{
		ID:            d.ID.Hex(),
		ReferenceID:   d.ReferenceID,
		RequestID:     d.RequestID,
		BeneficiaryID: d.BeneficiaryID,
		CategoryID:    d.CategoryID,
		Amount:        amount,
		Date:          d.Date,
		PaymentType:   models.PaymentType(d.PaymentType),
		Provenance:    models.Provenance(d.Provenance),
		Description:   d.Description,
		Notes:         d.Notes,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

func (s *Storage) InsertPayment(ctx context.Context, payment *models.Payment) (string, error) {
	amount, err := toDecimal128(payment.Amount)
	if err != nil {
		return "", err
	}

	doc := paymentDoc{
		ID:            primitive.NewObjectID(),
		ReferenceID:   payment.ReferenceID,
		RequestID:     payment.RequestID,
		BeneficiaryID: payment.BeneficiaryID,
		CategoryID:    payment.CategoryID,
		Amount:        amount,
		Date:          payment.Date,
		PaymentType:   string(payment.PaymentType),
		Provenance:    string(payment.Provenance),
		Description:   payment.Description,
		Notes:         payment.Notes,
		CreatedAt:     payment.CreatedAt,
		UpdatedAt:     payment.UpdatedAt,
	}
	if doc.ReferenceID == "" {
		doc.ReferenceID = "pay_" + doc.ID.Hex()
	}

	if _, err := s.db.Collection(paymentsCollection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert payment: %w", err)
	}

	return doc.ID.Hex(), nil
}

func (s *Storage) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.NewValidationError("payment_id", "invalid id format")
	}

	var doc paymentDoc
	if err := s.db.Collection(paymentsCollection).FindOne(ctx, bson.M{"_id": objID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Entity: "payment", ID: id}
		}
		return nil, fmt.Errorf("fetch payment %s: %w", id, err)
	}

	return doc.toModel()
}

func (s *Storage) ListPayments(ctx context.Context, filter storage.PaymentFilter) ([]models.Payment, error) {
	query := bson.M{}
	if filter.CategoryID != "" {
		query["category_id"] = filter.CategoryID
	}
	if filter.BeneficiaryID != "" {
		query["beneficiary_id"] = filter.BeneficiaryID
	}
	if filter.Provenance != "" {
		query["provenance"] = string(filter.Provenance)
	}

	cur, err := s.db.Collection(paymentsCollection).Find(ctx, query, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, fmt.Errorf("fetch payments: %w", err)
	}
	defer cur.Close(ctx)

	var docs []paymentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode payments: %w", err)
	}

	payments := make([]models.Payment, 0, len(docs))
	for _, d := range docs {
		p, err := d.toModel()
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}

	return payments, nil
}
