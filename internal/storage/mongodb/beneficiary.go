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

type beneficiaryDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	FullName  string             `bson:"fullname"`
	Contact   string             `bson:"contact,omitempty"`
	Notes     string             `bson:"notes,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d beneficiaryDoc) toModel() *models.Beneficiary {
	return &models.Beneficiary{
		ID:        d.ID.Hex(),
		FullName:  d.FullName,
		Contact:   d.Contact,
		Notes:     d.Notes,
		CreatedAt: d.CreatedAt,
	}
}

func (s *Storage) GetBeneficiary(ctx context.Context, id string) (*models.Beneficiary, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.NewValidationError("beneficiary_id", "invalid id format")
	}

	var doc beneficiaryDoc
	if err := s.db.Collection(beneficiariesCollection).FindOne(ctx, bson.M{"_id": objID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Entity: "beneficiary", ID: id}
		}
		return nil, fmt.Errorf("fetch beneficiary %s: %w", id, err)
	}

	return doc.toModel(), nil
}

func (s *Storage) ListBeneficiaries(ctx context.Context) ([]models.Beneficiary, error) {
	cur, err := s.db.Collection(beneficiariesCollection).Find(ctx, bson.D{}, options.Find().SetSort(bson.M{"fullname": 1}))
	if err != nil {
		return nil, fmt.Errorf("fetch beneficiaries: %w", err)
	}
	defer cur.Close(ctx)

	var docs []beneficiaryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode beneficiaries: %w", err)
	}

	beneficiaries := make([]models.Beneficiary, 0, len(docs))
	for _, d := range docs {
		beneficiaries = append(beneficiaries, *d.toModel())
	}

	return beneficiaries, nil
}

func (s *Storage) CreateBeneficiary(ctx context.Context, beneficiary *models.Beneficiary) (string, error) {
	doc := beneficiaryDoc{
		ID:        primitive.NewObjectID(),
		FullName:  beneficiary.FullName,
		Contact:   beneficiary.Contact,
		Notes:     beneficiary.Notes,
		CreatedAt: beneficiary.CreatedAt,
	}

	if _, err := s.db.Collection(beneficiariesCollection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert beneficiary: %w", err)
	}

	return doc.ID.Hex(), nil
}
