package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/baytalmal/treasury-gobackend/internal/models"
)

type categoryDoc struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	Name      string               `bson:"name"`
	Available primitive.Decimal128 `bson:"available"`
	Reserved  primitive.Decimal128 `bson:"reserved"`
	CreatedAt time.Time            `bson:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

func (d categoryDoc) toModel() (*models.TreasuryCategory, error) {
	available, err := fromDecimal128(d.Available)
	if err != nil {
		return nil, err
	}
	reserved, err := fromDecimal128(d.Reserved)
	if err != nil {
		return nil, err
	}

	return &models.TreasuryCategory{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Available: available,
		Reserved:  reserved,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func (s *Storage) GetCategory(ctx context.Context, id string) (*models.TreasuryCategory, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.NewValidationError("category_id", "invalid id format")
	}

	var doc categoryDoc
	if err := s.db.Collection(categoriesCollection).FindOne(ctx, bson.M{"_id": objID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Entity: "category", ID: id}
		}
		return nil, fmt.Errorf("fetch category %s: %w", id, err)
	}

	return doc.toModel()
}

func (s *Storage) ListCategories(ctx context.Context) ([]models.TreasuryCategory, error) {
	cur, err := s.db.Collection(categoriesCollection).Find(ctx, bson.D{}, options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	defer cur.Close(ctx)

	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}

	categories := make([]models.TreasuryCategory, 0, len(docs))
	for _, d := range docs {
		c, err := d.toModel()
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}

	return categories, nil
}

func (s *Storage) CreateCategory(ctx context.Context, category *models.TreasuryCategory) (string, error) {
	available, err := toDecimal128(category.Available)
	if err != nil {
		return "", err
	}
	reserved, err := toDecimal128(category.Reserved)
	if err != nil {
		return "", err
	}

	doc := categoryDoc{
		ID:        primitive.NewObjectID(),
		Name:      category.Name,
		Available: available,
		Reserved:  reserved,
		CreatedAt: category.CreatedAt,
		UpdatedAt: category.UpdatedAt,
	}

	if _, err := s.db.Collection(categoriesCollection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert category: %w", err)
	}

	return doc.ID.Hex(), nil
}

// AdjustBalance applies the deltas with $inc and returns the updated
// document. Non-negativity is validated by the caller against a read taken
// in the same transaction; the snapshot isolation of that transaction
// keeps the check and the increment consistent.
func (s *Storage) AdjustBalance(ctx context.Context, id string, availableDelta, reservedDelta decimal.Decimal) (*models.TreasuryCategory, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.NewValidationError("category_id", "invalid id format")
	}

	available, err := toDecimal128(availableDelta)
	if err != nil {
		return nil, err
	}
	reserved, err := toDecimal128(reservedDelta)
	if err != nil {
		return nil, err
	}

	update := bson.M{
		"$inc": bson.M{"available": available, "reserved": reserved},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	var doc categoryDoc
	err = s.db.Collection(categoriesCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": objID}, update,
			options.FindOneAndUpdate().SetReturnDocument(options.After)).
		Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Entity: "category", ID: id}
		}
		return nil, fmt.Errorf("adjust category %s balance: %w", id, err)
	}

	return doc.toModel()
}
