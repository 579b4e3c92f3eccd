// Package mongodb implements the storage contracts over MongoDB. All
// methods pass the caller's context straight to the driver, so when the
// context carries a session the operation joins that session's
// transaction.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	categoriesCollection    = "treasury_categories"
	requestsCollection      = "payment_requests"
	paymentsCollection      = "payments"
	beneficiariesCollection = "beneficiaries"
)

// Storage is the MongoDB-backed implementation of the store interfaces.
type Storage struct {
	db *mongo.Database
}

// NewStorage wraps the given database.
func NewStorage(db *mongo.Database) *Storage {
	return &Storage{db: db}
}

// Connect dials MongoDB at the given URI and verifies the connection with
// a ping against the primary.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return client, nil
}

// EnsureIndexes creates the indexes the lifecycle queries rely on.
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	requestIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "start_date", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "treasury_id", Value: 1}}},
		{Keys: bson.D{{Key: "beneficiary_id", Value: 1}}},
	}
	if _, err := s.db.Collection(requestsCollection).Indexes().CreateMany(ctx, requestIndexes); err != nil {
		return fmt.Errorf("create request indexes: %w", err)
	}

	paymentIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "request_id", Value: 1}}},
		{Keys: bson.D{{Key: "category_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := s.db.Collection(paymentsCollection).Indexes().CreateMany(ctx, paymentIndexes); err != nil {
		return fmt.Errorf("create payment indexes: %w", err)
	}

	categoryIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := s.db.Collection(categoriesCollection).Indexes().CreateMany(ctx, categoryIndexes); err != nil {
		return fmt.Errorf("create category indexes: %w", err)
	}

	return nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode decimal %s: %w", v, err)
	}
	return d, nil
}
