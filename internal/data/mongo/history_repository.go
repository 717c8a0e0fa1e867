// Package mongo implements the exchange history read model. Completed
// exchanges are appended here by the outbox poller; the authoritative state
// stays in PostgreSQL.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/exchange"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// HistoryCollectionName is the name of the exchange history collection
	HistoryCollectionName = "exchange_records"
)

// HistoryRepository stores completed exchange records in MongoDB
type HistoryRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewHistoryRepository creates a new MongoDB exchange history repository
func NewHistoryRepository(logger *slog.Logger, db *mongo.Database) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores a completed exchange record. The poller may retry a publish,
// so an existing record for the exchange id is left untouched.
func (r *HistoryRepository) Append(ctx context.Context, record *exchange.Record) error {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"exchange_id": record.ExchangeID}
	err := collection.FindOne(ctx, filter).Err()
	if err == nil {
		return nil // Already recorded
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		r.logger.Error("Failed to check for existing exchange record",
			"exchange_id", record.ExchangeID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing exchange record: %w", err)
	}

	if _, err := collection.InsertOne(ctx, record); err != nil {
		r.logger.Error("Failed to append exchange record",
			"exchange_id", record.ExchangeID.String(),
			"error", err)
		return fmt.Errorf("failed to append exchange record: %w", err)
	}

	return nil
}

// GetByUserID retrieves paginated exchange records where the user was either
// side of the trade. Results are sorted by completion time, newest first.
func (r *HistoryRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*exchange.Record, error) {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"$or": []bson.M{
		{"from_user_id": userID},
		{"to_user_id": userID},
	}}
	opts := options.Find().
		SetSort(bson.D{{Key: "completed_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list exchange records", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list exchange records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*exchange.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode exchange records", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to decode exchange records: %w", err)
	}

	return records, nil
}

// CountByUserID returns the total number of records on either side
func (r *HistoryRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"$or": []bson.M{
		{"from_user_id": userID},
		{"to_user_id": userID},
	}}

	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count exchange records", "user_id", userID.String(), "error", err)
		return 0, fmt.Errorf("failed to count exchange records: %w", err)
	}

	return count, nil
}
