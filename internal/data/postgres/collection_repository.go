package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/collection"
	"github.com/Laimiu-debug/lifecard-exchange/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CollectionRepository implements the collection.Grantor interface for PostgreSQL
type CollectionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCollectionRepository creates a new PostgreSQL collection grantor
func NewCollectionRepository(logger *slog.Logger, db *persistence.PostgresDB) collection.Grantor {
	return &CollectionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *CollectionRepository) WithTx(tx pgx.Tx) collection.Grantor {
	return &CollectionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Grant inserts a collection entry. ON CONFLICT DO NOTHING keeps the
// operation idempotent when an entry already exists.
func (r *CollectionRepository) Grant(ctx context.Context, userID, cardID uuid.UUID) error {
	query := `
		INSERT INTO card_collections (id, user_id, card_id, source, collected_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, card_id) DO NOTHING
	`

	_, err := r.querier.Exec(ctx, query, uuid.New(), userID, cardID, collection.SourceExchange)
	if err != nil {
		r.logger.Error("Failed to grant card to collection", "user_id", userID.String(), "card_id", cardID.String(), "error", err)
		return fmt.Errorf("failed to grant card to collection: %w", err)
	}

	return nil
}

// Contains reports whether the user already holds the card
func (r *CollectionRepository) Contains(ctx context.Context, userID, cardID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM card_collections
			WHERE user_id = $1 AND card_id = $2
		)
	`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, userID, cardID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check card collection", "user_id", userID.String(), "card_id", cardID.String(), "error", err)
		return false, fmt.Errorf("failed to check card collection: %w", err)
	}

	return exists, nil
}
