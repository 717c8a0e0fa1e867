package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/card"
	"github.com/Laimiu-debug/lifecard-exchange/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CardRepository implements the card.Catalog interface for PostgreSQL. The
// cards table is owned by the Card Catalog collaborator; this repository
// reads pricing inputs and increments the exchange count on acceptance.
type CardRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCardRepository creates a new read-mostly card catalog repository
func NewCardRepository(logger *slog.Logger, db *persistence.PostgresDB) card.Catalog {
	return &CardRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *CardRepository) WithTx(tx pgx.Tx) card.Catalog {
	return &CardRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetPricingInfo returns ownership and pricing inputs for a live card
func (r *CardRepository) GetPricingInfo(ctx context.Context, cardID uuid.UUID) (*card.PricingInfo, error) {
	query := `
		SELECT id, owner_id, base_price, like_count, exchange_count
		FROM cards
		WHERE id = $1 AND is_deleted = false
	`

	var info card.PricingInfo
	err := r.querier.QueryRow(ctx, query, cardID).Scan(
		&info.CardID,
		&info.OwnerID,
		&info.BasePrice,
		&info.LikeCount,
		&info.ExchangeCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, card.ErrCardNotFound{CardID: cardID}
		}
		r.logger.Error("Failed to get card pricing info", "card_id", cardID.String(), "error", err)
		return nil, fmt.Errorf("failed to get card pricing info: %w", err)
	}

	return &info, nil
}

// IncrementExchangeCount bumps the popularity signal after a settled exchange
func (r *CardRepository) IncrementExchangeCount(ctx context.Context, cardID uuid.UUID) error {
	query := `
		UPDATE cards
		SET exchange_count = exchange_count + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query, cardID)
	if err != nil {
		r.logger.Error("Failed to increment card exchange count", "card_id", cardID.String(), "error", err)
		return fmt.Errorf("failed to increment card exchange count: %w", err)
	}

	if result.RowsAffected() == 0 {
		return card.ErrCardNotFound{CardID: cardID}
	}

	return nil
}
