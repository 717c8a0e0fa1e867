package collection

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Source records how a card entered a collection
type Source string

const SourceExchange Source = "exchange"

// Entry records that a user holds a card in their collection. Created exactly
// once per successful acceptance; the Card Catalog consults it to enforce
// exchange-only visibility.
type Entry struct {
	UserID      uuid.UUID `json:"user_id"`
	CardID      uuid.UUID `json:"card_id"`
	Source      Source    `json:"source"`
	CollectedAt time.Time `json:"collected_at"`
}

// Grantor manages collection membership. Grant is idempotent: granting an
// already-held card is a no-op, not an error.
type Grantor interface {
	Grant(ctx context.Context, userID, cardID uuid.UUID) error
	Contains(ctx context.Context, userID, cardID uuid.UUID) (bool, error)
	WithTx(tx pgx.Tx) Grantor
}
