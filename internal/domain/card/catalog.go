package card

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PricingInfo is the slice of card state this subsystem reads from the
// Card Catalog collaborator: ownership plus the pricing inputs.
type PricingInfo struct {
	CardID        uuid.UUID `json:"card_id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	BasePrice     int64     `json:"base_price"`
	LikeCount     int64     `json:"like_count"`
	ExchangeCount int64     `json:"exchange_count"`
}

// Catalog exposes the card reads this subsystem needs. Cards are owned by
// the Card Catalog collaborator; the exchange count increment on acceptance
// is the single sanctioned write, feeding the popularity signal.
type Catalog interface {
	GetPricingInfo(ctx context.Context, cardID uuid.UUID) (*PricingInfo, error)
	IncrementExchangeCount(ctx context.Context, cardID uuid.UUID) error
	WithTx(tx pgx.Tx) Catalog
}

// ErrCardNotFound indicates a missing or deleted card
type ErrCardNotFound struct {
	CardID uuid.UUID
}

func (e ErrCardNotFound) Error() string {
	return "card not found: " + e.CardID.String()
}

// Is implements the errors.Is interface for ErrCardNotFound
func (e ErrCardNotFound) Is(target error) bool {
	t, ok := target.(ErrCardNotFound)
	if !ok {
		return false
	}
	if t.CardID == uuid.Nil {
		return true
	}
	return e.CardID == t.CardID
}
