package orchestrator

import (
	"context"

	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/coin"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/exchange"
	"github.com/Laimiu-debug/lifecard-exchange/internal/pricing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxRunner executes a function inside a database transaction
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// HistoryReader serves the completed-exchange read model
type HistoryReader interface {
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*exchange.Record, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Service drives the exchange request lifecycle. Every mutation runs in a
// single database transaction covering the state transition, the coin
// movement and the outbox message, so a crash can never leave escrowed coins
// without a pending request or vice versa.
type Service interface {
	// Create opens a pending exchange request for card, escrowing the
	// computed price from the requester's balance.
	Create(ctx context.Context, requesterID, cardID uuid.UUID, message string) (*exchange.Request, error)

	// Accept settles a pending request: coins move from escrow to the
	// owner, the requester gains the card in their collection. Only the
	// card owner may accept.
	Accept(ctx context.Context, exchangeID, actorID uuid.UUID) (*exchange.Result, error)

	// Reject declines a pending request and refunds the requester. Only
	// the card owner may reject.
	Reject(ctx context.Context, exchangeID, actorID uuid.UUID) error

	// Cancel withdraws a pending request and refunds the requester. Only
	// the requester may cancel.
	Cancel(ctx context.Context, exchangeID, actorID uuid.UUID) error

	// Expire moves a pending request past its window to expired and
	// refunds the requester. Returns false when the request was already
	// resolved or not yet due, without error.
	Expire(ctx context.Context, exchangeID uuid.UUID) (bool, error)

	PendingForOwner(ctx context.Context, ownerID uuid.UUID) ([]*exchange.Request, error)
	SentByRequester(ctx context.Context, requesterID uuid.UUID) ([]*exchange.Request, error)

	// Price quotes the current exchange price of a card
	Price(ctx context.Context, cardID uuid.UUID) (*pricing.Quote, error)

	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	CoinHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*coin.Transaction, int64, error)
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*exchange.Record, int64, error)
}
