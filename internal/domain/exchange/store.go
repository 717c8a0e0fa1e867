package exchange

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store defines exchange request persistence operations
type Store interface {
	Create(ctx context.Context, req *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)

	// HasPending reports whether a pending request exists for (requester, card)
	HasPending(ctx context.Context, requesterID, cardID uuid.UUID) (bool, error)

	// TransitionFromPending atomically moves a request out of pending.
	// Returns false when the request was no longer pending, which is how
	// concurrent resolvers lose the race.
	TransitionFromPending(ctx context.Context, id uuid.UUID, next Status) (bool, error)

	ListPendingForOwner(ctx context.Context, ownerID uuid.UUID) ([]*Request, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]*Request, error)

	// ListExpired returns pending requests whose expiration has passed at now
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*Request, error)

	WithTx(tx pgx.Tx) Store
}

// ErrRequestNotFound indicates missing exchange request
type ErrRequestNotFound struct {
	ExchangeID uuid.UUID
}

func (e ErrRequestNotFound) Error() string {
	return "exchange request not found: " + e.ExchangeID.String()
}

// Is implements the errors.Is interface for ErrRequestNotFound
func (e ErrRequestNotFound) Is(target error) bool {
	t, ok := target.(ErrRequestNotFound)
	if !ok {
		return false
	}
	if t.ExchangeID == uuid.Nil {
		return true
	}
	return e.ExchangeID == t.ExchangeID
}
