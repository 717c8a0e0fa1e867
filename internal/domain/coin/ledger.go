package coin

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Ledger is the only component allowed to mutate coin balances. Debit and
// Credit serialize on the user's balance row so concurrent calls for the same
// user cannot interleave a stale balance check with an update.
type Ledger interface {
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)

	// Debit subtracts amount from the user's balance and appends a
	// transaction. Fails with ErrInsufficientBalance without mutating when
	// the balance cannot cover the amount.
	Debit(ctx context.Context, userID uuid.UUID, amount int64, reason Reason, referenceID uuid.UUID) (int64, *Transaction, error)

	// Credit adds amount to the user's balance and appends a transaction.
	Credit(ctx context.Context, userID uuid.UUID, amount int64, reason Reason, referenceID uuid.UUID) (int64, *Transaction, error)

	// History returns the user's transactions, newest first
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	WithTx(tx pgx.Tx) Ledger
}

// ErrBalanceNotFound indicates the user has no balance row, which means the
// Identity collaborator never provisioned the user. Treated as an integrity
// bug, not a recoverable business outcome.
type ErrBalanceNotFound struct {
	UserID uuid.UUID
}

func (e ErrBalanceNotFound) Error() string {
	return "coin balance not found for user: " + e.UserID.String()
}

// Is implements the errors.Is interface for ErrBalanceNotFound
func (e ErrBalanceNotFound) Is(target error) bool {
	t, ok := target.(ErrBalanceNotFound)
	if !ok {
		return false
	}
	if t.UserID == uuid.Nil {
		return true
	}
	return e.UserID == t.UserID
}
