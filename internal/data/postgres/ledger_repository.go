// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the exchange subsystem.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/coin"
	"github.com/Laimiu-debug/lifecard-exchange/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepository implements the coin.Ledger interface for PostgreSQL.
// Every mutation locks the user's balance row first, so concurrent debits
// against the same user serialize instead of both passing a stale check.
type LedgerRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL coin ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) coin.Ledger {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *LedgerRepository) WithTx(tx pgx.Tx) coin.Ledger {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Balance returns the user's current coin balance
func (r *LedgerRepository) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		SELECT coin_balance
		FROM user_balances
		WHERE user_id = $1
	`

	var balance int64
	err := r.querier.QueryRow(ctx, query, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, coin.ErrBalanceNotFound{UserID: userID}
		}
		r.logger.Error("Failed to get coin balance", "user_id", userID.String(), "error", err)
		return 0, fmt.Errorf("failed to get coin balance: %w", err)
	}

	return balance, nil
}

// Debit subtracts amount from the user's balance under a row lock and appends
// the transaction. Returns ErrInsufficientBalance without mutating when the
// locked balance cannot cover the amount.
func (r *LedgerRepository) Debit(ctx context.Context, userID uuid.UUID, amount int64, reason coin.Reason, referenceID uuid.UUID) (int64, *coin.Transaction, error) {
	if amount <= 0 {
		return 0, nil, coin.ErrInvalidAmount
	}

	balance, err := r.lockBalance(ctx, userID)
	if err != nil {
		return 0, nil, err
	}

	if balance < amount {
		return 0, nil, coin.ErrInsufficientBalance
	}

	return r.applyChange(ctx, userID, -amount, reason, referenceID)
}

// Credit adds amount to the user's balance under a row lock and appends the
// transaction.
func (r *LedgerRepository) Credit(ctx context.Context, userID uuid.UUID, amount int64, reason coin.Reason, referenceID uuid.UUID) (int64, *coin.Transaction, error) {
	if amount <= 0 {
		return 0, nil, coin.ErrInvalidAmount
	}

	if _, err := r.lockBalance(ctx, userID); err != nil {
		return 0, nil, err
	}

	return r.applyChange(ctx, userID, amount, reason, referenceID)
}

// lockBalance acquires the pessimistic lock on the balance row
func (r *LedgerRepository) lockBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		SELECT coin_balance
		FROM user_balances
		WHERE user_id = $1
		FOR UPDATE
	`

	var balance int64
	err := r.querier.QueryRow(ctx, query, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, coin.ErrBalanceNotFound{UserID: userID}
		}
		r.logger.Error("Failed to lock coin balance", "user_id", userID.String(), "error", err)
		return 0, fmt.Errorf("failed to lock coin balance: %w", err)
	}

	return balance, nil
}

// applyChange updates the locked balance and appends the transaction row.
// delta is signed; the balance check has already happened under the lock.
func (r *LedgerRepository) applyChange(ctx context.Context, userID uuid.UUID, delta int64, reason coin.Reason, referenceID uuid.UUID) (int64, *coin.Transaction, error) {
	updateQuery := `
		UPDATE user_balances
		SET coin_balance = coin_balance + $1, updated_at = NOW()
		WHERE user_id = $2
		RETURNING coin_balance
	`

	var newBalance int64
	if err := r.querier.QueryRow(ctx, updateQuery, delta, userID).Scan(&newBalance); err != nil {
		r.logger.Error("Failed to update coin balance", "user_id", userID.String(), "error", err)
		return 0, nil, fmt.Errorf("failed to update coin balance: %w", err)
	}

	txn := &coin.Transaction{
		ID:           uuid.New(),
		UserID:       userID,
		Amount:       delta,
		Reason:       reason,
		ReferenceID:  referenceID,
		BalanceAfter: newBalance,
		CreatedAt:    time.Now().UTC(),
	}

	insertQuery := `
		INSERT INTO coin_transactions (id, user_id, amount, reason, reference_id, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, insertQuery,
		txn.ID,
		txn.UserID,
		txn.Amount,
		txn.Reason,
		txn.ReferenceID,
		txn.BalanceAfter,
		txn.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append coin transaction", "user_id", userID.String(), "error", err)
		return 0, nil, fmt.Errorf("failed to append coin transaction: %w", err)
	}

	return newBalance, txn, nil
}

// History returns the user's coin transactions, newest first
func (r *LedgerRepository) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*coin.Transaction, error) {
	query := `
		SELECT id, user_id, amount, reason, reference_id, balance_after, created_at
		FROM coin_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list coin transactions", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list coin transactions: %w", err)
	}
	defer rows.Close()

	var txns []*coin.Transaction
	for rows.Next() {
		var txn coin.Transaction
		if err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&txn.Amount,
			&txn.Reason,
			&txn.ReferenceID,
			&txn.BalanceAfter,
			&txn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan coin transaction: %w", err)
		}
		txns = append(txns, &txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate coin transactions: %w", err)
	}

	return txns, nil
}

// CountByUser returns the total number of coin transactions for the user
func (r *LedgerRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM coin_transactions
		WHERE user_id = $1
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.logger.Error("Failed to count coin transactions", "user_id", userID.String(), "error", err)
		return 0, fmt.Errorf("failed to count coin transactions: %w", err)
	}

	return count, nil
}
