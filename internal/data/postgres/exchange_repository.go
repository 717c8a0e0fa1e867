package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/exchange"
	"github.com/Laimiu-debug/lifecard-exchange/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// ExchangeRepository implements the exchange.Store interface for PostgreSQL
type ExchangeRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewExchangeRepository creates a new PostgreSQL exchange request store
func NewExchangeRepository(logger *slog.Logger, db *persistence.PostgresDB) exchange.Store {
	return &ExchangeRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *ExchangeRepository) WithTx(tx pgx.Tx) exchange.Store {
	return &ExchangeRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const requestColumns = `id, requester_id, card_id, owner_id, coin_amount, status, message, created_at, expires_at, updated_at`

// Create stores a new pending exchange request. The partial unique index on
// (requester_id, card_id) for pending rows turns a lost create/create race
// into ErrAlreadyRequested instead of a second escrow.
func (r *ExchangeRepository) Create(ctx context.Context, req *exchange.Request) error {
	query := `
		INSERT INTO exchange_requests (id, requester_id, card_id, owner_id, coin_amount, status, message, created_at, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		req.ID,
		req.RequesterID,
		req.CardID,
		req.OwnerID,
		req.CoinAmount,
		req.Status,
		req.Message,
		req.CreatedAt,
		req.ExpiresAt,
		req.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return exchange.ErrAlreadyRequested
		}
		r.logger.Error("Failed to create exchange request", "exchange_id", req.ID.String(), "error", err)
		return fmt.Errorf("failed to create exchange request: %w", err)
	}

	return nil
}

// GetByID retrieves an exchange request by its ID
func (r *ExchangeRepository) GetByID(ctx context.Context, id uuid.UUID) (*exchange.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM exchange_requests
		WHERE id = $1
	`

	req, err := r.scanRequest(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, exchange.ErrRequestNotFound{ExchangeID: id}
		}
		r.logger.Error("Failed to get exchange request", "exchange_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get exchange request: %w", err)
	}

	return req, nil
}

// HasPending reports whether a pending request exists for (requester, card)
func (r *ExchangeRepository) HasPending(ctx context.Context, requesterID, cardID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM exchange_requests
			WHERE requester_id = $1 AND card_id = $2 AND status = 'pending'
		)
	`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, requesterID, cardID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check pending exchange request", "requester_id", requesterID.String(), "card_id", cardID.String(), "error", err)
		return false, fmt.Errorf("failed to check pending exchange request: %w", err)
	}

	return exists, nil
}

// TransitionFromPending atomically moves a request out of pending. The
// conditional WHERE clause is the exactly-once guard: of any number of
// concurrent resolvers, exactly one observes a row change.
func (r *ExchangeRepository) TransitionFromPending(ctx context.Context, id uuid.UUID, next exchange.Status) (bool, error) {
	if !next.IsTerminal() {
		return false, fmt.Errorf("invalid transition target: %s", next)
	}

	query := `
		UPDATE exchange_requests
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`

	result, err := r.querier.Exec(ctx, query, next, id)
	if err != nil {
		r.logger.Error("Failed to transition exchange request", "exchange_id", id.String(), "next", string(next), "error", err)
		return false, fmt.Errorf("failed to transition exchange request: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// ListPendingForOwner returns pending requests awaiting the owner's decision,
// newest first. Requests past their window but not yet swept are excluded, so
// owners are never offered a request they can only fail to accept.
func (r *ExchangeRepository) ListPendingForOwner(ctx context.Context, ownerID uuid.UUID) ([]*exchange.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM exchange_requests
		WHERE owner_id = $1 AND status = 'pending' AND expires_at > NOW()
		ORDER BY created_at DESC
	`

	return r.queryRequests(ctx, query, ownerID)
}

// ListByRequester returns all requests sent by the user, newest first
func (r *ExchangeRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]*exchange.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM exchange_requests
		WHERE requester_id = $1
		ORDER BY created_at DESC
	`

	return r.queryRequests(ctx, query, requesterID)
}

// ListExpired returns pending requests whose expiration has passed at now
func (r *ExchangeRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*exchange.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM exchange_requests
		WHERE status = 'pending' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`

	return r.queryRequests(ctx, query, now, limit)
}

func (r *ExchangeRepository) queryRequests(ctx context.Context, query string, args ...interface{}) ([]*exchange.Request, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list exchange requests", "error", err)
		return nil, fmt.Errorf("failed to list exchange requests: %w", err)
	}
	defer rows.Close()

	var requests []*exchange.Request
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exchange request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exchange requests: %w", err)
	}

	return requests, nil
}

func (r *ExchangeRepository) scanRequest(row pgx.Row) (*exchange.Request, error) {
	var req exchange.Request
	err := row.Scan(
		&req.ID,
		&req.RequesterID,
		&req.CardID,
		&req.OwnerID,
		&req.CoinAmount,
		&req.Status,
		&req.Message,
		&req.CreatedAt,
		&req.ExpiresAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}
