package exchange

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrCannotExchangeOwnCard = errors.New("cannot exchange your own card")
	ErrAlreadyCollected      = errors.New("card already collected")
	ErrAlreadyRequested      = errors.New("pending exchange request already exists for this card")
	ErrAlreadyProcessed      = errors.New("exchange request already processed")
	ErrRequestExpired        = errors.New("exchange request has expired")
	ErrForbidden             = errors.New("not allowed to act on this exchange request")
	ErrSelfOwnedRequest      = errors.New("requester and owner must differ")
)

// Status defines the lifecycle states of an exchange request
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	return s == StatusPending || s.IsTerminal()
}

// Request represents a card exchange request. The coin amount is escrowed
// from the requester at creation and held until the request resolves.
type Request struct {
	ID          uuid.UUID `json:"id"`
	RequesterID uuid.UUID `json:"requester_id"`
	CardID      uuid.UUID `json:"card_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CoinAmount  int64     `json:"coin_amount"`
	Status      Status    `json:"status"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewRequest creates a pending exchange request escrowing coinAmount for window.
func NewRequest(requesterID, cardID, ownerID uuid.UUID, coinAmount int64, message string, window time.Duration) (*Request, error) {
	if requesterID == ownerID {
		return nil, ErrSelfOwnedRequest
	}
	if coinAmount <= 0 {
		return nil, errors.New("coin amount must be positive")
	}

	now := time.Now().UTC()
	return &Request{
		ID:          uuid.New(),
		RequesterID: requesterID,
		CardID:      cardID,
		OwnerID:     ownerID,
		CoinAmount:  coinAmount,
		Status:      StatusPending,
		Message:     message,
		CreatedAt:   now,
		ExpiresAt:   now.Add(window),
		UpdatedAt:   now,
	}, nil
}

// IsExpired reports whether the request outlived its expiration window at now.
func (r *Request) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Result is returned after a successful acceptance.
type Result struct {
	ExchangeID          uuid.UUID `json:"exchange_id"`
	CardID              uuid.UUID `json:"card_id"`
	RequesterNewBalance int64     `json:"requester_new_balance"`
	OwnerNewBalance     int64     `json:"owner_new_balance"`
}

// Record is a completed exchange history entry, written to the read model
// once an acceptance has settled.
type Record struct {
	ExchangeID  uuid.UUID `json:"exchange_id" bson:"exchange_id"`
	CardID      uuid.UUID `json:"card_id" bson:"card_id"`
	FromUserID  uuid.UUID `json:"from_user_id" bson:"from_user_id"`
	ToUserID    uuid.UUID `json:"to_user_id" bson:"to_user_id"`
	CoinAmount  int64     `json:"coin_amount" bson:"coin_amount"`
	CompletedAt time.Time `json:"completed_at" bson:"completed_at"`
}
