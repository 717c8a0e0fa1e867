package coin

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInsufficientBalance = errors.New("insufficient coin balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Reason categorizes balance-affecting events
type Reason string

const (
	ReasonExchangeEscrow     Reason = "exchange_escrow"
	ReasonExchangeRefund     Reason = "exchange_refund"
	ReasonExchangeSettlement Reason = "exchange_settlement"
)

// Transaction is an append-only record of a single balance change.
// Amount is signed: positive credits, negative debits. BalanceAfter is the
// balance the row lock observed after applying the change, so the log alone
// reconstructs every balance.
type Transaction struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Amount       int64     `json:"amount"`
	Reason       Reason    `json:"reason"`
	ReferenceID  uuid.UUID `json:"reference_id"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}
