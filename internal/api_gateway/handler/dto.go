package handler

import (
	"time"

	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/coin"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/exchange"
)

// CreateExchangeRequest represents a request to open an exchange for a card
type CreateExchangeRequest struct {
	CardID  string `json:"card_id" binding:"required,uuid"`
	Message string `json:"message" binding:"max=500"`
}

// ExchangeResponse represents an exchange request in API responses
type ExchangeResponse struct {
	ID          string `json:"id"`
	RequesterID string `json:"requester_id"`
	CardID      string `json:"card_id"`
	OwnerID     string `json:"owner_id"`
	CoinAmount  int64  `json:"coin_amount"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	CreatedAt   string `json:"created_at"`
	ExpiresAt   string `json:"expires_at"`
}

// AcceptResponse represents the settlement outcome of an accepted exchange
type AcceptResponse struct {
	ExchangeID          string `json:"exchange_id"`
	CardID              string `json:"card_id"`
	RequesterNewBalance int64  `json:"requester_new_balance"`
	OwnerNewBalance     int64  `json:"owner_new_balance"`
}

// PriceResponse represents a card's current exchange price
type PriceResponse struct {
	CardID          string `json:"card_id"`
	BasePrice       int64  `json:"base_price"`
	PopularityBonus int64  `json:"popularity_bonus"`
	FinalPrice      int64  `json:"final_price"`
}

// WalletResponse represents a user's coin balance
type WalletResponse struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

// CoinTransactionResponse represents a coin ledger entry in API responses
type CoinTransactionResponse struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Reason       string `json:"reason"`
	ReferenceID  string `json:"reference_id"`
	BalanceAfter int64  `json:"balance_after"`
	CreatedAt    string `json:"created_at"`
}

// HistoryRecordResponse represents a completed exchange in API responses
type HistoryRecordResponse struct {
	ExchangeID  string `json:"exchange_id"`
	CardID      string `json:"card_id"`
	FromUserID  string `json:"from_user_id"`
	ToUserID    string `json:"to_user_id"`
	CoinAmount  int64  `json:"coin_amount"`
	CompletedAt string `json:"completed_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func mapRequestToResponse(req *exchange.Request) ExchangeResponse {
	return ExchangeResponse{
		ID:          req.ID.String(),
		RequesterID: req.RequesterID.String(),
		CardID:      req.CardID.String(),
		OwnerID:     req.OwnerID.String(),
		CoinAmount:  req.CoinAmount,
		Status:      string(req.Status),
		Message:     req.Message,
		CreatedAt:   req.CreatedAt.Format(time.RFC3339),
		ExpiresAt:   req.ExpiresAt.Format(time.RFC3339),
	}
}

func mapRequestsToResponse(requests []*exchange.Request) []ExchangeResponse {
	responses := make([]ExchangeResponse, 0, len(requests))
	for _, req := range requests {
		responses = append(responses, mapRequestToResponse(req))
	}
	return responses
}

func mapTransactionToResponse(tx *coin.Transaction) CoinTransactionResponse {
	return CoinTransactionResponse{
		ID:           tx.ID.String(),
		Amount:       tx.Amount,
		Reason:       string(tx.Reason),
		ReferenceID:  tx.ReferenceID.String(),
		BalanceAfter: tx.BalanceAfter,
		CreatedAt:    tx.CreatedAt.Format(time.RFC3339),
	}
}

func mapRecordToResponse(record *exchange.Record) HistoryRecordResponse {
	return HistoryRecordResponse{
		ExchangeID:  record.ExchangeID.String(),
		CardID:      record.CardID.String(),
		FromUserID:  record.FromUserID.String(),
		ToUserID:    record.ToUserID.String(),
		CoinAmount:  record.CoinAmount,
		CompletedAt: record.CompletedAt.Format(time.RFC3339),
	}
}
