package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Laimiu-debug/lifecard-exchange/internal/api_gateway/middleware"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/card"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/coin"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/exchange"
	"github.com/Laimiu-debug/lifecard-exchange/internal/orchestrator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExchangeHandler handles HTTP requests for exchange operations
type ExchangeHandler struct {
	service orchestrator.Service
	logger  *slog.Logger
}

// NewExchangeHandler creates a new exchange handler
func NewExchangeHandler(logger *slog.Logger, service orchestrator.Service) *ExchangeHandler {
	return &ExchangeHandler{
		service: service,
		logger:  logger,
	}
}

// Create opens an exchange request for a card, escrowing the quoted price
func (h *ExchangeHandler) Create(c *gin.Context) {
	var req CreateExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cardID, err := uuid.Parse(req.CardID)
	if err != nil {
		RespondBadRequest(c, "Invalid card ID")
		return
	}

	requesterID := middleware.GetUserID(c)
	created, err := h.service.Create(c.Request.Context(), requesterID, cardID, req.Message)
	if err != nil {
		h.respondExchangeError(c, err)
		return
	}

	RespondCreated(c, mapRequestToResponse(created))
}

// Accept settles a pending exchange request. Only the card owner may accept.
func (h *ExchangeHandler) Accept(c *gin.Context) {
	exchangeID, ok := h.exchangeIDParam(c)
	if !ok {
		return
	}

	result, err := h.service.Accept(c.Request.Context(), exchangeID, middleware.GetUserID(c))
	if err != nil {
		h.respondExchangeError(c, err)
		return
	}

	RespondOK(c, AcceptResponse{
		ExchangeID:          result.ExchangeID.String(),
		CardID:              result.CardID.String(),
		RequesterNewBalance: result.RequesterNewBalance,
		OwnerNewBalance:     result.OwnerNewBalance,
	})
}

// Reject declines a pending exchange request. Only the card owner may reject.
func (h *ExchangeHandler) Reject(c *gin.Context) {
	exchangeID, ok := h.exchangeIDParam(c)
	if !ok {
		return
	}

	if err := h.service.Reject(c.Request.Context(), exchangeID, middleware.GetUserID(c)); err != nil {
		h.respondExchangeError(c, err)
		return
	}

	RespondOK(c, gin.H{"exchange_id": exchangeID.String(), "status": string(exchange.StatusRejected)})
}

// Cancel withdraws a pending exchange request. Only the requester may cancel.
func (h *ExchangeHandler) Cancel(c *gin.Context) {
	exchangeID, ok := h.exchangeIDParam(c)
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), exchangeID, middleware.GetUserID(c)); err != nil {
		h.respondExchangeError(c, err)
		return
	}

	RespondOK(c, gin.H{"exchange_id": exchangeID.String(), "status": string(exchange.StatusCancelled)})
}

// Received lists pending exchange requests for cards the user owns
func (h *ExchangeHandler) Received(c *gin.Context) {
	requests, err := h.service.PendingForOwner(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.logger.Error("Failed to list received exchange requests", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapRequestsToResponse(requests))
}

// Sent lists exchange requests the user has made, in any state
func (h *ExchangeHandler) Sent(c *gin.Context) {
	requests, err := h.service.SentByRequester(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.logger.Error("Failed to list sent exchange requests", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapRequestsToResponse(requests))
}

// History lists the user's completed exchanges, paginated, newest first
func (h *ExchangeHandler) History(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	userID := middleware.GetUserID(c)
	offset := (pagination.Page - 1) * pagination.PerPage
	records, total, err := h.service.History(c.Request.Context(), userID, pagination.PerPage, offset)
	if err != nil {
		h.logger.Error("Failed to list exchange history", "user_id", userID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]HistoryRecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, mapRecordToResponse(record))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// Price quotes a card's current exchange price
func (h *ExchangeHandler) Price(c *gin.Context) {
	idParam := c.Param("id")
	cardID, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid card ID")
		return
	}

	quote, err := h.service.Price(c.Request.Context(), cardID)
	if err != nil {
		h.respondExchangeError(c, err)
		return
	}

	RespondOK(c, PriceResponse{
		CardID:          cardID.String(),
		BasePrice:       quote.BasePrice,
		PopularityBonus: quote.PopularityBonus,
		FinalPrice:      quote.FinalPrice,
	})
}

func (h *ExchangeHandler) exchangeIDParam(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid exchange ID")
		return uuid.Nil, false
	}
	return id, true
}

// respondExchangeError maps domain errors to HTTP status codes
func (h *ExchangeHandler) respondExchangeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, card.ErrCardNotFound{}):
		RespondNotFound(c, "Card not found")
	case errors.Is(err, exchange.ErrRequestNotFound{}):
		RespondNotFound(c, "Exchange request not found")
	case errors.Is(err, exchange.ErrForbidden):
		RespondForbidden(c, "")
	case errors.Is(err, exchange.ErrCannotExchangeOwnCard):
		RespondBadRequest(c, "Cannot exchange your own card")
	case errors.Is(err, exchange.ErrAlreadyCollected):
		RespondConflict(c, "ALREADY_COLLECTED", "Card is already in your collection")
	case errors.Is(err, exchange.ErrAlreadyRequested):
		RespondConflict(c, "ALREADY_REQUESTED", "A pending exchange request already exists for this card")
	case errors.Is(err, exchange.ErrAlreadyProcessed):
		RespondConflict(c, "ALREADY_PROCESSED", "Exchange request has already been resolved")
	case errors.Is(err, exchange.ErrRequestExpired):
		RespondGone(c, "Exchange request has expired")
	case errors.Is(err, coin.ErrInsufficientBalance):
		RespondWithError(c, http.StatusBadRequest, "INSUFFICIENT_BALANCE", "Insufficient coin balance")
	case errors.Is(err, coin.ErrBalanceNotFound{}):
		RespondNotFound(c, "Coin balance not found")
	default:
		h.logger.Error("Exchange operation failed", "error", err)
		RespondInternalError(c)
	}
}
