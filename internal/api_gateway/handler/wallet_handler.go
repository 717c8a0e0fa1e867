package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Laimiu-debug/lifecard-exchange/internal/api_gateway/middleware"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/coin"
	"github.com/Laimiu-debug/lifecard-exchange/internal/orchestrator"
	"github.com/gin-gonic/gin"
)

// WalletHandler handles HTTP requests for coin balance and transaction history
type WalletHandler struct {
	service orchestrator.Service
	logger  *slog.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, service orchestrator.Service) *WalletHandler {
	return &WalletHandler{
		service: service,
		logger:  logger,
	}
}

// Balance returns the user's current coin balance
func (h *WalletHandler) Balance(c *gin.Context) {
	userID := middleware.GetUserID(c)

	balance, err := h.service.Balance(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, coin.ErrBalanceNotFound{}) {
			RespondNotFound(c, "Coin balance not found")
			return
		}
		h.logger.Error("Failed to get balance", "user_id", userID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, WalletResponse{
		UserID:  userID.String(),
		Balance: balance,
	})
}

// Transactions returns the user's coin transactions, paginated, newest first
func (h *WalletHandler) Transactions(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	userID := middleware.GetUserID(c)
	offset := (pagination.Page - 1) * pagination.PerPage
	transactions, total, err := h.service.CoinHistory(c.Request.Context(), userID, pagination.PerPage, offset)
	if err != nil {
		h.logger.Error("Failed to list coin transactions", "user_id", userID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]CoinTransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		responses = append(responses, mapTransactionToResponse(tx))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}
