package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Laimiu-debug/lifecard-exchange/internal/api_gateway/handler"
	"github.com/Laimiu-debug/lifecard-exchange/internal/api_gateway/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	exchangeHandler *handler.ExchangeHandler,
	walletHandler *handler.WalletHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints, all acting on behalf of the authenticated user
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RequireUser())
	{
		// Exchange request lifecycle
		exchanges := v1.Group("/exchanges")
		{
			exchanges.POST("", exchangeHandler.Create)
			exchanges.POST("/:id/accept", exchangeHandler.Accept)
			exchanges.POST("/:id/reject", exchangeHandler.Reject)
			exchanges.POST("/:id/cancel", exchangeHandler.Cancel)
			exchanges.GET("/received", exchangeHandler.Received)
			exchanges.GET("/sent", exchangeHandler.Sent)
			exchanges.GET("/history", exchangeHandler.History)
		}

		// Card pricing
		v1.GET("/cards/:id/price", exchangeHandler.Price)

		// Coin wallet
		wallet := v1.Group("/wallet")
		{
			wallet.GET("", walletHandler.Balance)
			wallet.GET("/transactions", walletHandler.Transactions)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
