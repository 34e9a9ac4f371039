package routes

import (
	"net/http"

	"github.com/ArowuTest/etherlotto-backend/internal/config"
	"github.com/ArowuTest/etherlotto-backend/internal/handlers"
	"github.com/ArowuTest/etherlotto-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// HandlerDependencies carries everything the router wires together
type HandlerDependencies struct {
	LotteryHandler *handlers.LotteryHandler
	TokenVerifier  middleware.TokenVerifier
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.LoggerMiddleware())

	lottery := deps.LotteryHandler

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		public.GET("/status", lottery.GetStatus)
		public.GET("/tickets", lottery.GetTickets)
		public.GET("/winners", lottery.GetWinners)
		public.GET("/receipts/latest", lottery.GetLatestReceipt)
	}

	// Routes that act on behalf of an authenticated identity
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(deps.TokenVerifier))
	{
		protected.GET("/tickets/mine", lottery.GetMyTickets)
		protected.POST("/tickets", lottery.Enter)
		protected.GET("/balance", lottery.GetBalance)

		draws := protected.Group("/draws")
		{
			draws.POST("", lottery.ExecuteDraw)
			draws.POST("/settle", lottery.RetrySettlement)
		}
	}

	return router
}
