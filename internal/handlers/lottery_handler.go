package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ArowuTest/etherlotto-backend/internal/middleware"
	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/internal/repositories"
	"github.com/ArowuTest/etherlotto-backend/internal/services"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"
)

// LotteryHandler handles lottery HTTP requests
type LotteryHandler struct {
	lotteryService services.LotteryService
}

// NewLotteryHandler creates a new LotteryHandler
func NewLotteryHandler(lotteryService services.LotteryService) *LotteryHandler {
	return &LotteryHandler{
		lotteryService: lotteryService,
	}
}

// errorStatus maps a core error to an HTTP status and a stable machine code
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidFee):
		return http.StatusBadRequest, "invalid_fee"
	case errors.Is(err, services.ErrInvalidPrediction):
		return http.StatusBadRequest, "invalid_prediction"
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, services.ErrRoundClosed):
		return http.StatusConflict, "round_closed"
	case errors.Is(err, services.ErrPotFull):
		return http.StatusConflict, "pot_full"
	case errors.Is(err, services.ErrRoundNotOpen):
		return http.StatusConflict, "round_not_open"
	case errors.Is(err, services.ErrNoParticipants):
		return http.StatusConflict, "no_participants"
	case errors.Is(err, services.ErrNoPendingDraw):
		return http.StatusConflict, "no_pending_draw"
	case errors.Is(err, services.ErrSettlementInProgress):
		return http.StatusConflict, "settlement_in_progress"
	case errors.Is(err, services.ErrRandomnessUnavailable):
		return http.StatusServiceUnavailable, "randomness_unavailable"
	case errors.Is(err, services.ErrTransferFailed):
		return http.StatusBadGateway, "transfer_failed"
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound, "not_found"
	}
	return http.StatusInternalServerError, "internal"
}

func respondError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", c.FullPath(), "code", code, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

// GetStatus handles GET /status
func (h *LotteryHandler) GetStatus(c *gin.Context) {
	status, err := h.lotteryService.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"service":         "etherlotto",
		"status":          status,
		"entryFeeEther":   status.EntryFee.Ether(),
		"currentPotEther": status.CurrentPot.Ether(),
	})
}

// GetTickets handles GET /tickets
func (h *LotteryHandler) GetTickets(c *gin.Context) {
	tickets := h.lotteryService.ListTickets(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "count": len(tickets)})
}

// GetMyTickets handles GET /tickets/mine
func (h *LotteryHandler) GetMyTickets(c *gin.Context) {
	tickets := h.lotteryService.TicketsOf(c.Request.Context(), middleware.IdentityFrom(c))
	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "count": len(tickets)})
}

// Enter handles POST /tickets
func (h *LotteryHandler) Enter(c *gin.Context) {
	var request models.EnterRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
		return
	}
	resp, err := h.lotteryService.Enter(c.Request.Context(), middleware.IdentityFrom(c), request.Prediction, request.FeePaid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ExecuteDraw handles POST /draws
func (h *LotteryHandler) ExecuteDraw(c *gin.Context) {
	receipt, err := h.lotteryService.ExecuteDraw(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Draw executed successfully", "receipt": receipt})
}

// RetrySettlement handles POST /draws/settle
func (h *LotteryHandler) RetrySettlement(c *gin.Context) {
	receipt, err := h.lotteryService.RetrySettlement(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settlement completed", "receipt": receipt})
}

// GetLatestReceipt handles GET /receipts/latest
func (h *LotteryHandler) GetLatestReceipt(c *gin.Context) {
	receipt, err := h.lotteryService.LastReceipt(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// GetWinners handles GET /winners?limit=N
func (h *LotteryHandler) GetWinners(c *gin.Context) {
	limit := services.DefaultRecentWinners
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer", "code": "bad_request"})
			return
		}
		limit = n
	}
	winners, err := h.lotteryService.RecentWinners(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"winners": winners})
}

// GetBalance handles GET /balance
func (h *LotteryHandler) GetBalance(c *gin.Context) {
	who := middleware.IdentityFrom(c)
	balance, err := h.lotteryService.Balance(c.Request.Context(), who)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": who, "balance": balance, "balanceEther": balance.Ether()})
}
