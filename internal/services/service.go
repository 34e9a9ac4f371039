package services

import (
	"context"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
)

// LotteryService is the surface the HTTP façade and CLI call into
type LotteryService interface {
	// Enter buys a ticket in the current round
	Enter(ctx context.Context, owner models.Identity, prediction []int, feePaid models.Amount) (*models.EnterResponse, error)

	// ListTickets returns the current round's tickets in insertion order
	ListTickets(ctx context.Context) []models.Ticket

	// TicketsOf returns one owner's tickets in insertion order
	TicketsOf(ctx context.Context, owner models.Identity) []models.Ticket

	// ExecuteDraw draws, resolves and pays the current round (operator only)
	ExecuteDraw(ctx context.Context, caller models.Identity) (*models.Receipt, error)

	// RetrySettlement pays a drawn round whose transfer failed earlier (operator only)
	RetrySettlement(ctx context.Context, caller models.Identity) (*models.Receipt, error)

	// Status summarizes the current round and the last settled one
	Status(ctx context.Context) (*models.LotteryStatus, error)

	// LastReceipt returns the most recently settled round
	LastReceipt(ctx context.Context) (*models.Receipt, error)

	// RecentWinners lists settled rounds that paid a winner, newest first
	RecentWinners(ctx context.Context, limit int) ([]*models.Receipt, error)

	// Balance returns an identity's credited winnings
	Balance(ctx context.Context, who models.Identity) (models.Amount, error)
}
