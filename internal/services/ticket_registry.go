package services

import (
	"context"
	"fmt"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"golang.org/x/exp/slog"
)

// TicketRegistry validates and records entries for the current round.
type TicketRegistry struct {
	store *RoundStore
}

// NewTicketRegistry creates a TicketRegistry over a round store
func NewTicketRegistry(store *RoundStore) *TicketRegistry {
	return &TicketRegistry{store: store}
}

// Enter records a ticket and returns its index within the round.
// Validation failures and a closed round leave the round untouched.
func (r *TicketRegistry) Enter(ctx context.Context, owner models.Identity, prediction []int, feePaid models.Amount) (int, error) {
	if owner == "" {
		return 0, fmt.Errorf("%w: missing owner identity", ErrUnauthorized)
	}
	// Variant and fee are fixed for the life of the store, so pure checks run before taking the writer lock.
	snap := r.store.Snapshot()
	if feePaid != snap.EntryFee {
		return 0, fmt.Errorf("%w: paid %d, price is %d", ErrInvalidFee, feePaid, snap.EntryFee)
	}
	if err := ValidatePrediction(snap.Variant, prediction); err != nil {
		return 0, err
	}

	var ticketID int
	round, err := r.store.Update(ctx, func(round *models.Round) error {
		if round.State != models.RoundStateOpen {
			return fmt.Errorf("%w: round %d is %s", ErrRoundClosed, round.ID, round.State)
		}
		// Pot and Carryover are paid out together, so their sum must stay representable.
		pot, err := round.Pot.Add(feePaid)
		if err == nil {
			_, err = pot.Add(round.Carryover)
		}
		if err != nil {
			return fmt.Errorf("%w: round %d: %v", ErrPotFull, round.ID, err)
		}
		ticketID = len(round.Tickets)
		round.Tickets = append(round.Tickets, models.Ticket{
			ID:         ticketID,
			Owner:      owner,
			Prediction: append([]int(nil), prediction...),
			FeePaid:    feePaid,
			EnteredAt:  r.store.now(),
		})
		round.Pot = pot
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("Ticket entered", "roundId", round.ID, "ticketId", ticketID, "owner", maskIdentity(owner), "pot", round.Pot)
	return ticketID, nil
}

// ListTickets returns every ticket of the current round in insertion order
func (r *TicketRegistry) ListTickets() []models.Ticket {
	return copyTickets(r.store.Snapshot().Tickets, "")
}

// TicketsOf returns owner's tickets in insertion order
func (r *TicketRegistry) TicketsOf(owner models.Identity) []models.Ticket {
	return copyTickets(r.store.Snapshot().Tickets, owner)
}

// TicketCount returns the number of tickets in the current round
func (r *TicketRegistry) TicketCount() int {
	return len(r.store.Snapshot().Tickets)
}

func copyTickets(tickets []models.Ticket, owner models.Identity) []models.Ticket {
	out := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if owner != "" && t.Owner != owner {
			continue
		}
		t.Prediction = append([]int(nil), t.Prediction...)
		out = append(out, t)
	}
	return out
}
