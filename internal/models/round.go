package models

import "time"

// Identity is an authenticated participant or operator address supplied by the signing agent.
type Identity string

// Amount is a quantity of funds in the smallest unit (wei).
type Amount int64

// RoundState represents the lifecycle phase of a round
type RoundState string

const (
	RoundStateOpen    RoundState = "OPEN"
	RoundStateDrawing RoundState = "DRAWING"
	RoundStateSettled RoundState = "SETTLED"
)

// Variant selects the prediction shape and match rule
type Variant string

const (
	VariantExact   Variant = "exact"   // single number in [0,999], exact match wins
	VariantClosest Variant = "closest" // single number in [0,999], smallest distance wins
	VariantPartial Variant = "partial" // six distinct numbers in [1,45], most shared numbers wins
)

// Ticket is one registered prediction. Immutable once created.
type Ticket struct {
	ID         int       `bson:"id" json:"id"`
	Owner      Identity  `bson:"owner" json:"owner"`
	Prediction []int     `bson:"prediction" json:"prediction"`
	FeePaid    Amount    `bson:"feePaid" json:"feePaid"`
	EnteredAt  time.Time `bson:"enteredAt" json:"enteredAt"`
}

// DrawResult is the scored outcome of a draw. Winner is empty when no ticket qualifies.
type DrawResult struct {
	RoundID       uint64   `bson:"roundId" json:"roundId"`
	Outcome       []int    `bson:"outcome" json:"outcome"`
	Winner        Identity `bson:"winner,omitempty" json:"winner,omitempty"`
	WinningTicket int      `bson:"winningTicket" json:"winningTicket"`
	Score         int      `bson:"score" json:"score"`
	TicketsDigest string   `bson:"ticketsDigest,omitempty" json:"ticketsDigest,omitempty"` // hex, fed to round-bound sources
}

// HasWinner reports whether the draw resolved a winning ticket
func (r *DrawResult) HasWinner() bool {
	return r != nil && r.Winner != ""
}

// Round is the single current round record.
type Round struct {
	ID        uint64     `bson:"roundId" json:"roundId"`
	Variant   Variant    `bson:"variant" json:"variant"`
	EntryFee  Amount     `bson:"entryFee" json:"entryFee"`
	Tickets   []Ticket   `bson:"tickets" json:"tickets"`
	Pot       Amount     `bson:"pot" json:"pot"`
	Carryover Amount     `bson:"carryover" json:"carryover"` // rolled over from earlier rounds with no winner
	Reserved  Amount     `bson:"reserved" json:"reserved"`   // moved out of pot+carryover while a payout is in flight
	State     RoundState `bson:"state" json:"state"`

	// Pending holds the scored draw while the round waits for payout.
	Pending *DrawResult `bson:"pending,omitempty" json:"pending,omitempty"`

	// Set together when the round settles.
	DrawnOutcome []int    `bson:"drawnOutcome,omitempty" json:"drawnOutcome,omitempty"`
	Winner       Identity `bson:"winner,omitempty" json:"winner,omitempty"`
	MatchScore   *int     `bson:"matchScore,omitempty" json:"matchScore,omitempty"`

	OpenedAt  time.Time `bson:"openedAt" json:"openedAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewRound creates an empty open round
func NewRound(id uint64, variant Variant, fee Amount, carryover Amount, now time.Time) *Round {
	return &Round{
		ID:        id,
		Variant:   variant,
		EntryFee:  fee,
		Tickets:   []Ticket{},
		Carryover: carryover,
		State:     RoundStateOpen,
		OpenedAt:  now,
		UpdatedAt: now,
	}
}

// Payout is the amount a winner of this round receives.
func (r *Round) Payout() Amount {
	return r.Pot + r.Carryover
}

// Clone returns a deep copy so a staged mutation never aliases the published round.
func (r *Round) Clone() *Round {
	if r == nil {
		return nil
	}
	out := *r
	out.Tickets = make([]Ticket, len(r.Tickets))
	for i, t := range r.Tickets {
		t.Prediction = append([]int(nil), t.Prediction...)
		out.Tickets[i] = t
	}
	if r.Pending != nil {
		p := *r.Pending
		p.Outcome = append([]int(nil), r.Pending.Outcome...)
		out.Pending = &p
	}
	if r.DrawnOutcome != nil {
		out.DrawnOutcome = append([]int(nil), r.DrawnOutcome...)
	}
	if r.MatchScore != nil {
		s := *r.MatchScore
		out.MatchScore = &s
	}
	return &out
}
