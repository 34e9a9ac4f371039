package models

import "time"

// Receipt records a settled round for auditing and event emission
type Receipt struct {
	RoundID    uint64   `bson:"_id" json:"roundId"`
	Variant    Variant  `bson:"variant" json:"variant"`
	Winner     Identity `bson:"winner,omitempty" json:"winner,omitempty"`
	AmountPaid Amount   `bson:"amountPaid" json:"amountPaid"`
	RolledOver Amount   `bson:"rolledOver" json:"rolledOver"` // carried into the next round when nobody won
	Outcome    []int    `bson:"outcome" json:"outcome"`
	Score      int      `bson:"score" json:"score"`
	Tickets    int      `bson:"tickets" json:"tickets"`
	// TicketsDigest lets anyone holding the revealed seed replay the outcome.
	TicketsDigest string    `bson:"ticketsDigest,omitempty" json:"ticketsDigest,omitempty"`
	SettledAt     time.Time `bson:"settledAt" json:"settledAt"`
}

// HasWinner reports whether the receipt paid anyone
func (r *Receipt) HasWinner() bool {
	return r != nil && r.Winner != ""
}
