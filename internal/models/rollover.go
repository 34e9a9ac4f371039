package models

import "time"

// RolloverReasonNoMatch is recorded when no ticket matched the drawn outcome.
const RolloverReasonNoMatch = "NO_MATCHING_TICKET"

// Rollover records a pot carried from one round to the next,
// typically because the exact-match rule produced no winner.
type Rollover struct {
	SourceRoundID      uint64    `bson:"_id" json:"sourceRoundId"`
	DestinationRoundID uint64    `bson:"destinationRoundId" json:"destinationRoundId"`
	Amount             Amount    `bson:"amount" json:"amount"` // total carried, including earlier carryover
	Outcome            []int     `bson:"outcome" json:"outcome"`
	Reason             string    `bson:"reason" json:"reason"`
	CreatedAt          time.Time `bson:"createdAt" json:"createdAt"`
}
