package models

import "time"

// AccessPolicy names the single operator allowed to run draws.
// It is written once at initialization and never updated.
type AccessPolicy struct {
	Operator  Identity  `bson:"operator" json:"operator"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// EnterRequest is the body of a ticket purchase
type EnterRequest struct {
	Prediction []int  `json:"prediction"`
	FeePaid    Amount `json:"feePaid"`
}

// EnterResponse is returned after a ticket is recorded
type EnterResponse struct {
	TicketID int    `json:"ticketId"`
	RoundID  uint64 `json:"roundId"`
	Pot      Amount `json:"pot"`
}
