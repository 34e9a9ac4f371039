package models

// LotteryStatus summarizes the current round for the query façade
type LotteryStatus struct {
	RoundID     uint64     `json:"roundId"`
	State       RoundState `json:"state"`
	Variant     Variant    `json:"variant"`
	EntryFee    Amount     `json:"entryFee"`
	Players     int        `json:"players"`
	Pot         Amount     `json:"pot"`
	Carryover   Amount     `json:"carryover"`
	CurrentPot  Amount     `json:"currentPot"` // what a winner would receive now
	Operator    Identity   `json:"operator"`
	LastWinner  Identity   `json:"lastWinner,omitempty"`
	LastOutcome []int      `json:"lastOutcome,omitempty"`
}
