package services

import "errors"

// Rejections returned by the lottery core. All are recoverable; callers match them with errors.Is.
var (
	ErrInvalidFee            = errors.New("entry fee must equal the fixed ticket price")
	ErrInvalidPrediction     = errors.New("prediction does not fit the active variant")
	ErrRoundClosed           = errors.New("round is not accepting entries")
	ErrPotFull               = errors.New("round pot cannot hold another entry")
	ErrRoundNotOpen          = errors.New("round is not open for a draw")
	ErrNoParticipants        = errors.New("round has no tickets")
	ErrUnauthorized          = errors.New("caller is not the operator")
	ErrRandomnessUnavailable = errors.New("randomness unavailable")
	ErrTransferFailed        = errors.New("payout transfer failed")

	ErrNoPendingDraw        = errors.New("no draw is awaiting payout")
	ErrSettlementInProgress = errors.New("payout already in progress")
)
