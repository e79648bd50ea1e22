package services

import "errors"

// Errors shared across services and the HTTP mapping layer.
var (
	// Lifecycle guards
	ErrTournamentNotEnded       = errors.New("tournament has not ended yet")
	ErrTournamentNotActive      = errors.New("tournament is not active")
	ErrResultNotCalculated      = errors.New("tournament result has not been calculated")
	ErrResultAlreadyDistributed = errors.New("tournament result already distributed")

	// Ingestion
	ErrQueueInactive = errors.New("ingestion queue is inactive")
	ErrNothingToPoll = errors.New("no queue entry available to poll")
)
