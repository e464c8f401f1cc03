package custody

import "errors"

// Every operation rejects before any mutation of the channel record or the
// ledger, so all of these are recoverable by resubmitting corrected input.
var (
	// structural errors
	ErrInvalidInitialState = errors.New("invalid initial state")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrInvalidIndex        = errors.New("participant index out of range")
	ErrInvalidIntent       = errors.New("wrong intent for this operation")
	ErrAllocationMismatch  = errors.New("allocation list does not match the channel")
	ErrStaleState          = errors.New("state does not supersede the recorded state")

	// application errors
	ErrApplicationRuleViolation = errors.New("application rule violation")

	// state errors
	ErrChannelAlreadyExists = errors.New("channel already exists")
	ErrChannelNotFound      = errors.New("channel does not exist")
	ErrChannelNotJoinable   = errors.New("channel is not joinable")
	ErrAlreadyJoined        = errors.New("participant has already joined")
	ErrWrongStatus          = errors.New("channel is not in the required status")
	ErrChallengeExpired     = errors.New("challenge has expired")
	ErrChallengeActive      = errors.New("challenge has not expired yet")
	ErrUnknownAdjudicator   = errors.New("no adjudicator registered under this identifier")
)
