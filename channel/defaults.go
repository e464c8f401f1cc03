package channel

const (
	MinParticipants = 2
	MaxParticipants = 255

	// DefaultChallengeDuration is the dispute window, in seconds, suggested
	// to callers that have no application-specific requirement.
	DefaultChallengeDuration uint64 = 3600
)
