package channel

// Status is the lifecycle status of a channel record.
type Status uint8

const (
	StatusVoid    Status = iota // no record exists
	StatusInitial               // created, not yet fully funded
	StatusActive                // fully funded, operating
	StatusDispute               // a challenge is outstanding
	StatusFinal                 // terminal, funds releasable
)

func (s Status) String() string {
	switch s {
	case StatusVoid:
		return "VOID"
	case StatusInitial:
		return "INITIAL"
	case StatusActive:
		return "ACTIVE"
	case StatusDispute:
		return "DISPUTE"
	case StatusFinal:
		return "FINAL"
	default:
		return "INVALID"
	}
}
