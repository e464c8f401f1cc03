// Package adjudicator defines the pluggable application-validation boundary
// of the custody core. An adjudicator decides whether a candidate state is a
// valid successor for a channel; the custody controller never interprets
// application data or allocation semantics itself.
package adjudicator

import (
	"github.com/erc7824/nitrolite-go/channel"
)

// Adjudicator is the application-specific acceptance test for candidate
// states. Proofs is an ordered list of prior states supporting the candidate;
// the last proof, when present, is the candidate's predecessor.
//
// Adjudicate returns nil iff the candidate is valid. A non-nil error carries
// the application's reason and must be free of side effects: implementations
// are called under the channel's critical section and must be deterministic.
type Adjudicator interface {
	Adjudicate(params *channel.Params, candidate *channel.State, proofs []*channel.State) error
}

// Comparer is an optional capability of an adjudicator defining a total
// order over states of the same channel. Compare returns a negative value if
// candidate precedes previous, zero if they rank equally and a positive value
// if candidate supersedes previous.
type Comparer interface {
	Compare(candidate, previous *channel.State) int
}

// CompareStates orders two states of one channel. If the adjudicator
// implements Comparer, its order takes precedence; otherwise states are
// ordered strictly by version.
func CompareStates(adj Adjudicator, candidate, previous *channel.State) int {
	if c, ok := adj.(Comparer); ok {
		return c.Compare(candidate, previous)
	}
	switch {
	case candidate.Version < previous.Version:
		return -1
	case candidate.Version > previous.Version:
		return 1
	default:
		return 0
	}
}
