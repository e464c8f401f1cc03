package channel

import (
	"errors"
	"fmt"

	"github.com/erc7824/nitrolite-go/wallet"
)

// ID uniquely identifies a channel. It is the blake2b-256 digest of the
// packed channel parameters, see CalcID.
type ID [32]byte

// AdjudicatorID references the adjudicator validating state transitions for
// a channel. It is resolved to an Adjudicator capability when the channel is
// created and is part of the channel identity.
type AdjudicatorID [32]byte

// Params are the immutable parameters of a channel. Participant order is
// semantically meaningful: it indexes signatures, allocations and funding
// shares. The nonce disambiguates channels with otherwise identical
// parameters.
type Params struct {
	Participants      []*wallet.Address
	Adjudicator       AdjudicatorID
	ChallengeDuration uint64 // dispute window in seconds
	Nonce             uint64
}

// NewParams validates and creates channel parameters.
func NewParams(participants []*wallet.Address, adjudicator AdjudicatorID, challengeDuration uint64, nonce uint64) (*Params, error) {
	if len(participants) < MinParticipants {
		return nil, fmt.Errorf("channel needs at least %d participants", MinParticipants)
	}
	if len(participants) > MaxParticipants {
		return nil, fmt.Errorf("channel supports at most %d participants", MaxParticipants)
	}
	for _, p := range participants {
		if p == nil {
			return nil, errors.New("nil participant")
		}
	}
	if challengeDuration == 0 {
		return nil, errors.New("challenge duration must not be zero")
	}
	return &Params{
		Participants:      participants,
		Adjudicator:       adjudicator,
		ChallengeDuration: challengeDuration,
		Nonce:             nonce,
	}, nil
}

// Index returns the participant index of addr, or -1 if addr is not a
// participant.
func (p *Params) Index(addr *wallet.Address) int {
	for i, part := range p.Participants {
		if part.Equal(addr) {
			return i
		}
	}
	return -1
}
