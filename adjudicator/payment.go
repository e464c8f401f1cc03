package adjudicator

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/erc7824/nitrolite-go/channel"
	"github.com/erc7824/nitrolite-go/encoding"
)

// Payment is the reference adjudicator: a strict payment channel.
//
// Rules: every transition past the funding state is judged against a
// predecessor proof, versions strictly increase, allocation totals are
// conserved per asset, every participant whose share shrinks must have signed
// the candidate, and RESIZE states must match the per-participant deltas
// encoded in their application data (one little-endian int64 per
// participant). It also implements Comparer so that a FINALIZE state outranks
// a non-final state of equal version.
type Payment struct{}

func (Payment) Adjudicate(params *channel.Params, candidate *channel.State, proofs []*channel.State) error {
	if len(candidate.Allocations) != len(params.Participants) {
		return fmt.Errorf("expected %d allocations, got %d", len(params.Participants), len(candidate.Allocations))
	}
	for i, a := range candidate.Allocations {
		if a.Destination == nil {
			return fmt.Errorf("allocation %d has no destination", i)
		}
		if a.Amount == nil || a.Amount.Sign() == -1 {
			return fmt.Errorf("allocation %d has an invalid amount", i)
		}
	}

	var previous *channel.State
	if len(proofs) > 0 {
		previous = proofs[len(proofs)-1]
	}

	switch candidate.Intent {
	case channel.IntentInitialize:
		if candidate.Version != 0 {
			return errors.New("funding state must have version 0")
		}
		return nil
	case channel.IntentOperate, channel.IntentFinalize:
		if candidate.Version == 0 {
			return errors.New("version 0 is reserved for the funding state")
		}
		if previous == nil {
			return errors.New("transition requires the predecessor state as proof")
		}
		if candidate.Version <= previous.Version {
			return fmt.Errorf("version must increase: %d -> %d", previous.Version, candidate.Version)
		}
		if err := conserved(previous, candidate); err != nil {
			return err
		}
		return payersSigned(params, previous, candidate)
	case channel.IntentResize:
		if candidate.Version == 0 {
			return errors.New("version 0 is reserved for the funding state")
		}
		if previous == nil {
			return errors.New("resize requires the predecessor state as proof")
		}
		if candidate.Version <= previous.Version {
			return fmt.Errorf("version must increase: %d -> %d", previous.Version, candidate.Version)
		}
		return resized(previous, candidate)
	default:
		return fmt.Errorf("unknown intent %d", candidate.Intent)
	}
}

// Compare orders by version; at equal version a FINALIZE state supersedes a
// non-final one.
func (Payment) Compare(candidate, previous *channel.State) int {
	switch {
	case candidate.Version < previous.Version:
		return -1
	case candidate.Version > previous.Version:
		return 1
	case candidate.Intent == channel.IntentFinalize && previous.Intent != channel.IntentFinalize:
		return 1
	case candidate.Intent != channel.IntentFinalize && previous.Intent == channel.IntentFinalize:
		return -1
	default:
		return 0
	}
}

// conserved checks that totals per asset are unchanged between two states.
func conserved(previous, candidate *channel.State) error {
	assets := previous.Assets()
	for _, a := range candidate.Assets() {
		found := false
		for _, b := range assets {
			if a == b {
				found = true
				break
			}
		}
		if !found {
			assets = append(assets, a)
		}
	}
	for _, asset := range assets {
		if previous.Total(asset).Cmp(candidate.Total(asset)) != 0 {
			return fmt.Errorf("allocation total changed for asset %x", asset[:4])
		}
	}
	return nil
}

// payersSigned requires a valid candidate signature from every participant
// whose allocation shrank relative to previous.
func payersSigned(params *channel.Params, previous, candidate *channel.State) error {
	if len(previous.Allocations) != len(candidate.Allocations) {
		return errors.New("allocation count changed")
	}
	id, err := channel.CalcID(params)
	if err != nil {
		return err
	}
	for i := range candidate.Allocations {
		prev, cand := previous.Allocations[i], candidate.Allocations[i]
		if prev.Asset != cand.Asset {
			return fmt.Errorf("allocation %d changed asset", i)
		}
		if cand.Amount.Cmp(prev.Amount) >= 0 {
			continue
		}
		if i >= len(candidate.Sigs) || candidate.Sigs[i] == nil {
			return fmt.Errorf("participant %d pays but did not sign", i)
		}
		ok, err := channel.Verify(params.Participants[i], id, candidate, candidate.Sigs[i])
		if err != nil || !ok {
			return fmt.Errorf("participant %d pays but its signature is invalid", i)
		}
	}
	return nil
}

// resized checks candidate against the deltas carried in its data.
func resized(previous, candidate *channel.State) error {
	if len(previous.Allocations) != len(candidate.Allocations) {
		return errors.New("resize must not change the participant set")
	}
	if len(candidate.Data) != 8*len(candidate.Allocations) {
		return fmt.Errorf("resize data must hold %d deltas", len(candidate.Allocations))
	}
	for i := range candidate.Allocations {
		prev, cand := previous.Allocations[i], candidate.Allocations[i]
		if prev.Asset != cand.Asset {
			return fmt.Errorf("allocation %d changed asset", i)
		}
		delta := encoding.UnpackInt64(candidate.Data[8*i : 8*i+8])
		want := new(big.Int).Add(prev.Amount, big.NewInt(delta))
		if want.Sign() == -1 {
			return fmt.Errorf("delta %d underflows participant %d", delta, i)
		}
		if cand.Amount.Cmp(want) != 0 {
			return fmt.Errorf("allocation %d does not match its resize delta", i)
		}
	}
	return nil
}
