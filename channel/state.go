package channel

import (
	"math/big"

	"perun.network/go-perun/wallet"

	nwallet "github.com/erc7824/nitrolite-go/wallet"
)

// Intent classifies the purpose of a state.
type Intent uint8

const (
	IntentInitialize Intent = iota // the unfunded version-0 funding state
	IntentOperate                  // an ordinary application transition
	IntentResize                   // adjusts the locked funding of an open channel
	IntentFinalize                 // makes the channel closable cooperatively
)

func (i Intent) String() string {
	switch i {
	case IntentInitialize:
		return "INITIALIZE"
	case IntentOperate:
		return "OPERATE"
	case IntentResize:
		return "RESIZE"
	case IntentFinalize:
		return "FINALIZE"
	default:
		return "INVALID"
	}
}

// Asset identifies an asset held by the custody ledger. The zero value is the
// native asset.
type Asset [32]byte

// ZeroAsset is the native asset identifier.
var ZeroAsset = Asset{}

// Allocation assigns an amount of an asset to a destination account. The
// allocation at index i of a state is participant i's share; its destination
// may differ from the participant account.
type Allocation struct {
	Destination *nwallet.Address
	Asset       Asset
	Amount      *big.Int
}

func (a Allocation) Clone() Allocation {
	return Allocation{
		Destination: a.Destination,
		Asset:       a.Asset,
		Amount:      new(big.Int).Set(a.Amount),
	}
}

// State is a versioned channel state. Data is opaque to the custody core and
// interpreted only by the channel's adjudicator. Sigs is indexed by
// participant; a nil entry means that participant has not signed.
type State struct {
	Intent      Intent
	Version     uint64
	Data        []byte
	Allocations []Allocation
	Sigs        []wallet.Sig
}

func (s *State) Clone() *State {
	clone := &State{
		Intent:      s.Intent,
		Version:     s.Version,
		Data:        append([]byte(nil), s.Data...),
		Allocations: make([]Allocation, len(s.Allocations)),
		Sigs:        make([]wallet.Sig, len(s.Sigs)),
	}
	for i, a := range s.Allocations {
		clone.Allocations[i] = a.Clone()
	}
	for i, sig := range s.Sigs {
		if sig != nil {
			clone.Sigs[i] = append(wallet.Sig(nil), sig...)
		}
	}
	return clone
}

// Total sums the allocated amounts of the given asset.
func (s *State) Total(asset Asset) *big.Int {
	total := new(big.Int)
	for _, a := range s.Allocations {
		if a.Asset == asset {
			total.Add(total, a.Amount)
		}
	}
	return total
}

// Assets returns the distinct assets appearing in the allocation list, in
// order of first appearance.
func (s *State) Assets() []Asset {
	var assets []Asset
	seen := make(map[Asset]struct{})
	for _, a := range s.Allocations {
		if _, ok := seen[a.Asset]; !ok {
			seen[a.Asset] = struct{}{}
			assets = append(assets, a.Asset)
		}
	}
	return assets
}
