package test

import (
	"math/big"
	"math/rand"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	pwallet "perun.network/go-perun/wallet"

	"github.com/erc7824/nitrolite-go/channel"
	"github.com/erc7824/nitrolite-go/wallet"
)

// NewRandomAccount derives an account deterministically from the rng so tests
// are reproducible from the poly-go seed.
func NewRandomAccount(rng *rand.Rand) *wallet.Account {
	key := make([]byte, 32)
	rng.Read(key)
	return wallet.NewAccountFromKey(secp256k1.PrivKeyFromBytes(key))
}

func NewRandomAddress(rng *rand.Rand) *wallet.Address {
	addr, ok := NewRandomAccount(rng).Address().(*wallet.Address)
	if !ok {
		panic("account address is not of type Address")
	}
	return addr
}

func NewRandomAsset(rng *rand.Rand) channel.Asset {
	var asset channel.Asset
	rng.Read(asset[:])
	return asset
}

func NewRandomAdjudicatorID(rng *rand.Rand) channel.AdjudicatorID {
	var id channel.AdjudicatorID
	rng.Read(id[:])
	return id
}

// NewRandomParams creates random two-party channel parameters.
func NewRandomParams(rng *rand.Rand) *channel.Params {
	params, err := channel.NewParams(
		[]*wallet.Address{NewRandomAddress(rng), NewRandomAddress(rng)},
		NewRandomAdjudicatorID(rng),
		channel.DefaultChallengeDuration,
		rng.Uint64(),
	)
	if err != nil {
		panic(err)
	}
	return params
}

// NewRandomState creates a random state with one allocation per participant,
// all in the given asset.
func NewRandomState(rng *rand.Rand, params *channel.Params, asset channel.Asset) *channel.State {
	allocations := make([]channel.Allocation, len(params.Participants))
	for i, p := range params.Participants {
		allocations[i] = channel.Allocation{
			Destination: p,
			Asset:       asset,
			Amount:      big.NewInt(rng.Int63n(1 << 40)),
		}
	}
	data := make([]byte, rng.Intn(64))
	rng.Read(data)
	return &channel.State{
		Intent:      channel.IntentOperate,
		Version:     1 + rng.Uint64()%(1<<32),
		Data:        data,
		Allocations: allocations,
		Sigs:        make([]pwallet.Sig, len(params.Participants)),
	}
}
