// Package test provides a funded two-party custody fixture for lifecycle
// tests.
package test

import (
	"math/big"
	"math/rand"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
	pwallet "perun.network/go-perun/wallet"

	"github.com/erc7824/nitrolite-go/adjudicator"
	"github.com/erc7824/nitrolite-go/channel"
	ctest "github.com/erc7824/nitrolite-go/channel/test"
	"github.com/erc7824/nitrolite-go/custody"
	"github.com/erc7824/nitrolite-go/ledger"
	"github.com/erc7824/nitrolite-go/wallet"
)

// Setup is a custody controller with a registered payment adjudicator, a
// deterministic clock and two funded participants.
type Setup struct {
	Custody  *custody.Custody
	Ledger   *ledger.Ledger
	Clock    *clock.TestClock
	Accounts []*wallet.Account
	Params   *channel.Params
	ID       channel.ID
	Asset    channel.Asset
}

// Genesis is the fixture's deterministic start time.
var Genesis = time.Unix(1700000000, 0)

// NewSetup builds a two-party fixture and deposits the given available
// balance for every participant.
func NewSetup(t *testing.T, rng *rand.Rand, deposit int64) *Setup {
	t.Helper()

	accounts := []*wallet.Account{ctest.NewRandomAccount(rng), ctest.NewRandomAccount(rng)}
	participants := make([]*wallet.Address, len(accounts))
	for i, acc := range accounts {
		addr, ok := acc.Address().(*wallet.Address)
		require.True(t, ok)
		participants[i] = addr
	}

	adjID := ctest.NewRandomAdjudicatorID(rng)
	params, err := channel.NewParams(participants, adjID, channel.DefaultChallengeDuration, rng.Uint64())
	require.NoError(t, err)
	id, err := channel.CalcID(params)
	require.NoError(t, err)

	l := ledger.NewLedger()
	testClock := clock.NewTestClock(Genesis)
	c := custody.New(l, testClock)
	require.NoError(t, c.RegisterAdjudicator(adjID, adjudicator.Payment{}))

	asset := ctest.NewRandomAsset(rng)
	for _, p := range participants {
		require.NoError(t, l.Deposit(p, asset, big.NewInt(deposit)))
	}

	return &Setup{
		Custody:  c,
		Ledger:   l,
		Clock:    testClock,
		Accounts: accounts,
		Params:   params,
		ID:       id,
		Asset:    asset,
	}
}

// NewState builds a state allocating the given amounts to the participants.
func (s *Setup) NewState(intent channel.Intent, version uint64, amounts ...int64) *channel.State {
	allocations := make([]channel.Allocation, len(amounts))
	for i, amt := range amounts {
		allocations[i] = channel.Allocation{
			Destination: s.Params.Participants[i],
			Asset:       s.Asset,
			Amount:      big.NewInt(amt),
		}
	}
	return &channel.State{
		Intent:      intent,
		Version:     version,
		Allocations: allocations,
		Sigs:        make([]pwallet.Sig, len(s.Params.Participants)),
	}
}

// Sign attaches participant signatures at the given indices.
func (s *Setup) Sign(t *testing.T, state *channel.State, indices ...int) {
	t.Helper()
	for _, i := range indices {
		sig, err := channel.Sign(s.Accounts[i], s.ID, state)
		require.NoError(t, err)
		state.Sigs[i] = sig
	}
}

// SignAll attaches every participant's signature.
func (s *Setup) SignAll(t *testing.T, state *channel.State) {
	t.Helper()
	for i := range s.Accounts {
		s.Sign(t, state, i)
	}
}

// JoinSig produces participant index's funding signature over state.
func (s *Setup) JoinSig(t *testing.T, state *channel.State, index int) pwallet.Sig {
	t.Helper()
	sig, err := channel.Sign(s.Accounts[index], s.ID, state)
	require.NoError(t, err)
	return sig
}

// Open creates the channel with the given funding split and joins all
// remaining participants, leaving it active.
func (s *Setup) Open(t *testing.T, amounts ...int64) *channel.State {
	t.Helper()
	initial := s.NewState(channel.IntentInitialize, 0, amounts...)
	s.Sign(t, initial, 0)
	id, err := s.Custody.Create(s.Params, initial)
	require.NoError(t, err)
	require.Equal(t, s.ID, id)
	for i := 1; i < len(s.Accounts); i++ {
		require.NoError(t, s.Custody.Join(s.ID, i, s.JoinSig(t, initial, i)))
	}
	require.Equal(t, channel.StatusActive, s.Custody.StatusOf(s.ID))
	return initial
}
