// Package custody implements the channel lifecycle controller: creation,
// joining, checkpointing, challenging, resizing and closing of state
// channels, backed by a custody ledger of available and locked funds.
package custody

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"perun.network/go-perun/log"
	pwallet "perun.network/go-perun/wallet"
	"polycry.pt/poly-go/sync"

	"github.com/erc7824/nitrolite-go/adjudicator"
	"github.com/erc7824/nitrolite-go/channel"
	"github.com/erc7824/nitrolite-go/ledger"
	"github.com/erc7824/nitrolite-go/wallet"
)

// Custody is the serializing authority over all channel records. Time only
// enters through the injected clock, read at call time; there are no
// background timers.
type Custody struct {
	log log.Embedding

	clock        clock.Clock
	ledger       *ledger.Ledger
	registry     *registry
	adjudicators *adjudicators

	subsMu sync.Mutex
	subs   []chan Event
}

func New(l *ledger.Ledger, c clock.Clock) *Custody {
	return &Custody{
		log:          log.MakeEmbedding(log.Default()),
		clock:        c,
		ledger:       l,
		registry:     newRegistry(),
		adjudicators: newAdjudicators(),
	}
}

// RegisterAdjudicator binds an adjudicator capability to the identifier
// channels reference in their parameters. Bindings are write-once.
func (c *Custody) RegisterAdjudicator(id channel.AdjudicatorID, adj adjudicator.Adjudicator) error {
	return c.adjudicators.register(id, adj)
}

// Ledger returns the custody ledger. Deposits and withdrawals go through it
// directly; the controller only locks and releases channel funding.
func (c *Custody) Ledger() *ledger.Ledger {
	return c.ledger
}

// Deposit credits an account's available balance.
func (c *Custody) Deposit(acc *wallet.Address, asset channel.Asset, amount *big.Int) error {
	return c.ledger.Deposit(acc, asset, amount)
}

// Withdraw debits an account's available balance. Funds locked in non-final
// channels are not withdrawable.
func (c *Custody) Withdraw(acc *wallet.Address, asset channel.Asset, amount *big.Int) error {
	return c.ledger.Withdraw(acc, asset, amount)
}

// StatusOf reports the lifecycle status of a channel. Unknown channels read
// as StatusVoid.
func (c *Custody) StatusOf(id channel.ID) channel.Status {
	rec, ok := c.registry.get(id)
	if !ok {
		return channel.StatusVoid
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.status
}

// VersionOf reports the latest recorded state version. Unknown channels read
// as version 0.
func (c *Custody) VersionOf(id channel.ID) uint64 {
	rec, ok := c.registry.get(id)
	if !ok {
		return 0
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.state.Version
}

// StateOf returns a copy of the latest recorded state of a channel.
func (c *Custody) StateOf(id channel.ID) (*channel.State, error) {
	rec, ok := c.registry.get(id)
	if !ok {
		return nil, ErrChannelNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.state.Clone(), nil
}

// ExpirationOf returns the challenge expiration of a disputed channel.
func (c *Custody) ExpirationOf(id channel.ID) (time.Time, error) {
	rec, ok := c.registry.get(id)
	if !ok {
		return time.Time{}, ErrChannelNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.status != channel.StatusDispute {
		return time.Time{}, fmt.Errorf("%w: %v", ErrWrongStatus, rec.status)
	}
	return rec.expiration, nil
}

// Create registers a new channel from its parameters and the version-0
// funding state, and locks the creator's share from the ledger. The creator
// is participant 0; its signature must be present on the initial state. The
// channel starts in StatusInitial until the remaining participants join.
func (c *Custody) Create(params *channel.Params, initial *channel.State) (channel.ID, error) {
	adj, err := c.adjudicators.resolve(params.Adjudicator)
	if err != nil {
		return channel.ID{}, err
	}
	id, err := channel.CalcID(params)
	if err != nil {
		return channel.ID{}, fmt.Errorf("%w: %v", ErrInvalidInitialState, err)
	}
	if err := validInitialState(params, id, initial); err != nil {
		return channel.ID{}, err
	}

	n := len(params.Participants)
	rec := &Record{
		params:      params,
		adjudicator: adj,
		status:      channel.StatusInitial,
		state:       initial.Clone(),
		funding:     make([]ledger.Entry, n),
	}
	for i := 0; i < n; i++ {
		rec.funding[i] = ledger.Entry{
			Account: params.Participants[i],
			Asset:   initial.Allocations[i].Asset,
			Amount:  new(big.Int), // locked on create (index 0) or join
		}
	}

	// The record is published only once the creator's share is locked, so a
	// record visible through the registry is always backed by its funding.
	share := initial.Allocations[0]
	if err := c.ledger.Lock(params.Participants[0], share.Asset, share.Amount); err != nil {
		return channel.ID{}, err
	}
	rec.funding[0].Amount.Set(share.Amount)
	if err := c.registry.create(id, rec); err != nil {
		_ = c.ledger.Unlock(params.Participants[0], share.Asset, share.Amount)
		return channel.ID{}, err
	}

	c.log.Log().WithField("channel", shortID(id)).Debugf("channel created")
	c.emit(Event{Type: EventTypeCreated, ID: id, Version: initial.Version})
	return id, nil
}

// Join funds participant index's share of an initial channel with its
// signature over the stored funding state. When the last participant joins,
// the channel becomes active.
func (c *Custody) Join(id channel.ID, index int, sig pwallet.Sig) error {
	rec, ok := c.registry.get(id)
	if !ok {
		return ErrChannelNotJoinable
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.status != channel.StatusInitial {
		return fmt.Errorf("%w: status %v", ErrChannelNotJoinable, rec.status)
	}
	if index < 0 || index >= len(rec.params.Participants) {
		return ErrInvalidIndex
	}
	if rec.state.Sigs[index] != nil {
		return ErrAlreadyJoined
	}
	ok, err := channel.Verify(rec.params.Participants[index], id, rec.state, sig)
	if err != nil || !ok {
		return ErrInvalidSignature
	}

	share := rec.state.Allocations[index]
	if err := c.ledger.Lock(rec.params.Participants[index], share.Asset, share.Amount); err != nil {
		return err
	}
	rec.state.Sigs[index] = append(pwallet.Sig(nil), sig...)
	rec.funding[index].Amount.Set(share.Amount)

	c.log.Log().WithField("channel", shortID(id)).Debugf("participant %d joined", index)
	c.emit(Event{Type: EventTypeJoined, ID: id, Version: rec.state.Version, Index: index})

	for _, s := range rec.state.Sigs {
		if s == nil {
			return nil
		}
	}
	rec.status = channel.StatusActive
	c.log.Log().WithField("channel", shortID(id)).Debugf("channel opened")
	c.emit(Event{Type: EventTypeOpened, ID: id, Version: rec.state.Version})
	return nil
}

// Abort cancels a channel whose funding never completed and refunds every
// locked share to its participant. Only initial channels can be aborted;
// once active, a channel ends through Close.
func (c *Custody) Abort(id channel.ID) error {
	rec, ok := c.registry.get(id)
	if !ok {
		return ErrChannelNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.status != channel.StatusInitial {
		return fmt.Errorf("%w: status %v", ErrWrongStatus, rec.status)
	}
	if err := c.ledger.Settle(rec.funding, rec.funding); err != nil {
		return err
	}
	rec.status = channel.StatusFinal
	rec.funding = nil
	c.log.Log().WithField("channel", shortID(id)).Debugf("aborted")
	c.emit(Event{Type: EventTypeClosed, ID: id, Version: rec.state.Version})
	return nil
}

// Checkpoint records a fully signed, adjudicated state without moving funds.
// A checkpoint superseding an outstanding unexpired challenge clears the
// dispute; an expired dispute admits no checkpoint at all. Re-checkpointing
// the identical state is a no-op.
func (c *Custody) Checkpoint(id channel.ID, candidate *channel.State, proofs []*channel.State) error {
	rec, ok := c.registry.get(id)
	if !ok {
		return ErrChannelNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.status != channel.StatusActive && rec.status != channel.StatusDispute {
		return fmt.Errorf("%w: status %v", ErrWrongStatus, rec.status)
	}
	if rec.status == channel.StatusDispute && !c.clock.Now().Before(rec.expiration) {
		return ErrChallengeExpired
	}
	if err := c.validCandidate(rec, id, candidate); err != nil {
		return err
	}
	cmp := adjudicator.CompareStates(rec.adjudicator, candidate, rec.state)
	if cmp < 0 {
		return ErrStaleState
	}
	if cmp == 0 {
		if same, err := sameState(id, candidate, rec.state); err == nil && same {
			return nil
		}
		return ErrStaleState
	}
	if err := c.adjudicate(rec, id, candidate, proofs); err != nil {
		return err
	}

	rec.state = candidate.Clone()
	if rec.status == channel.StatusDispute {
		rec.status = channel.StatusActive
		rec.expiration = time.Time{}
	}
	c.log.Log().WithField("channel", shortID(id)).Debugf("checkpointed version %d", candidate.Version)
	c.emit(Event{Type: EventTypeCheckpointed, ID: id, Version: candidate.Version})
	return nil
}

// Challenge opens or resets the dispute window with a fully signed,
// adjudicated state. From StatusActive the candidate must be at least as
// recent as the recorded state; an outstanding dispute can only be reset by a
// strictly superseding state before its expiration.
func (c *Custody) Challenge(id channel.ID, candidate *channel.State, proofs []*channel.State) error {
	rec, ok := c.registry.get(id)
	if !ok {
		return ErrChannelNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.status != channel.StatusActive && rec.status != channel.StatusDispute {
		return fmt.Errorf("%w: status %v", ErrWrongStatus, rec.status)
	}
	now := c.clock.Now()
	if rec.status == channel.StatusDispute && !now.Before(rec.expiration) {
		return ErrChallengeExpired
	}
	if err := c.validCandidate(rec, id, candidate); err != nil {
		return err
	}
	cmp := adjudicator.CompareStates(rec.adjudicator, candidate, rec.state)
	if rec.status == channel.StatusDispute && cmp <= 0 {
		return ErrStaleState
	}
	if cmp < 0 {
		return ErrStaleState
	}
	if err := c.adjudicate(rec, id, candidate, proofs); err != nil {
		return err
	}

	rec.state = candidate.Clone()
	rec.status = channel.StatusDispute
	rec.expiration = now.Add(time.Duration(rec.params.ChallengeDuration) * time.Second)
	c.log.Log().WithField("channel", shortID(id)).
		Debugf("challenged at version %d, expires %v", candidate.Version, rec.expiration)
	c.emit(Event{Type: EventTypeChallenged, ID: id, Version: candidate.Version, Expiration: rec.expiration})
	return nil
}

// Resize adjusts the locked funding of an active channel to a fully signed,
// adjudicated RESIZE state. Growing shares are locked from the participants'
// available balances, shrinking shares are released to them. The participant
// set itself is immutable; funds for a different set require a new channel.
func (c *Custody) Resize(id channel.ID, candidate *channel.State, proofs []*channel.State) error {
	rec, ok := c.registry.get(id)
	if !ok {
		return ErrChannelNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.status != channel.StatusActive {
		return fmt.Errorf("%w: status %v", ErrWrongStatus, rec.status)
	}
	if candidate.Intent != channel.IntentResize {
		return fmt.Errorf("%w: %v", ErrInvalidIntent, candidate.Intent)
	}
	if err := c.validCandidate(rec, id, candidate); err != nil {
		return err
	}
	if adjudicator.CompareStates(rec.adjudicator, candidate, rec.state) <= 0 {
		return ErrStaleState
	}
	if err := c.adjudicate(rec, id, candidate, proofs); err != nil {
		return err
	}

	var locks, unlocks []ledger.Entry
	deltas := make([]*big.Int, len(rec.funding))
	for i := range rec.funding {
		alloc := candidate.Allocations[i]
		if alloc.Asset != rec.funding[i].Asset {
			return fmt.Errorf("%w: allocation %d changed asset", ErrAllocationMismatch, i)
		}
		delta := new(big.Int).Sub(alloc.Amount, rec.funding[i].Amount)
		deltas[i] = delta
		entry := ledger.Entry{
			Account: rec.params.Participants[i],
			Asset:   alloc.Asset,
			Amount:  new(big.Int).Abs(delta),
		}
		switch delta.Sign() {
		case 1:
			locks = append(locks, entry)
		case -1:
			unlocks = append(unlocks, entry)
		}
	}
	if err := c.ledger.Adjust(locks, unlocks); err != nil {
		return err
	}
	for i := range rec.funding {
		rec.funding[i].Amount.Set(candidate.Allocations[i].Amount)
	}
	rec.state = candidate.Clone()

	c.log.Log().WithField("channel", shortID(id)).Debugf("resized at version %d", candidate.Version)
	c.emit(Event{Type: EventTypeResized, ID: id, Version: candidate.Version, Deltas: deltas})
	return nil
}

// Close finalizes a channel and releases its locked funding into the final
// allocation's destination balances. Cooperative path: a fully signed
// FINALIZE candidate approved by the adjudicator. Unilateral path: candidate
// nil after a challenge expired, settling at the recorded challenged state.
func (c *Custody) Close(id channel.ID, candidate *channel.State, proofs []*channel.State) error {
	rec, ok := c.registry.get(id)
	if !ok {
		return ErrChannelNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.status != channel.StatusActive && rec.status != channel.StatusDispute {
		return fmt.Errorf("%w: status %v", ErrWrongStatus, rec.status)
	}

	final := rec.state
	if candidate == nil {
		if rec.status != channel.StatusDispute {
			return fmt.Errorf("%w: unilateral close needs an expired challenge", ErrWrongStatus)
		}
		if c.clock.Now().Before(rec.expiration) {
			return ErrChallengeActive
		}
	} else {
		if candidate.Intent != channel.IntentFinalize {
			return fmt.Errorf("%w: %v", ErrInvalidIntent, candidate.Intent)
		}
		if err := c.validCandidate(rec, id, candidate); err != nil {
			return err
		}
		if adjudicator.CompareStates(rec.adjudicator, candidate, rec.state) < 0 {
			return ErrStaleState
		}
		if err := c.adjudicate(rec, id, candidate, proofs); err != nil {
			return err
		}
		final = candidate
	}

	payout := make([]ledger.Entry, len(final.Allocations))
	for i, alloc := range final.Allocations {
		payout[i] = ledger.Entry{Account: alloc.Destination, Asset: alloc.Asset, Amount: alloc.Amount}
	}
	if err := c.ledger.Settle(rec.funding, payout); err != nil {
		return err
	}

	rec.state = final.Clone()
	rec.status = channel.StatusFinal
	rec.funding = nil
	rec.expiration = time.Time{}
	c.log.Log().WithField("channel", shortID(id)).Debugf("closed at version %d", final.Version)
	c.emit(Event{Type: EventTypeClosed, ID: id, Version: final.Version})
	return nil
}

// adjudicate wraps the adjudicator's verdict into the controller's error
// taxonomy. When the caller supplies no proofs, the recorded state serves as
// the implicit predecessor so the adjudicator always judges the transition
// against an authenticated baseline. Re-submitting the recorded state itself
// needs no verdict; it was adjudicated when it was recorded.
func (c *Custody) adjudicate(rec *Record, id channel.ID, candidate *channel.State, proofs []*channel.State) error {
	if same, err := sameState(id, candidate, rec.state); err == nil && same {
		return nil
	}
	if len(proofs) == 0 {
		proofs = []*channel.State{rec.state}
	}
	if err := rec.adjudicator.Adjudicate(rec.params, candidate, proofs); err != nil {
		return fmt.Errorf("%w: %v", ErrApplicationRuleViolation, err)
	}
	return nil
}

// validCandidate checks the structural requirements shared by checkpoint,
// challenge, resize and cooperative close: version above 0, an allocation per
// participant, and a complete, valid signature set.
func (c *Custody) validCandidate(rec *Record, id channel.ID, candidate *channel.State) error {
	if candidate.Version == 0 {
		return fmt.Errorf("%w: version 0 is reserved for the funding state", ErrStaleState)
	}
	if len(candidate.Allocations) != len(rec.params.Participants) {
		return ErrAllocationMismatch
	}
	full, err := channel.FullySigned(rec.params, id, candidate)
	if err != nil || !full {
		return ErrInvalidSignature
	}
	return nil
}

// validInitialState checks the INITIALIZE requirements of Create.
func validInitialState(params *channel.Params, id channel.ID, initial *channel.State) error {
	if initial.Intent != channel.IntentInitialize {
		return fmt.Errorf("%w: intent %v", ErrInvalidInitialState, initial.Intent)
	}
	if initial.Version != 0 {
		return fmt.Errorf("%w: version %d", ErrInvalidInitialState, initial.Version)
	}
	n := len(params.Participants)
	if len(initial.Allocations) != n || len(initial.Sigs) != n {
		return fmt.Errorf("%w: allocation and signature lists must match participants", ErrInvalidInitialState)
	}
	for i, a := range initial.Allocations {
		if a.Destination == nil || a.Amount == nil || a.Amount.Sign() == -1 {
			return fmt.Errorf("%w: allocation %d", ErrInvalidInitialState, i)
		}
	}
	if initial.Sigs[0] == nil {
		return fmt.Errorf("%w: creator signature missing", ErrInvalidInitialState)
	}
	ok, err := channel.Verify(params.Participants[0], id, initial, initial.Sigs[0])
	if err != nil || !ok {
		return fmt.Errorf("%w: creator signature invalid", ErrInvalidInitialState)
	}
	return nil
}

// sameState reports whether two states share digest and intent.
func sameState(id channel.ID, a, b *channel.State) (bool, error) {
	ha, err := channel.HashState(id, a)
	if err != nil {
		return false, err
	}
	hb, err := channel.HashState(id, b)
	if err != nil {
		return false, err
	}
	return ha == hb && a.Intent == b.Intent, nil
}

func shortID(id channel.ID) string {
	return hex.EncodeToString(id[:4])
}
