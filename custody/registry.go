package custody

import (
	"fmt"
	"polycry.pt/poly-go/sync"
	"time"

	"github.com/erc7824/nitrolite-go/adjudicator"
	"github.com/erc7824/nitrolite-go/channel"
	"github.com/erc7824/nitrolite-go/ledger"
)

// Record is the mutable per-channel state owned by the controller. Its mutex
// serializes all lifecycle operations for one channel; operations on
// different channels proceed in parallel.
type Record struct {
	mu sync.Mutex

	params      *channel.Params
	adjudicator adjudicator.Adjudicator
	status      channel.Status
	state       *channel.State // latest checkpointed or candidate state
	funding     []ledger.Entry // locked share per participant index
	expiration  time.Time      // set while status is StatusDispute
}

// registry is the keyed store of channel records. Creation is
// write-once per ID: a record is never replaced once inserted.
type registry struct {
	mu      sync.Mutex
	records map[channel.ID]*Record
}

func newRegistry() *registry {
	return &registry{records: make(map[channel.ID]*Record)}
}

func (r *registry) get(id channel.ID) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	return rec, ok
}

func (r *registry) create(id channel.ID, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; ok {
		return ErrChannelAlreadyExists
	}
	r.records[id] = rec
	return nil
}

// adjudicators maps adjudicator identifiers to their capabilities. Like the
// record registry it is stable: an identifier can not be re-bound to a
// different adjudicator.
type adjudicators struct {
	mu       sync.Mutex
	registry map[channel.AdjudicatorID]adjudicator.Adjudicator
}

func newAdjudicators() *adjudicators {
	return &adjudicators{registry: make(map[channel.AdjudicatorID]adjudicator.Adjudicator)}
}

func (a *adjudicators) register(id channel.AdjudicatorID, adj adjudicator.Adjudicator) error {
	if adj == nil {
		return fmt.Errorf("nil adjudicator")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if bound, ok := a.registry[id]; ok {
		if bound == adj {
			return nil
		}
		return fmt.Errorf("adjudicator identifier already bound")
	}
	a.registry[id] = adj
	return nil
}

func (a *adjudicators) resolve(id channel.AdjudicatorID) (adjudicator.Adjudicator, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	adj, ok := a.registry[id]
	if !ok {
		return nil, ErrUnknownAdjudicator
	}
	return adj, nil
}
