// Package ledger implements the custody ledger: per-account, per-asset
// available balances, kept strictly separate from amounts locked inside open
// channels. The lifecycle controller consults the ledger; it does not own it.
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"polycry.pt/poly-go/sync"

	"github.com/erc7824/nitrolite-go/channel"
	"github.com/erc7824/nitrolite-go/wallet"
)

var (
	ErrInsufficientFunds = errors.New("insufficient available funds")
	ErrInsufficientLock  = errors.New("insufficient locked funds")
	ErrInvalidAmount     = errors.New("amount must be a non-negative integer")
)

// Entry names an amount of an asset held for an account. It is used both for
// funding entries (Account is the participant whose funds are locked) and for
// payout entries (Account is the destination credited).
type Entry struct {
	Account *wallet.Address
	Asset   channel.Asset
	Amount  *big.Int
}

type key struct {
	account string
	asset   channel.Asset
}

type balance struct {
	available *big.Int
	locked    *big.Int
}

// Ledger tracks available and locked funds. All operations are atomic: a
// batch either applies completely or leaves the ledger untouched.
type Ledger struct {
	mu      sync.Mutex
	entries map[key]*balance
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[key]*balance)}
}

func (l *Ledger) get(acc *wallet.Address, asset channel.Asset) *balance {
	k := key{account: acc.String(), asset: asset}
	b, ok := l.entries[k]
	if !ok {
		b = &balance{available: new(big.Int), locked: new(big.Int)}
		l.entries[k] = b
	}
	return b
}

// Deposit credits amount to the account's available balance.
func (l *Ledger) Deposit(acc *wallet.Address, asset channel.Asset, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.get(acc, asset)
	b.available.Add(b.available, amount)
	return nil
}

// Withdraw debits amount from the account's available balance. Locked funds
// are never touched.
func (l *Ledger) Withdraw(acc *wallet.Address, asset channel.Asset, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.get(acc, asset)
	if b.available.Cmp(amount) == -1 {
		return fmt.Errorf("withdraw %v: %w", amount, ErrInsufficientFunds)
	}
	b.available.Sub(b.available, amount)
	return nil
}

// Lock moves amount from the account's available balance into its locked
// balance.
func (l *Ledger) Lock(acc *wallet.Address, asset channel.Asset, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.adjust([]Entry{{Account: acc, Asset: asset, Amount: amount}}, nil)
}

// Unlock moves amount from the account's locked balance back into its
// available balance.
func (l *Ledger) Unlock(acc *wallet.Address, asset channel.Asset, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.adjust(nil, []Entry{{Account: acc, Asset: asset, Amount: amount}})
}

// Adjust applies a batch of locks and unlocks atomically. Either every entry
// applies or none does.
func (l *Ledger) Adjust(locks, unlocks []Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.adjust(locks, unlocks)
}

// Settle atomically releases the funding locked for a channel into the payout
// balances of the final allocation. The funding entries name whose locked
// balances are debited; the payout entries name which available balances are
// credited. Funding and payout totals must match per asset.
func (l *Ledger) Settle(funding, payout []Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	totals := make(map[channel.Asset]*big.Int)
	for _, e := range funding {
		if err := validAmount(e.Amount); err != nil {
			return err
		}
		if l.get(e.Account, e.Asset).locked.Cmp(e.Amount) == -1 {
			return fmt.Errorf("settle %s: %w", e.Account, ErrInsufficientLock)
		}
		addTotal(totals, e.Asset, e.Amount)
	}
	for _, e := range payout {
		if err := validAmount(e.Amount); err != nil {
			return err
		}
		subTotal(totals, e.Asset, e.Amount)
	}
	for asset, total := range totals {
		if total.Sign() != 0 {
			return fmt.Errorf("settlement does not balance for asset %x", asset[:4])
		}
	}

	for _, e := range funding {
		b := l.get(e.Account, e.Asset)
		b.locked.Sub(b.locked, e.Amount)
	}
	for _, e := range payout {
		b := l.get(e.Account, e.Asset)
		b.available.Add(b.available, e.Amount)
	}
	return nil
}

// Available returns a copy of the account's available balance.
func (l *Ledger) Available(acc *wallet.Address, asset channel.Asset) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.get(acc, asset).available)
}

// Locked returns a copy of the account's locked balance.
func (l *Ledger) Locked(acc *wallet.Address, asset channel.Asset) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.get(acc, asset).locked)
}

// adjust must be called with the ledger mutex held. It verifies the whole
// batch before mutating anything. Funding entries locked per channel come
// from distinct accounts; repeated entries for the same account and asset are
// summed during verification.
func (l *Ledger) adjust(locks, unlocks []Entry) error {
	needAvail := make(map[key]*big.Int)
	needLocked := make(map[key]*big.Int)
	for _, e := range locks {
		if err := validAmount(e.Amount); err != nil {
			return err
		}
		k := key{account: e.Account.String(), asset: e.Asset}
		if needAvail[k] == nil {
			needAvail[k] = new(big.Int)
		}
		needAvail[k].Add(needAvail[k], e.Amount)
	}
	for _, e := range unlocks {
		if err := validAmount(e.Amount); err != nil {
			return err
		}
		k := key{account: e.Account.String(), asset: e.Asset}
		if needLocked[k] == nil {
			needLocked[k] = new(big.Int)
		}
		needLocked[k].Add(needLocked[k], e.Amount)
	}
	for _, e := range locks {
		k := key{account: e.Account.String(), asset: e.Asset}
		if l.get(e.Account, e.Asset).available.Cmp(needAvail[k]) == -1 {
			return fmt.Errorf("lock for %s: %w", e.Account, ErrInsufficientFunds)
		}
	}
	for _, e := range unlocks {
		k := key{account: e.Account.String(), asset: e.Asset}
		if l.get(e.Account, e.Asset).locked.Cmp(needLocked[k]) == -1 {
			return fmt.Errorf("unlock for %s: %w", e.Account, ErrInsufficientLock)
		}
	}

	for _, e := range locks {
		b := l.get(e.Account, e.Asset)
		b.available.Sub(b.available, e.Amount)
		b.locked.Add(b.locked, e.Amount)
	}
	for _, e := range unlocks {
		b := l.get(e.Account, e.Asset)
		b.locked.Sub(b.locked, e.Amount)
		b.available.Add(b.available, e.Amount)
	}
	return nil
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() == -1 {
		return ErrInvalidAmount
	}
	return nil
}

func addTotal(totals map[channel.Asset]*big.Int, asset channel.Asset, amount *big.Int) {
	if totals[asset] == nil {
		totals[asset] = new(big.Int)
	}
	totals[asset].Add(totals[asset], amount)
}

func subTotal(totals map[channel.Asset]*big.Int, asset channel.Asset, amount *big.Int) {
	if totals[asset] == nil {
		totals[asset] = new(big.Int)
	}
	totals[asset].Sub(totals[asset], amount)
}
