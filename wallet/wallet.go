package wallet

import (
	"errors"
	"perun.network/go-perun/wallet"
	"sync"
)

// EphemeralWallet is an in-memory wallet keyed by address. It is meant for
// tests and local signing setups.
type EphemeralWallet struct {
	lock     sync.Mutex
	accounts map[string]*Account
}

func (e *EphemeralWallet) Unlock(address wallet.Address) (wallet.Account, error) {
	addr, ok := address.(*Address)
	if !ok {
		return nil, errors.New("address is not of type Address")
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	account, ok := e.accounts[addr.String()]
	if !ok {
		return nil, errors.New("account not found")
	}
	return account, nil
}

func (e *EphemeralWallet) LockAll() {}

func (e *EphemeralWallet) IncrementUsage(address wallet.Address) {}

func (e *EphemeralWallet) DecrementUsage(address wallet.Address) {}

func (e *EphemeralWallet) AddNewAccount() (wallet.Account, error) {
	acc, err := NewAccount()
	if err != nil {
		return nil, err
	}
	return acc, e.AddAccount(acc)
}

// AddAccount registers an existing account with the wallet. It errors if an
// account with the same address is already present.
func (e *EphemeralWallet) AddAccount(acc *Account) error {
	key := acc.Address().String()
	e.lock.Lock()
	defer e.lock.Unlock()
	if _, ok := e.accounts[key]; ok {
		return errors.New("account already exists")
	}
	e.accounts[key] = acc
	return nil
}

func NewEphemeralWallet() *EphemeralWallet {
	return &EphemeralWallet{
		accounts: make(map[string]*Account),
	}
}
