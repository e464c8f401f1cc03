package wallet

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/blake2b"
	"perun.network/go-perun/wallet"
)

// Account holds a participant's signing key.
type Account struct {
	key *secp256k1.PrivateKey
}

func (a Account) Address() wallet.Address {
	return NewAddress(a.key.PubKey())
}

// SignData signs the blake2b-256 digest of data and returns the signature in
// its padded fixed length form.
func (a Account) SignData(data []byte) ([]byte, error) {
	hash := blake2b.Sum256(data)
	return PadSignature(ecdsa.Sign(a.key, hash[:]).Serialize())
}

func NewAccount() (*Account, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return &Account{key: key}, nil
}

// NewAccountFromKey wraps an existing private key.
func NewAccountFromKey(key *secp256k1.PrivateKey) *Account {
	return &Account{key: key}
}
