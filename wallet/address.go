package wallet

import (
	"encoding/hex"
	"errors"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"perun.network/go-perun/wallet"
)

// AddressLen is the length of a binary address: a compressed SEC1 encoded
// secp256k1 public key.
const AddressLen = 33

// Address identifies a channel participant by its secp256k1 public key.
// It implements go-perun's wallet.Address.
type Address struct {
	pubKey *secp256k1.PublicKey
}

func NewAddress(pubKey *secp256k1.PublicKey) *Address {
	return &Address{pubKey: pubKey}
}

func (a Address) PubKey() *secp256k1.PublicKey {
	return a.pubKey
}

func (a Address) MarshalBinary() ([]byte, error) {
	if a.pubKey == nil {
		return nil, errors.New("address has no public key")
	}
	return a.pubKey.SerializeCompressed(), nil
}

func (a *Address) UnmarshalBinary(data []byte) error {
	if len(data) != AddressLen {
		return errors.New("invalid address length")
	}
	pubKey, err := secp256k1.ParsePubKey(data)
	if err != nil {
		return err
	}
	a.pubKey = pubKey
	return nil
}

func (a Address) String() string {
	if a.pubKey == nil {
		return "<zero address>"
	}
	return hex.EncodeToString(a.pubKey.SerializeCompressed())
}

func (a Address) Equal(address wallet.Address) bool {
	addr, ok := address.(*Address)
	if !ok {
		return false
	}
	if a.pubKey == nil || addr.pubKey == nil {
		return a.pubKey == addr.pubKey
	}
	return a.pubKey.IsEqual(addr.pubKey)
}

func GetZeroAddress() *Address {
	return &Address{pubKey: secp256k1.NewPublicKey(new(secp256k1.FieldVal), new(secp256k1.FieldVal))}
}
