package wallet

import (
	"errors"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/blake2b"
	"io"
	"perun.network/go-perun/wallet"
)

type backend struct{}

var Backend = backend{}

func init() {
	wallet.SetBackend(Backend)
}

func (b backend) NewAddress() wallet.Address {
	return &Address{}
}

// DecodeSig reads a signature in its padded fixed length form. The signature
// is returned still padded, as VerifySignature expects a padded signature.
func (b backend) DecodeSig(reader io.Reader) (wallet.Sig, error) {
	sig := make([]byte, SigLen)
	if _, err := io.ReadFull(reader, sig); err != nil {
		return nil, err
	}
	return sig, nil
}

// VerifySignature reports whether sig is a valid signature by a over the
// blake2b-256 digest of msg. It expects the plain message, not the digest,
// and a padded signature. Malformed signatures yield false, never a panic.
func (b backend) VerifySignature(msg []byte, sig wallet.Sig, a wallet.Address) (bool, error) {
	addr, ok := a.(*Address)
	if !ok {
		return false, errors.New("address is not of type Address")
	}
	der, err := StripSignature(sig)
	if err != nil {
		return false, err
	}
	signature, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return false, err
	}
	hash := blake2b.Sum256(msg)
	return signature.Verify(hash[:], addr.PubKey()), nil
}
