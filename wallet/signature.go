package wallet

import (
	"errors"
	"fmt"
)

// SigLen is the fixed length of a signature in its padded form.
//
// DER encoded secp256k1 signatures are variable length (at most 72 bytes).
// The rest of the module requires fixed length signatures, so a signature is
// padded to SigLen bytes by appending a single sigMarker byte followed by
// zero bytes. The marker makes the padding removable without knowing the DER
// length up front.
const SigLen = 73

const (
	sigMarker byte = 0xff
	sigFiller byte = 0x00
)

// PadSignature brings a DER encoded signature into its fixed length form.
func PadSignature(der []byte) ([]byte, error) {
	if len(der) >= SigLen {
		return nil, fmt.Errorf("DER signature too long: %d bytes", len(der))
	}
	padded := make([]byte, SigLen)
	copy(padded, der)
	padded[len(der)] = sigMarker
	return padded, nil
}

// StripSignature returns the DER encoded signature contained in a padded
// signature. The returned slice aliases sig.
func StripSignature(sig []byte) ([]byte, error) {
	if len(sig) != SigLen {
		return nil, fmt.Errorf("padded signature must be %d bytes, got %d", SigLen, len(sig))
	}
	for i := len(sig) - 1; i >= 0; i-- {
		switch sig[i] {
		case sigMarker:
			return sig[:i], nil
		case sigFiller:
		default:
			return nil, errors.New("malformed signature padding")
		}
	}
	return nil, errors.New("signature padding marker missing")
}
