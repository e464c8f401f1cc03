package encoding

import (
	"errors"
	"github.com/Pilatuz/bigz/uint128"
	"math/big"
)

// Uint128Len is the packed length of an amount.
const Uint128Len = 16

// ToUint128 converts a non-negative big integer into a uint128. It errors on
// negative values and on values exceeding 2^128-1.
func ToUint128(x *big.Int) (uint128.Uint128, error) {
	if x == nil {
		return uint128.Uint128{}, errors.New("nil amount")
	}
	if x.Sign() == -1 {
		return uint128.Uint128{}, errors.New("uint128 underflow")
	}
	if x.Cmp(uint128.Max().Big()) == 1 {
		return uint128.Uint128{}, errors.New("uint128 overflow")
	}
	return uint128.FromBig(x), nil
}

// PackUint128 packs a non-negative big integer into its 16 byte little-endian
// form.
func PackUint128(x *big.Int) ([]byte, error) {
	u, err := ToUint128(x)
	if err != nil {
		return nil, err
	}
	b := make([]byte, Uint128Len)
	uint128.StoreLittleEndian(b, u)
	return b, nil
}

// UnpackUint128 reads a 16 byte little-endian amount.
func UnpackUint128(b []byte) (*big.Int, error) {
	if len(b) != Uint128Len {
		return nil, errors.New("packed uint128 must be 16 bytes")
	}
	return uint128.LoadLittleEndian(b).Big(), nil
}
