package channel

import (
	"bytes"
	"fmt"
	"golang.org/x/crypto/blake2b"
	"perun.network/go-perun/wallet"

	"github.com/erc7824/nitrolite-go/encoding"
)

// PackParams packs channel parameters into their deterministic binary form.
// The packing is injective: all fields are fixed width except the participant
// list, which is prefixed by its length.
func PackParams(params *Params) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(encoding.PackUint32(uint32(len(params.Participants))))
	for i, p := range params.Participants {
		data, err := p.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("unable to pack participant %d: %w", i, err)
		}
		buf.Write(data)
	}
	buf.Write(params.Adjudicator[:])
	buf.Write(encoding.PackUint64(params.ChallengeDuration))
	buf.Write(encoding.PackUint64(params.Nonce))
	return buf.Bytes(), nil
}

// PackState packs the signed portion of a state: the channel ID, the
// application data, the version and the allocation list. Signatures and the
// intent tag are not part of the digest, so replay protection rests entirely
// on channel ID uniqueness.
func PackState(id ID, state *State) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(id[:])
	buf.Write(encoding.PackUint64(state.Version))
	buf.Write(encoding.PackUint32(uint32(len(state.Data))))
	buf.Write(state.Data)
	buf.Write(encoding.PackUint32(uint32(len(state.Allocations))))
	for i, a := range state.Allocations {
		dest, err := a.Destination.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("unable to pack destination %d: %w", i, err)
		}
		buf.Write(dest)
		buf.Write(a.Asset[:])
		amount, err := encoding.PackUint128(a.Amount)
		if err != nil {
			return nil, fmt.Errorf("unable to pack amount %d: %w", i, err)
		}
		buf.Write(amount)
	}
	return buf.Bytes(), nil
}

// CalcID derives the channel ID from its parameters.
func CalcID(params *Params) (ID, error) {
	packed, err := PackParams(params)
	if err != nil {
		return ID{}, err
	}
	return blake2b.Sum256(packed), nil
}

// HashState computes the digest signatures are made over.
func HashState(id ID, state *State) ([32]byte, error) {
	packed, err := PackState(id, state)
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(packed), nil
}

// Sign signs a state for the given channel with the given account.
func Sign(account wallet.Account, id ID, state *State) (wallet.Sig, error) {
	packed, err := PackState(id, state)
	if err != nil {
		return nil, fmt.Errorf("unable to pack state: %w", err)
	}
	return account.SignData(packed)
}

// Verify reports whether sig is addr's signature over the state's digest.
func Verify(addr wallet.Address, id ID, state *State, sig wallet.Sig) (bool, error) {
	packed, err := PackState(id, state)
	if err != nil {
		return false, fmt.Errorf("unable to pack state: %w", err)
	}
	return wallet.VerifySignature(packed, sig, addr)
}

// FullySigned reports whether every participant has produced a valid
// signature over the state's digest at its own index. It is a pure predicate:
// calling it never mutates the state.
func FullySigned(params *Params, id ID, state *State) (bool, error) {
	if len(state.Sigs) != len(params.Participants) {
		return false, nil
	}
	for i, p := range params.Participants {
		if state.Sigs[i] == nil {
			return false, nil
		}
		ok, err := Verify(p, id, state, state.Sigs[i])
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
