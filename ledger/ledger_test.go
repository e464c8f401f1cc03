package ledger_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	pkgtest "polycry.pt/poly-go/test"

	"github.com/erc7824/nitrolite-go/channel"
	ctest "github.com/erc7824/nitrolite-go/channel/test"
	"github.com/erc7824/nitrolite-go/ledger"
)

func equalAmount(t *testing.T, want int64, got *big.Int, msgAndArgs ...interface{}) {
	t.Helper()
	require.Zero(t, got.Cmp(big.NewInt(want)), msgAndArgs...)
}

func TestDepositWithdraw(t *testing.T) {
	rng := pkgtest.Prng(t)
	l := ledger.NewLedger()
	acc := ctest.NewRandomAddress(rng)
	asset := ctest.NewRandomAsset(rng)

	require.NoError(t, l.Deposit(acc, asset, big.NewInt(100)))
	equalAmount(t, 100, l.Available(acc, asset))

	require.NoError(t, l.Withdraw(acc, asset, big.NewInt(40)))
	equalAmount(t, 60, l.Available(acc, asset))

	err := l.Withdraw(acc, asset, big.NewInt(61))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	equalAmount(t, 60, l.Available(acc, asset), "failed withdraw must not mutate")

	require.Error(t, l.Deposit(acc, asset, big.NewInt(-1)))
}

func TestLockedFundsAreUnavailable(t *testing.T) {
	rng := pkgtest.Prng(t)
	l := ledger.NewLedger()
	acc := ctest.NewRandomAddress(rng)
	asset := channel.ZeroAsset

	require.NoError(t, l.Deposit(acc, asset, big.NewInt(100)))
	require.NoError(t, l.Lock(acc, asset, big.NewInt(70)))
	equalAmount(t, 30, l.Available(acc, asset))
	equalAmount(t, 70, l.Locked(acc, asset))

	err := l.Withdraw(acc, asset, big.NewInt(31))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	err = l.Lock(acc, asset, big.NewInt(31))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	require.NoError(t, l.Unlock(acc, asset, big.NewInt(70)))
	equalAmount(t, 100, l.Available(acc, asset))
	equalAmount(t, 0, l.Locked(acc, asset))

	err = l.Unlock(acc, asset, big.NewInt(1))
	require.ErrorIs(t, err, ledger.ErrInsufficientLock)
}

func TestAdjustAtomicity(t *testing.T) {
	rng := pkgtest.Prng(t)
	l := ledger.NewLedger()
	accA := ctest.NewRandomAddress(rng)
	accB := ctest.NewRandomAddress(rng)
	asset := channel.ZeroAsset

	require.NoError(t, l.Deposit(accA, asset, big.NewInt(50)))
	require.NoError(t, l.Deposit(accB, asset, big.NewInt(10)))
	require.NoError(t, l.Lock(accB, asset, big.NewInt(10)))

	// The lock for B exceeds its available balance, so the whole batch,
	// including the unlock, must not apply.
	err := l.Adjust(
		[]ledger.Entry{{Account: accB, Asset: asset, Amount: big.NewInt(1)}},
		[]ledger.Entry{{Account: accB, Asset: asset, Amount: big.NewInt(5)}},
	)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	equalAmount(t, 0, l.Available(accB, asset))
	equalAmount(t, 10, l.Locked(accB, asset))

	require.NoError(t, l.Adjust(
		[]ledger.Entry{{Account: accA, Asset: asset, Amount: big.NewInt(30)}},
		[]ledger.Entry{{Account: accB, Asset: asset, Amount: big.NewInt(10)}},
	))
	equalAmount(t, 20, l.Available(accA, asset))
	equalAmount(t, 30, l.Locked(accA, asset))
	equalAmount(t, 10, l.Available(accB, asset))
}

func TestSettleRedistributes(t *testing.T) {
	rng := pkgtest.Prng(t)
	l := ledger.NewLedger()
	accA := ctest.NewRandomAddress(rng)
	accB := ctest.NewRandomAddress(rng)
	asset := channel.ZeroAsset

	require.NoError(t, l.Deposit(accA, asset, big.NewInt(100)))
	require.NoError(t, l.Deposit(accB, asset, big.NewInt(50)))
	require.NoError(t, l.Lock(accA, asset, big.NewInt(100)))
	require.NoError(t, l.Lock(accB, asset, big.NewInt(50)))

	funding := []ledger.Entry{
		{Account: accA, Asset: asset, Amount: big.NewInt(100)},
		{Account: accB, Asset: asset, Amount: big.NewInt(50)},
	}
	payout := []ledger.Entry{
		{Account: accA, Asset: asset, Amount: big.NewInt(90)},
		{Account: accB, Asset: asset, Amount: big.NewInt(60)},
	}
	require.NoError(t, l.Settle(funding, payout))
	equalAmount(t, 90, l.Available(accA, asset))
	equalAmount(t, 60, l.Available(accB, asset))
	equalAmount(t, 0, l.Locked(accA, asset))
	equalAmount(t, 0, l.Locked(accB, asset))

	// A second settle of the same funding must fail: no double unlock.
	require.ErrorIs(t, l.Settle(funding, payout), ledger.ErrInsufficientLock)
}

func TestSettleMustBalance(t *testing.T) {
	rng := pkgtest.Prng(t)
	l := ledger.NewLedger()
	acc := ctest.NewRandomAddress(rng)
	asset := channel.ZeroAsset

	require.NoError(t, l.Deposit(acc, asset, big.NewInt(10)))
	require.NoError(t, l.Lock(acc, asset, big.NewInt(10)))

	err := l.Settle(
		[]ledger.Entry{{Account: acc, Asset: asset, Amount: big.NewInt(10)}},
		[]ledger.Entry{{Account: acc, Asset: asset, Amount: big.NewInt(11)}},
	)
	require.Error(t, err)
	equalAmount(t, 10, l.Locked(acc, asset))
}
