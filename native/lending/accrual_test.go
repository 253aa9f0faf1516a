package lending

import (
	"testing"

	"github.com/holiman/uint256"

	"corelend/native/fixedmath"
)

func TestAccrueNoTimeElapsedIsNoop(t *testing.T) {
	env := newTestEnv(t)
	asset := makeAddr(0x10)
	env.listAsset(t, asset, standardConfig())
	env.supply(t, asset, depositor, 1_000)

	before, _ := env.state.Reserve(asset)
	// A second operation in the same instant must observe the same indices.
	env.supply(t, asset, depositor, 1)
	after, _ := env.state.Reserve(asset)

	if before.LiquidityIndex.Cmp(after.LiquidityIndex) != 0 {
		t.Fatalf("liquidity index moved without time: %s -> %s", before.LiquidityIndex, after.LiquidityIndex)
	}
	if before.VariableBorrowIndex.Cmp(after.VariableBorrowIndex) != 0 {
		t.Fatalf("borrow index moved without time: %s -> %s", before.VariableBorrowIndex, after.VariableBorrowIndex)
	}
}

func TestAccrualIndexesMonotonic(t *testing.T) {
	env := newTestEnv(t)
	collateral := makeAddr(0x10)
	debt := makeAddr(0x11)
	env.listAsset(t, collateral, standardConfig())
	env.listAsset(t, debt, standardConfig())
	env.supply(t, debt, depositor, 10_000)
	env.supply(t, collateral, borrower, 10_000)
	if err := env.engine.Borrow(debt, borrower, borrower, tokens(5_000)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	prevLiquidity := new(uint256.Int).Set(fixedmath.Ray)
	prevBorrow := new(uint256.Int).Set(fixedmath.Ray)
	for i := 0; i < 4; i++ {
		env.clock.Advance(30 * 24 * 60 * 60)
		// Touch the reserve so the indices are persisted.
		env.supply(t, debt, depositor, 1)

		r, _ := env.state.Reserve(debt)
		if !r.LiquidityIndex.Gt(prevLiquidity) {
			t.Fatalf("step %d: liquidity index not increasing: %s", i, r.LiquidityIndex)
		}
		if !r.VariableBorrowIndex.Gt(prevBorrow) {
			t.Fatalf("step %d: borrow index not increasing: %s", i, r.VariableBorrowIndex)
		}
		// Borrowers compound faster than suppliers earn: the reserve factor
		// and idle liquidity both dilute the supply side.
		if !r.VariableBorrowIndex.Gt(r.LiquidityIndex) {
			t.Fatalf("step %d: borrow index %s not above liquidity index %s", i, r.VariableBorrowIndex, r.LiquidityIndex)
		}
		prevLiquidity.Set(r.LiquidityIndex)
		prevBorrow.Set(r.VariableBorrowIndex)
	}
}

func TestAccrualBooksTreasuryShare(t *testing.T) {
	env := newTestEnv(t)
	collateral := makeAddr(0x10)
	debt := makeAddr(0x11)
	env.listAsset(t, collateral, standardConfig())
	env.listAsset(t, debt, standardConfig())
	env.supply(t, debt, depositor, 10_000)
	env.supply(t, collateral, borrower, 10_000)
	if err := env.engine.Borrow(debt, borrower, borrower, tokens(8_000)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	env.clock.Advance(fixedmath.SecondsPerYear)
	env.supply(t, debt, depositor, 1)

	r, _ := env.state.Reserve(debt)
	if r.AccruedToTreasury.IsZero() {
		t.Fatalf("expected treasury accrual after a year at 10%% reserve factor")
	}

	// The treasury share must be 10% of the borrow-side growth, valued at
	// the fresh liquidity index.
	debts, _ := env.ledgers.Debts(debt)
	grown, err := fixedmath.RayMul(debts.ScaledTotalSupply(), r.VariableBorrowIndex)
	if err != nil {
		t.Fatalf("ray mul: %v", err)
	}
	interest := new(uint256.Int).Sub(grown, tokens(8_000))
	expectedShare, err := fixedmath.PercentMul(interest, 1_000)
	if err != nil {
		t.Fatalf("percent mul: %v", err)
	}
	treasuryValue, err := fixedmath.RayMul(r.AccruedToTreasury, r.LiquidityIndex)
	if err != nil {
		t.Fatalf("ray mul: %v", err)
	}
	diff := new(uint256.Int)
	if treasuryValue.Gt(expectedShare) {
		diff.Sub(treasuryValue, expectedShare)
	} else {
		diff.Sub(expectedShare, treasuryValue)
	}
	// A few wei of rounding across the two index conversions is expected.
	if diff.GtUint64(1_000) {
		t.Fatalf("treasury share off: got %s want %s", treasuryValue, expectedShare)
	}
}

func TestNormalizedFactorsMatchAccrual(t *testing.T) {
	env := newTestEnv(t)
	collateral := makeAddr(0x10)
	debt := makeAddr(0x11)
	env.listAsset(t, collateral, standardConfig())
	env.listAsset(t, debt, standardConfig())
	env.supply(t, debt, depositor, 10_000)
	env.supply(t, collateral, borrower, 10_000)
	if err := env.engine.Borrow(debt, borrower, borrower, tokens(5_000)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	env.clock.Advance(fixedmath.SecondsPerYear / 2)

	r, _ := env.state.Reserve(debt)
	income, err := env.engine.NormalizedIncome(r)
	if err != nil {
		t.Fatalf("normalized income: %v", err)
	}
	ndebt, err := env.engine.NormalizedDebt(r)
	if err != nil {
		t.Fatalf("normalized debt: %v", err)
	}

	// Persist an accrual and compare against the read-only projection.
	env.supply(t, debt, depositor, 1)
	r, _ = env.state.Reserve(debt)
	if r.LiquidityIndex.Cmp(income) != 0 {
		t.Fatalf("projected income %s != accrued index %s", income, r.LiquidityIndex)
	}
	if r.VariableBorrowIndex.Cmp(ndebt) != 0 {
		t.Fatalf("projected debt %s != accrued index %s", ndebt, r.VariableBorrowIndex)
	}
}
