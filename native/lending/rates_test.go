package lending

import (
	"testing"

	"github.com/holiman/uint256"

	"corelend/native/fixedmath"
)

func rayPercent(bps uint64) *uint256.Int {
	v := new(uint256.Int).Mul(fixedmath.Ray, uint256.NewInt(bps))
	return v.Div(v, fixedmath.PercentageFactor)
}

func TestRatesZeroDebtCollapsesToBase(t *testing.T) {
	s := DefaultRateStrategy()
	liquidity, borrow, err := s.Rates(RateInput{VirtualBalance: tokens(1_000)})
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if !liquidity.IsZero() {
		t.Fatalf("expected zero liquidity rate, got %s", liquidity)
	}
	if borrow.Cmp(rayPercent(200)) != 0 {
		t.Fatalf("expected 2%% base borrow rate, got %s", borrow)
	}
}

func TestRatesBelowKink(t *testing.T) {
	s := DefaultRateStrategy()
	// 400 debt against 600 available: 40% utilization.
	_, borrow, err := s.Rates(RateInput{
		TotalDebt:      tokens(400),
		VirtualBalance: tokens(600),
	})
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	// 2% + 15% * 0.4 = 8%.
	if borrow.Cmp(rayPercent(800)) != 0 {
		t.Fatalf("unexpected borrow rate: got %s want %s", borrow, rayPercent(800))
	}
}

func TestRatesAboveKink(t *testing.T) {
	s := DefaultRateStrategy()
	// 90% utilization: 2% + 15%*0.8 + 60%*0.1 = 20%.
	_, borrow, err := s.Rates(RateInput{
		TotalDebt:      tokens(900),
		VirtualBalance: tokens(100),
	})
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if borrow.Cmp(rayPercent(2_000)) != 0 {
		t.Fatalf("unexpected borrow rate: got %s want %s", borrow, rayPercent(2_000))
	}
}

func TestRatesLiquiditySideNetsReserveFactor(t *testing.T) {
	s := DefaultRateStrategy()
	// 50% utilization, 10% reserve factor: borrow 9.5%, suppliers earn
	// 9.5% * 0.5 * 0.9 = 4.275%.
	liquidity, borrow, err := s.Rates(RateInput{
		TotalDebt:      tokens(500),
		VirtualBalance: tokens(500),
		ReserveFactor:  1_000,
	})
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if borrow.Cmp(rayPercent(950)) != 0 {
		t.Fatalf("unexpected borrow rate: got %s", borrow)
	}
	half, err := fixedmath.RayMul(borrow, rayPercent(5_000))
	if err != nil {
		t.Fatalf("ray mul: %v", err)
	}
	want, err := fixedmath.PercentMul(half, 9_000)
	if err != nil {
		t.Fatalf("percent mul: %v", err)
	}
	if liquidity.Cmp(want) != 0 {
		t.Fatalf("unexpected liquidity rate: got %s want %s", liquidity, want)
	}
}

func TestRatesAppliesPendingDelta(t *testing.T) {
	s := DefaultRateStrategy()
	// A pending withdrawal shrinks available liquidity before the
	// utilization is measured: 500/(250+500) ≈ 66.7%.
	_, withTaken, err := s.Rates(RateInput{
		TotalDebt:      tokens(500),
		VirtualBalance: tokens(500),
		LiquidityTaken: tokens(250),
	})
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	_, without, err := s.Rates(RateInput{
		TotalDebt:      tokens(500),
		VirtualBalance: tokens(500),
	})
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if !withTaken.Gt(without) {
		t.Fatalf("pending withdrawal must raise the borrow rate")
	}

	if _, _, err := s.Rates(RateInput{
		TotalDebt:      tokens(500),
		VirtualBalance: tokens(100),
		LiquidityTaken: tokens(200),
	}); err == nil {
		t.Fatalf("expected rejection when the delta exceeds liquidity")
	}
}
