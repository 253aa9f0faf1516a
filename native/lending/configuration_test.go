package lending

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestReserveConfigurationValidate(t *testing.T) {
	cfg := standardConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("standard config must validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*ReserveConfiguration)
	}{
		{"ltv above factor", func(c *ReserveConfiguration) { c.LTV = 10_001 }},
		{"ltv above threshold", func(c *ReserveConfiguration) { c.LTV = 9_000; c.LiquidationThreshold = 8_000 }},
		{"bonus at par", func(c *ReserveConfiguration) { c.LiquidationBonus = 10_000 }},
		{"bonus above cap", func(c *ReserveConfiguration) { c.LiquidationBonus = 20_001 }},
		{"decimals out of range", func(c *ReserveConfiguration) { c.Decimals = 37 }},
		{"reserve factor above factor", func(c *ReserveConfiguration) { c.ReserveFactor = 10_001 }},
		{"supply cap overflows field", func(c *ReserveConfiguration) { c.SupplyCap = 1 << 36 }},
		{"debt ceiling overflows field", func(c *ReserveConfiguration) { c.DebtCeiling = 1 << 40 }},
	}
	for _, tc := range cases {
		bad := standardConfig()
		tc.mutate(&bad)
		if err := bad.Validate(); err == nil {
			t.Fatalf("%s: expected validation failure", tc.name)
		}
	}

	// A non-collateral listing carries no bonus at all.
	plain := ReserveConfiguration{Decimals: 6, Active: true, BorrowingEnabled: true}
	if err := plain.Validate(); err != nil {
		t.Fatalf("threshold-free config must validate: %v", err)
	}
}

func TestReserveConfigurationPackRoundTrip(t *testing.T) {
	cfg := ReserveConfiguration{
		LTV:                    7_500,
		LiquidationThreshold:   8_000,
		LiquidationBonus:       10_750,
		Decimals:               6,
		Active:                 true,
		Frozen:                 true,
		BorrowingEnabled:       true,
		BorrowableInIsolation:  true,
		Siloed:                 true,
		FlashLoanEnabled:       true,
		ReserveFactor:          2_000,
		BorrowCap:              12_345_678,
		SupplyCap:              987_654_321,
		LiquidationProtocolFee: 500,
		DebtCeiling:            5_000_000,
	}
	got := UnpackReserveConfiguration(cfg.Pack())
	if got != cfg {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestReserveConfigurationPackedBitPositions(t *testing.T) {
	cfg := ReserveConfiguration{Active: true, Paused: true, Decimals: 18}
	word := cfg.Pack()

	active := new(uint256.Int).Rsh(word, 56)
	if active.Uint64()&1 != 1 {
		t.Fatalf("active flag not at bit 56")
	}
	paused := new(uint256.Int).Rsh(word, 60)
	if paused.Uint64()&1 != 1 {
		t.Fatalf("paused flag not at bit 60")
	}
	decimals := new(uint256.Int).Rsh(word, 48)
	if decimals.Uint64()&0xff != 18 {
		t.Fatalf("decimals not at bit 48: %d", decimals.Uint64()&0xff)
	}
}
