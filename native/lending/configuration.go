package lending

import (
	"fmt"

	"github.com/holiman/uint256"
)

// ReserveConfiguration carries the risk and policy parameters of a reserve as
// plain typed fields. The packed bit-field form only exists at the
// serialization boundary (Pack/Unpack); nothing else in the engine performs
// raw bit manipulation on reserve parameters.
type ReserveConfiguration struct {
	// LTV, LiquidationThreshold, LiquidationBonus and ReserveFactor are
	// expressed in basis points. A liquidation bonus of 10_500 grants the
	// liquidator 105% of the repaid value in collateral.
	LTV                    uint64
	LiquidationThreshold   uint64
	LiquidationBonus       uint64
	Decimals               uint8
	Active                 bool
	Frozen                 bool
	Paused                 bool
	BorrowingEnabled       bool
	BorrowableInIsolation  bool
	Siloed                 bool
	FlashLoanEnabled       bool
	ReserveFactor          uint64
	// BorrowCap and SupplyCap are whole-token amounts; zero disables the cap.
	BorrowCap uint64
	SupplyCap uint64
	// LiquidationProtocolFee is the basis-point share of the liquidation
	// bonus routed to the treasury.
	LiquidationProtocolFee uint64
	// DebtCeiling is expressed in debt-ceiling-decimal units (see
	// DebtCeilingDecimals); non-zero marks the reserve as isolation-capped.
	DebtCeiling uint64
}

// Bit layout of the packed configuration word. Kept bit-compatible with the
// original on-chain encoding so externally produced words round-trip.
const (
	ltvShift              = 0
	liqThresholdShift     = 16
	liqBonusShift         = 32
	decimalsShift         = 48
	activeBit             = 56
	frozenBit             = 57
	borrowingBit          = 58
	pausedBit             = 60
	borrowableInIsoBit    = 61
	siloedBit             = 62
	flashloanBit          = 63
	reserveFactorShift    = 64
	borrowCapShift        = 80
	supplyCapShift        = 116
	liqProtocolFeeShift   = 152
	debtCeilingShift      = 212

	mask16 = (1 << 16) - 1
	mask36 = (1 << 36) - 1
	mask40 = (1 << 40) - 1
)

const (
	maxValidPercent = 10_000
	// Liquidation bonus is stored as 100% + premium, so the valid range
	// starts above the percentage factor.
	maxValidBonus    = 20_000
	maxValidDecimals = 36
)

// Validate rejects out-of-range parameters at the configuration boundary so
// they are never persisted.
func (c ReserveConfiguration) Validate() error {
	if c.LTV > maxValidPercent {
		return fmt.Errorf("reserve config: ltv %d exceeds %d", c.LTV, maxValidPercent)
	}
	if c.LiquidationThreshold > maxValidPercent {
		return fmt.Errorf("reserve config: liquidation threshold %d exceeds %d", c.LiquidationThreshold, maxValidPercent)
	}
	if c.LTV > c.LiquidationThreshold {
		return fmt.Errorf("reserve config: ltv %d exceeds liquidation threshold %d", c.LTV, c.LiquidationThreshold)
	}
	if c.LiquidationThreshold != 0 {
		if c.LiquidationBonus <= maxValidPercent {
			return fmt.Errorf("reserve config: liquidation bonus %d must exceed %d", c.LiquidationBonus, maxValidPercent)
		}
		if c.LiquidationBonus > maxValidBonus {
			return fmt.Errorf("reserve config: liquidation bonus %d exceeds %d", c.LiquidationBonus, maxValidBonus)
		}
	}
	if c.Decimals > maxValidDecimals {
		return fmt.Errorf("reserve config: decimals %d exceeds %d", c.Decimals, maxValidDecimals)
	}
	if c.ReserveFactor > maxValidPercent {
		return fmt.Errorf("reserve config: reserve factor %d exceeds %d", c.ReserveFactor, maxValidPercent)
	}
	if c.LiquidationProtocolFee > maxValidPercent {
		return fmt.Errorf("reserve config: liquidation protocol fee %d exceeds %d", c.LiquidationProtocolFee, maxValidPercent)
	}
	if c.BorrowCap > mask36 {
		return fmt.Errorf("reserve config: borrow cap %d exceeds field width", c.BorrowCap)
	}
	if c.SupplyCap > mask36 {
		return fmt.Errorf("reserve config: supply cap %d exceeds field width", c.SupplyCap)
	}
	if c.DebtCeiling > mask40 {
		return fmt.Errorf("reserve config: debt ceiling %d exceeds field width", c.DebtCeiling)
	}
	return nil
}

// Pack serializes the configuration into the bit-compatible 256-bit word.
func (c ReserveConfiguration) Pack() *uint256.Int {
	out := new(uint256.Int)
	setField := func(value uint64, shift uint) {
		if value == 0 {
			return
		}
		word := new(uint256.Int).SetUint64(value)
		out.Or(out, word.Lsh(word, shift))
	}
	setFlag := func(on bool, bit uint) {
		if on {
			word := uint256.NewInt(1)
			out.Or(out, word.Lsh(word, bit))
		}
	}
	setField(c.LTV&mask16, ltvShift)
	setField(c.LiquidationThreshold&mask16, liqThresholdShift)
	setField(c.LiquidationBonus&mask16, liqBonusShift)
	setField(uint64(c.Decimals), decimalsShift)
	setFlag(c.Active, activeBit)
	setFlag(c.Frozen, frozenBit)
	setFlag(c.BorrowingEnabled, borrowingBit)
	setFlag(c.Paused, pausedBit)
	setFlag(c.BorrowableInIsolation, borrowableInIsoBit)
	setFlag(c.Siloed, siloedBit)
	setFlag(c.FlashLoanEnabled, flashloanBit)
	setField(c.ReserveFactor&mask16, reserveFactorShift)
	setField(c.BorrowCap&mask36, borrowCapShift)
	setField(c.SupplyCap&mask36, supplyCapShift)
	setField(c.LiquidationProtocolFee&mask16, liqProtocolFeeShift)
	setField(c.DebtCeiling&mask40, debtCeilingShift)
	return out
}

// UnpackReserveConfiguration decodes a packed configuration word.
func UnpackReserveConfiguration(word *uint256.Int) ReserveConfiguration {
	field := func(shift uint, mask uint64) uint64 {
		v := new(uint256.Int).Rsh(word, shift)
		return v.Uint64() & mask
	}
	flag := func(bit uint) bool {
		v := new(uint256.Int).Rsh(word, bit)
		return v.Uint64()&1 == 1
	}
	return ReserveConfiguration{
		LTV:                    field(ltvShift, mask16),
		LiquidationThreshold:   field(liqThresholdShift, mask16),
		LiquidationBonus:       field(liqBonusShift, mask16),
		Decimals:               uint8(field(decimalsShift, 0xff)),
		Active:                 flag(activeBit),
		Frozen:                 flag(frozenBit),
		BorrowingEnabled:       flag(borrowingBit),
		Paused:                 flag(pausedBit),
		BorrowableInIsolation:  flag(borrowableInIsoBit),
		Siloed:                 flag(siloedBit),
		FlashLoanEnabled:       flag(flashloanBit),
		ReserveFactor:          field(reserveFactorShift, mask16),
		BorrowCap:              field(borrowCapShift, mask36),
		SupplyCap:              field(supplyCapShift, mask36),
		LiquidationProtocolFee: field(liqProtocolFeeShift, mask16),
		DebtCeiling:            field(debtCeilingShift, mask40),
	}
}
