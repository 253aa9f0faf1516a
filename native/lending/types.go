package lending

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"corelend/native/fixedmath"
)

// DebtCeilingDecimals is the precision of isolation-mode debt ceilings: a
// ceiling of 100 covers 1.00 units of base currency. Conversions from native
// asset decimals truncate.
const DebtCeilingDecimals = 2

// Reserve is the per-asset ledger record. The scaled balances held by the
// deposit and debt ledgers are the source of truth; the two indices convert
// them to current real value on read:
//
//	realBalance = rayMul(scaledBalance, index)
//
// Both indices start at 1.0 ray and never decrease.
type Reserve struct {
	// ID is the reserve's slot in the arena and in user bitmaps.
	ID    uint8
	Asset common.Address
	Config ReserveConfiguration
	// LiquidityIndex accrues linearly at CurrentLiquidityRate.
	LiquidityIndex *uint256.Int
	// VariableBorrowIndex compounds at CurrentVariableBorrowRate using the
	// binomial approximation.
	VariableBorrowIndex *uint256.Int
	// Current rates are annualized ray values recomputed from utilization
	// after every balance-changing operation.
	CurrentLiquidityRate      *uint256.Int
	CurrentVariableBorrowRate *uint256.Int
	LastUpdateTimestamp       uint64
	// AccruedToTreasury is the reserve-factor share of borrower interest,
	// held in scaled deposit units until minted to the treasury.
	AccruedToTreasury *uint256.Int
	// VirtualUnderlyingBalance tracks the reserve's liquidity independent of
	// external token transfers.
	VirtualUnderlyingBalance *uint256.Int
	// IsolationModeTotalDebt is tracked in debt-ceiling-decimal units and
	// deliberately ignores interest accrual.
	IsolationModeTotalDebt *uint256.Int
	// Deficit is unrecoverable bad debt, in real underlying units.
	Deficit *uint256.Int
	// LiquidationGracePeriodUntil blocks liquidations of this reserve up to
	// and including the given unix timestamp.
	LiquidationGracePeriodUntil uint64
}

func (r *Reserve) ensureDefaults() {
	if r.LiquidityIndex == nil || r.LiquidityIndex.IsZero() {
		r.LiquidityIndex = rayOne()
	}
	if r.VariableBorrowIndex == nil || r.VariableBorrowIndex.IsZero() {
		r.VariableBorrowIndex = rayOne()
	}
	if r.CurrentLiquidityRate == nil {
		r.CurrentLiquidityRate = new(uint256.Int)
	}
	if r.CurrentVariableBorrowRate == nil {
		r.CurrentVariableBorrowRate = new(uint256.Int)
	}
	if r.AccruedToTreasury == nil {
		r.AccruedToTreasury = new(uint256.Int)
	}
	if r.VirtualUnderlyingBalance == nil {
		r.VirtualUnderlyingBalance = new(uint256.Int)
	}
	if r.IsolationModeTotalDebt == nil {
		r.IsolationModeTotalDebt = new(uint256.Int)
	}
	if r.Deficit == nil {
		r.Deficit = new(uint256.Int)
	}
}

// Position is a user's compact position record: the two-bit reserve bitmap
// plus the selected efficiency-mode category (0 = none).
type Position struct {
	User          common.Address
	Config        UserConfiguration
	EModeCategory uint8
}

// EModeCategory overrides risk parameters for a curated set of correlated
// assets. Category 0 is reserved and always inert.
type EModeCategory struct {
	LTV                  uint64
	LiquidationThreshold uint64
	LiquidationBonus     uint64
	// CollateralBitmap and BorrowableBitmap hold one bit per reserve id.
	CollateralBitmap *uint256.Int
	BorrowableBitmap *uint256.Int
	Label            string
}

func bitmapHas(bitmap *uint256.Int, id uint8) bool {
	if bitmap == nil {
		return false
	}
	v := new(uint256.Int).Rsh(bitmap, uint(id))
	return v.Uint64()&1 == 1
}

// CollateralEnabled reports whether the reserve participates as eMode
// collateral in this category.
func (c EModeCategory) CollateralEnabled(id uint8) bool {
	return bitmapHas(c.CollateralBitmap, id)
}

// BorrowableEnabled reports whether the reserve may be borrowed while the
// user is in this category.
func (c EModeCategory) BorrowableEnabled(id uint8) bool {
	return bitmapHas(c.BorrowableBitmap, id)
}

// reserveCache is a point-in-time snapshot of a reserve computed once at
// operation start and threaded through every sub-step, so no step re-derives
// mid-operation state. It is discarded when the operation ends.
type reserveCache struct {
	reserve *Reserve
	config  ReserveConfiguration

	currLiquidityIndex *uint256.Int
	nextLiquidityIndex *uint256.Int
	currBorrowIndex    *uint256.Int
	nextBorrowIndex    *uint256.Int

	currLiquidityRate *uint256.Int
	currBorrowRate    *uint256.Int

	// currScaledDebt is the debt ledger's scaled total fetched at snapshot
	// time; nextScaledDebt tracks the operation's own mint/burn.
	currScaledDebt *uint256.Int
	nextScaledDebt *uint256.Int

	lastUpdate uint64
}

func rayOne() *uint256.Int {
	return new(uint256.Int).Set(fixedmath.Ray)
}
