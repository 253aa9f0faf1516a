package lending

import "errors"

// Validation errors are grouped by the stage that raises them. All of them
// reject the operation before any state mutation; none are retryable with the
// same inputs. Arithmetic failures surface as fixedmath.ErrOverflow wrapped by
// the failing operation and indicate a misconfigured cap or an implementation
// defect, never a user error.
var (
	errNilState         = errors.New("lending engine: state not configured")
	errNilLedgers       = errors.New("lending engine: ledgers not configured")
	errNilPrices        = errors.New("lending engine: price source not configured")
	errNilRates         = errors.New("lending engine: rate strategy not configured")
	errNilClock         = errors.New("lending engine: clock not configured")
	errInvalidAmount    = errors.New("lending engine: amount must be positive")
	errReserveNotListed = errors.New("lending engine: asset not listed")
	errReserveLimit     = errors.New("lending engine: reserve capacity exhausted")
	errAlreadyListed    = errors.New("lending engine: asset already listed")
)

// State errors.
var (
	errReserveInactive = errors.New("lending engine: reserve inactive")
	errReserveFrozen   = errors.New("lending engine: reserve frozen")
	errReservePaused   = errors.New("lending engine: reserve paused")
)

// Solvency errors. These are the frequent, expected rejection path.
var (
	errBorrowingDisabled       = errors.New("lending engine: borrowing not enabled on reserve")
	errSupplyCapExceeded       = errors.New("lending engine: supply cap exceeded")
	errBorrowCapExceeded       = errors.New("lending engine: borrow cap exceeded")
	errInsufficientLiquidity   = errors.New("lending engine: insufficient reserve liquidity")
	errInsufficientBalance     = errors.New("lending engine: insufficient user balance")
	errCollateralCannotCover   = errors.New("lending engine: collateral cannot cover new borrow")
	errHealthFactorTooLow      = errors.New("lending engine: health factor below liquidation threshold")
	errLTVValidationFailed     = errors.New("lending engine: ltv validation failed")
	errZeroLTVCollateralBlocks = errors.New("lending engine: zero-ltv collateral restricts this action")
	errNoDebtToRepay           = errors.New("lending engine: no outstanding debt to repay")
)

// Isolation and eMode errors.
var (
	errDebtCeilingExceeded   = errors.New("lending engine: isolation debt ceiling exceeded")
	errAssetNotBorrowableIso = errors.New("lending engine: asset not borrowable in isolation mode")
	errIsolatedCollateral    = errors.New("lending engine: isolated collateral forbids enabling other collateral")
	errSiloedBorrowing       = errors.New("lending engine: siloed borrowing violation")
	errInvalidEModeCategory  = errors.New("lending engine: emode category not configured")
	errNotBorrowableInEMode  = errors.New("lending engine: asset not borrowable in selected emode category")
	errCollateralBalanceZero = errors.New("lending engine: underlying balance is zero")
)

// Liquidation policy errors.
var (
	errSelfLiquidation           = errors.New("lending engine: caller must not be the liquidated user")
	errHealthFactorNotBelowOne   = errors.New("lending engine: health factor not below liquidation threshold")
	errCollateralNotLiquidatable = errors.New("lending engine: collateral cannot be liquidated")
	errNoDebtOfSelectedAsset     = errors.New("lending engine: selected asset not borrowed by user")
	errMustNotLeaveDust          = errors.New("lending engine: liquidation must not leave dust position")
	errGracePeriodActive         = errors.New("lending engine: liquidation grace period active")
	errNoDeficit                 = errors.New("lending engine: reserve has no deficit")
)
