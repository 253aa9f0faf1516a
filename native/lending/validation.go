package lending

import (
	"github.com/holiman/uint256"

	"corelend/native/fixedmath"
)

// Validation helpers run before any mutation. Each returns the first
// applicable error in the order of the taxonomy: state errors, then policy,
// then solvency.

func validateReserveUsable(cfg ReserveConfiguration) error {
	if !cfg.Active {
		return errReserveInactive
	}
	if cfg.Paused {
		return errReservePaused
	}
	return nil
}

func (e *Engine) validateSupply(c *reserveCache, amount *uint256.Int) error {
	if err := validateReserveUsable(c.config); err != nil {
		return err
	}
	if c.config.Frozen {
		return errReserveFrozen
	}
	if c.config.SupplyCap == 0 {
		return nil
	}
	deposits, err := e.ledgers.Deposits(c.reserve.Asset)
	if err != nil {
		return err
	}
	// The cap covers live deposits plus the treasury accrual that will be
	// minted later, both valued at the fresh index.
	scaled := new(uint256.Int).Add(deposits.ScaledTotalSupply(), c.reserve.AccruedToTreasury)
	total, err := fixedmath.RayMul(scaled, c.nextLiquidityIndex)
	if err != nil {
		return err
	}
	total.Add(total, amount)
	cap := new(uint256.Int).Mul(uint256.NewInt(c.config.SupplyCap), fixedmath.Pow10(c.config.Decimals))
	if total.Gt(cap) {
		return errSupplyCapExceeded
	}
	return nil
}

func (e *Engine) validateBorrow(c *reserveCache, position *Position, amount *uint256.Int) error {
	if err := validateReserveUsable(c.config); err != nil {
		return err
	}
	if c.config.Frozen {
		return errReserveFrozen
	}
	if !c.config.BorrowingEnabled {
		return errBorrowingDisabled
	}

	if c.config.BorrowCap != 0 {
		total, err := fixedmath.RayMul(c.currScaledDebt, c.nextBorrowIndex)
		if err != nil {
			return err
		}
		total.Add(total, amount)
		cap := new(uint256.Int).Mul(uint256.NewInt(c.config.BorrowCap), fixedmath.Pow10(c.config.Decimals))
		if total.Gt(cap) {
			return errBorrowCapExceeded
		}
	}

	if err := e.validateSiloedBorrowing(c, position); err != nil {
		return err
	}

	if position.EModeCategory != 0 {
		category, ok := e.emodes[position.EModeCategory]
		if !ok {
			return errInvalidEModeCategory
		}
		if !category.BorrowableEnabled(c.reserve.ID) {
			return errNotBorrowableInEMode
		}
	}

	data, err := e.accountData(accountDataParams{user: position.User, position: position})
	if err != nil {
		return err
	}
	if data.TotalCollateralBase.IsZero() {
		return errCollateralBalanceZero
	}
	if data.AvgLTV == 0 {
		return errLTVValidationFailed
	}
	if !data.HealthFactor.Gt(fixedmath.Wad) {
		return errHealthFactorTooLow
	}

	price, err := e.prices.Price(c.reserve.Asset)
	if err != nil {
		return err
	}
	amountBase, err := toBaseCurrency(price, amount, fixedmath.Pow10(c.config.Decimals))
	if err != nil {
		return err
	}
	projectedDebt := new(uint256.Int).Add(data.TotalDebtBase, amountBase)
	collateralNeeded, err := fixedmath.PercentDiv(projectedDebt, data.AvgLTV)
	if err != nil {
		return err
	}
	if collateralNeeded.Gt(data.TotalCollateralBase) {
		return errCollateralCannotCover
	}
	return nil
}

// validateSiloedBorrowing enforces that a siloed asset is only ever borrowed
// in a position with no other debt, in either direction: borrowing a siloed
// asset next to existing debt, or borrowing anything next to siloed debt.
func (e *Engine) validateSiloedBorrowing(c *reserveCache, position *Position) error {
	violation := false
	err := position.Config.ForEach(func(id uint8, _, borrowing bool) error {
		if !borrowing || violation || id == c.reserve.ID {
			return nil
		}
		if c.config.Siloed {
			violation = true
			return nil
		}
		other, err := e.state.ReserveByID(id)
		if err != nil {
			return err
		}
		if other != nil && other.Config.Siloed {
			violation = true
		}
		return nil
	})
	if err != nil {
		return err
	}
	if violation {
		return errSiloedBorrowing
	}
	return nil
}

// validateCollateralDecrease simulates removing amount of the asset from the
// user's collateral and rejects the action when the remaining position would
// be undercollateralized or when zero-LTV collateral would be left propping
// up an LTV-bearing withdrawal.
func (e *Engine) validateCollateralDecrease(c *reserveCache, position *Position, amount *uint256.Int) error {
	if !position.Config.IsBorrowingAny() {
		return nil
	}
	asset := c.reserve.Asset
	data, err := e.accountData(accountDataParams{
		user:           position.User,
		position:       position,
		subtractAsset:  &asset,
		subtractAmount: amount,
	})
	if err != nil {
		return err
	}
	if data.HealthFactor.Lt(fixedmath.Wad) {
		return errHealthFactorTooLow
	}
	if data.HasZeroLTVCollateral && c.config.LTV > 0 {
		return errZeroLTVCollateralBlocks
	}
	return nil
}
