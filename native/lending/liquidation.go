package lending

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	nativecommon "corelend/native/common"
	"corelend/native/fixedmath"
)

const (
	// defaultCloseFactor caps a single liquidation at half the user's debt in
	// the selected asset when the position is large and only mildly unhealthy.
	defaultCloseFactor = 5_000

	// closeFactorHealthThreshold is the wad health factor below which the full
	// debt becomes liquidatable regardless of position size.
	closeFactorHealthThreshold = 950_000_000_000_000_000

	// minBaseMaxCloseFactorThreshold is the base-currency size (2000 units at
	// 8 decimals) above which the default close factor applies to both legs.
	minBaseMaxCloseFactorThreshold = 2_000_0000_0000

	// minLeftoverBase is the smallest base-currency remainder (1000 units at 8
	// decimals) a partial liquidation may leave on either leg. Remainders
	// below it would not be worth liquidating later.
	minLeftoverBase = 1_000_0000_0000
)

// LiquidationResult reports the outcome of a completed liquidation.
type LiquidationResult struct {
	CollateralAsset  common.Address
	DebtAsset        common.Address
	User             common.Address
	Liquidator       common.Address
	DebtCovered      *uint256.Int
	CollateralSeized *uint256.Int
	ProtocolFee      *uint256.Int
	ReceiveShares    bool
}

// liquidationVars carries the intermediate sizing figures between the
// calculation and settlement phases.
type liquidationVars struct {
	debtToLiquidate        *uint256.Int
	collateralToSeize      *uint256.Int
	collateralToLiquidator *uint256.Int
	protocolFee            *uint256.Int
	userReserveDebt        *uint256.Int
	userCollateralBalance  *uint256.Int
	liquidationBonus       uint64
}

// Liquidate lets liquidator repay debtToCover of user's debtAsset debt in
// exchange for a bonus-priced slice of the user's collateralAsset deposit.
// When receiveShares is true the seized collateral stays in the pool as
// deposit shares; otherwise the underlying is withdrawn. If the user's entire
// collateral is consumed, any debt left behind is written off as reserve
// deficit.
func (e *Engine) Liquidate(collateralAsset, debtAsset common.Address, user, liquidator common.Address, debtToCover *uint256.Int, receiveShares bool) (*LiquidationResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName, actionLiquidate); err != nil {
		return nil, err
	}
	if debtToCover == nil || debtToCover.IsZero() {
		return nil, errInvalidAmount
	}
	if user == liquidator {
		return nil, errSelfLiquidation
	}

	collateralReserve, collateralCache, err := e.snapshot(collateralAsset)
	if err != nil {
		return nil, err
	}
	debtReserve, debtCache := collateralReserve, collateralCache
	if debtAsset != collateralAsset {
		debtReserve, debtCache, err = e.snapshot(debtAsset)
		if err != nil {
			return nil, err
		}
	}
	for _, cfg := range []ReserveConfiguration{collateralCache.config, debtCache.config} {
		if !cfg.Active {
			return nil, errReserveInactive
		}
		if cfg.Paused {
			return nil, errReservePaused
		}
	}
	now := e.clock.Now()
	if now <= collateralReserve.LiquidationGracePeriodUntil || now <= debtReserve.LiquidationGracePeriodUntil {
		return nil, errGracePeriodActive
	}

	position, err := e.ensurePosition(user)
	if err != nil {
		return nil, err
	}
	data, err := e.accountData(accountDataParams{user: user, position: position})
	if err != nil {
		return nil, err
	}
	if !data.HealthFactor.Lt(fixedmath.Wad) {
		return nil, errHealthFactorNotBelowOne
	}
	if !position.Config.IsUsingAsCollateral(collateralReserve.ID) || collateralCache.config.LiquidationThreshold == 0 {
		return nil, errCollateralNotLiquidatable
	}

	debts, err := e.ledgers.Debts(debtAsset)
	if err != nil {
		return nil, err
	}
	deposits, err := e.ledgers.Deposits(collateralAsset)
	if err != nil {
		return nil, err
	}
	vars := &liquidationVars{}
	vars.userReserveDebt, err = fixedmath.RayMul(debts.ScaledBalanceOf(user), debtCache.nextBorrowIndex)
	if err != nil {
		return nil, err
	}
	if !position.Config.IsBorrowing(debtReserve.ID) || vars.userReserveDebt.IsZero() {
		return nil, errNoDebtOfSelectedAsset
	}
	vars.userCollateralBalance, err = fixedmath.RayMul(deposits.ScaledBalanceOf(user), collateralCache.nextLiquidityIndex)
	if err != nil {
		return nil, err
	}

	vars.liquidationBonus = collateralCache.config.LiquidationBonus
	if position.EModeCategory != 0 {
		if emode, ok := e.emodes[position.EModeCategory]; ok && emode.CollateralEnabled(collateralReserve.ID) {
			vars.liquidationBonus = emode.LiquidationBonus
		}
	}

	collateralPrice, err := e.prices.Price(collateralAsset)
	if err != nil {
		return nil, err
	}
	debtPrice, err := e.prices.Price(debtAsset)
	if err != nil {
		return nil, err
	}
	collateralUnit := fixedmath.Pow10(collateralCache.config.Decimals)
	debtUnit := fixedmath.Pow10(debtCache.config.Decimals)

	// Close factor: large, mildly unhealthy positions can only be halved per
	// call; everything else is fully liquidatable.
	maxLiquidatable := new(uint256.Int).Set(vars.userReserveDebt)
	threshold := uint256.NewInt(minBaseMaxCloseFactorThreshold)
	if !data.TotalCollateralBase.Lt(threshold) && !data.TotalDebtBase.Lt(threshold) &&
		data.HealthFactor.GtUint64(closeFactorHealthThreshold) {
		maxLiquidatable, err = fixedmath.PercentMul(vars.userReserveDebt, defaultCloseFactor)
		if err != nil {
			return nil, err
		}
	}
	vars.debtToLiquidate = new(uint256.Int).Set(debtToCover)
	if vars.debtToLiquidate.Gt(maxLiquidatable) {
		vars.debtToLiquidate.Set(maxLiquidatable)
	}

	if err := e.sizeCollateral(vars, collateralPrice, debtPrice, collateralUnit, debtUnit, collateralCache.config.LiquidationProtocolFee); err != nil {
		return nil, err
	}
	if err := checkLeftovers(vars, collateralPrice, debtPrice, collateralUnit, debtUnit); err != nil {
		return nil, err
	}

	seizedBase, err := toBaseCurrency(collateralPrice, vars.collateralToSeize, collateralUnit)
	if err != nil {
		return nil, err
	}
	hasNoCollateralLeft := !data.TotalCollateralBase.Gt(seizedBase)

	// Settle the debt leg. With the collateral exhausted the whole remaining
	// debt of this reserve is burned and the uncovered part becomes deficit.
	debtToBurn := new(uint256.Int).Set(vars.debtToLiquidate)
	if hasNoCollateralLeft {
		debtToBurn.Set(vars.userReserveDebt)
	}
	cleared, newScaledTotal, err := debts.Burn(user, debtToBurn, debtCache.nextBorrowIndex)
	if err != nil {
		return nil, err
	}
	debtCache.nextScaledDebt = newScaledTotal
	if cleared {
		position.Config.SetBorrowing(debtReserve.ID, false)
	}
	if debtToBurn.Gt(vars.debtToLiquidate) {
		writtenOff := new(uint256.Int).Sub(debtToBurn, vars.debtToLiquidate)
		debtReserve.Deficit.Add(debtReserve.Deficit, writtenOff)
		e.emit(newDeficitCreatedEvent(debtAsset, user, writtenOff))
	}
	if err := e.updateRatesAndBalance(debtCache, vars.debtToLiquidate, nil); err != nil {
		return nil, err
	}

	isoReserve, isolated, err := e.isolationState(position, collateralReserve, debtReserve)
	if err != nil {
		return nil, err
	}
	if isolated {
		reduceIsolatedDebt(isoReserve, vars.debtToLiquidate, debtCache.config.Decimals)
	}

	// Settle the collateral leg.
	if receiveShares {
		if err := deposits.Transfer(user, liquidator, vars.collateralToLiquidator, collateralCache.nextLiquidityIndex); err != nil {
			return nil, err
		}
	} else {
		if _, _, err := deposits.Burn(user, vars.collateralToLiquidator, collateralCache.nextLiquidityIndex); err != nil {
			return nil, err
		}
		if err := e.updateRatesAndBalance(collateralCache, nil, vars.collateralToLiquidator); err != nil {
			return nil, err
		}
	}
	if !vars.protocolFee.IsZero() {
		// The fee comes out of the user's remaining shares, capped by what is
		// actually left after the liquidator's cut.
		fee := new(uint256.Int).Set(vars.protocolFee)
		remaining, err := fixedmath.RayMul(deposits.ScaledBalanceOf(user), collateralCache.nextLiquidityIndex)
		if err != nil {
			return nil, err
		}
		if fee.Gt(remaining) {
			fee.Set(remaining)
		}
		if !fee.IsZero() {
			if err := deposits.Transfer(user, e.treasury, fee, collateralCache.nextLiquidityIndex); err != nil {
				return nil, err
			}
		}
		vars.protocolFee = fee
	}
	if deposits.ScaledBalanceOf(user).IsZero() {
		position.Config.SetUsingAsCollateral(collateralReserve.ID, false)
		e.emit(newCollateralEvent(false, collateralAsset, user))
	}

	// With no collateral anywhere the position can never recover; the rest of
	// its debts are written off immediately so the reserves account for the
	// loss instead of carrying phantom claims.
	if hasNoCollateralLeft && position.Config.IsBorrowingAny() {
		if err := e.writeOffRemainingDebt(position, debtReserve.ID); err != nil {
			return nil, err
		}
	}

	if err := e.state.PutReserve(collateralReserve); err != nil {
		return nil, err
	}
	if debtAsset != collateralAsset {
		if err := e.state.PutReserve(debtReserve); err != nil {
			return nil, err
		}
	}
	if isolated && isoReserve.Asset != collateralAsset && isoReserve.Asset != debtAsset {
		if err := e.state.PutReserve(isoReserve); err != nil {
			return nil, err
		}
	}
	if err := e.state.PutPosition(position); err != nil {
		return nil, err
	}

	result := &LiquidationResult{
		CollateralAsset:  collateralAsset,
		DebtAsset:        debtAsset,
		User:             user,
		Liquidator:       liquidator,
		DebtCovered:      vars.debtToLiquidate,
		CollateralSeized: vars.collateralToSeize,
		ProtocolFee:      vars.protocolFee,
		ReceiveShares:    receiveShares,
	}
	e.emit(newLiquidationEvent(result))
	e.emit(newReserveDataUpdatedEvent(debtReserve))
	if debtAsset != collateralAsset {
		e.emit(newReserveDataUpdatedEvent(collateralReserve))
	}
	return result, nil
}

// sizeCollateral converts the debt to liquidate into bonus-priced collateral,
// clamping to the user's balance (and back-solving the debt covered when
// clamped) and splitting out the protocol's cut of the bonus.
func (e *Engine) sizeCollateral(vars *liquidationVars, collateralPrice, debtPrice, collateralUnit, debtUnit *uint256.Int, protocolFeeBps uint64) error {
	base, err := crossPrice(vars.debtToLiquidate, debtPrice, debtUnit, collateralPrice, collateralUnit)
	if err != nil {
		return err
	}
	maxCollateral, err := fixedmath.PercentMul(base, vars.liquidationBonus)
	if err != nil {
		return err
	}
	if maxCollateral.Gt(vars.userCollateralBalance) {
		vars.collateralToSeize = new(uint256.Int).Set(vars.userCollateralBalance)
		debtForBalance, err := crossPrice(vars.userCollateralBalance, collateralPrice, collateralUnit, debtPrice, debtUnit)
		if err != nil {
			return err
		}
		vars.debtToLiquidate, err = fixedmath.PercentDiv(debtForBalance, vars.liquidationBonus)
		if err != nil {
			return err
		}
	} else {
		vars.collateralToSeize = maxCollateral
	}

	vars.protocolFee = new(uint256.Int)
	vars.collateralToLiquidator = new(uint256.Int).Set(vars.collateralToSeize)
	if protocolFeeBps != 0 {
		unboosted, err := fixedmath.PercentDiv(vars.collateralToSeize, vars.liquidationBonus)
		if err != nil {
			return err
		}
		bonusCollateral := new(uint256.Int).Sub(vars.collateralToSeize, unboosted)
		vars.protocolFee, err = fixedmath.PercentMul(bonusCollateral, protocolFeeBps)
		if err != nil {
			return err
		}
		vars.collateralToLiquidator.Sub(vars.collateralToSeize, vars.protocolFee)
	}
	return nil
}

// checkLeftovers enforces the anti-dust rule: when a liquidation is partial
// on both legs, each remainder must stay large enough to remain worth
// liquidating. Fully consuming either leg is always allowed.
func checkLeftovers(vars *liquidationVars, collateralPrice, debtPrice, collateralUnit, debtUnit *uint256.Int) error {
	debtLeft := new(uint256.Int).Sub(vars.userReserveDebt, vars.debtToLiquidate)
	collateralLeft := new(uint256.Int).Sub(vars.userCollateralBalance, vars.collateralToSeize)
	if debtLeft.IsZero() || collateralLeft.IsZero() {
		return nil
	}

	minLeftover := uint256.NewInt(minLeftoverBase)
	debtLeftBase, err := toBaseCurrency(debtPrice, debtLeft, debtUnit)
	if err != nil {
		return err
	}
	collateralLeftBase, err := toBaseCurrency(collateralPrice, collateralLeft, collateralUnit)
	if err != nil {
		return err
	}
	if debtLeftBase.Lt(minLeftover) || collateralLeftBase.Lt(minLeftover) {
		return errMustNotLeaveDust
	}
	return nil
}

// writeOffRemainingDebt burns every other debt the user still carries into
// the owed reserves' deficits and clears the borrow flags.
func (e *Engine) writeOffRemainingDebt(position *Position, settledID uint8) error {
	return position.Config.ForEach(func(id uint8, _, borrowing bool) error {
		if !borrowing || id == settledID {
			return nil
		}
		r, err := e.state.ReserveByID(id)
		if err != nil {
			return err
		}
		if r == nil {
			return errReserveNotListed
		}
		r.ensureDefaults()
		cache, err := e.cacheReserve(r)
		if err != nil {
			return err
		}
		if err := e.accrue(cache); err != nil {
			return err
		}
		debts, err := e.ledgers.Debts(r.Asset)
		if err != nil {
			return err
		}
		owed, err := fixedmath.RayMul(debts.ScaledBalanceOf(position.User), cache.nextBorrowIndex)
		if err != nil {
			return err
		}
		if owed.IsZero() {
			position.Config.SetBorrowing(id, false)
			return nil
		}
		_, newScaledTotal, err := debts.Burn(position.User, owed, cache.nextBorrowIndex)
		if err != nil {
			return err
		}
		cache.nextScaledDebt = newScaledTotal
		r.Deficit.Add(r.Deficit, owed)
		position.Config.SetBorrowing(id, false)
		if err := e.updateRatesAndBalance(cache, nil, nil); err != nil {
			return err
		}
		if err := e.state.PutReserve(r); err != nil {
			return err
		}
		e.emit(newDeficitCreatedEvent(r.Asset, position.User, owed))
		return nil
	})
}

// crossPrice reprices amount of the "from" asset into "to" asset units.
func crossPrice(amount, fromPrice, fromUnit, toPrice, toUnit *uint256.Int) (*uint256.Int, error) {
	numerator, overflow := new(uint256.Int).MulOverflow(fromPrice, amount)
	if overflow {
		return nil, fixedmath.ErrOverflow
	}
	numerator, overflow = numerator.MulOverflow(numerator, toUnit)
	if overflow {
		return nil, fixedmath.ErrOverflow
	}
	denominator, overflow := new(uint256.Int).MulOverflow(toPrice, fromUnit)
	if overflow {
		return nil, fixedmath.ErrOverflow
	}
	if denominator.IsZero() {
		return nil, fixedmath.ErrDivisionByZero
	}
	return numerator.Div(numerator, denominator), nil
}
