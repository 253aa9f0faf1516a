package lending

import (
	"github.com/holiman/uint256"

	"corelend/native/fixedmath"
)

// cacheReserve snapshots a reserve at operation start. The cache is the only
// view of the reserve the rest of the operation consults, so every sub-step
// observes one consistent state.
func (e *Engine) cacheReserve(r *Reserve) (*reserveCache, error) {
	r.ensureDefaults()
	debts, err := e.ledgers.Debts(r.Asset)
	if err != nil {
		return nil, err
	}
	scaledDebt := debts.ScaledTotalSupply()
	return &reserveCache{
		reserve:            r,
		config:             r.Config,
		currLiquidityIndex: new(uint256.Int).Set(r.LiquidityIndex),
		nextLiquidityIndex: new(uint256.Int).Set(r.LiquidityIndex),
		currBorrowIndex:    new(uint256.Int).Set(r.VariableBorrowIndex),
		nextBorrowIndex:    new(uint256.Int).Set(r.VariableBorrowIndex),
		currLiquidityRate:  new(uint256.Int).Set(r.CurrentLiquidityRate),
		currBorrowRate:     new(uint256.Int).Set(r.CurrentVariableBorrowRate),
		currScaledDebt:     new(uint256.Int).Set(scaledDebt),
		nextScaledDebt:     new(uint256.Int).Set(scaledDebt),
		lastUpdate:         r.LastUpdateTimestamp,
	}, nil
}

// accrue advances the reserve's indices to now and books the reserve-factor
// share of new borrower interest to the treasury. Calling it twice within the
// same instant is a no-op: indices only move when time has elapsed.
func (e *Engine) accrue(c *reserveCache) error {
	now := e.clock.Now()
	r := c.reserve
	if now == c.lastUpdate {
		return nil
	}
	dt := now - c.lastUpdate

	if !c.currLiquidityRate.IsZero() {
		factor, err := fixedmath.LinearInterest(c.currLiquidityRate, dt)
		if err != nil {
			return err
		}
		next, err := fixedmath.RayMul(c.currLiquidityIndex, factor)
		if err != nil {
			return err
		}
		c.nextLiquidityIndex = next
		r.LiquidityIndex = new(uint256.Int).Set(next)
	}

	if !c.currScaledDebt.IsZero() {
		factor, err := fixedmath.CompoundedInterest(c.currBorrowRate, dt)
		if err != nil {
			return err
		}
		next, err := fixedmath.RayMul(c.currBorrowIndex, factor)
		if err != nil {
			return err
		}
		c.nextBorrowIndex = next
		r.VariableBorrowIndex = new(uint256.Int).Set(next)

		if err := e.accrueToTreasury(c); err != nil {
			return err
		}
	}

	r.LastUpdateTimestamp = now
	c.lastUpdate = now
	return nil
}

// accrueToTreasury books reserveFactor percent of the debt growth since the
// last update as treasury deposits, stored in scaled units so the amount
// keeps earning liquidity interest until minted.
func (e *Engine) accrueToTreasury(c *reserveCache) error {
	if c.config.ReserveFactor == 0 {
		return nil
	}
	prevDebt, err := fixedmath.RayMul(c.currScaledDebt, c.currBorrowIndex)
	if err != nil {
		return err
	}
	currDebt, err := fixedmath.RayMul(c.currScaledDebt, c.nextBorrowIndex)
	if err != nil {
		return err
	}
	accrued := new(uint256.Int).Sub(currDebt, prevDebt)
	if accrued.IsZero() {
		return nil
	}
	share, err := fixedmath.PercentMul(accrued, c.config.ReserveFactor)
	if err != nil {
		return err
	}
	if share.IsZero() {
		return nil
	}
	scaled, err := fixedmath.RayDiv(share, c.nextLiquidityIndex)
	if err != nil {
		return err
	}
	c.reserve.AccruedToTreasury.Add(c.reserve.AccruedToTreasury, scaled)
	return nil
}

// updateRatesAndBalance recomputes the reserve's rates from the rate strategy
// and applies the operation's liquidity delta to the virtual balance. It must
// run after every balance-changing step so rates never go stale relative to
// the new utilization.
func (e *Engine) updateRatesAndBalance(c *reserveCache, liquidityAdded, liquidityTaken *uint256.Int) error {
	r := c.reserve
	totalDebt, err := fixedmath.RayMul(c.nextScaledDebt, c.nextBorrowIndex)
	if err != nil {
		return err
	}
	liquidityRate, borrowRate, err := e.rates.Rates(RateInput{
		LiquidityAdded: liquidityAdded,
		LiquidityTaken: liquidityTaken,
		TotalDebt:      totalDebt,
		VirtualBalance: new(uint256.Int).Set(r.VirtualUnderlyingBalance),
		ReserveFactor:  c.config.ReserveFactor,
	})
	if err != nil {
		return err
	}
	r.CurrentLiquidityRate = liquidityRate
	r.CurrentVariableBorrowRate = borrowRate

	if liquidityAdded != nil && !liquidityAdded.IsZero() {
		r.VirtualUnderlyingBalance.Add(r.VirtualUnderlyingBalance, liquidityAdded)
	}
	if liquidityTaken != nil && !liquidityTaken.IsZero() {
		if r.VirtualUnderlyingBalance.Lt(liquidityTaken) {
			return errInsufficientLiquidity
		}
		r.VirtualUnderlyingBalance.Sub(r.VirtualUnderlyingBalance, liquidityTaken)
	}
	return nil
}

// NormalizedIncome returns the reserve's liquidity index advanced to now
// without mutating state: the factor a scaled deposit balance is multiplied
// by to obtain its current real value.
func (e *Engine) NormalizedIncome(r *Reserve) (*uint256.Int, error) {
	r.ensureDefaults()
	now := e.clock.Now()
	if now == r.LastUpdateTimestamp {
		return new(uint256.Int).Set(r.LiquidityIndex), nil
	}
	factor, err := fixedmath.LinearInterest(r.CurrentLiquidityRate, now-r.LastUpdateTimestamp)
	if err != nil {
		return nil, err
	}
	return fixedmath.RayMul(r.LiquidityIndex, factor)
}

// NormalizedDebt is the borrow-side counterpart of NormalizedIncome, using
// the compounded factor.
func (e *Engine) NormalizedDebt(r *Reserve) (*uint256.Int, error) {
	r.ensureDefaults()
	now := e.clock.Now()
	if now == r.LastUpdateTimestamp {
		return new(uint256.Int).Set(r.VariableBorrowIndex), nil
	}
	factor, err := fixedmath.CompoundedInterest(r.CurrentVariableBorrowRate, now-r.LastUpdateTimestamp)
	if err != nil {
		return nil, err
	}
	return fixedmath.RayMul(r.VariableBorrowIndex, factor)
}
