package lending

import (
	"github.com/holiman/uint256"

	"corelend/native/fixedmath"
)

// isolationState reports whether the position is in isolation mode: exactly
// one collateral bit set and that reserve carrying a non-zero debt ceiling.
// The isolated reserve is returned when active. When the isolated reserve is
// one of the reserves the operation already holds in memory, that copy is
// returned instead of a fresh load, so ceiling mutations land on the record
// the operation persists.
func (e *Engine) isolationState(position *Position, loaded ...*Reserve) (*Reserve, bool, error) {
	if position == nil {
		return nil, false, nil
	}
	id, single := position.Config.CollateralReserve()
	if !single {
		return nil, false, nil
	}
	var r *Reserve
	for _, candidate := range loaded {
		if candidate != nil && candidate.ID == id {
			r = candidate
			break
		}
	}
	if r == nil {
		var err error
		r, err = e.state.ReserveByID(id)
		if err != nil {
			return nil, false, err
		}
	}
	if r == nil || r.Config.DebtCeiling == 0 {
		return nil, false, nil
	}
	return r, true, nil
}

// hasIsolatedCollateral reports whether any of the user's collateral reserves
// is isolation-capped, regardless of how many collateral bits are set. Used
// to forbid enabling additional collateral next to an isolated asset.
func (e *Engine) hasIsolatedCollateral(position *Position) (bool, error) {
	if position == nil {
		return false, nil
	}
	found := false
	err := position.Config.ForEach(func(id uint8, collateral, _ bool) error {
		if !collateral || found {
			return nil
		}
		r, err := e.state.ReserveByID(id)
		if err != nil {
			return err
		}
		if r != nil && r.Config.DebtCeiling != 0 {
			found = true
		}
		return nil
	})
	return found, err
}

// ceilingUnits converts a native asset amount into debt-ceiling-decimal
// units, truncating. Truncation means sub-unit borrows do not consume
// ceiling; the ceiling is a coarse exposure bound, not exact accounting.
func ceilingUnits(amount *uint256.Int, assetDecimals uint8) *uint256.Int {
	if assetDecimals <= DebtCeilingDecimals {
		scale := fixedmath.Pow10(DebtCeilingDecimals - assetDecimals)
		return new(uint256.Int).Mul(amount, scale)
	}
	scale := fixedmath.Pow10(assetDecimals - DebtCeilingDecimals)
	return new(uint256.Int).Div(amount, scale)
}

// increaseIsolatedDebt books a borrow against the isolated collateral's debt
// ceiling, rejecting the operation when the ceiling would be exceeded.
func (e *Engine) increaseIsolatedDebt(collateral *Reserve, amount *uint256.Int, debtDecimals uint8) error {
	units := ceilingUnits(amount, debtDecimals)
	next := new(uint256.Int).Add(collateral.IsolationModeTotalDebt, units)
	if next.GtUint64(collateral.Config.DebtCeiling) {
		return errDebtCeilingExceeded
	}
	collateral.IsolationModeTotalDebt = next
	return nil
}

// reduceIsolatedDebt unwinds ceiling exposure on repay or liquidation,
// clamped at zero. Interest accrual is never reflected in the ceiling, so a
// repaid amount may legitimately exceed the tracked debt.
func reduceIsolatedDebt(collateral *Reserve, amount *uint256.Int, debtDecimals uint8) {
	units := ceilingUnits(amount, debtDecimals)
	if collateral.IsolationModeTotalDebt.Lt(units) {
		collateral.IsolationModeTotalDebt.Clear()
		return
	}
	collateral.IsolationModeTotalDebt.Sub(collateral.IsolationModeTotalDebt, units)
}
