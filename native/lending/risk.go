package lending

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"corelend/native/fixedmath"
)

// AccountData is the aggregate solvency view of a user across every flagged
// reserve, in base-currency units. A health factor below 1.0 wad marks the
// position as liquidatable; MaxHealthFactor stands in for +infinity when the
// user has no debt.
type AccountData struct {
	TotalCollateralBase     *uint256.Int
	TotalDebtBase           *uint256.Int
	AvgLTV                  uint64
	AvgLiquidationThreshold uint64
	HealthFactor            *uint256.Int
	HasZeroLTVCollateral    bool
}

// MaxHealthFactor is the health factor of a debt-free position.
var MaxHealthFactor = new(uint256.Int).SetAllOne()

// accountDataParams tweak the aggregation for pre-mutation validation:
// subtractAsset/subtractAmount simulate a pending collateral decrease and
// eModeOverride evaluates the position under a different category than the
// user's current one.
type accountDataParams struct {
	user           common.Address
	position       *Position
	eModeOverride  *uint8
	subtractAsset  *common.Address
	subtractAmount *uint256.Int
}

func emptyAccountData() *AccountData {
	return &AccountData{
		TotalCollateralBase: new(uint256.Int),
		TotalDebtBase:       new(uint256.Int),
		HealthFactor:        new(uint256.Int).Set(MaxHealthFactor),
	}
}

// AccountData aggregates the user's position. It is read-only: indices are
// advanced arithmetically via the normalized income/debt factors without
// touching reserve state.
func (e *Engine) AccountData(user common.Address) (*AccountData, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	position, err := e.state.Position(user)
	if err != nil {
		return nil, err
	}
	return e.accountData(accountDataParams{user: user, position: position})
}

func (e *Engine) accountData(p accountDataParams) (*AccountData, error) {
	if p.position == nil || p.position.Config.IsEmpty() {
		return emptyAccountData(), nil
	}

	category := p.position.EModeCategory
	if p.eModeOverride != nil {
		category = *p.eModeOverride
	}
	var emode EModeCategory
	if category != 0 {
		var ok bool
		emode, ok = e.emodes[category]
		if !ok {
			return nil, errInvalidEModeCategory
		}
	}

	out := emptyAccountData()
	weightedLTV := new(uint256.Int)
	weightedThreshold := new(uint256.Int)

	err := p.position.Config.ForEach(func(id uint8, collateral, borrowing bool) error {
		r, err := e.state.ReserveByID(id)
		if err != nil {
			return err
		}
		if r == nil {
			return errReserveNotListed
		}
		price, err := e.prices.Price(r.Asset)
		if err != nil {
			return err
		}
		unit := fixedmath.Pow10(r.Config.Decimals)

		if collateral && r.Config.LiquidationThreshold != 0 {
			deposits, err := e.ledgers.Deposits(r.Asset)
			if err != nil {
				return err
			}
			income, err := e.NormalizedIncome(r)
			if err != nil {
				return err
			}
			balance, err := fixedmath.RayMul(deposits.ScaledBalanceOf(p.user), income)
			if err != nil {
				return err
			}
			if p.subtractAsset != nil && *p.subtractAsset == r.Asset {
				if balance.Lt(p.subtractAmount) {
					balance.Clear()
				} else {
					balance.Sub(balance, p.subtractAmount)
				}
			}
			baseValue, err := toBaseCurrency(price, balance, unit)
			if err != nil {
				return err
			}
			out.TotalCollateralBase.Add(out.TotalCollateralBase, baseValue)

			ltv, threshold := r.Config.LTV, r.Config.LiquidationThreshold
			if category != 0 && emode.CollateralEnabled(id) {
				ltv, threshold = emode.LTV, emode.LiquidationThreshold
			}
			if r.Config.LTV == 0 {
				out.HasZeroLTVCollateral = true
			}
			weightedLTV.Add(weightedLTV, new(uint256.Int).Mul(baseValue, uint256.NewInt(ltv)))
			weightedThreshold.Add(weightedThreshold, new(uint256.Int).Mul(baseValue, uint256.NewInt(threshold)))
		}

		if borrowing {
			debts, err := e.ledgers.Debts(r.Asset)
			if err != nil {
				return err
			}
			debtIndex, err := e.NormalizedDebt(r)
			if err != nil {
				return err
			}
			debt, err := fixedmath.RayMul(debts.ScaledBalanceOf(p.user), debtIndex)
			if err != nil {
				return err
			}
			baseDebt, err := toBaseCurrency(price, debt, unit)
			if err != nil {
				return err
			}
			out.TotalDebtBase.Add(out.TotalDebtBase, baseDebt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Zero collateral yields zero averages rather than a division failure.
	if !out.TotalCollateralBase.IsZero() {
		out.AvgLTV = new(uint256.Int).Div(weightedLTV, out.TotalCollateralBase).Uint64()
		out.AvgLiquidationThreshold = new(uint256.Int).Div(weightedThreshold, out.TotalCollateralBase).Uint64()
	}

	if out.TotalDebtBase.IsZero() {
		return out, nil
	}
	weighted, err := fixedmath.PercentMul(out.TotalCollateralBase, out.AvgLiquidationThreshold)
	if err != nil {
		return nil, err
	}
	out.HealthFactor, err = fixedmath.WadDiv(weighted, out.TotalDebtBase)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// toBaseCurrency converts an asset amount to base-currency units.
func toBaseCurrency(price, amount, assetUnit *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(price, amount)
	if overflow {
		return nil, fixedmath.ErrOverflow
	}
	return product.Div(product, assetUnit), nil
}
