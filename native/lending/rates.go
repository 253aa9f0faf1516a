package lending

import (
	"github.com/holiman/uint256"

	"corelend/native/fixedmath"
)

// KinkedRateStrategy shapes borrow rates as a piecewise-linear function of
// utilization: BaseRate plus Slope1 per unit of utilization up to the kink,
// plus Slope2 per unit beyond it. All parameters are annualized ray values;
// the kink is a ray fraction of full utilization.
type KinkedRateStrategy struct {
	BaseRate *uint256.Int
	Slope1   *uint256.Int
	Slope2   *uint256.Int
	Kink     *uint256.Int
}

// NewKinkedRateStrategy builds a strategy from basis-point inputs: a 2% base
// rate is 200, an 80% kink is 8000.
func NewKinkedRateStrategy(baseRateBps, slope1Bps, slope2Bps, kinkBps uint64) *KinkedRateStrategy {
	fromBps := func(bps uint64) *uint256.Int {
		v := new(uint256.Int).Mul(fixedmath.Ray, uint256.NewInt(bps))
		return v.Div(v, fixedmath.PercentageFactor)
	}
	return &KinkedRateStrategy{
		BaseRate: fromBps(baseRateBps),
		Slope1:   fromBps(slope1Bps),
		Slope2:   fromBps(slope2Bps),
		Kink:     fromBps(kinkBps),
	}
}

// Rates implements RateStrategy. Utilization is totalDebt divided by the
// post-delta available liquidity plus totalDebt; with no debt both rates
// collapse to the base configuration.
func (s *KinkedRateStrategy) Rates(in RateInput) (*uint256.Int, *uint256.Int, error) {
	borrowRate := new(uint256.Int).Set(s.BaseRate)
	liquidityRate := new(uint256.Int)
	if in.TotalDebt == nil || in.TotalDebt.IsZero() {
		return liquidityRate, borrowRate, nil
	}

	available := new(uint256.Int).Set(in.VirtualBalance)
	if in.LiquidityAdded != nil {
		available.Add(available, in.LiquidityAdded)
	}
	if in.LiquidityTaken != nil {
		if available.Lt(in.LiquidityTaken) {
			return nil, nil, errInsufficientLiquidity
		}
		available.Sub(available, in.LiquidityTaken)
	}

	denominator := new(uint256.Int).Add(available, in.TotalDebt)
	utilization, err := fixedmath.RayDiv(in.TotalDebt, denominator)
	if err != nil {
		return nil, nil, err
	}

	if utilization.Gt(s.Kink) {
		belowKink, err := fixedmath.RayMul(s.Slope1, s.Kink)
		if err != nil {
			return nil, nil, err
		}
		excess := new(uint256.Int).Sub(utilization, s.Kink)
		aboveKink, err := fixedmath.RayMul(s.Slope2, excess)
		if err != nil {
			return nil, nil, err
		}
		borrowRate.Add(borrowRate, belowKink)
		borrowRate.Add(borrowRate, aboveKink)
	} else {
		slope, err := fixedmath.RayMul(s.Slope1, utilization)
		if err != nil {
			return nil, nil, err
		}
		borrowRate.Add(borrowRate, slope)
	}

	// Suppliers earn the borrow rate scaled by utilization, net of the
	// reserve factor.
	gross, err := fixedmath.RayMul(borrowRate, utilization)
	if err != nil {
		return nil, nil, err
	}
	liquidityRate, err = fixedmath.PercentMul(gross, fixedmath.PercentageFactor.Uint64()-in.ReserveFactor)
	if err != nil {
		return nil, nil, err
	}
	return liquidityRate, borrowRate, nil
}

// DefaultRateStrategy mirrors a conservative kinked curve: 2% base, 15%
// slope to an 80% kink, 60% penalty slope beyond it.
func DefaultRateStrategy() *KinkedRateStrategy {
	return NewKinkedRateStrategy(200, 1_500, 6_000, 8_000)
}
