package fixedmath

import "github.com/holiman/uint256"

// SecondsPerYear is the accrual base for annualized ray rates.
const SecondsPerYear = 365 * 24 * 60 * 60

var secondsPerYear = uint256.NewInt(SecondsPerYear)

// LinearInterest returns the interest factor 1 + rate*dt/secondsPerYear in
// ray, for an annualized ray rate and an elapsed duration in seconds.
func LinearInterest(rate *uint256.Int, dt uint64) (*uint256.Int, error) {
	if dt == 0 || rate.IsZero() {
		return new(uint256.Int).Set(Ray), nil
	}
	accrued, overflow := new(uint256.Int).MulOverflow(rate, uint256.NewInt(dt))
	if overflow {
		return nil, ErrOverflow
	}
	accrued.Div(accrued, secondsPerYear)
	out, carry := accrued.AddOverflow(accrued, Ray)
	if carry {
		return nil, ErrOverflow
	}
	return out, nil
}

// CompoundedInterest approximates (1 + rate/secondsPerYear)^dt in ray using
// the third-order binomial expansion
//
//	1 + r·t + t(t-1)/2·r² + t(t-1)(t-2)/6·r³   with r = rate/secondsPerYear
//
// The per-second rate is derived first and its powers taken in ray, so the
// expansion keeps the r² and r³ terms' precision. The truncation slightly
// undercharges borrowers on long gaps between accruals. Downstream
// accounting is calibrated against this exact approximation, so it must not
// be replaced with true exponentiation.
func CompoundedInterest(rate *uint256.Int, dt uint64) (*uint256.Int, error) {
	if dt == 0 || rate.IsZero() {
		return new(uint256.Int).Set(Ray), nil
	}

	exp := uint256.NewInt(dt)
	expMinusOne := uint256.NewInt(dt - 1)
	expMinusTwo := uint256.NewInt(0)
	if dt > 2 {
		expMinusTwo.SetUint64(dt - 2)
	}

	ratePerSecond := new(uint256.Int).Div(rate, secondsPerYear)

	basePowerTwo, err := RayMul(ratePerSecond, ratePerSecond)
	if err != nil {
		return nil, err
	}
	basePowerThree, err := RayMul(basePowerTwo, ratePerSecond)
	if err != nil {
		return nil, err
	}

	firstTerm, overflow := new(uint256.Int).MulOverflow(ratePerSecond, exp)
	if overflow {
		return nil, ErrOverflow
	}

	secondTerm, overflow := new(uint256.Int).MulOverflow(exp, expMinusOne)
	if overflow {
		return nil, ErrOverflow
	}
	secondTerm, overflow = secondTerm.MulOverflow(secondTerm, basePowerTwo)
	if overflow {
		return nil, ErrOverflow
	}
	secondTerm.Div(secondTerm, uint256.NewInt(2))

	thirdTerm, overflow := new(uint256.Int).MulOverflow(exp, expMinusOne)
	if overflow {
		return nil, ErrOverflow
	}
	thirdTerm, overflow = thirdTerm.MulOverflow(thirdTerm, expMinusTwo)
	if overflow {
		return nil, ErrOverflow
	}
	thirdTerm, overflow = thirdTerm.MulOverflow(thirdTerm, basePowerThree)
	if overflow {
		return nil, ErrOverflow
	}
	thirdTerm.Div(thirdTerm, uint256.NewInt(6))

	out, carry := new(uint256.Int).AddOverflow(Ray, firstTerm)
	if carry {
		return nil, ErrOverflow
	}
	out, carry = out.AddOverflow(out, secondTerm)
	if carry {
		return nil, ErrOverflow
	}
	out, carry = out.AddOverflow(out, thirdTerm)
	if carry {
		return nil, ErrOverflow
	}
	return out, nil
}
