package fixedmath

import (
	"errors"

	"github.com/holiman/uint256"
)

// Wad values carry 18 decimals of precision, ray values 27. Indices and rates
// are expressed in ray, health factors in wad. All half-up operations match
// the reference rounding: (a*b + half) / unit with the addition checked for
// overflow before dividing.
var (
	Wad     = mustFromDecimal("1000000000000000000")
	HalfWad = mustFromDecimal("500000000000000000")

	Ray     = mustFromDecimal("1000000000000000000000000000")
	HalfRay = mustFromDecimal("500000000000000000000000000")

	wadRayRatio     = uint256.NewInt(1_000_000_000)
	halfWadRayRatio = uint256.NewInt(500_000_000)
)

var (
	ErrOverflow       = errors.New("fixedmath: overflow")
	ErrDivisionByZero = errors.New("fixedmath: division by zero")
)

func mustFromDecimal(value string) *uint256.Int {
	v, err := uint256.FromDecimal(value)
	if err != nil {
		panic("fixedmath: invalid constant " + value)
	}
	return v
}

func mulHalfUp(a, b, half, unit *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	sum, carry := new(uint256.Int).AddOverflow(product, half)
	if carry {
		return nil, ErrOverflow
	}
	return sum.Div(sum, unit), nil
}

func divHalfUp(a, unit, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	scaled, overflow := new(uint256.Int).MulOverflow(a, unit)
	if overflow {
		return nil, ErrOverflow
	}
	half := new(uint256.Int).Rsh(b, 1)
	sum, carry := scaled.AddOverflow(scaled, half)
	if carry {
		return nil, ErrOverflow
	}
	return sum.Div(sum, b), nil
}

// WadMul multiplies two wad values, rounding half up.
func WadMul(a, b *uint256.Int) (*uint256.Int, error) {
	return mulHalfUp(a, b, HalfWad, Wad)
}

// WadDiv divides two wad values, rounding half up.
func WadDiv(a, b *uint256.Int) (*uint256.Int, error) {
	return divHalfUp(a, Wad, b)
}

// RayMul multiplies two ray values, rounding half up.
func RayMul(a, b *uint256.Int) (*uint256.Int, error) {
	return mulHalfUp(a, b, HalfRay, Ray)
}

// RayDiv divides two ray values, rounding half up.
func RayDiv(a, b *uint256.Int) (*uint256.Int, error) {
	return divHalfUp(a, Ray, b)
}

// RayToWad casts a ray down to wad, rounding half up on the truncated digits.
func RayToWad(a *uint256.Int) *uint256.Int {
	out := new(uint256.Int).Div(a, wadRayRatio)
	rem := new(uint256.Int).Mod(a, wadRayRatio)
	if rem.Gt(halfWadRayRatio) {
		out.AddUint64(out, 1)
	}
	return out
}

// WadToRay converts a wad up to ray.
func WadToRay(a *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulOverflow(a, wadRayRatio)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// Pow10 returns 10^n, used to derive asset units from configured decimals.
func Pow10(n uint8) *uint256.Int {
	out := uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := uint8(0); i < n; i++ {
		out.Mul(out, ten)
	}
	return out
}
