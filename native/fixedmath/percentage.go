package fixedmath

import "github.com/holiman/uint256"

// Percentages carry 4 decimals of precision: 10_000 is 100.00%. Risk
// parameters (LTV, liquidation threshold, bonus, reserve factor) are all
// expressed in these basis-point units.
var (
	PercentageFactor     = uint256.NewInt(10_000)
	halfPercentageFactor = uint256.NewInt(5_000)
)

// PercentMul applies a basis-point percentage to a value, rounding half up.
func PercentMul(value *uint256.Int, percentage uint64) (*uint256.Int, error) {
	return mulHalfUp(value, uint256.NewInt(percentage), halfPercentageFactor, PercentageFactor)
}

// PercentDiv divides a value by a basis-point percentage, rounding half up.
func PercentDiv(value *uint256.Int, percentage uint64) (*uint256.Int, error) {
	return divHalfUp(value, PercentageFactor, uint256.NewInt(percentage))
}
