package lending

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var errNoPrice = errors.New("lending engine: no price for asset")

// StaticPriceSource quotes assets from a fixed table. Quotes share a common
// base-currency unit (8 decimals by convention).
type StaticPriceSource struct {
	prices map[common.Address]*uint256.Int
}

// NewStaticPriceSource returns an empty price table.
func NewStaticPriceSource() *StaticPriceSource {
	return &StaticPriceSource{prices: make(map[common.Address]*uint256.Int)}
}

// SetPrice records the asset's base-currency quote.
func (s *StaticPriceSource) SetPrice(asset common.Address, price *uint256.Int) {
	s.prices[asset] = new(uint256.Int).Set(price)
}

// Price returns the recorded quote for the asset.
func (s *StaticPriceSource) Price(asset common.Address) (*uint256.Int, error) {
	p, ok := s.prices[asset]
	if !ok {
		return nil, errNoPrice
	}
	return new(uint256.Int).Set(p), nil
}

// ManualClock is a settable time source for deterministic accrual.
type ManualClock struct {
	now uint64
}

// NewManualClock starts the clock at the given unix time.
func NewManualClock(now uint64) *ManualClock {
	return &ManualClock{now: now}
}

// Now returns the current clock reading.
func (c *ManualClock) Now() uint64 { return c.now }

// Set moves the clock to the given unix time.
func (c *ManualClock) Set(now uint64) { c.now = now }

// Advance moves the clock forward by seconds.
func (c *ManualClock) Advance(seconds uint64) { c.now += seconds }
