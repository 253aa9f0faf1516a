package config

// Reserve describes one asset listing: its identity, oracle quote and risk
// parameters. Percentages are basis points, caps are whole tokens and the
// debt ceiling is in ceiling-decimal units.
type Reserve struct {
	Symbol                    string `toml:"Symbol"`
	Address                   string `toml:"Address"`
	Decimals                  uint8  `toml:"Decimals"`
	Price                     uint64 `toml:"Price"` // base currency, 8 decimals
	LTVBps                    uint64 `toml:"LTVBps"`
	LiquidationThresholdBps   uint64 `toml:"LiquidationThresholdBps"`
	LiquidationBonusBps       uint64 `toml:"LiquidationBonusBps"`
	ReserveFactorBps          uint64 `toml:"ReserveFactorBps"`
	LiquidationProtocolFeeBps uint64 `toml:"LiquidationProtocolFeeBps"`
	BorrowingEnabled          bool   `toml:"BorrowingEnabled"`
	BorrowableInIsolation     bool   `toml:"BorrowableInIsolation"`
	Siloed                    bool   `toml:"Siloed"`
	FlashLoanEnabled          bool   `toml:"FlashLoanEnabled"`
	Frozen                    bool   `toml:"Frozen"`
	BorrowCap                 uint64 `toml:"BorrowCap"`
	SupplyCap                 uint64 `toml:"SupplyCap"`
	DebtCeiling               uint64 `toml:"DebtCeiling"`
}

// EMode describes an efficiency-mode category over the listed reserves,
// referenced by symbol.
type EMode struct {
	ID                      uint8    `toml:"ID"`
	Label                   string   `toml:"Label"`
	LTVBps                  uint64   `toml:"LTVBps"`
	LiquidationThresholdBps uint64   `toml:"LiquidationThresholdBps"`
	LiquidationBonusBps     uint64   `toml:"LiquidationBonusBps"`
	Collateral              []string `toml:"Collateral"`
	Borrowable              []string `toml:"Borrowable"`
}

// Rates parameterizes the kinked interest curve, in basis points.
type Rates struct {
	BaseBps   uint64 `toml:"BaseBps"`
	Slope1Bps uint64 `toml:"Slope1Bps"`
	Slope2Bps uint64 `toml:"Slope2Bps"`
	KinkBps   uint64 `toml:"KinkBps"`
}

// Pauses lists the halted module actions. Paused actions reject with the
// circuit-breaker error without touching reserve state.
type Pauses struct {
	Borrow    bool `toml:"Borrow"`
	Liquidate bool `toml:"Liquidate"`
}

// IsPaused implements the circuit-breaker view over the static config.
func (p Pauses) IsPaused(module, action string) bool {
	if module != "lending" {
		return false
	}
	switch action {
	case "borrow":
		return p.Borrow
	case "liquidate":
		return p.Liquidate
	}
	return false
}
