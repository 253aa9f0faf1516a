package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"corelend/native/lending"
)

// Validate cross-checks the configuration: addresses must parse, symbols and
// addresses must be unique, reserve risk parameters must satisfy the engine's
// own configuration rules, and eMode categories may only reference listed
// reserves.
func Validate(cfg *Config) error {
	if cfg.Treasury != "" && !common.IsHexAddress(cfg.Treasury) {
		return fmt.Errorf("config: invalid treasury address %q", cfg.Treasury)
	}
	if cfg.Rates.KinkBps == 0 || cfg.Rates.KinkBps > 10_000 {
		return fmt.Errorf("config: rates kink %d outside (0, 10000]", cfg.Rates.KinkBps)
	}

	symbols := make(map[string]struct{}, len(cfg.Reserves))
	addresses := make(map[common.Address]struct{}, len(cfg.Reserves))
	for i := range cfg.Reserves {
		r := &cfg.Reserves[i]
		symbol := strings.ToUpper(strings.TrimSpace(r.Symbol))
		if symbol == "" {
			return fmt.Errorf("config: reserve %d missing symbol", i)
		}
		if _, dup := symbols[symbol]; dup {
			return fmt.Errorf("config: duplicate reserve symbol %s", symbol)
		}
		symbols[symbol] = struct{}{}
		if !common.IsHexAddress(r.Address) {
			return fmt.Errorf("config: reserve %s has invalid address %q", symbol, r.Address)
		}
		addr := common.HexToAddress(r.Address)
		if _, dup := addresses[addr]; dup {
			return fmt.Errorf("config: duplicate reserve address %s", r.Address)
		}
		addresses[addr] = struct{}{}
		if r.Price == 0 {
			return fmt.Errorf("config: reserve %s missing price", symbol)
		}
		if err := r.ToConfiguration().Validate(); err != nil {
			return fmt.Errorf("config: reserve %s: %w", symbol, err)
		}
	}

	seenCategories := make(map[uint8]struct{}, len(cfg.EModes))
	for _, category := range cfg.EModes {
		if category.ID == 0 {
			return fmt.Errorf("config: emode category 0 is reserved")
		}
		if _, dup := seenCategories[category.ID]; dup {
			return fmt.Errorf("config: duplicate emode category %d", category.ID)
		}
		seenCategories[category.ID] = struct{}{}
		for _, symbol := range append(append([]string{}, category.Collateral...), category.Borrowable...) {
			if _, ok := symbols[strings.ToUpper(strings.TrimSpace(symbol))]; !ok {
				return fmt.Errorf("config: emode category %d references unknown reserve %s", category.ID, symbol)
			}
		}
	}
	return nil
}

// ToConfiguration converts the reserve entry into the engine's typed
// configuration. Configured reserves are always listed active.
func (r Reserve) ToConfiguration() lending.ReserveConfiguration {
	return lending.ReserveConfiguration{
		LTV:                    r.LTVBps,
		LiquidationThreshold:   r.LiquidationThresholdBps,
		LiquidationBonus:       r.LiquidationBonusBps,
		Decimals:               r.Decimals,
		Active:                 true,
		Frozen:                 r.Frozen,
		BorrowingEnabled:       r.BorrowingEnabled,
		BorrowableInIsolation:  r.BorrowableInIsolation,
		Siloed:                 r.Siloed,
		FlashLoanEnabled:       r.FlashLoanEnabled,
		ReserveFactor:          r.ReserveFactorBps,
		BorrowCap:              r.BorrowCap,
		SupplyCap:              r.SupplyCap,
		LiquidationProtocolFee: r.LiquidationProtocolFeeBps,
		DebtCeiling:            r.DebtCeiling,
	}
}
