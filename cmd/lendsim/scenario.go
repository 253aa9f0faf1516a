package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"corelend/native/lending"
)

// Scenario is a replayable sequence of ledger operations, loaded from TOML.
type Scenario struct {
	Steps []Step `toml:"Step"`
}

// Step is one scenario entry. Which fields matter depends on Op:
//
//	supply/withdraw/borrow/repay  Reserve, User, Amount
//	collateral                    Reserve, User, Enabled
//	emode                         User, Category
//	liquidate                     Reserve (collateral), Debt, User, Caller,
//	                              Amount, ReceiveShares
//	advance                       Seconds
//	price                         Reserve, Value
//	treasury                      Reserve
//	eliminate-deficit             Reserve, Caller, Amount
//	account                       User
type Step struct {
	Op            string `toml:"Op"`
	Reserve       string `toml:"Reserve"`
	Debt          string `toml:"Debt"`
	User          string `toml:"User"`
	Caller        string `toml:"Caller"`
	Amount        string `toml:"Amount"`
	Value         string `toml:"Value"`
	Seconds       uint64 `toml:"Seconds"`
	Category      uint8  `toml:"Category"`
	Enabled       bool   `toml:"Enabled"`
	ReceiveShares bool   `toml:"ReceiveShares"`
}

// LoadScenario parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	scenario := &Scenario{}
	if _, err := toml.DecodeFile(path, scenario); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	return scenario, nil
}

// Runner replays scenario steps against a wired engine. Reserve symbols and
// user names are resolved to addresses as steps execute; user addresses are
// derived from the name so scenarios stay self-contained.
type Runner struct {
	engine *lending.Engine
	clock  *lending.ManualClock
	prices *lending.StaticPriceSource
	assets map[string]common.Address
	logger *slog.Logger
}

// NewRunner builds a runner over the given engine wiring. The assets map
// carries symbol to address resolution for every listed reserve.
func NewRunner(engine *lending.Engine, clock *lending.ManualClock, prices *lending.StaticPriceSource, assets map[string]common.Address, logger *slog.Logger) *Runner {
	return &Runner{engine: engine, clock: clock, prices: prices, assets: assets, logger: logger}
}

// UserAddress derives a deterministic address for a scenario user name.
func UserAddress(name string) common.Address {
	hash := crypto.Keccak256([]byte("lendsim/user/" + name))
	return common.BytesToAddress(hash[12:])
}

func (r *Runner) asset(symbol string) (common.Address, error) {
	addr, ok := r.assets[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return common.Address{}, fmt.Errorf("scenario: unknown reserve %q", symbol)
	}
	return addr, nil
}

func parseAmount(raw string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("scenario: bad amount %q: %w", raw, err)
	}
	return amount, nil
}

// Run replays every step in order, stopping at the first failure.
func (r *Runner) Run(scenario *Scenario) error {
	for i, step := range scenario.Steps {
		if err := r.apply(step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}
	return nil
}

func (r *Runner) apply(step Step) error {
	switch strings.ToLower(strings.TrimSpace(step.Op)) {
	case "supply":
		asset, err := r.asset(step.Reserve)
		if err != nil {
			return err
		}
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		user := UserAddress(step.User)
		return r.engine.Supply(asset, user, user, amount)
	case "withdraw":
		asset, err := r.asset(step.Reserve)
		if err != nil {
			return err
		}
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		withdrawn, err := r.engine.Withdraw(asset, UserAddress(step.User), amount)
		if err != nil {
			return err
		}
		r.logger.Info("withdrawn", "reserve", step.Reserve, "user", step.User, "amount", withdrawn.Dec())
		return nil
	case "borrow":
		asset, err := r.asset(step.Reserve)
		if err != nil {
			return err
		}
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		user := UserAddress(step.User)
		return r.engine.Borrow(asset, user, user, amount)
	case "repay":
		asset, err := r.asset(step.Reserve)
		if err != nil {
			return err
		}
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		user := UserAddress(step.User)
		repaid, err := r.engine.Repay(asset, user, user, amount)
		if err != nil {
			return err
		}
		r.logger.Info("repaid", "reserve", step.Reserve, "user", step.User, "amount", repaid.Dec())
		return nil
	case "collateral":
		asset, err := r.asset(step.Reserve)
		if err != nil {
			return err
		}
		return r.engine.SetUsingAsCollateral(asset, UserAddress(step.User), step.Enabled)
	case "emode":
		return r.engine.SetUserEMode(UserAddress(step.User), step.Category)
	case "liquidate":
		collateral, err := r.asset(step.Reserve)
		if err != nil {
			return err
		}
		debt, err := r.asset(step.Debt)
		if err != nil {
			return err
		}
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		result, err := r.engine.Liquidate(collateral, debt, UserAddress(step.User), UserAddress(step.Caller), amount, step.ReceiveShares)
		if err != nil {
			return err
		}
		r.logger.Info("liquidated",
			"user", step.User,
			"debtCovered", result.DebtCovered.Dec(),
			"collateralSeized", result.CollateralSeized.Dec(),
			"protocolFee", result.ProtocolFee.Dec())
		return nil
	case "advance":
		if step.Seconds == 0 {
			return fmt.Errorf("scenario: advance needs Seconds")
		}
		r.clock.Advance(step.Seconds)
		return nil
	case "price":
		asset, err := r.asset(step.Reserve)
		if err != nil {
			return err
		}
		price, err := parseAmount(step.Value)
		if err != nil {
			return err
		}
		r.prices.SetPrice(asset, price)
		return nil
	case "treasury":
		asset, err := r.asset(step.Reserve)
		if err != nil {
			return err
		}
		minted, err := r.engine.MintToTreasury(asset)
		if err != nil {
			return err
		}
		r.logger.Info("treasury minted", "reserve", step.Reserve, "amount", minted.Dec())
		return nil
	case "eliminate-deficit":
		asset, err := r.asset(step.Reserve)
		if err != nil {
			return err
		}
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		covered, err := r.engine.EliminateDeficit(asset, UserAddress(step.Caller), amount)
		if err != nil {
			return err
		}
		r.logger.Info("deficit eliminated", "reserve", step.Reserve, "amount", covered.Dec())
		return nil
	case "account":
		data, err := r.engine.AccountData(UserAddress(step.User))
		if err != nil {
			return err
		}
		health := "max"
		if data.HealthFactor.Cmp(lending.MaxHealthFactor) != 0 {
			health = data.HealthFactor.Dec()
		}
		r.logger.Info("account",
			"user", step.User,
			"collateralBase", data.TotalCollateralBase.Dec(),
			"debtBase", data.TotalDebtBase.Dec(),
			"avgLTV", data.AvgLTV,
			"avgThreshold", data.AvgLiquidationThreshold,
			"healthFactor", health)
		return nil
	default:
		return fmt.Errorf("scenario: unknown op %q", step.Op)
	}
}
