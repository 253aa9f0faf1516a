package main

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"corelend/config"
	"corelend/storage"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Treasury:    "0x00000000000000000000000000000000000000fe",
		Rates:       config.Rates{BaseBps: 200, Slope1Bps: 1_500, Slope2Bps: 6_000, KinkBps: 8_000},
		Reserves: []config.Reserve{
			{
				Symbol:                  "WETH",
				Address:                 "0x0000000000000000000000000000000000000010",
				Decimals:                18,
				Price:                   100_000_000,
				LTVBps:                  8_000,
				LiquidationThresholdBps: 8_500,
				LiquidationBonusBps:     10_500,
				ReserveFactorBps:        1_000,
				BorrowingEnabled:        true,
			},
			{
				Symbol:                  "USDC",
				Address:                 "0x0000000000000000000000000000000000000011",
				Decimals:                18,
				Price:                   100_000_000,
				LTVBps:                  7_500,
				LiquidationThresholdBps: 7_800,
				LiquidationBonusBps:     10_450,
				BorrowingEnabled:        true,
			},
		},
		EModes: []config.EMode{
			{
				ID:                      1,
				Label:                   "stable",
				LTVBps:                  9_300,
				LiquidationThresholdBps: 9_500,
				LiquidationBonusBps:     10_100,
				Collateral:              []string{"WETH", "USDC"},
				Borrowable:              []string{"WETH", "USDC"},
			},
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	engine, clock, prices, assets, err := buildEngine(testConfig(), storage.NewMemDB(), quietLogger())
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected 2 listed reserves, got %d", len(assets))
	}
	return NewRunner(engine, clock, prices, assets, quietLogger())
}

func TestRunnerReplaysScenario(t *testing.T) {
	runner := newTestRunner(t)
	scenario := &Scenario{Steps: []Step{
		{Op: "supply", Reserve: "WETH", User: "alice", Amount: "10000000000000000000000"},
		{Op: "supply", Reserve: "USDC", User: "bob", Amount: "10000000000000000000000"},
		{Op: "borrow", Reserve: "USDC", User: "alice", Amount: "5000000000000000000000"},
		{Op: "advance", Seconds: 86_400},
		{Op: "repay", Reserve: "USDC", User: "alice", Amount: "9000000000000000000000"},
		{Op: "account", User: "alice"},
	}}
	if err := runner.Run(scenario); err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	data, err := runner.engine.AccountData(UserAddress("alice"))
	if err != nil {
		t.Fatalf("account data: %v", err)
	}
	if !data.TotalDebtBase.IsZero() {
		t.Fatalf("expected debt repaid, got %s", data.TotalDebtBase.Dec())
	}
	expected := uint256.NewInt(1_000_000_000_000) // 10,000 tokens at $1 in 8-dec base
	if data.TotalCollateralBase.Cmp(expected) != 0 {
		t.Fatalf("unexpected collateral base: %s", data.TotalCollateralBase.Dec())
	}
}

func TestRunnerEModeAndPriceSteps(t *testing.T) {
	runner := newTestRunner(t)
	scenario := &Scenario{Steps: []Step{
		{Op: "supply", Reserve: "WETH", User: "carol", Amount: "1000000000000000000000"},
		{Op: "supply", Reserve: "USDC", User: "dave", Amount: "1000000000000000000000"},
		{Op: "emode", User: "carol", Category: 1},
		{Op: "borrow", Reserve: "USDC", User: "carol", Amount: "900000000000000000000"},
		{Op: "price", Reserve: "WETH", Value: "99000000"},
	}}
	if err := runner.Run(scenario); err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	price, err := runner.prices.Price(runner.assets["WETH"])
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if price.Uint64() != 99_000_000 {
		t.Fatalf("price step not applied: %s", price.Dec())
	}
}

func TestRunnerRejectsUnknownReserveAndOp(t *testing.T) {
	runner := newTestRunner(t)
	err := runner.Run(&Scenario{Steps: []Step{
		{Op: "supply", Reserve: "WBTC", User: "alice", Amount: "1"},
	}})
	if err == nil || !strings.Contains(err.Error(), "unknown reserve") {
		t.Fatalf("expected unknown reserve error, got %v", err)
	}
	err = runner.Run(&Scenario{Steps: []Step{{Op: "noop"}}})
	if err == nil || !strings.Contains(err.Error(), "unknown op") {
		t.Fatalf("expected unknown op error, got %v", err)
	}
}

func TestUserAddressDeterministic(t *testing.T) {
	if UserAddress("alice") != UserAddress("alice") {
		t.Fatalf("user address derivation must be stable")
	}
	if UserAddress("alice") == UserAddress("bob") {
		t.Fatalf("distinct users must not collide")
	}
}
