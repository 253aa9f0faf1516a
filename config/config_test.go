package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleConfig = `
Environment = "test"
DataDir = "./data"
LogLevel = "debug"
MetricsAddress = ":9464"
Treasury = "0x00000000000000000000000000000000000000fe"

[Pauses]
Borrow = true

[Rates]
BaseBps = 100
Slope1Bps = 1000
Slope2Bps = 5000
KinkBps = 9000

[[Reserve]]
Symbol = "WETH"
Address = "0x0000000000000000000000000000000000000010"
Decimals = 18
Price = 250000000000
LTVBps = 8000
LiquidationThresholdBps = 8500
LiquidationBonusBps = 10500
ReserveFactorBps = 1000
BorrowingEnabled = true

[[Reserve]]
Symbol = "USDC"
Address = "0x0000000000000000000000000000000000000011"
Decimals = 6
Price = 100000000
LTVBps = 7500
LiquidationThresholdBps = 7800
LiquidationBonusBps = 10450
BorrowingEnabled = true
BorrowableInIsolation = true

[[EMode]]
ID = 1
Label = "eth-correlated"
LTVBps = 9300
LiquidationThresholdBps = 9500
LiquidationBonusBps = 10100
Collateral = ["WETH"]
Borrowable = ["WETH"]
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corelend.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesReservesAndEModes(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Reserves) != 2 {
		t.Fatalf("expected 2 reserves, got %d", len(cfg.Reserves))
	}
	weth := cfg.Reserves[0]
	if weth.Symbol != "WETH" || weth.Decimals != 18 || weth.LTVBps != 8000 {
		t.Fatalf("unexpected weth entry: %+v", weth)
	}
	engineCfg := weth.ToConfiguration()
	if !engineCfg.Active || !engineCfg.BorrowingEnabled || engineCfg.LiquidationThreshold != 8500 {
		t.Fatalf("conversion lost fields: %+v", engineCfg)
	}
	if len(cfg.EModes) != 1 || cfg.EModes[0].Label != "eth-correlated" {
		t.Fatalf("unexpected emodes: %+v", cfg.EModes)
	}
	if !cfg.Pauses.IsPaused("lending", "borrow") {
		t.Fatalf("expected borrow paused")
	}
	if cfg.Pauses.IsPaused("lending", "liquidate") {
		t.Fatalf("liquidate must not be paused")
	}
	if cfg.Rates.KinkBps != 9000 {
		t.Fatalf("unexpected kink: %d", cfg.Rates.KinkBps)
	}
}

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corelend.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.DataDir == "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not persisted: %v", err)
	}
	if cfg.Rates.KinkBps != 8000 {
		t.Fatalf("expected default rate curve, got %+v", cfg.Rates)
	}
}

func TestLoadRejectsInvalidConfigs(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		message string
	}{
		{
			name:    "bad reserve address",
			mutate:  func(s string) string { return strings.Replace(s, "0x0000000000000000000000000000000000000010", "not-an-address", 1) },
			message: "invalid address",
		},
		{
			name:    "duplicate symbol",
			mutate:  func(s string) string { return strings.Replace(s, `Symbol = "USDC"`, `Symbol = "WETH"`, 1) },
			message: "duplicate reserve symbol",
		},
		{
			name:    "ltv above threshold",
			mutate:  func(s string) string { return strings.Replace(s, "LTVBps = 8000", "LTVBps = 8800", 1) },
			message: "liquidation threshold",
		},
		{
			name:    "emode references unknown reserve",
			mutate:  func(s string) string { return strings.Replace(s, `Collateral = ["WETH"]`, `Collateral = ["WBTC"]`, 1) },
			message: "unknown reserve",
		},
	}
	for _, tc := range cases {
		_, err := Load(writeConfig(t, tc.mutate(sampleConfig)))
		if err == nil {
			t.Fatalf("%s: expected load failure", tc.name)
		}
		if !strings.Contains(err.Error(), tc.message) {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
	}
}
