package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"corelend/config"
	"corelend/native/lending"
	"corelend/observability"
	"corelend/observability/logging"
	"corelend/storage"
)

func main() {
	configFile := flag.String("config", "./corelend.toml", "Path to the configuration file")
	scenarioFile := flag.String("scenario", "", "Path to a scenario file to replay")
	memory := flag.Bool("memdb", false, "Keep state in memory instead of the data directory")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	logger := logging.Setup("lendsim", cfg.Environment, logging.ParseLevel(cfg.LogLevel))

	var db storage.Database
	if *memory {
		db = storage.NewMemDB()
	} else {
		leveldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			panic(fmt.Sprintf("Failed to open database: %v", err))
		}
		defer leveldb.Close()
		db = leveldb
	}

	if strings.TrimSpace(cfg.MetricsAddress) != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
		logger.Info("metrics listening", "address", cfg.MetricsAddress)
	}
	observability.Lending()

	engine, clock, prices, assets, err := buildEngine(cfg, db, logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to wire engine: %v", err))
	}
	logger.Info("reserves listed", "count", len(assets))

	if *scenarioFile == "" {
		logger.Info("no scenario given, exiting")
		return
	}
	scenario, err := LoadScenario(*scenarioFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load scenario: %v", err))
	}
	runner := NewRunner(engine, clock, prices, assets, logger)
	if err := runner.Run(scenario); err != nil {
		panic(fmt.Sprintf("Scenario failed: %v", err))
	}
	logger.Info("scenario complete", "steps", len(scenario.Steps))
}

// buildEngine wires a lending engine from the configuration: state store,
// ledgers, oracle prices, the rate curve, pauses and the event recorder, then
// lists every configured reserve and eMode category.
func buildEngine(cfg *config.Config, db storage.Database, logger *slog.Logger) (*lending.Engine, *lending.ManualClock, *lending.StaticPriceSource, map[string]common.Address, error) {
	engine := lending.NewEngine(common.HexToAddress(cfg.Treasury))
	engine.SetState(storage.NewStateStore(db))
	engine.SetLedgers(lending.NewMemoryLedgerRegistry())

	prices := lending.NewStaticPriceSource()
	engine.SetPriceSource(prices)
	engine.SetRateStrategy(lending.NewKinkedRateStrategy(cfg.Rates.BaseBps, cfg.Rates.Slope1Bps, cfg.Rates.Slope2Bps, cfg.Rates.KinkBps))

	clock := lending.NewManualClock(uint64(time.Now().Unix()))
	engine.SetClock(clock)
	engine.SetPauses(cfg.Pauses)
	engine.SetEventSink(observability.NewEventRecorder(logger))

	assets := make(map[string]common.Address, len(cfg.Reserves))
	ids := make(map[string]uint8, len(cfg.Reserves))
	for _, reserve := range cfg.Reserves {
		addr := common.HexToAddress(reserve.Address)
		symbol := strings.ToUpper(strings.TrimSpace(reserve.Symbol))
		id, err := engine.ListReserve(addr, reserve.ToConfiguration())
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("list reserve %s: %w", symbol, err)
		}
		prices.SetPrice(addr, uint256.NewInt(reserve.Price))
		assets[symbol] = addr
		ids[symbol] = id
		logger.Info("reserve listed", "symbol", symbol, "id", id, "address", addr.Hex())
	}

	for _, mode := range cfg.EModes {
		category := lending.EModeCategory{
			LTV:                  mode.LTVBps,
			LiquidationThreshold: mode.LiquidationThresholdBps,
			LiquidationBonus:     mode.LiquidationBonusBps,
			CollateralBitmap:     symbolBitmap(mode.Collateral, ids),
			BorrowableBitmap:     symbolBitmap(mode.Borrowable, ids),
			Label:                mode.Label,
		}
		if err := engine.ConfigureEMode(mode.ID, category); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("configure emode %d: %w", mode.ID, err)
		}
		logger.Info("emode configured", "id", mode.ID, "label", mode.Label)
	}
	return engine, clock, prices, assets, nil
}

func symbolBitmap(symbols []string, ids map[string]uint8) *uint256.Int {
	bitmap := new(uint256.Int)
	for _, symbol := range symbols {
		id := ids[strings.ToUpper(strings.TrimSpace(symbol))]
		bit := new(uint256.Int).Lsh(uint256.NewInt(1), uint(id))
		bitmap.Or(bitmap, bit)
	}
	return bitmap
}
