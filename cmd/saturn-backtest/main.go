package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saturn/internal/backtest"
	"saturn/internal/config"
	"saturn/internal/domain"
	"saturn/internal/store"
	"saturn/internal/strategy"
	"saturn/internal/strategy/builtins"
	"saturn/internal/util"
)

func main() {
	var (
		symbol     = flag.String("symbol", "", "symbol to backtest (required)")
		stratName  = flag.String("strategy", "", "strategy name (default from config)")
		startStr   = flag.String("start", "2020-01-01", "backtest start date (YYYY-MM-DD)")
		endStr     = flag.String("end", "", "backtest end date (YYYY-MM-DD, default today)")
		capital    = flag.Float64("capital", 0, "initial capital (default from config)")
		commission = flag.Float64("commission", -1, "commission rate (default from config)")
		slippage   = flag.Float64("slippage", -1, "slippage rate (default from config)")
	)
	flag.Parse()

	cfgPath := "config/saturn.yaml"
	if p := os.Getenv("SATURN_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	if *symbol == "" {
		log.Fatal("missing required flag: -symbol")
	}

	start, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		log.Fatalf("invalid -start date: %v", err)
	}
	end := time.Now().UTC()
	if *endStr != "" {
		end, err = time.Parse("2006-01-02", *endStr)
		if err != nil {
			log.Fatalf("invalid -end date: %v", err)
		}
	}

	name := cfg.Backtest.DefaultStrategy
	if *stratName != "" {
		name = *stratName
	}
	initialCapital := cfg.Backtest.InitialCapital
	if *capital > 0 {
		initialCapital = *capital
	}
	commissionRate := cfg.Backtest.CommissionRate
	if *commission >= 0 {
		commissionRate = *commission
	}
	slippageRate := cfg.Backtest.SlippageRate
	if *slippage >= 0 {
		slippageRate = *slippage
	}

	smaCross := builtins.NewSMACross(10, 30)
	rsiRev := builtins.NewRSIReversion(14)
	macdCross := builtins.NewMACDCross()
	if frac := cfg.Backtest.PositionFrac; frac > 0 {
		smaCross.SetPositionFrac(frac)
		rsiRev.SetPositionFrac(frac)
		macdCross.SetPositionFrac(frac)
	}

	registry := strategy.NewRegistry()
	registry.Register(smaCross)
	registry.Register(rsiRev)
	registry.Register(macdCross)

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	source := backtest.NewStoreSource(pstore, domain.MarketUS)

	bt := backtest.New(source, registry, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := bt.Run(ctx, backtest.Config{
		Strategy:       name,
		Symbol:         *symbol,
		Start:          start,
		End:            end,
		InitialCapital: initialCapital,
		CommissionRate: commissionRate,
		SlippageRate:   slippageRate,
		PeriodsPerYear: cfg.Backtest.PeriodsPerYear,
	})
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("encoding report: %v", err)
	}
}
