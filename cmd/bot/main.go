package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ducminhle1904/fusion-trading-bot/internal/bot"
	"github.com/ducminhle1904/fusion-trading-bot/internal/config"
	"github.com/ducminhle1904/fusion-trading-bot/internal/execution"
	"github.com/ducminhle1904/fusion-trading-bot/internal/fusion"
	"github.com/ducminhle1904/fusion-trading-bot/internal/journal"
	"github.com/ducminhle1904/fusion-trading-bot/internal/logger"
	"github.com/ducminhle1904/fusion-trading-bot/internal/monitoring"
	"github.com/ducminhle1904/fusion-trading-bot/internal/notifications"
	"github.com/ducminhle1904/fusion-trading-bot/internal/reporting"
	"github.com/ducminhle1904/fusion-trading-bot/internal/risk"
	"github.com/ducminhle1904/fusion-trading-bot/internal/server"
	"github.com/ducminhle1904/fusion-trading-bot/internal/signals"
	"github.com/ducminhle1904/fusion-trading-bot/internal/venue"
	"github.com/ducminhle1904/fusion-trading-bot/internal/venue/bybit"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file (JSON)")
		envFile    = flag.String("env", ".env", "Environment file path")
		demo       = flag.Bool("demo", false, "Run the demo decision loop against a random signal source")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "Seed for the demo signal source")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("Warning: could not load %s (%v), using process environment", *envFile, err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg := logger.New(cfg.LogLevel)

	fuser, err := fusion.NewFuser(cfg.Fusion)
	if err != nil {
		log.Fatalf("Failed to build signal fusion: %v", err)
	}

	gate := risk.NewGate(cfg.Risk, risk.NewState(cfg.InitialEquity), logg)
	monitoring.UpdateEquity(cfg.InitialEquity, 0)

	factory := venue.NewFactory(bybit.New)
	adapter, err := factory.Create(cfg.Venue)
	if err != nil {
		log.Fatalf("Failed to create venue adapter: %v", err)
	}
	if paper, ok := adapter.(*venue.PaperVenue); ok {
		for symbol, price := range cfg.Trading.PriceHints {
			paper.SetPrice(symbol, price)
		}
	}

	var notifier notifications.Notifier = notifications.Noop{}
	if cfg.Notifications.TelegramToken != "" {
		notifier = notifications.NewTelegramNotifier(
			cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID)
	}

	var tradeJournal *journal.Journal
	if cfg.Journal.Enabled {
		tradeJournal, err = journal.New(cfg.Journal.Dir, adapter.Name())
		if err != nil {
			log.Fatalf("Failed to open trade journal: %v", err)
		}
		defer tradeJournal.Close()
	}

	coord := execution.NewCoordinator(gate, adapter, execution.Options{
		Concurrency: cfg.Execution.Concurrency,
		Retry:       cfg.Retry,
		Notifier:    notifier,
		Journal:     tradeJournal,
		Logger:      logg,
	})

	health := monitoring.NewHealthChecker()
	health.SetVenueOK(true)

	var source signals.Source
	if *demo {
		source = signals.NewRandomSource(*seed)
	}

	tradingBot, err := bot.New(bot.Options{
		Fuser:       fuser,
		Gate:        gate,
		Coordinator: coord,
		Source:      source,
		Health:      health,
		Logger:      logg,
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	reporting.PrintStartup(adapter.Name(), cfg.Trading.Symbols, cfg.InitialEquity, cfg.Execution.Concurrency)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go coord.PollLoop(ctx, cfg.Execution.PollInterval)

	if *demo {
		go func() {
			if err := tradingBot.RunLoop(ctx, cfg.Trading.Interval, cfg.Trading.Symbols,
				cfg.Trading.Quantity, cfg.Trading.PriceHints); err != nil && ctx.Err() == nil {
				logg.Error().Err(err).Msg("decision loop exited")
			}
		}()
	}

	srv := server.New(server.Options{
		Port:   cfg.Server.Port,
		Bot:    tradingBot,
		Health: health,
		Logger: logg,
	})
	go func() {
		if err := srv.Start(); err != nil {
			logg.Error().Err(err).Msg("http server exited")
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		fmt.Println("\n🛑 Shutdown signal received...")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Warn().Err(err).Msg("http shutdown failed")
	}

	completed := tradingBot.DrainCompleted()
	reporting.PrintTradeSummary(completed, tradingBot.Portfolio())

	if cfg.Reporting.XLSXPath != "" && len(completed) > 0 {
		if err := reporting.WriteTradesXLSX(completed, cfg.Reporting.XLSXPath); err != nil {
			logg.Warn().Err(err).Msg("xlsx export failed")
		} else {
			fmt.Printf("📊 Trade history exported to %s\n", cfg.Reporting.XLSXPath)
		}
	}
}
