package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"perpspread-scanner/internal/credentials"
	"perpspread-scanner/internal/dedup"
	"perpspread-scanner/internal/detector"
	"perpspread-scanner/internal/exchange"
	"perpspread-scanner/internal/exchange/bingx"
	"perpspread-scanner/internal/exchange/bitget"
	"perpspread-scanner/internal/exchange/bybit"
	"perpspread-scanner/internal/exchange/gate"
	"perpspread-scanner/internal/exchange/lbank"
	"perpspread-scanner/internal/exchange/mexc"
	"perpspread-scanner/internal/exchange/okx"
	"perpspread-scanner/internal/metrics"
	"perpspread-scanner/internal/publisher"
	"perpspread-scanner/internal/scanner"
	"perpspread-scanner/internal/symbols"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load config from environment
	enabledExchanges := getEnv("ENABLED_EXCHANGES", "mexc,bitget,bybit,gate,okx,lbank,bingx")
	minSpreadPercent := getEnvFloat("MIN_SPREAD_PERCENT", 1.0)
	minSpreadChange := getEnvFloat("MIN_SPREAD_CHANGE_PERCENT", dedup.DefaultMinSpreadChangePercent)
	ignoreFile := getEnv("IGNORE_TOKENS_FILE", "ignore_tokens.json")
	metricsPort := getEnv("METRICS_PORT", "9090")
	redisAddr := getEnv("REDIS_ADDR", "")

	log.Info().
		Str("exchanges", enabledExchanges).
		Float64("min_spread_percent", minSpreadPercent).
		Float64("min_spread_change_percent", minSpreadChange).
		Str("metrics", ":"+metricsPort).
		Msg("Starting spread scanner")

	// Start metrics server
	metricsServer := metrics.NewServer(":" + metricsPort)
	go func() {
		if err := metricsServer.Start(); err != nil {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}()

	// MEXC credentials gate the deposit/withdraw check and the existence
	// probe; without them both degrade gracefully.
	mexcCreds := credentials.FromEnv("MEXC")
	mexcCodec := mexc.NewCodec(mexcCreds)

	var probe dedup.ExistenceProbe
	if mexcCreds.Configured() {
		probe = func(symbol string) bool {
			return mexcCodec.TokenExists(context.Background(), symbol)
		}
	}

	filter := dedup.NewManager(minSpreadChange, dedup.LoadIgnoreList(ignoreFile), probe)
	det := detector.New(minSpreadPercent, filter)

	// Every surfaced opportunity is logged; Redis fan-out is optional.
	det.RegisterAlertConsumer(func(o detector.SpreadOpportunity) {
		log.Info().
			Str("symbol", o.BaseToken).
			Str("buy_exchange", string(o.BuyVenue)).
			Float64("buy_price", o.BuyPrice).
			Str("sell_exchange", string(o.SellVenue)).
			Float64("sell_price", o.SellPrice).
			Float64("spread_percent", o.SpreadPercent).
			Msg("Spread opportunity")
	})

	if redisAddr != "" {
		pub, err := publisher.NewRedisPublisher(redisAddr)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Redis publisher")
		}
		defer pub.Close()
		det.RegisterAlertConsumer(pub.Consumer())
		log.Info().Str("addr", redisAddr).Msg("Redis publisher enabled")
	}

	sc := scanner.New(det, symbols.NewFetcher())

	registered := 0
	for _, ex := range strings.Split(enabledExchanges, ",") {
		switch strings.TrimSpace(strings.ToLower(ex)) {
		case "mexc":
			sc.AddExchange(exchange.NewAdapter(mexcCodec, exchange.Options{}))
		case "bitget":
			sc.AddExchange(bitget.New())
		case "bybit":
			sc.AddExchange(bybit.New())
		case "gate", "gateio":
			sc.AddExchange(gate.New())
		case "okx":
			sc.AddExchange(okx.New())
		case "lbank":
			sc.AddExchange(lbank.New())
		case "bingx":
			sc.AddExchange(bingx.New())
		case "":
			continue
		default:
			log.Warn().Str("exchange", ex).Msg("Unknown exchange, skipping")
			continue
		}
		registered++
	}
	if registered == 0 {
		log.Fatal().Msg("No exchanges enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sc.Start(ctx)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("Shutting down...")

	sc.Stop()

	if err := metricsServer.Stop(); err != nil {
		log.Error().Err(err).Msg("Error stopping metrics server")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid numeric env value, using default")
		return defaultValue
	}
	return f
}
