package main

import (
	"context"
	"fmt"
	"iter"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-fleet/internal/controller"
	"github.com/rxtech-lab/argo-fleet/internal/fleet"
	"github.com/rxtech-lab/argo-fleet/internal/gateway"
	"github.com/rxtech-lab/argo-fleet/internal/history"
	"github.com/rxtech-lab/argo-fleet/internal/logger"
	"github.com/rxtech-lab/argo-fleet/internal/strategy"
	"github.com/rxtech-lab/argo-fleet/internal/types"
	"github.com/rxtech-lab/argo-fleet/pkg/marketdata/provider"
)

// tradeAction wires the configured gateway, market data feed and controllers
// together and runs the fleet until interrupted.
func tradeAction(ctx context.Context, cmd *cli.Command) error {
	config, err := fleet.LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	log, err := logger.NewLoggerWithLevel(logger.ParseLevel(config.LogLevel))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	gw, err := newGateway(config)
	if err != nil {
		return err
	}

	feed, err := newMarketDataProvider(config)
	if err != nil {
		return err
	}

	warmup, err := loadWarmupBars(ctx, config, log)
	if err != nil {
		return err
	}

	dispatcher := fleet.NewDispatcher(gw, log)

	for _, symbolConfig := range config.Symbols {
		c := controller.NewSymbolController(controller.Config{
			Symbol:            symbolConfig.Symbol,
			Budget:            symbolConfig.Budget,
			PriceIncrement:    config.PriceIncrement,
			QuantityPrecision: symbolConfig.QuantityPrecision,
			SeriesSize:        0,
		}, gw, strategy.NewSMACrossover(config.SignalPeriod), log)

		dispatcher.Register(c, warmup[symbolConfig.Symbol])
	}

	bars := func(ctx context.Context) iter.Seq2[types.Bar, error] {
		return feed.Stream(ctx, dispatcher.Symbols(), config.MarketData.Interval)
	}

	var updates fleet.UpdateStreamFunc
	if source, ok := gw.(gateway.OrderUpdateSource); ok {
		updates = source.StreamOrderUpdates
	} else {
		log.Warn("gateway does not stream order updates, relying on reconciliation only")
	}

	log.Info("fleet starting",
		zap.Strings("symbols", dispatcher.Symbols()),
		zap.String("gateway", config.Gateway.Provider),
		zap.String("market_data", config.MarketData.Provider))

	dispatcher.Run(ctx, bars, updates, config.ReconcileInterval)

	log.Info("fleet stopped")

	return nil
}

func newGateway(config *fleet.Config) (gateway.Gateway, error) {
	gatewayConfig := &gateway.BinanceGatewayConfig{
		ApiKey:     config.Gateway.ApiKey,
		SecretKey:  config.Gateway.SecretKey,
		BaseURL:    config.Gateway.BaseURL,
		QuoteAsset: config.Gateway.QuoteAsset,
	}

	return gateway.NewGateway(gateway.ProviderType(config.Gateway.Provider), gatewayConfig)
}

func newMarketDataProvider(config *fleet.Config) (provider.Provider, error) {
	switch provider.ProviderType(config.MarketData.Provider) {
	case provider.ProviderPolygon:
		return provider.NewMarketDataProvider(provider.ProviderPolygon, config.MarketData.ApiKey)
	case provider.ProviderReplay:
		return provider.NewMarketDataProvider(provider.ProviderReplay, config.MarketData.Endpoint)
	default:
		return provider.NewMarketDataProvider(provider.ProviderType(config.MarketData.Provider), nil)
	}
}

// loadWarmupBars reads the trailing history window for every configured symbol
// from the bar archive, keyed by symbol. Without a data path every controller
// starts cold and waits out the signal window on live bars.
func loadWarmupBars(ctx context.Context, config *fleet.Config, log *logger.Logger) (map[string][]types.Bar, error) {
	warmup := make(map[string][]types.Bar, len(config.Symbols))
	if config.DataPath == "" || config.WarmupBars == 0 {
		return warmup, nil
	}

	store := history.NewStore(config.DataPath)
	if err := store.Initialize(); err != nil {
		return nil, err
	}
	defer store.Close()

	for _, symbolConfig := range config.Symbols {
		bars, err := store.LastN(ctx, symbolConfig.Symbol, config.WarmupBars)
		if err != nil {
			return nil, err
		}

		if len(bars) == 0 {
			log.Warn("no warmup history for symbol, starting cold",
				zap.String("symbol", symbolConfig.Symbol))

			continue
		}

		warmup[symbolConfig.Symbol] = bars
	}

	return warmup, nil
}

func main() {
	cmd := &cli.Command{
		Name:  "trader",
		Usage: "Run the automated trading fleet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the YAML fleet configuration",
				Value:    "config.yaml",
				Required: false,
			},
		},
		Action: tradeAction,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
