// Command micromatch is a small demo driver: it brings up a matching
// engine with one symbol, wires an A/B feed pair and arbitrage detector to
// it, publishes a handful of quotes, and prints the resulting stats. It is
// not a production gateway: there is no wire protocol or network
// listener here, by design.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nickjohnsondls/matchingengine/internal/bridge"
	"github.com/nickjohnsondls/matchingengine/internal/core"
	"github.com/nickjohnsondls/matchingengine/internal/logging"
)

const demoSymbolID = 1

func main() {
	log.Logger = logging.Configure(os.Stderr, logging.LevelFromEnv())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := core.NewMatchingEngine()
	if err := engine.RegisterSymbol(demoSymbolID); err != nil {
		log.Fatal().Err(err).Msg("unable to register demo symbol")
	}
	if err := engine.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("unable to start matching engine")
	}
	defer func() {
		if err := engine.Stop(); err != nil {
			log.Error().Err(err).Msg("error stopping matching engine")
		}
	}()

	engine.OnTrade(func(tr core.Trade) {
		log.Info().
			Uint64("trade_id", tr.TradeID).
			Int64("price", tr.Price).
			Uint32("quantity", tr.Quantity).
			Msg("trade executed")
	})

	handler := bridge.NewHandler(engine)
	handler.Start(ctx)
	defer handler.Stop()

	runDemo(handler)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-time.After(2 * time.Second):
	}

	handler.PrintStats()
}

// runDemo publishes a short sequence of quotes and trades. The second
// quote moves the top of book, so while feed B still lags behind feed A
// with the first quote the arbitrage detector sees the two feeds disagree.
// No quote pair here crosses, so no profitable opportunity is produced.
func runDemo(handler *bridge.Handler) {
	handler.PublishQuote(demoSymbolID, 100_000000, 100_500000, 100, 100)
	time.Sleep(50 * time.Millisecond)

	handler.PublishTrade(demoSymbolID, 100_250000, 25, true)
	time.Sleep(50 * time.Millisecond)

	handler.SetVolatileMarket(true)
	handler.PublishQuote(demoSymbolID, 100_100000, 100_600000, 50, 50)
	time.Sleep(50 * time.Millisecond)

	handler.SetVolatileMarket(false)
}
