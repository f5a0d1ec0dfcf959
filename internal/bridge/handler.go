// Package bridge wires a pair of simulated feeds and an arbitrage detector
// to a matching engine, turning feed A's quotes into resting market-making
// orders the way a simple demo liquidity provider would.
package bridge

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nickjohnsondls/matchingengine/internal/arb"
	"github.com/nickjohnsondls/matchingengine/internal/core"
	"github.com/nickjohnsondls/matchingengine/internal/feed"
)

// syntheticOrderIDStart is the first order id the handler assigns to the
// bid/ask pairs it synthesizes from feed A quotes, kept well clear of any
// id space a caller might use directly. Grounded on original_source's
// feed_handler.hpp generate_order_id, which starts its counter at 1e6 "to
// distinguish from user orders".
const syntheticOrderIDStart = 1_000_000

// significantProfitBps is the threshold above which a detected opportunity
// is worth a log line, matching original_source's on_arbitrage_detected
// filter.
const significantProfitBps = 1.0

// FeedAConfig and FeedBConfig are the default latency profiles for the
// primary and backup feeds, matching original_source's FeedHandler
// constructor: A is faster and more reliable, B is the slower backup.
func FeedAConfig() feed.Config {
	cfg := feed.DefaultConfig()
	cfg.IsPrimaryFeed = true
	cfg.BaseLatency = 5 * time.Microsecond
	cfg.JitterNormal = 1 * time.Microsecond
	cfg.JitterSpike = 500 * time.Microsecond
	cfg.SpikeProbability = 0.001
	return cfg
}

func FeedBConfig() feed.Config {
	cfg := feed.DefaultConfig()
	cfg.IsPrimaryFeed = false
	cfg.BaseLatency = 10 * time.Microsecond
	cfg.JitterNormal = 2 * time.Microsecond
	cfg.JitterSpike = 1 * time.Millisecond
	cfg.SpikeProbability = 0.002
	return cfg
}

// Handler owns the A/B feed pair, the arbitrage detector watching them,
// and the matching engine that feed A's quotes are mirrored into.
// Grounded on original_source/include/network/feed_handler.hpp.
type Handler struct {
	engine   *core.MatchingEngine
	feedA    *feed.Simulator
	feedB    *feed.Simulator
	detector *arb.Detector

	nextOrderID atomic.Uint64
}

// NewHandler wires feed A, feed B and a fresh detector to engine. engine
// must already have every symbol this handler will see registered.
func NewHandler(engine *core.MatchingEngine) *Handler {
	h := &Handler{
		engine:   engine,
		feedA:    feed.NewSimulator('A', FeedAConfig()),
		feedB:    feed.NewSimulator('B', FeedBConfig()),
		detector: arb.NewDetector(),
	}
	h.nextOrderID.Store(syntheticOrderIDStart)

	h.feedA.SetCallback(func(update feed.MarketDataUpdate, stats feed.FeedStats) {
		h.processFeedUpdate('A', update)
	})
	h.feedB.SetCallback(func(update feed.MarketDataUpdate, stats feed.FeedStats) {
		h.processFeedUpdate('B', update)
	})
	h.detector.SetCallback(h.onArbitrageDetected)

	return h
}

// Start brings up both feed simulators.
func (h *Handler) Start(ctx context.Context) {
	h.feedA.Start(ctx)
	h.feedB.Start(ctx)
	log.Info().Msg("feed handler started with A/B feeds")
}

// Stop brings down both feed simulators.
func (h *Handler) Stop() {
	h.feedA.Stop()
	h.feedB.Stop()
	log.Info().Msg("feed handler stopped")
}

// PublishQuote fans a quote out to both feeds, as the upstream venue would
// broadcast identical data on two redundant lines.
func (h *Handler) PublishQuote(symbolID uint64, bid, ask int64, bidSize, askSize uint32) {
	h.feedA.PublishQuote(symbolID, bid, ask, bidSize, askSize)
	h.feedB.PublishQuote(symbolID, bid, ask, bidSize, askSize)
}

// PublishTrade fans a trade print out to both feeds.
func (h *Handler) PublishTrade(symbolID uint64, price int64, quantity uint32, isBuy bool) {
	h.feedA.PublishTrade(symbolID, price, quantity, isBuy)
	h.feedB.PublishTrade(symbolID, price, quantity, isBuy)
}

// SetVolatileMarket toggles the volatility regime on both feeds together.
func (h *Handler) SetVolatileMarket(volatile bool) {
	h.feedA.SetVolatileMarket(volatile)
	h.feedB.SetVolatileMarket(volatile)
	if volatile {
		log.Warn().Msg("market volatility: jitter increased 100x")
	} else {
		log.Info().Msg("market conditions: normal")
	}
}

// Detector exposes the underlying arbitrage detector for direct inspection
// in tests or diagnostics.
func (h *Handler) Detector() *arb.Detector {
	return h.detector
}

func (h *Handler) processFeedUpdate(feedID byte, update feed.MarketDataUpdate) {
	h.detector.OnFeedUpdate(feedID, update)

	if feedID != 'A' || update.Kind != feed.UpdateQuote {
		return
	}
	quote := update.Quote
	traceID := uuid.New()

	if quote.BidPrice > 0 && quote.BidSize > 0 {
		h.submitSynthetic(traceID, quote.SymbolID, core.Buy, quote.BidPrice, quote.BidSize)
	}
	if quote.AskPrice > 0 && quote.AskSize > 0 {
		h.submitSynthetic(traceID, quote.SymbolID, core.Sell, quote.AskPrice, quote.AskSize)
	}
}

func (h *Handler) submitSynthetic(traceID uuid.UUID, symbolID uint64, side core.Side, price int64, size uint32) {
	order := core.Order{
		OrderID:  h.nextOrderID.Add(1),
		SymbolID: symbolID,
		Side:     side,
		Price:    price,
		Quantity: size,
		Type:     core.Limit,
	}

	_, trades, err := h.engine.SubmitOrder(order)
	if err != nil {
		log.Debug().Str("trace_id", traceID.String()).Err(err).Msg("dropping synthetic order")
		return
	}
	if len(trades) > 0 {
		log.Debug().Str("trace_id", traceID.String()).Int("trades", len(trades)).Msg("synthetic order matched")
	}
}

func (h *Handler) onArbitrageDetected(opp arb.Opportunity) {
	if opp.IsProfitable() && opp.ProfitBasisPoints() > significantProfitBps {
		log.Info().
			Uint64("symbol_id", opp.SymbolID).
			Float64("profit_bps", opp.ProfitBasisPoints()).
			Float64("latency_diff_us", float64(opp.LatencyDifferenceNs)/1000.0).
			Str("fast_feed", string(opp.FastFeed)).
			Msg("arbitrage opportunity detected")
	}
}

// Snapshot is a point-in-time view of both feeds and the detector's
// counters, grounded on FeedHandler::print_stats's output shape.
type Snapshot struct {
	FeedA       feed.FeedStats
	FeedB       feed.FeedStats
	Arbitrage   arb.Stats
	EngineStats core.Stats
}

// Stats assembles a Snapshot from the handler's components.
func (h *Handler) Stats() Snapshot {
	return Snapshot{
		FeedA:       h.feedA.Stats(),
		FeedB:       h.feedB.Stats(),
		Arbitrage:   h.detector.Stats(),
		EngineStats: h.engine.GetStats(),
	}
}

// PrintStats logs a human-readable summary of both feeds and the
// arbitrage detector, mirroring FeedHandler::print_stats.
func (h *Handler) PrintStats() {
	snap := h.Stats()
	log.Info().
		Uint64("feed_a_messages", snap.FeedA.MessagesReceived).
		Uint64("feed_a_dropped", snap.FeedA.MessagesDropped).
		Float64("feed_a_avg_latency_us", snap.FeedA.AverageLatencyUs()).
		Uint64("feed_a_jitter_events", snap.FeedA.JitterEvents).
		Msg("feed A stats")
	log.Info().
		Uint64("feed_b_messages", snap.FeedB.MessagesReceived).
		Uint64("feed_b_dropped", snap.FeedB.MessagesDropped).
		Float64("feed_b_avg_latency_us", snap.FeedB.AverageLatencyUs()).
		Uint64("feed_b_jitter_events", snap.FeedB.JitterEvents).
		Msg("feed B stats")
	log.Info().
		Uint64("opportunities_detected", snap.Arbitrage.OpportunitiesDetected).
		Uint64("profitable_opportunities", snap.Arbitrage.ProfitableOpportunities).
		Uint64("missed_opportunities", snap.Arbitrage.MissedOpportunities).
		Float64("average_profit_bps", snap.Arbitrage.AverageProfitBps()).
		Float64("average_latency_diff_us", snap.Arbitrage.AverageLatencyDiffUs()).
		Msg("arbitrage detection stats")
}
