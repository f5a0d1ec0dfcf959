package feed

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/nickjohnsondls/matchingengine/internal/queue"
)

// Config controls one simulated feed's latency, jitter, and loss profile.
// Grounded on original_source's network/feed_simulator.hpp FeedConfig.
type Config struct {
	BaseLatency            time.Duration
	JitterNormal           time.Duration
	JitterSpike            time.Duration
	SpikeProbability       float64
	DropProbability        float64
	IsPrimaryFeed          bool
	SequenceStart          uint64
	VolatileJitterMultiple uint64
}

// DefaultConfig matches original_source's FeedConfig defaults.
func DefaultConfig() Config {
	return Config{
		BaseLatency:            5 * time.Microsecond,
		JitterNormal:           1 * time.Microsecond,
		JitterSpike:            500 * time.Microsecond,
		SpikeProbability:       0.001,
		DropProbability:        0.0001,
		IsPrimaryFeed:          true,
		SequenceStart:          1,
		VolatileJitterMultiple: 100,
	}
}

// secondaryFeedPenalty is the fixed extra latency original_source adds for
// backup feeds, on top of whatever jitter is injected.
const secondaryFeedPenalty = 500 * time.Microsecond

// Callback receives one delivered update together with the feed's stats as
// of that delivery. It is invoked from the simulator's own worker
// goroutine and must not block.
type Callback func(update MarketDataUpdate, stats FeedStats)

// Simulator runs one side of an A/B feed pair: it accepts published quotes
// and trades on an unbounded SPSC queue, sleeps for a randomized latency on
// each one to emulate network jitter, occasionally drops a message
// entirely, and otherwise delivers it to Callback. Lifecycle is supervised
// with gopkg.in/tomb.v2, mirroring the teacher's server worker pattern.
type Simulator struct {
	feedID byte
	config Config

	pending *queue.SPSC[MarketDataUpdate]
	seq     atomic.Uint64

	callback Callback
	volatile atomic.Bool

	statsMu sync.Mutex
	stats   FeedStats

	t      tomb.Tomb
	cancel context.CancelFunc
	running atomic.Bool

	rng *rand.Rand
}

// NewSimulator constructs a simulator for feedID ('A' or 'B').
func NewSimulator(feedID byte, config Config) *Simulator {
	s := &Simulator{
		feedID:  feedID,
		config:  config,
		pending: queue.NewSPSC[MarketDataUpdate](),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.seq.Store(config.SequenceStart)
	return s
}

// SetCallback installs the delivery callback. Call before Start.
func (s *Simulator) SetCallback(cb Callback) {
	s.callback = cb
}

// SetVolatileMarket toggles the volatility regime, which multiplies normal
// jitter by config.VolatileJitterMultiple while active.
func (s *Simulator) SetVolatileMarket(volatile bool) {
	s.volatile.Store(volatile)
}

// FeedID returns the feed's identifying byte.
func (s *Simulator) FeedID() byte {
	return s.feedID
}

// PublishQuote enqueues a quote for delivery, stamping it with the next
// sequence number and the current time.
func (s *Simulator) PublishQuote(symbolID uint64, bid, ask int64, bidSize, askSize uint32) {
	q := Quote{
		SymbolID:       symbolID,
		BidPrice:       bid,
		AskPrice:       ask,
		BidSize:        bidSize,
		AskSize:        askSize,
		TimestampNs:    uint64(time.Now().UnixNano()),
		SequenceNumber: s.seq.Add(1),
		FeedID:         s.feedID,
	}
	s.pending.Enqueue(MarketDataUpdate{Kind: UpdateQuote, Quote: q})
}

// PublishTrade enqueues a trade print for delivery.
func (s *Simulator) PublishTrade(symbolID uint64, price int64, quantity uint32, isBuy bool) {
	tr := TradeTick{
		SymbolID:       symbolID,
		Price:          price,
		Quantity:       quantity,
		TimestampNs:    uint64(time.Now().UnixNano()),
		SequenceNumber: s.seq.Add(1),
		FeedID:         s.feedID,
		IsBuySide:      isBuy,
	}
	s.pending.Enqueue(MarketDataUpdate{Kind: UpdateTrade, Trade: tr})
}

// Start launches the worker goroutine. Calling Start while already running
// is a no-op, matching original_source's exchange-and-check idiom.
func (s *Simulator) Start(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.t = tomb.Tomb{}
	s.t.Go(func() error {
		return s.run(ctx)
	})
	log.Info().Str("feed", string(s.feedID)).Msg("feed simulator started")
}

// Stop signals the worker to exit and blocks until it has returned.
// Calling Stop when not running is a no-op.
func (s *Simulator) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.cancel()
	_ = s.t.Wait()
	log.Info().Str("feed", string(s.feedID)).Msg("feed simulator stopped")
}

func (s *Simulator) run(ctx context.Context) error {
	lastDelivery := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		update, ok := s.pending.Dequeue()
		if !ok {
			time.Sleep(time.Microsecond)
			continue
		}

		s.sleepLatency(ctx)

		if s.shouldDrop() {
			s.statsMu.Lock()
			s.stats.MessagesDropped++
			s.statsMu.Unlock()
			continue
		}

		now := time.Now()
		s.statsMu.Lock()
		latencyNs := uint64(now.Sub(lastDelivery).Nanoseconds())
		s.stats.UpdateLatency(latencyNs)
		if s.stats.MessagesReceived > 100 && float64(latencyNs) > s.stats.AverageLatencyUs()*10000 {
			s.stats.JitterEvents++
		}
		lastDelivery = now
		switch update.Kind {
		case UpdateQuote:
			s.stats.LastSequence = update.Quote.SequenceNumber
		case UpdateTrade:
			s.stats.LastSequence = update.Trade.SequenceNumber
		}
		statsCopy := s.stats
		s.statsMu.Unlock()

		if s.callback != nil {
			s.callback(update, statsCopy)
		}
	}
}

func (s *Simulator) sleepLatency(ctx context.Context) {
	latency := s.config.BaseLatency

	if s.volatile.Load() {
		jitter := s.config.JitterNormal * time.Duration(s.config.VolatileJitterMultiple)
		latency += time.Duration(s.rng.Float64() * float64(jitter))
	} else if s.rng.Float64() < s.config.SpikeProbability {
		latency += s.config.JitterSpike
	} else {
		latency += time.Duration(s.rng.Float64() * float64(s.config.JitterNormal))
	}

	if !s.config.IsPrimaryFeed {
		latency += secondaryFeedPenalty
	}

	select {
	case <-ctx.Done():
	case <-time.After(latency):
	}
}

func (s *Simulator) shouldDrop() bool {
	return s.rng.Float64() < s.config.DropProbability
}

// Stats returns a point-in-time copy of the feed's counters.
func (s *Simulator) Stats() FeedStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}
