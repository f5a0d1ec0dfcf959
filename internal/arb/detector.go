// Package arb watches a pair of redundant market-data feeds for the same
// symbols and flags moments where their quotes disagree enough to be
// tradeable, or simply diverge, tracking which feed got there first.
package arb

import (
	"sync"

	"github.com/nickjohnsondls/matchingengine/internal/feed"
)

// maxRecentOpportunities caps the in-memory ring of recent detections,
// matching original_source's arbitrage_detector.hpp fixed window.
const maxRecentOpportunities = 1000

// tradeTimeSkewThresholdNs is the trade-timestamp disparity above which a
// feed is considered to have "missed" reporting a trade promptly.
const tradeTimeSkewThresholdNs = 1_000_000 // 1ms

// Opportunity is one detected moment of divergence between feed A and B's
// quotes for a symbol.
type Opportunity struct {
	SymbolID            uint64
	FastFeed            byte
	SlowFeed            byte
	PriceDifference     int64
	LatencyDifferenceNs uint64
	TimestampNs         uint64

	FeedABid int64
	FeedAAsk int64
	FeedBBid int64
	FeedBAsk int64
}

// ProfitBasisPoints returns the basis-point profit available by buying on
// the cheaper feed's ask and selling on the other feed's richer bid, or 0
// if the quotes do not actually cross.
func (o Opportunity) ProfitBasisPoints() float64 {
	if o.FeedAAsk > 0 && o.FeedBBid > 0 && o.FeedBBid > o.FeedAAsk {
		return float64(o.FeedBBid-o.FeedAAsk) / float64(o.FeedAAsk) * 10000
	}
	if o.FeedBAsk > 0 && o.FeedABid > 0 && o.FeedABid > o.FeedBAsk {
		return float64(o.FeedABid-o.FeedBAsk) / float64(o.FeedBAsk) * 10000
	}
	return 0
}

// IsProfitable reports whether the opportunity's books are actually
// crossed (as opposed to merely disagreeing on price).
func (o Opportunity) IsProfitable() bool {
	return o.ProfitBasisPoints() > 0
}

// Stats accumulates detector-wide counters across every symbol.
type Stats struct {
	OpportunitiesDetected   uint64
	ProfitableOpportunities uint64
	MissedOpportunities     uint64
	TotalProfitBps          float64
	MaxLatencyDiffNs        uint64
	TotalLatencyDiffNs      uint64
}

func (s *Stats) recordOpportunity(opp Opportunity) {
	s.OpportunitiesDetected++
	if opp.IsProfitable() {
		s.ProfitableOpportunities++
		s.TotalProfitBps += opp.ProfitBasisPoints()
	}
	if opp.LatencyDifferenceNs > s.MaxLatencyDiffNs {
		s.MaxLatencyDiffNs = opp.LatencyDifferenceNs
	}
	s.TotalLatencyDiffNs += opp.LatencyDifferenceNs
}

// AverageLatencyDiffUs returns the mean fast/slow feed latency gap in
// microseconds across every detected opportunity.
func (s *Stats) AverageLatencyDiffUs() float64 {
	if s.OpportunitiesDetected == 0 {
		return 0
	}
	return float64(s.TotalLatencyDiffNs) / float64(s.OpportunitiesDetected) / 1000.0
}

// AverageProfitBps returns the mean profit across profitable opportunities
// only (unprofitable disparities do not dilute the average).
func (s *Stats) AverageProfitBps() float64 {
	if s.ProfitableOpportunities == 0 {
		return 0
	}
	return s.TotalProfitBps / float64(s.ProfitableOpportunities)
}

type symbolState struct {
	feedAQuote feed.Quote
	feedBQuote feed.Quote
	hasFeedA   bool
	hasFeedB   bool
}

func (s *symbolState) updateQuote(feedID byte, q feed.Quote) {
	if feedID == 'A' {
		s.feedAQuote = q
		s.hasFeedA = true
	} else {
		s.feedBQuote = q
		s.hasFeedB = true
	}
}

func (s *symbolState) hasBothFeeds() bool {
	return s.hasFeedA && s.hasFeedB
}

// Callback receives one detected opportunity. Invoked under the detector's
// lock, so it must not call back into the detector.
type Callback func(Opportunity)

// Detector cross-references quotes and trades arriving from two feeds,
// identified by their feed byte ('A'/'B'), and raises an Opportunity
// whenever their top-of-book disagrees. Grounded on
// original_source/include/network/arbitrage_detector.hpp; mutex-guarded
// because feed callbacks for A and B run concurrently on separate
// goroutines.
type Detector struct {
	mu sync.Mutex

	symbolStates    map[uint64]*symbolState
	tradeTimestamps map[uint64]map[byte]uint64
	recent          []Opportunity
	stats           Stats
	callback        Callback
}

// NewDetector constructs an empty detector.
func NewDetector() *Detector {
	return &Detector{
		symbolStates:    make(map[uint64]*symbolState),
		tradeTimestamps: make(map[uint64]map[byte]uint64),
	}
}

// SetCallback installs the opportunity callback.
func (d *Detector) SetCallback(cb Callback) {
	d.callback = cb
}

// OnFeedUpdate routes one update from feedID into quote or trade
// processing, holding the detector's lock for the duration.
func (d *Detector) OnFeedUpdate(feedID byte, update feed.MarketDataUpdate) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch update.Kind {
	case feed.UpdateQuote:
		d.processQuote(feedID, update.Quote)
	case feed.UpdateTrade:
		d.processTrade(feedID, update.Trade)
	}
}

func (d *Detector) processQuote(feedID byte, q feed.Quote) {
	state, ok := d.symbolStates[q.SymbolID]
	if !ok {
		state = &symbolState{}
		d.symbolStates[q.SymbolID] = state
	}
	state.updateQuote(feedID, q)

	if state.hasBothFeeds() {
		d.checkArbitrage(q.SymbolID, state)
	}
}

func (d *Detector) processTrade(feedID byte, tr feed.TradeTick) {
	times, ok := d.tradeTimestamps[tr.SymbolID]
	if !ok {
		times = make(map[byte]uint64)
		d.tradeTimestamps[tr.SymbolID] = times
	}
	times[feedID] = tr.TimestampNs

	tA, okA := times['A']
	tB, okB := times['B']
	if okA && okB {
		diff := absDiffU64(tA, tB)
		if diff > tradeTimeSkewThresholdNs {
			d.stats.MissedOpportunities++
		}
	}
}

func (d *Detector) checkArbitrage(symbolID uint64, state *symbolState) {
	hasOpportunity := false
	if state.feedAQuote.AskPrice > 0 && state.feedBQuote.BidPrice > 0 &&
		state.feedBQuote.BidPrice > state.feedAQuote.AskPrice {
		hasOpportunity = true
	} else if state.feedBQuote.AskPrice > 0 && state.feedAQuote.BidPrice > 0 &&
		state.feedAQuote.BidPrice > state.feedBQuote.AskPrice {
		hasOpportunity = true
	}

	bidDiff := absDiff64(state.feedAQuote.BidPrice, state.feedBQuote.BidPrice)
	askDiff := absDiff64(state.feedAQuote.AskPrice, state.feedBQuote.AskPrice)

	if bidDiff == 0 && askDiff == 0 && !hasOpportunity {
		return
	}

	opp := Opportunity{
		SymbolID:    symbolID,
		TimestampNs: maxU64(state.feedAQuote.TimestampNs, state.feedBQuote.TimestampNs),
		FeedABid:    state.feedAQuote.BidPrice,
		FeedAAsk:    state.feedAQuote.AskPrice,
		FeedBBid:    state.feedBQuote.BidPrice,
		FeedBAsk:    state.feedBQuote.AskPrice,
	}
	if bidDiff > askDiff {
		opp.PriceDifference = bidDiff
	} else {
		opp.PriceDifference = askDiff
	}

	if state.feedAQuote.TimestampNs < state.feedBQuote.TimestampNs {
		opp.FastFeed, opp.SlowFeed = 'A', 'B'
		opp.LatencyDifferenceNs = state.feedBQuote.TimestampNs - state.feedAQuote.TimestampNs
	} else {
		opp.FastFeed, opp.SlowFeed = 'B', 'A'
		opp.LatencyDifferenceNs = state.feedAQuote.TimestampNs - state.feedBQuote.TimestampNs
	}

	d.stats.recordOpportunity(opp)
	d.recent = append(d.recent, opp)
	if len(d.recent) > maxRecentOpportunities {
		d.recent = d.recent[1:]
	}

	if d.callback != nil {
		d.callback(opp)
	}
}

// Stats returns a point-in-time copy of the detector's counters.
func (d *Detector) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// RecentOpportunities returns up to count of the most recently detected
// opportunities, oldest first.
func (d *Detector) RecentOpportunities(count int) []Opportunity {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := 0
	if len(d.recent) > count {
		start = len(d.recent) - count
	}
	out := make([]Opportunity, len(d.recent)-start)
	copy(out, d.recent[start:])
	return out
}

func absDiff64(a, b int64) int64 {
	if a < b {
		return b - a
	}
	return a - b
}

func absDiffU64(a, b uint64) uint64 {
	if a < b {
		return b - a
	}
	return a - b
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
