// Package feed simulates an A/B redundant market-data feed pair, injecting
// the latency, jitter and packet-loss patterns a consumer would see from a
// real exchange's primary and backup multicast lines.
package feed

import "time"

// UpdateKind tags which payload a MarketDataUpdate carries.
type UpdateKind uint8

const (
	UpdateQuote UpdateKind = iota
	UpdateTrade
)

// Quote is a level-1 top-of-book snapshot from one feed.
type Quote struct {
	SymbolID       uint64
	BidPrice       int64
	AskPrice       int64
	BidSize        uint32
	AskSize        uint32
	TimestampNs    uint64
	SequenceNumber uint64
	FeedID         byte // 'A' or 'B'
}

// TradeTick is a single print reported by one feed.
type TradeTick struct {
	SymbolID       uint64
	Price          int64
	Quantity       uint32
	TimestampNs    uint64
	SequenceNumber uint64
	FeedID         byte
	IsBuySide      bool
}

// MarketDataUpdate carries exactly one of Quote or Trade, selected by Kind.
// Go has no tagged union, so unlike the original's in-place union this
// costs an extra few bytes per message; that tradeoff only matters on the
// simulated feed queue, never inside the matching engine's hot path.
type MarketDataUpdate struct {
	Kind  UpdateKind
	Quote Quote
	Trade TradeTick
}

// FeedStats accumulates latency and loss counters for one simulated feed.
type FeedStats struct {
	MessagesReceived uint64
	MessagesDropped  uint64
	LatencySumNs     uint64
	LatencyMinNs     uint64
	LatencyMaxNs     uint64
	JitterEvents     uint64
	LastSequence     uint64
	LastUpdate       time.Time
}

// UpdateLatency folds one inter-arrival measurement into the running stats.
func (s *FeedStats) UpdateLatency(latencyNs uint64) {
	s.LatencySumNs += latencyNs
	if s.LatencyMinNs == 0 || latencyNs < s.LatencyMinNs {
		s.LatencyMinNs = latencyNs
	}
	if latencyNs > s.LatencyMaxNs {
		s.LatencyMaxNs = latencyNs
	}
	s.MessagesReceived++
}

// AverageLatencyUs returns the mean inter-arrival latency in microseconds.
func (s *FeedStats) AverageLatencyUs() float64 {
	if s.MessagesReceived == 0 {
		return 0
	}
	return float64(s.LatencySumNs) / float64(s.MessagesReceived) / 1000.0
}
