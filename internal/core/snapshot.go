package core

// PriceLevelView is a read-only copy of one price level, safe to retain
// after the book that produced it has moved on.
type PriceLevelView struct {
	Price  int64
	Volume uint64
	Orders int
}

// BookDepth is a point-in-time copy of up to maxLevels price levels on each
// side, best price first. Grounded on the snapshot shape the original
// implementation's orderbook exposes for its depth-of-book accessor.
type BookDepth struct {
	SymbolID uint64
	Bids     []PriceLevelView
	Asks     []PriceLevelView
}

// MarketDataSnapshot is a point-in-time top-of-book view that monitoring
// code can work from, rather than reaching into OrderBook's internals
// directly. The feed, arb and bridge packages do not use it.
type MarketDataSnapshot struct {
	SymbolID    uint64
	BestBid     int64
	BestBidSize uint64
	BestAsk     int64
	BestAskSize uint64
	TotalOrders int
	TimestampNs uint64
}

// HasBid reports whether the snapshot carries a resting bid.
func (s MarketDataSnapshot) HasBid() bool { return s.BestBid > 0 }

// HasAsk reports whether the snapshot carries a resting ask.
func (s MarketDataSnapshot) HasAsk() bool { return s.BestAsk > 0 }

// Spread returns BestAsk-BestBid. The result is only meaningful when both
// HasBid and HasAsk are true.
func (s MarketDataSnapshot) Spread() int64 { return s.BestAsk - s.BestBid }

// Snapshot copies the book's top-of-book state under a read lock.
func (b *OrderBook) Snapshot() MarketDataSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := MarketDataSnapshot{
		SymbolID:    b.symbolID,
		TotalOrders: len(b.orders),
	}
	if level, ok := b.bids.Min(); ok {
		snap.BestBid = level.Price
		snap.BestBidSize = level.TotalVolume
	}
	if level, ok := b.asks.Min(); ok {
		snap.BestAsk = level.Price
		snap.BestAskSize = level.TotalVolume
	}
	return snap
}

// Depth copies up to maxLevels price levels per side, best price first.
func (b *OrderBook) Depth(maxLevels int) BookDepth {
	b.mu.RLock()
	defer b.mu.RUnlock()

	depth := BookDepth{SymbolID: b.symbolID}
	b.bids.Scan(func(level *PriceLevel) bool {
		if len(depth.Bids) >= maxLevels {
			return false
		}
		depth.Bids = append(depth.Bids, PriceLevelView{
			Price: level.Price, Volume: level.TotalVolume, Orders: level.OrderCount(),
		})
		return true
	})
	b.asks.Scan(func(level *PriceLevel) bool {
		if len(depth.Asks) >= maxLevels {
			return false
		}
		depth.Asks = append(depth.Asks, PriceLevelView{
			Price: level.Price, Volume: level.TotalVolume, Orders: level.OrderCount(),
		})
		return true
	})
	return depth
}
