package arb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickjohnsondls/matchingengine/internal/feed"
)

func quoteUpdate(symbolID uint64, bid, ask int64, feedID byte, ts uint64) feed.MarketDataUpdate {
	return feed.MarketDataUpdate{
		Kind: feed.UpdateQuote,
		Quote: feed.Quote{
			SymbolID:    symbolID,
			BidPrice:    bid,
			AskPrice:    ask,
			FeedID:      feedID,
			TimestampNs: ts,
		},
	}
}

func TestDetector_CrossedBookIsProfitable(t *testing.T) {
	d := NewDetector()

	var captured Opportunity
	d.SetCallback(func(opp Opportunity) { captured = opp })

	// Feed A quotes a tight market; feed B's bid is above feed A's ask.
	d.OnFeedUpdate('A', quoteUpdate(1, 99_000000, 100_000000, 'A', 1000))
	d.OnFeedUpdate('B', quoteUpdate(1, 101_000000, 102_000000, 'B', 1500))

	assert.Equal(t, uint64(1), d.Stats().OpportunitiesDetected)
	assert.Equal(t, uint64(1), d.Stats().ProfitableOpportunities)
	assert.True(t, captured.IsProfitable())
	assert.Greater(t, captured.ProfitBasisPoints(), 0.0)
	assert.Equal(t, byte('A'), captured.FastFeed)
}

func TestDetector_DisparityWithoutCrossIsNotProfitable(t *testing.T) {
	d := NewDetector()

	d.OnFeedUpdate('A', quoteUpdate(1, 99_000000, 100_000000, 'A', 1000))
	d.OnFeedUpdate('B', quoteUpdate(1, 99_500000, 100_500000, 'B', 1200))

	stats := d.Stats()
	assert.Equal(t, uint64(1), stats.OpportunitiesDetected)
	assert.Equal(t, uint64(0), stats.ProfitableOpportunities)

	recent := d.RecentOpportunities(10)
	require.Len(t, recent, 1)
	assert.False(t, recent[0].IsProfitable())
	assert.Equal(t, int64(500000), recent[0].PriceDifference)
}

func TestDetector_IdenticalQuotesProduceNoOpportunity(t *testing.T) {
	d := NewDetector()

	d.OnFeedUpdate('A', quoteUpdate(1, 100_000000, 101_000000, 'A', 1000))
	d.OnFeedUpdate('B', quoteUpdate(1, 100_000000, 101_000000, 'B', 1200))

	assert.Equal(t, uint64(0), d.Stats().OpportunitiesDetected)
}

func TestDetector_SingleFeedQuoteProducesNoOpportunity(t *testing.T) {
	d := NewDetector()
	d.OnFeedUpdate('A', quoteUpdate(1, 100_000000, 101_000000, 'A', 1000))
	assert.Equal(t, uint64(0), d.Stats().OpportunitiesDetected)
}

func TestDetector_RecentOpportunitiesCapAtMax(t *testing.T) {
	d := NewDetector()

	for i := 0; i < maxRecentOpportunities+10; i++ {
		price := int64(100_000000 + i*1000)
		d.OnFeedUpdate('A', quoteUpdate(1, price, price+1_000000, 'A', uint64(i)))
		d.OnFeedUpdate('B', quoteUpdate(1, price+2000, price+1_000000+2000, 'B', uint64(i+1)))
	}

	recent := d.RecentOpportunities(maxRecentOpportunities + 100)
	assert.LessOrEqual(t, len(recent), maxRecentOpportunities)
}

func TestDetector_TradeTimestampSkewCountsAsMissed(t *testing.T) {
	d := NewDetector()

	d.OnFeedUpdate('A', feed.MarketDataUpdate{
		Kind:  feed.UpdateTrade,
		Trade: feed.TradeTick{SymbolID: 1, TimestampNs: 1_000_000, FeedID: 'A'},
	})
	d.OnFeedUpdate('B', feed.MarketDataUpdate{
		Kind:  feed.UpdateTrade,
		Trade: feed.TradeTick{SymbolID: 1, TimestampNs: 5_000_000, FeedID: 'B'},
	})

	assert.Equal(t, uint64(1), d.Stats().MissedOpportunities)
}

func TestDetector_FastFeedIsTheOneWithEarlierTimestamp(t *testing.T) {
	d := NewDetector()

	var captured Opportunity
	d.SetCallback(func(opp Opportunity) { captured = opp })

	d.OnFeedUpdate('B', quoteUpdate(1, 101_000000, 102_000000, 'B', 500))
	d.OnFeedUpdate('A', quoteUpdate(1, 99_000000, 100_000000, 'A', 2000))

	assert.Equal(t, byte('B'), captured.FastFeed)
	assert.Equal(t, byte('A'), captured.SlowFeed)
	assert.Equal(t, uint64(1500), captured.LatencyDifferenceNs)
}
