package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickjohnsondls/matchingengine/internal/core"
)

func newTestHandler(t *testing.T) (*Handler, *core.MatchingEngine) {
	t.Helper()
	engine := core.NewMatchingEngine()
	require.NoError(t, engine.RegisterSymbol(1))
	require.NoError(t, engine.Start(context.Background()))

	h := NewHandler(engine)
	h.Start(context.Background())

	t.Cleanup(func() {
		h.Stop()
		_ = engine.Stop()
	})
	return h, engine
}

func TestHandler_PublishQuoteSeedsBookFromFeedA(t *testing.T) {
	h, engine := newTestHandler(t)

	h.PublishQuote(1, 100_000000, 101_000000, 10, 10)

	require.Eventually(t, func() bool {
		book, ok := engine.GetOrderBook(1)
		return ok && book.TotalOrders() == 2
	}, 2*time.Second, 5*time.Millisecond)

	book, ok := engine.GetOrderBook(1)
	require.True(t, ok)
	bid, _ := book.BestBid()
	ask, _ := book.BestAsk()
	assert.Equal(t, int64(100_000000), bid)
	assert.Equal(t, int64(101_000000), ask)
}

func TestHandler_DetectsArbitrageFromDivergingQuotes(t *testing.T) {
	h, _ := newTestHandler(t)

	// Publish to feed A then feed B directly to force a quote mismatch,
	// bypassing the fan-out so the two feeds genuinely disagree.
	h.feedA.PublishQuote(1, 100_000000, 101_000000, 10, 10)
	h.feedB.PublishQuote(1, 102_000000, 103_000000, 10, 10)

	require.Eventually(t, func() bool {
		return h.Detector().Stats().OpportunitiesDetected > 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHandler_SnapshotAggregatesAllComponents(t *testing.T) {
	h, _ := newTestHandler(t)

	h.PublishQuote(1, 100_000000, 101_000000, 10, 10)

	require.Eventually(t, func() bool {
		return h.Stats().FeedA.MessagesReceived > 0
	}, 2*time.Second, 5*time.Millisecond)

	snap := h.Stats()
	assert.GreaterOrEqual(t, snap.EngineStats.OrdersSubmitted, uint64(1))
}
