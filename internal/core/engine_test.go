package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedEngine(t *testing.T) *MatchingEngine {
	t.Helper()
	engine := NewMatchingEngine()
	require.NoError(t, engine.RegisterSymbol(1))
	require.NoError(t, engine.Start(context.Background()))
	t.Cleanup(func() { _ = engine.Stop() })
	return engine
}

func TestMatchingEngine_StartStopLifecycle(t *testing.T) {
	engine := NewMatchingEngine()
	assert.False(t, engine.IsRunning())

	require.NoError(t, engine.Start(context.Background()))
	assert.True(t, engine.IsRunning())

	assert.ErrorIs(t, engine.Start(context.Background()), ErrEngineRunning)

	require.NoError(t, engine.Stop())
	assert.False(t, engine.IsRunning())
	assert.ErrorIs(t, engine.Stop(), ErrEngineNotRunning)
}

func TestMatchingEngine_SubmitOrderBeforeStartFails(t *testing.T) {
	engine := NewMatchingEngine()
	require.NoError(t, engine.RegisterSymbol(1))

	_, _, err := engine.SubmitOrder(mkOrder(1, Buy, 100_000000, 10))
	assert.ErrorIs(t, err, ErrEngineNotRunning)
}

func TestMatchingEngine_RegisterSymbolTwiceFails(t *testing.T) {
	engine := NewMatchingEngine()
	require.NoError(t, engine.RegisterSymbol(1))
	assert.ErrorIs(t, engine.RegisterSymbol(1), ErrSymbolExists)
}

func TestMatchingEngine_UnregisterSymbol(t *testing.T) {
	engine := NewMatchingEngine()
	require.NoError(t, engine.RegisterSymbol(1))
	require.NoError(t, engine.UnregisterSymbol(1))
	assert.ErrorIs(t, engine.UnregisterSymbol(1), ErrSymbolUnknown)

	_, ok := engine.GetOrderBook(1)
	assert.False(t, ok)
}

func TestMatchingEngine_SubmitOrderUnknownSymbolFails(t *testing.T) {
	engine := NewMatchingEngine()
	require.NoError(t, engine.Start(context.Background()))
	t.Cleanup(func() { _ = engine.Stop() })

	_, _, err := engine.SubmitOrder(mkOrder(1, Buy, 100_000000, 10))
	assert.ErrorIs(t, err, ErrSymbolUnknown)
}

func TestMatchingEngine_SubmitOrderMatches(t *testing.T) {
	engine := startedEngine(t)

	_, _, err := engine.SubmitOrder(mkOrder(1, Sell, 100_000000, 10))
	require.NoError(t, err)

	_, trades, err := engine.SubmitOrder(mkOrder(2, Buy, 100_000000, 10))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	stats := engine.GetStats()
	assert.Equal(t, uint64(2), stats.OrdersSubmitted)
	assert.Equal(t, uint64(1), stats.TradesExecuted)
}

func TestMatchingEngine_CancelOrder(t *testing.T) {
	engine := startedEngine(t)

	_, _, err := engine.SubmitOrder(mkOrder(1, Buy, 100_000000, 10))
	require.NoError(t, err)

	require.NoError(t, engine.CancelOrder(1, 1))
	assert.Equal(t, uint64(1), engine.GetStats().OrdersCancelled)

	book, ok := engine.GetOrderBook(1)
	require.True(t, ok)
	assert.Equal(t, 0, book.TotalOrders())
}

func TestMatchingEngine_ModifyOrder(t *testing.T) {
	engine := startedEngine(t)

	_, _, err := engine.SubmitOrder(mkOrder(1, Buy, 100_000000, 10))
	require.NoError(t, err)

	order, _, err := engine.ModifyOrder(1, 1, 101_000000, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(101_000000), order.Price)
	assert.Equal(t, uint32(5), order.Quantity)
}

func TestMatchingEngine_OnTradeCallbackFires(t *testing.T) {
	engine := NewMatchingEngine()
	require.NoError(t, engine.RegisterSymbol(1))

	seen := make(chan Trade, 1)
	engine.OnTrade(func(tr Trade) { seen <- tr })

	require.NoError(t, engine.Start(context.Background()))
	t.Cleanup(func() { _ = engine.Stop() })

	_, _, err := engine.SubmitOrder(mkOrder(1, Sell, 100_000000, 10))
	require.NoError(t, err)
	_, _, err = engine.SubmitOrder(mkOrder(2, Buy, 100_000000, 10))
	require.NoError(t, err)

	select {
	case tr := <-seen:
		assert.Equal(t, int64(100_000000), tr.Price)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for trade callback")
	}
}

func TestMatchingEngine_ClearAllBooks(t *testing.T) {
	engine := startedEngine(t)

	_, _, err := engine.SubmitOrder(mkOrder(1, Buy, 100_000000, 10))
	require.NoError(t, err)

	engine.ClearAllBooks()

	book, ok := engine.GetOrderBook(1)
	require.True(t, ok)
	assert.Equal(t, 0, book.TotalOrders())
}
