package core

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/nickjohnsondls/matchingengine/internal/queue"
)

// Stats are monotonically increasing engine-wide counters, read via
// atomic.LoadUint64-style access so GetStats never blocks the worker.
type Stats struct {
	OrdersSubmitted uint64
	OrdersCancelled uint64
	OrdersModified  uint64
	OrdersRejected  uint64
	TradesExecuted  uint64
	TotalVolume     uint64
}

// MatchingEngine owns one OrderBook per symbol and a single worker
// goroutine that drains an SPSC request queue, so that order books never
// need their own internal lock for the mutating path (the lock in
// OrderBook exists only for concurrent snapshot reads). Lifecycle is
// supervised with gopkg.in/tomb.v2, mirroring the teacher's
// internal/net/server.go Run/Shutdown pattern.
type MatchingEngine struct {
	mu     sync.RWMutex
	books  map[uint64]*OrderBook
	queue  *queue.SPSC[OrderRequest]
	t      tomb.Tomb
	cancel context.CancelFunc
	running atomic.Bool

	ordersSubmitted atomic.Uint64
	ordersCancelled atomic.Uint64
	ordersModified  atomic.Uint64
	ordersRejected  atomic.Uint64
	tradesExecuted  atomic.Uint64
	totalVolume     atomic.Uint64

	onTrade func(Trade)
}

// NewMatchingEngine constructs an engine with no symbols registered. Call
// RegisterSymbol before submitting orders for it.
func NewMatchingEngine() *MatchingEngine {
	return &MatchingEngine{
		books: make(map[uint64]*OrderBook),
		queue: queue.NewSPSC[OrderRequest](),
	}
}

// OnTrade installs a callback invoked once per trade, from the engine's
// worker goroutine. It must not block or call back into the engine.
func (e *MatchingEngine) OnTrade(fn func(Trade)) {
	e.onTrade = fn
}

// RegisterSymbol creates an empty book for symbolID. It is safe to call
// both before and after Start.
func (e *MatchingEngine) RegisterSymbol(symbolID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.books[symbolID]; exists {
		return ErrSymbolExists
	}
	e.books[symbolID] = NewOrderBook(symbolID)
	return nil
}

// UnregisterSymbol drops a symbol's book entirely. Any orders still
// resting in it are discarded, mirroring original_source's
// unregister_symbol semantics that spec.md's distillation omitted.
func (e *MatchingEngine) UnregisterSymbol(symbolID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.books[symbolID]; !exists {
		return ErrSymbolUnknown
	}
	delete(e.books, symbolID)
	return nil
}

// GetOrderBook returns the book for symbolID, for callers (e.g. monitoring
// code or tests) that need direct read access rather than going through
// the request queue.
func (e *MatchingEngine) GetOrderBook(symbolID uint64) (*OrderBook, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	book, ok := e.books[symbolID]
	return book, ok
}

// Start launches the worker goroutine under a tomb supervisor. Calling
// Start twice returns ErrEngineRunning.
func (e *MatchingEngine) Start(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrEngineRunning
	}

	ctx, e.cancel = context.WithCancel(ctx)
	e.t = tomb.Tomb{}
	e.t.Go(func() error {
		return e.run(ctx)
	})

	log.Info().Msg("matching engine started")
	return nil
}

// Stop signals the worker to exit and blocks until it has drained and
// returned. Calling Stop when not running returns ErrEngineNotRunning.
func (e *MatchingEngine) Stop() error {
	if !e.running.CompareAndSwap(true, false) {
		return ErrEngineNotRunning
	}
	e.cancel()
	err := e.t.Wait()
	log.Info().Msg("matching engine stopped")
	return err
}

// IsRunning reports whether the worker goroutine is active.
func (e *MatchingEngine) IsRunning() bool {
	return e.running.Load()
}

// run is the worker loop: spin on the SPSC queue until context
// cancellation, dispatching each request to its book.
func (e *MatchingEngine) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			e.drain()
			return nil
		default:
		}

		req, ok := e.queue.Dequeue()
		if !ok {
			runtime.Gosched()
			continue
		}
		e.dispatch(req)
	}
}

// drain empties whatever requests are still pending once shutdown has been
// signalled, so a caller blocked on SubmitOrder/CancelOrder/ModifyOrder
// that enqueued just before Stop always gets a reply.
func (e *MatchingEngine) drain() {
	for {
		req, ok := e.queue.Dequeue()
		if !ok {
			return
		}
		e.dispatch(req)
	}
}

func (e *MatchingEngine) dispatch(req OrderRequest) {
	switch req.Kind {
	case RequestSubmit:
		e.handleSubmit(req)
	case RequestCancel:
		e.handleCancel(req)
	case RequestModify:
		e.handleModify(req)
	}
}

func (e *MatchingEngine) handleSubmit(req OrderRequest) {
	book, ok := e.GetOrderBook(req.Order.SymbolID)
	if !ok {
		e.ordersRejected.Add(1)
		e.reply(req.Reply, RequestResult{Err: ErrSymbolUnknown})
		return
	}

	trades := book.AddOrder(req.Order)
	e.ordersSubmitted.Add(1)
	e.tradesExecuted.Add(uint64(len(trades)))

	for _, tr := range trades {
		e.totalVolume.Add(uint64(tr.Quantity))
		if e.onTrade != nil {
			e.onTrade(tr)
		}
	}

	e.reply(req.Reply, RequestResult{Order: req.Order, Trades: trades})
}

func (e *MatchingEngine) handleCancel(req OrderRequest) {
	book, ok := e.GetOrderBook(req.SymbolID)
	if !ok {
		e.reply(req.Reply, RequestResult{Err: ErrSymbolUnknown})
		return
	}
	if book.CancelOrder(req.OrderID) {
		e.ordersCancelled.Add(1)
		e.reply(req.Reply, RequestResult{})
		return
	}
	e.reply(req.Reply, RequestResult{Err: ErrSymbolUnknown})
}

func (e *MatchingEngine) handleModify(req OrderRequest) {
	book, ok := e.GetOrderBook(req.SymbolID)
	if !ok {
		e.reply(req.Reply, RequestResult{Err: ErrSymbolUnknown})
		return
	}
	order, trades, modified := book.ModifyOrder(req.OrderID, req.NewPrice, req.NewQuantity)
	if !modified {
		e.reply(req.Reply, RequestResult{Err: ErrSymbolUnknown})
		return
	}
	e.ordersModified.Add(1)
	e.tradesExecuted.Add(uint64(len(trades)))
	for _, tr := range trades {
		e.totalVolume.Add(uint64(tr.Quantity))
		if e.onTrade != nil {
			e.onTrade(tr)
		}
	}
	e.reply(req.Reply, RequestResult{Order: order, Trades: trades})
}

func (e *MatchingEngine) reply(ch chan<- RequestResult, result RequestResult) {
	if ch == nil {
		return
	}
	ch <- result
}

// SubmitOrder enqueues order and blocks for the engine's result. It
// returns ErrEngineNotRunning if the worker has not been started.
func (e *MatchingEngine) SubmitOrder(order Order) (Order, []Trade, error) {
	if !e.running.Load() {
		return Order{}, nil, ErrEngineNotRunning
	}
	reply := make(chan RequestResult, 1)
	e.queue.Enqueue(OrderRequest{Kind: RequestSubmit, Order: order, Reply: reply})
	result := <-reply
	return result.Order, result.Trades, result.Err
}

// CancelOrder enqueues a cancel and blocks for the engine's result.
func (e *MatchingEngine) CancelOrder(symbolID, orderID uint64) error {
	if !e.running.Load() {
		return ErrEngineNotRunning
	}
	reply := make(chan RequestResult, 1)
	e.queue.Enqueue(OrderRequest{Kind: RequestCancel, SymbolID: symbolID, OrderID: orderID, Reply: reply})
	result := <-reply
	return result.Err
}

// ModifyOrder enqueues a modify and blocks for the engine's result.
func (e *MatchingEngine) ModifyOrder(symbolID, orderID uint64, newPrice int64, newQuantity uint32) (Order, []Trade, error) {
	if !e.running.Load() {
		return Order{}, nil, ErrEngineNotRunning
	}
	reply := make(chan RequestResult, 1)
	e.queue.Enqueue(OrderRequest{
		Kind: RequestModify, SymbolID: symbolID, OrderID: orderID,
		NewPrice: newPrice, NewQuantity: newQuantity, Reply: reply,
	})
	result := <-reply
	return result.Order, result.Trades, result.Err
}

// ClearAllBooks empties every registered symbol's book.
func (e *MatchingEngine) ClearAllBooks() {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, book := range e.books {
		book.Clear()
	}
}

// GetStats returns a point-in-time copy of the engine's counters.
func (e *MatchingEngine) GetStats() Stats {
	return Stats{
		OrdersSubmitted: e.ordersSubmitted.Load(),
		OrdersCancelled: e.ordersCancelled.Load(),
		OrdersModified:  e.ordersModified.Load(),
		OrdersRejected:  e.ordersRejected.Load(),
		TradesExecuted:  e.tradesExecuted.Load(),
		TotalVolume:     e.totalVolume.Load(),
	}
}
