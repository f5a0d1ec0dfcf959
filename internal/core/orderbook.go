package core

import (
	"sync"
	"time"

	"github.com/tidwall/btree"
)

// orderHandle lets Cancel/Modify go straight from an order id to both the
// order and the level it rests on, without a second tree lookup.
type orderHandle struct {
	order *Order
	level *PriceLevel
}

// OrderBook is a single symbol's limit order book: two price-ordered maps
// (bids descending, asks ascending) over *PriceLevel, plus an order-id
// index for O(1) average cancel/modify lookups. Grounded on the teacher's
// tidwall/btree.BTreeG[*PriceLevel] usage in internal/engine/orderbook.go,
// generalized from a single asset book to one book per symbol_id.
//
// All mutating methods are intended to be called from a single owner (the
// matching engine's worker goroutine); the embedded mutex exists so the
// read-only snapshot helpers remain safe to call from other goroutines,
// per the spec's "implementers may copy under a lock" allowance.
type OrderBook struct {
	mu sync.RWMutex

	symbolID uint64
	bids     *btree.BTreeG[*PriceLevel]
	asks     *btree.BTreeG[*PriceLevel]
	orders   map[uint64]*orderHandle

	nextTradeID uint64
}

// NewOrderBook constructs an empty book for symbolID.
func NewOrderBook(symbolID uint64) *OrderBook {
	return &OrderBook{
		symbolID: symbolID,
		bids: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.Price > b.Price // descending: Min() yields the best (highest) bid
		}),
		asks: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.Price < b.Price // ascending: Min() yields the best (lowest) ask
		}),
		orders:      make(map[uint64]*orderHandle),
		nextTradeID: 1,
	}
}

// SymbolID returns the symbol this book is for.
func (b *OrderBook) SymbolID() uint64 {
	return b.symbolID
}

// AddOrder validates, matches and (if quantity remains) rests order. It
// returns the trades generated, in execution order. Invalid orders
// (non-positive price, zero quantity) and duplicate order ids are silently
// rejected: the returned slice is nil and the book is left unchanged.
func (b *OrderBook) AddOrder(order Order) []Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, trades, _ := b.addOrderLocked(order)
	return trades
}

func (b *OrderBook) addOrderLocked(o Order) (Order, []Trade, bool) {
	if o.Quantity == 0 || o.Price <= 0 {
		return Order{}, nil, false
	}
	if _, exists := b.orders[o.OrderID]; exists {
		return Order{}, nil, false
	}

	incoming := o
	incoming.Status = StatusNew

	var trades []Trade
	if incoming.IsBuy() {
		trades = b.matchBuy(&incoming)
	} else {
		trades = b.matchSell(&incoming)
	}

	if incoming.Quantity > 0 {
		b.restOrder(&incoming)
	} else {
		incoming.Status = StatusFilled
	}

	return incoming, trades, true
}

// matchBuy sweeps the ask side top-down while the incoming buy crosses,
// producing one trade per resting order consumed, priced at the passive
// (resting) side per price-time priority.
func (b *OrderBook) matchBuy(incoming *Order) []Trade {
	var trades []Trade
	for incoming.Quantity > 0 {
		level, ok := b.asks.Min()
		if !ok {
			break
		}
		if incoming.Price < level.Price {
			break // no cross
		}
		resting := level.PeekFront()
		if resting == nil {
			b.asks.Delete(level)
			continue
		}

		q := minU32(incoming.Quantity, resting.Quantity)
		trades = append(trades, b.newTrade(incoming.OrderID, resting.OrderID, level.Price, q))

		incoming.Execute(q)
		resting.Execute(q)
		level.Fill(q)

		if resting.Quantity == 0 {
			delete(b.orders, resting.OrderID)
			level.PopFront()
			if level.Empty() {
				b.asks.Delete(level)
			}
		}
	}
	return trades
}

// matchSell is the mirror image of matchBuy against the bid side.
func (b *OrderBook) matchSell(incoming *Order) []Trade {
	var trades []Trade
	for incoming.Quantity > 0 {
		level, ok := b.bids.Min()
		if !ok {
			break
		}
		if incoming.Price > level.Price {
			break // no cross
		}
		resting := level.PeekFront()
		if resting == nil {
			b.bids.Delete(level)
			continue
		}

		q := minU32(incoming.Quantity, resting.Quantity)
		trades = append(trades, b.newTrade(resting.OrderID, incoming.OrderID, level.Price, q))

		incoming.Execute(q)
		resting.Execute(q)
		level.Fill(q)

		if resting.Quantity == 0 {
			delete(b.orders, resting.OrderID)
			level.PopFront()
			if level.Empty() {
				b.bids.Delete(level)
			}
		}
	}
	return trades
}

func (b *OrderBook) newTrade(buyOrderID, sellOrderID uint64, price int64, qty uint32) Trade {
	t := Trade{
		TradeID:     b.nextTradeID,
		BuyOrderID:  buyOrderID,
		SellOrderID: sellOrderID,
		SymbolID:    b.symbolID,
		Price:       price,
		Quantity:    qty,
		TimestampNs: uint64(time.Now().UnixNano()),
	}
	b.nextTradeID++
	return t
}

// restOrder places a residual order on its side of the book, creating the
// price level if needed, and indexes it by order id.
func (b *OrderBook) restOrder(order *Order) {
	tree := b.bids
	if order.IsSell() {
		tree = b.asks
	}

	level, ok := tree.GetMut(&PriceLevel{Price: order.Price})
	if !ok {
		level = &PriceLevel{Price: order.Price}
		tree.Set(level)
	}
	level.Add(order)
	b.orders[order.OrderID] = &orderHandle{order: order, level: level}
}

// CancelOrder removes orderID from the book, dropping its level if it was
// the last resident there. It returns false if the order was not found.
func (b *OrderBook) CancelOrder(orderID uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancelOrderLocked(orderID)
}

func (b *OrderBook) cancelOrderLocked(orderID uint64) bool {
	handle, ok := b.orders[orderID]
	if !ok {
		return false
	}
	delete(b.orders, orderID)

	handle.level.Remove(orderID)
	if handle.level.Empty() {
		if handle.order.IsBuy() {
			b.bids.Delete(handle.level)
		} else {
			b.asks.Delete(handle.level)
		}
	}
	handle.order.Status = StatusCancelled
	return true
}

// ModifyOrder is equivalent to CancelOrder followed by AddOrder under the
// same order id, with a refreshed timestamp, and so loses time priority.
// It returns the new order and any trades the re-add produced; ok is false
// if orderID was not resting in the book.
func (b *OrderBook) ModifyOrder(orderID uint64, newPrice int64, newQuantity uint32) (Order, []Trade, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handle, ok := b.orders[orderID]
	if !ok {
		return Order{}, nil, false
	}
	refreshed := *handle.order
	refreshed.Price = newPrice
	refreshed.Quantity = newQuantity
	refreshed.ExecutedQuantity = 0
	refreshed.TimestampNs = uint64(time.Now().UnixNano())

	if !b.cancelOrderLocked(orderID) {
		return Order{}, nil, false
	}

	result, trades, accepted := b.addOrderLocked(refreshed)
	if !accepted {
		return Order{}, nil, false
	}
	return result, trades, true
}

// BestBid returns the highest resting buy price, if any.
func (b *OrderBook) BestBid() (int64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	level, ok := b.bids.Min()
	if !ok {
		return 0, false
	}
	return level.Price, true
}

// BestAsk returns the lowest resting sell price, if any.
func (b *OrderBook) BestAsk() (int64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	level, ok := b.asks.Min()
	if !ok {
		return 0, false
	}
	return level.Price, true
}

// VolumeAtPrice returns the total resting volume at price on side, or 0 if
// no level exists there.
func (b *OrderBook) VolumeAtPrice(price int64, side Side) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	level, ok := b.levelAt(price, side)
	if !ok {
		return 0
	}
	return level.TotalVolume
}

// OrderCountAtPrice returns the number of resting orders at price on side.
func (b *OrderBook) OrderCountAtPrice(price int64, side Side) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	level, ok := b.levelAt(price, side)
	if !ok {
		return 0
	}
	return level.OrderCount()
}

func (b *OrderBook) levelAt(price int64, side Side) (*PriceLevel, bool) {
	if side == Buy {
		return b.bids.Get(&PriceLevel{Price: price})
	}
	return b.asks.Get(&PriceLevel{Price: price})
}

// TotalOrders returns the number of orders currently resting in the book.
func (b *OrderBook) TotalOrders() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

// Clear empties every level and the order-id index.
func (b *OrderBook) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	less := func(a, b *PriceLevel) bool { return a.Price > b.Price }
	b.bids = btree.NewBTreeG(less)
	b.asks = btree.NewBTreeG(func(a, b *PriceLevel) bool { return a.Price < b.Price })
	b.orders = make(map[uint64]*orderHandle)
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
