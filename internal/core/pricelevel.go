package core

// PriceLevel holds the FIFO queue of orders resting at one price, plus the
// aggregates the book needs without re-scanning the queue. A level exists
// only while at least one order is queued at its price; OrderBook removes
// empty levels immediately.
type PriceLevel struct {
	Price       int64
	orders      []*Order
	TotalVolume uint64
}

// Add appends order to the tail of the level's FIFO queue. The caller must
// ensure order.Price == level.Price.
func (l *PriceLevel) Add(order *Order) {
	l.orders = append(l.orders, order)
	l.TotalVolume += uint64(order.Quantity)
}

// PeekFront returns the oldest order without removing it, or nil if empty.
func (l *PriceLevel) PeekFront() *Order {
	if len(l.orders) == 0 {
		return nil
	}
	return l.orders[0]
}

// PopFront removes and returns the oldest order without touching aggregate
// volume: callers must have already accounted for the order's consumed
// quantity via Fill before popping it, since by the time an order is fully
// matched its remaining Quantity has already been reduced to zero.
func (l *PriceLevel) PopFront() *Order {
	if len(l.orders) == 0 {
		return nil
	}
	order := l.orders[0]
	l.orders[0] = nil
	l.orders = l.orders[1:]
	return order
}

// Fill decrements total volume by q, the quantity just matched off the
// front order, whether that leaves it partially filled or fully consumed.
// The caller is responsible for popping a fully consumed order separately.
func (l *PriceLevel) Fill(q uint32) {
	l.TotalVolume -= uint64(q)
}

// Remove scans the level for orderID and removes it if present. O(len(level)),
// acceptable because cancels are rare relative to matches and callers
// typically reach a level only after an order-id index lookup.
func (l *PriceLevel) Remove(orderID uint64) bool {
	for i, order := range l.orders {
		if order.OrderID == orderID {
			l.TotalVolume -= uint64(order.Quantity)
			l.orders = append(l.orders[:i], l.orders[i+1:]...)
			return true
		}
	}
	return false
}

// Empty reports whether the level has no resting orders.
func (l *PriceLevel) Empty() bool {
	return len(l.orders) == 0
}

// OrderCount returns the number of orders currently queued at this level.
func (l *PriceLevel) OrderCount() int {
	return len(l.orders)
}

// Orders returns the level's queue in FIFO order. Callers must not mutate
// the returned slice.
func (l *PriceLevel) Orders() []*Order {
	return l.orders
}
