package core

// Order is a fixed-shape value record: five uint64/int64 fields, three
// uint32 fields, four one-byte enums and an 8-byte pad, deliberately sized
// to sit in one 64-byte cache line the way the reference implementation's
// alignas(64) struct does. Price is a signed fixed-point integer with 6
// implied decimal digits ($100.00 == 100_000_000).
type Order struct {
	OrderID          uint64
	SymbolID         uint64
	Price            int64
	Quantity         uint32 // remaining quantity
	ExecutedQuantity uint32
	TimestampNs      uint64
	ClientID         uint64
	SequenceNumber   uint32
	Side             Side
	Type             OrderType
	Status           OrderStatus
	TIF              TimeInForce
	_                [8]byte // pad to 64 bytes
}

// IsBuy reports whether the order sits on the buy side.
func (o *Order) IsBuy() bool { return o.Side == Buy }

// IsSell reports whether the order sits on the sell side.
func (o *Order) IsSell() bool { return o.Side == Sell }

// IsFilled reports whether the order has no remaining quantity.
func (o *Order) IsFilled() bool { return o.Quantity == 0 }

// CanMatch reports whether o and other are eligible to trade against each
// other: same symbol, opposite sides, and crossing prices.
func (o *Order) CanMatch(other *Order) bool {
	if o.SymbolID != other.SymbolID {
		return false
	}
	if o.Side == other.Side {
		return false
	}
	if o.IsBuy() {
		return o.Price >= other.Price
	}
	return o.Price <= other.Price
}

// Execute records a fill of fillQuantity against the order's remaining
// quantity and advances its status accordingly.
func (o *Order) Execute(fillQuantity uint32) {
	o.Quantity -= fillQuantity
	o.ExecutedQuantity += fillQuantity
	if o.Quantity == 0 {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartiallyFilled
	}
}
