package core

// Trade is an immutable execution record, sized to the same 64-byte budget
// as Order. TradeID is assigned monotonically per book.
type Trade struct {
	TradeID      uint64
	BuyOrderID   uint64
	SellOrderID  uint64
	SymbolID     uint64
	Price        int64
	Quantity     uint32
	_            uint32 // pad
	TimestampNs  uint64
	_            uint64 // pad
}
