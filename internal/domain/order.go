package domain

import "time"

// OrderType distinguishes limit orders from market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// Side indicates whether an order is a bid (buy) or ask (sell).
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// Opposite returns the other side of the book, i.e. the side an
// incoming order crosses against.
func (s Side) Opposite() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

// Condition is an order's time-in-force / participation flag.
// Only FAK (fill-and-kill, immediate-or-cancel) changes matching
// behavior; the others are stored but not enforced by the engine.
type Condition string

const (
	ConditionGFD Condition = "gfd" // good for day
	ConditionGTD Condition = "gtd" // good till date
	ConditionFAK Condition = "fak" // fill and kill (immediate or cancel)
	ConditionFOK Condition = "fok" // fill or kill
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// Order is a bid or ask instruction for a single instrument. OrderNo is
// assigned by the caller of the engine, is unique per instrument, and
// strictly increases with arrival order, so it doubles as the
// time-priority tiebreaker. RemainingQuantity is decremented in place as the order
// trades; the engine drops the order from its structures when it reaches
// zero or the order is cancelled.
type Order struct {
	OrderNo           uint64
	Type              OrderType
	Side              Side
	Condition         Condition
	Instrument        string
	Price             int64 // cents, 0 for market orders
	Quantity          int64
	FilledQuantity    int64
	RemainingQuantity int64
	CancelledQuantity int64
	Status            OrderStatus
	CreatedAt         time.Time
	CancelledAt       *time.Time
}
