package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/matchbook/internal/domain"
)

// Submit runs an incoming order through the continuous crossing pass.
//
// A limit incoming first crosses the opposite side's market partition
// (resting market orders outrank any limit order), then the opposite
// limit partition. A market incoming crosses only the opposite limit
// partition, since two priceless orders cannot form a trade price.
// Whatever remains either rests on the book or, for fill-and-kill
// orders, is discarded.
//
// The caller must provide an order with OrderNo, Side, Type, Condition,
// Price (limit only) and Quantity set, and OrderNo must be greater than
// any previously submitted on this book. Submit sets RemainingQuantity
// and manages status transitions. Returned trades are in execution
// order.
func (ob *OrderBook) Submit(o *domain.Order) []domain.Trade {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	o.RemainingQuantity = o.Quantity
	o.FilledQuantity = 0
	o.CancelledQuantity = 0
	o.Status = domain.OrderStatusPending

	return ob.submit(o)
}

// submit is the crossing path shared by Submit and price-changing
// amends. The caller holds ob.mu and has initialized the quantity
// fields.
func (ob *OrderBook) submit(o *domain.Order) []domain.Trade {
	var trades []domain.Trade

	opposite := o.Side.Opposite()
	if o.Type == domain.OrderTypeLimit {
		trades = ob.cross(ob.books[bookIndex(opposite, domain.OrderTypeMarket)], o, trades)
	}
	if o.RemainingQuantity > 0 {
		trades = ob.cross(ob.books[bookIndex(opposite, domain.OrderTypeLimit)], o, trades)
	}

	switch {
	case o.RemainingQuantity == 0:
		o.Status = domain.OrderStatusFilled
	case o.Condition == domain.ConditionFAK:
		// Fill and kill: the remainder never rests.
		o.CancelledQuantity = o.RemainingQuantity
		o.RemainingQuantity = 0
		o.Status = domain.OrderStatusCancelled
	default:
		if o.FilledQuantity > 0 {
			o.Status = domain.OrderStatusPartiallyFilled
		}
		ob.write(o)
	}

	return trades
}

// cross repeatedly matches the incoming order against the best entry of
// one opposite-side partition until the incoming quantity is exhausted,
// the partition empties, or a bid/ask spread opens.
func (ob *OrderBook) cross(book *Book, incoming *domain.Order, trades []domain.Trade) []domain.Trade {
	for incoming.RemainingQuantity > 0 {
		k, ok := book.Peek()
		if !ok {
			break
		}
		resting := ob.resolve(k)

		price, ok := tryTrade(resting, incoming)
		if !ok {
			break
		}

		book.Pop()

		fill := incoming.RemainingQuantity
		if resting.RemainingQuantity < fill {
			fill = resting.RemainingQuantity
		}

		incoming.RemainingQuantity -= fill
		incoming.FilledQuantity += fill
		resting.RemainingQuantity -= fill
		resting.FilledQuantity += fill

		if resting.RemainingQuantity > 0 {
			resting.Status = domain.OrderStatusPartiallyFilled
			book.Insert(k)
		} else {
			resting.Status = domain.OrderStatusFilled
			delete(ob.orders, k.Seq)
			delete(ob.index, resting.OrderNo)
		}

		trades = append(trades, newTrade(resting, incoming, price, fill))
	}
	return trades
}

// tryTrade decides whether a resting and an incoming order can trade
// and at what price:
//
//   - resting market vs incoming limit: always, at the incoming's price
//   - resting limit vs incoming market: always, at the resting's price
//   - limit vs limit: when the bid price covers the ask price, at the
//     ask side's quoted price, whichever of the two was resting
//
// The ask side setting the price for limit/limit crosses (rather than
// the resting order) is a deliberate convention; keep it.
//
// Two market orders cannot form a price and never trade; Submit never
// pairs them. Same-side pairing means the caller crossed the wrong
// partition and panics.
func tryTrade(resting, incoming *domain.Order) (int64, bool) {
	if resting.Side == incoming.Side {
		panic(fmt.Sprintf("matchbook: same-side cross of orders %d and %d", resting.OrderNo, incoming.OrderNo))
	}

	restingLimit := resting.Type == domain.OrderTypeLimit
	incomingLimit := incoming.Type == domain.OrderTypeLimit

	switch {
	case !restingLimit && incomingLimit:
		return incoming.Price, true
	case restingLimit && !incomingLimit:
		return resting.Price, true
	case restingLimit && incomingLimit:
		bid, ask := resting, incoming
		if bid.Side != domain.SideBid {
			bid, ask = incoming, resting
		}
		if bid.Price >= ask.Price {
			return ask.Price, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// newTrade builds the trade record for a fill between two orders of
// opposite sides, in either argument order.
func newTrade(a, b *domain.Order, price, qty int64) domain.Trade {
	bid, ask := a, b
	if bid.Side != domain.SideBid {
		bid, ask = b, a
	}
	return domain.Trade{
		TradeID:    uuid.New().String(),
		BidOrderNo: bid.OrderNo,
		AskOrderNo: ask.OrderNo,
		Price:      price,
		Quantity:   qty,
		ExecutedAt: time.Now(),
	}
}

// Amend changes the price and/or quantity of a resting order. The
// target carries the resting order's number plus the new values;
// Quantity is the new remaining quantity and must be positive, since a
// zero-remaining order may never rest.
//
// A price change forfeits time priority: the old entry is removed and
// the target goes back through the full crossing path under a fresh
// arrival rank, where it may trade immediately. A quantity-only change
// overwrites the stored order in place; the priority key encodes
// (price, arrival rank) and not quantity, so the order keeps its exact
// queue position.
//
// Returns domain.ErrUnknownOrder if no resting order has that number.
func (ob *OrderBook) Amend(target *domain.Order) ([]domain.Trade, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if target.Quantity <= 0 {
		return nil, &domain.ValidationError{Message: "quantity must be a positive integer"}
	}

	s, ok := ob.index[target.OrderNo]
	if !ok {
		return nil, domain.ErrUnknownOrder
	}
	cur := ob.orders[s]

	newQty := target.Quantity

	// Market orders carry no price, so every amend of one is a
	// quantity-only amend.
	if cur.Type == domain.OrderTypeLimit && target.Price != cur.Price {
		ob.unwrite(cur)

		target.FilledQuantity = cur.FilledQuantity
		target.RemainingQuantity = newQty
		target.Quantity = cur.FilledQuantity + newQty
		target.Status = domain.OrderStatusPending
		return ob.submit(target), nil
	}

	cur.Quantity = cur.FilledQuantity + newQty
	cur.RemainingQuantity = newQty
	cur.Condition = target.Condition

	return nil, nil
}

// Cancel removes an order from the registry and its partition.
// Cancelling an unknown or already-removed order number is a harmless
// no-op; the returned order is nil in that case.
func (ob *OrderBook) Cancel(orderNo uint64) *domain.Order {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	s, ok := ob.index[orderNo]
	if !ok {
		return nil
	}
	cur := ob.orders[s]
	ob.unwrite(cur)

	now := time.Now()
	cur.CancelledQuantity = cur.RemainingQuantity
	cur.RemainingQuantity = 0
	cur.Status = domain.OrderStatusCancelled
	cur.CancelledAt = &now
	return cur
}
