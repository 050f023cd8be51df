package engine

import (
	"sort"

	"github.com/efreitasn/matchbook/internal/domain"
)

// AuctionResult holds the outcome of a call auction run: the clearing
// price, the volume executed at it, and the trades in execution order.
type AuctionResult struct {
	Price  int64
	Volume int64
	Trades []domain.Trade
}

// RunCallAuction computes a single equilibrium price maximizing
// executable volume across all resting interest, then executes trades
// at that price. It reports false when the book cannot uncross: one
// side has no limit orders to bound the price, or no price yields any
// volume.
//
// The clearing price is searched over every quoted limit level. Bid
// demand at a level counts all limit bids quoted at or above it plus
// all resting market bids; ask supply counts limit asks at or below it
// plus market asks. Among the levels maximizing min(demand, supply),
// the median level is chosen, taking the lower of the two middle levels
// when their count is even.
//
// Orders left partially or fully unfilled stay resting in the
// continuous book with their priority untouched.
func (ob *OrderBook) RunCallAuction() (*AuctionResult, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	bidBook := ob.books[bookIndex(domain.SideBid, domain.OrderTypeLimit)]
	askBook := ob.books[bookIndex(domain.SideAsk, domain.OrderTypeLimit)]
	if bidBook.Len() == 0 || askBook.Len() == 0 {
		return nil, false
	}

	bidAt := make(map[int64]int64)
	askAt := make(map[int64]int64)
	bidBook.Ascend(func(k PriorityKey) bool {
		bidAt[k.Price] += ob.resolve(k).RemainingQuantity
		return true
	})
	askBook.Ascend(func(k PriorityKey) bool {
		askAt[k.Price] += ob.resolve(k).RemainingQuantity
		return true
	})

	marketBidQty := ob.partitionQuantity(domain.SideBid, domain.OrderTypeMarket)
	marketAskQty := ob.partitionQuantity(domain.SideAsk, domain.OrderTypeMarket)

	levels := make([]int64, 0, len(bidAt)+len(askAt))
	for p := range bidAt {
		levels = append(levels, p)
	}
	for p := range askAt {
		if _, dup := bidAt[p]; !dup {
			levels = append(levels, p)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	// Supply at or below each level, scanning upward.
	supply := make([]int64, len(levels))
	var acc int64 = marketAskQty
	for i, p := range levels {
		acc += askAt[p]
		supply[i] = acc
	}
	// Demand at or above each level, scanning downward.
	demand := make([]int64, len(levels))
	acc = marketBidQty
	for i := len(levels) - 1; i >= 0; i-- {
		acc += bidAt[levels[i]]
		demand[i] = acc
	}

	var best int64
	var maximizers []int64
	for i, p := range levels {
		vol := supply[i]
		if demand[i] < vol {
			vol = demand[i]
		}
		switch {
		case vol > best:
			best = vol
			maximizers = maximizers[:0]
			maximizers = append(maximizers, p)
		case vol == best && vol > 0:
			maximizers = append(maximizers, p)
		}
	}
	if best == 0 {
		return nil, false
	}

	price := maximizers[(len(maximizers)-1)/2]
	trades := ob.uncross(price)

	return &AuctionResult{Price: price, Volume: best, Trades: trades}, true
}

// partitionQuantity sums the remaining quantity of one (side, type)
// partition.
func (ob *OrderBook) partitionQuantity(side domain.Side, typ domain.OrderType) int64 {
	var total int64
	ob.books[bookIndex(side, typ)].Ascend(func(k PriorityKey) bool {
		total += ob.resolve(k).RemainingQuantity
		return true
	})
	return total
}

// uncross executes trades at the clearing price, pairing eligible bids
// and asks in book priority: the market partition first, then limit
// entries in price-time order, skipping limit orders whose quote falls
// outside the clearing price. Fills decrement registry quantities and
// remove fully filled entries exactly as continuous crossing does.
func (ob *OrderBook) uncross(price int64) []domain.Trade {
	var trades []domain.Trade
	for {
		bid := ob.bestEligible(domain.SideBid, price)
		ask := ob.bestEligible(domain.SideAsk, price)
		if bid == nil || ask == nil {
			return trades
		}

		fill := bid.RemainingQuantity
		if ask.RemainingQuantity < fill {
			fill = ask.RemainingQuantity
		}

		bid.RemainingQuantity -= fill
		bid.FilledQuantity += fill
		ask.RemainingQuantity -= fill
		ask.FilledQuantity += fill

		for _, o := range [2]*domain.Order{bid, ask} {
			if o.RemainingQuantity > 0 {
				o.Status = domain.OrderStatusPartiallyFilled
			} else {
				o.Status = domain.OrderStatusFilled
				ob.unwrite(o)
			}
		}

		trades = append(trades, newTrade(bid, ask, price, fill))
	}
}

// bestEligible returns the highest-priority order on a side willing to
// trade at the clearing price: any market order, or a limit bid quoted
// at or above it (ask: at or below). Returns nil when the side is
// exhausted.
func (ob *OrderBook) bestEligible(side domain.Side, price int64) *domain.Order {
	if k, ok := ob.books[bookIndex(side, domain.OrderTypeMarket)].Peek(); ok {
		return ob.resolve(k)
	}
	k, ok := ob.books[bookIndex(side, domain.OrderTypeLimit)].Peek()
	if !ok {
		return nil
	}
	if side == domain.SideBid && k.Price < price {
		return nil
	}
	if side == domain.SideAsk && k.Price > price {
		return nil
	}
	return ob.resolve(k)
}
