package engine

import "github.com/efreitasn/matchbook/internal/domain"

// keyKind discriminates the three PriorityKey variants. The numeric
// order matters only in that market keys sort ahead of any limit key;
// the two limit variants never share a book.
type keyKind uint8

const (
	kindMarket keyKind = iota
	kindLimitAsc
	kindLimitDesc
)

// PriorityKey is a per-order sort key encoding price rank and arrival
// rank. Market keys carry no price and always take priority over limit
// keys. Limit keys come in two variants: ascending (ask books, lowest
// price first) and descending (bid books, highest price first). Within
// a variant, equal prices are broken by ascending Seq, i.e. first
// arrived, first served.
//
// Seq is the book-assigned arrival rank, not the order number. The
// two are kept separate so that re-inserting an order (a price amend)
// takes a fresh rank and queues behind orders already at the level.
type PriorityKey struct {
	Kind  keyKind
	Price int64  // zero for market keys
	Seq   uint64 // arrival rank assigned at insertion
}

// MarketKey builds the key for a resting market order.
func MarketKey(seq uint64) PriorityKey {
	return PriorityKey{Kind: kindMarket, Seq: seq}
}

// AscendingKey builds a limit key for ask books (best price = lowest).
func AscendingKey(price int64, seq uint64) PriorityKey {
	return PriorityKey{Kind: kindLimitAsc, Price: price, Seq: seq}
}

// DescendingKey builds a limit key for bid books (best price = highest).
func DescendingKey(price int64, seq uint64) PriorityKey {
	return PriorityKey{Kind: kindLimitDesc, Price: price, Seq: seq}
}

// keyLess is the single total-order comparator shared by all four book
// partitions. Min() of a book therefore always yields the entry with the
// best price-time priority; which price counts as "best" is decided by
// key construction, not by per-call branching.
func keyLess(a, b PriorityKey) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	switch a.Kind {
	case kindLimitAsc:
		if a.Price != b.Price {
			return a.Price < b.Price
		}
	case kindLimitDesc:
		if a.Price != b.Price {
			return a.Price > b.Price
		}
	}
	return a.Seq < b.Seq
}

// bookIndex maps an order's (side, type) to one of the four book
// partitions: 0 bid-limit, 1 ask-limit, 2 bid-market, 3 ask-market.
// It must be the same function for insertion and removal; the
// book/registry consistency invariant hangs on that.
func bookIndex(side domain.Side, typ domain.OrderType) int {
	i := 0
	if side == domain.SideAsk {
		i++
	}
	if typ == domain.OrderTypeMarket {
		i += 2
	}
	return i
}

// keyFor derives the priority key for an order resting with the given
// arrival rank.
func keyFor(o *domain.Order, seq uint64) PriorityKey {
	if o.Type == domain.OrderTypeMarket {
		return MarketKey(seq)
	}
	if o.Side == domain.SideBid {
		return DescendingKey(o.Price, seq)
	}
	return AscendingKey(o.Price, seq)
}
