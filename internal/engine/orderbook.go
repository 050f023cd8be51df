package engine

import (
	"fmt"
	"sync"

	"github.com/efreitasn/matchbook/internal/domain"
)

// PriceLevel represents an aggregated price level in the order book.
type PriceLevel struct {
	Price         int64
	TotalQuantity int64
	OrderCount    int
}

// Quote is a book-top snapshot: the best resolvable price on one side
// and the total quantity resting at exactly that price.
type Quote struct {
	Price    int64
	Quantity int64
}

// OrderBook is the matching unit for a single instrument. It owns four
// book partitions (bid-limit, ask-limit, bid-market, ask-market) and
// the registry of live orders, and keeps them in 1:1 correspondence:
// every order with positive remaining quantity appears exactly once in
// the registry and exactly once in the partition selected by its
// (side, type).
//
// The registry is keyed by arrival rank, a book-owned counter stamped
// on every insertion, with a side index from order number to rank.
// Ranks are never reused: a price amend re-inserts the order under a
// fresh rank, which is what forfeits its time priority.
//
// All operations take the aggregate mutex for their full duration;
// within one instrument, matching is single-threaded.
type OrderBook struct {
	instrument string
	mu         sync.Mutex
	books      [4]*Book
	seq        uint64                   // arrival rank counter
	orders     map[uint64]*domain.Order // registry: arrival rank → live order
	index      map[uint64]uint64        // order_no → arrival rank
}

// NewOrderBook creates an empty order book for the given instrument.
func NewOrderBook(instrument string) *OrderBook {
	ob := &OrderBook{
		instrument: instrument,
		orders:     make(map[uint64]*domain.Order),
		index:      make(map[uint64]uint64),
	}
	for i := range ob.books {
		ob.books[i] = NewBook()
	}
	return ob
}

// Instrument returns the symbol this book matches.
func (ob *OrderBook) Instrument() string {
	return ob.instrument
}

// write inserts an order into the registry and into its book partition
// under a fresh arrival rank. This is the only insertion path for
// resting orders; calling it with a non-positive remaining quantity is
// an internal bug.
func (ob *OrderBook) write(o *domain.Order) {
	if o.RemainingQuantity <= 0 {
		panic(fmt.Sprintf("matchbook: write of order %d with remaining quantity %d", o.OrderNo, o.RemainingQuantity))
	}
	ob.seq++
	ob.orders[ob.seq] = o
	ob.index[o.OrderNo] = ob.seq
	ob.books[bookIndex(o.Side, o.Type)].Insert(keyFor(o, ob.seq))
}

// unwrite removes an order from the registry and from its partition.
func (ob *OrderBook) unwrite(o *domain.Order) {
	s := ob.index[o.OrderNo]
	delete(ob.orders, s)
	delete(ob.index, o.OrderNo)
	ob.books[bookIndex(o.Side, o.Type)].Remove(keyFor(o, s))
}

// resolve returns the live order behind a book entry. A registry miss
// means the books and the registry have diverged, which is an internal
// bug, so it panics rather than limping on.
func (ob *OrderBook) resolve(k PriorityKey) *domain.Order {
	o, ok := ob.orders[k.Seq]
	if !ok {
		panic(fmt.Sprintf("matchbook: book entry with rank %d has no registry entry", k.Seq))
	}
	return o
}

// Get returns the live order with the given number, or false if it is
// not resting on this book.
func (ob *OrderBook) Get(orderNo uint64) (*domain.Order, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	s, ok := ob.index[orderNo]
	if !ok {
		return nil, false
	}
	return ob.orders[s], true
}

// Len returns the number of live orders across all four partitions.
func (ob *OrderBook) Len() int {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return len(ob.orders)
}

// BestPrice returns the best quoted limit price on a side: highest for
// bids, lowest for asks. Resting market orders carry no price and do
// not contribute.
func (ob *OrderBook) BestPrice(side domain.Side) (int64, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.books[bookIndex(side, domain.OrderTypeLimit)].BestPrice()
}

// Quote returns the best quoted price on a side together with the total
// quantity resting at exactly that price.
func (ob *OrderBook) Quote(side domain.Side) (Quote, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	book := ob.books[bookIndex(side, domain.OrderTypeLimit)]
	price, ok := book.BestPrice()
	if !ok {
		return Quote{}, false
	}

	q := Quote{Price: price}
	book.Ascend(func(k PriorityKey) bool {
		if k.Price != price {
			return false
		}
		q.Quantity += ob.resolve(k).RemainingQuantity
		return true
	})
	return q, true
}

// Depth returns up to n aggregated price levels from a side's limit
// partition, best price first.
func (ob *OrderBook) Depth(side domain.Side, n int) []PriceLevel {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	ob.books[bookIndex(side, domain.OrderTypeLimit)].Ascend(func(k PriorityKey) bool {
		qty := ob.resolve(k).RemainingQuantity
		if len(levels) > 0 && levels[len(levels)-1].Price == k.Price {
			levels[len(levels)-1].TotalQuantity += qty
			levels[len(levels)-1].OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:         k.Price,
			TotalQuantity: qty,
			OrderCount:    1,
		})
		return true
	})
	return levels
}

// BookManager is a thread-safe map of instrument → OrderBook.
type BookManager struct {
	mu    sync.RWMutex
	books map[string]*OrderBook
}

// NewBookManager creates a new BookManager.
func NewBookManager() *BookManager {
	return &BookManager{
		books: make(map[string]*OrderBook),
	}
}

// GetOrCreate returns the order book for the given instrument, creating
// one if it doesn't already exist.
func (bm *BookManager) GetOrCreate(instrument string) *OrderBook {
	bm.mu.RLock()
	book, ok := bm.books[instrument]
	bm.mu.RUnlock()
	if ok {
		return book
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()
	// Double-check after acquiring write lock.
	if book, ok = bm.books[instrument]; ok {
		return book
	}
	book = NewOrderBook(instrument)
	bm.books[instrument] = book
	return book
}

// Get returns the order book for an instrument, without creating one.
func (bm *BookManager) Get(instrument string) (*OrderBook, bool) {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	book, ok := bm.books[instrument]
	return book, ok
}

// Instruments returns the symbols of all known books.
func (bm *BookManager) Instruments() []string {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	out := make([]string, 0, len(bm.books))
	for sym := range bm.books {
		out = append(out, sym)
	}
	return out
}
