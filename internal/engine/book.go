package engine

import "github.com/google/btree"

// Book is an ordered set of priority keys for exactly one (side, type)
// partition, backed by a B-tree. All operations are O(log n). The Book
// itself is not locked; the owning OrderBook serializes access.
type Book struct {
	tree *btree.BTreeG[PriorityKey]
}

// NewBook creates an empty Book.
func NewBook() *Book {
	const degree = 32
	return &Book{tree: btree.NewG[PriorityKey](degree, keyLess)}
}

// Peek returns the best entry without removing it.
func (b *Book) Peek() (PriorityKey, bool) {
	return b.tree.Min()
}

// Pop removes and returns the best entry.
func (b *Book) Pop() (PriorityKey, bool) {
	return b.tree.DeleteMin()
}

// Insert adds a key to the book.
func (b *Book) Insert(k PriorityKey) {
	b.tree.ReplaceOrInsert(k)
}

// Remove deletes a key from the book. Returns false if the key was not
// present.
func (b *Book) Remove(k PriorityKey) bool {
	_, ok := b.tree.Delete(k)
	return ok
}

// Len returns the number of entries in the book.
func (b *Book) Len() int {
	return b.tree.Len()
}

// BestPrice returns the price of the best entry. It reports false for
// an empty book and for a market partition, whose entries carry no
// price to resolve.
func (b *Book) BestPrice() (int64, bool) {
	k, ok := b.tree.Min()
	if !ok || k.Kind == kindMarket {
		return 0, false
	}
	return k.Price, true
}

// WorstPrice returns the price of the last entry, with the same
// no-price cases as BestPrice.
func (b *Book) WorstPrice() (int64, bool) {
	k, ok := b.tree.Max()
	if !ok || k.Kind == kindMarket {
		return 0, false
	}
	return k.Price, true
}

// Ascend iterates entries in priority order. The callback returns true
// to continue, false to stop.
func (b *Book) Ascend(fn func(PriorityKey) bool) {
	b.tree.Ascend(fn)
}
