// Package book keeps a local mirror of one pair's order book from "book"
// snapshots and updates.
package book

import (
	"sync"

	"github.com/google/btree"

	"krakenflow/models"
	"krakenflow/models/publication"
)

const degree = 32

// Level is one price level of the mirror.
type Level struct {
	Price     models.Float
	Volume    models.Float
	Timestamp models.Float
}

func askLess(a, b Level) bool { return a.Price.Cmp(b.Price) < 0 }

// bids sort descending so the best bid is the minimum item.
func bidLess(a, b Level) bool { return a.Price.Cmp(b.Price) > 0 }

// Book is safe for concurrent use.
type Book struct {
	mu       sync.RWMutex
	pair     models.CurrencyPair
	depth    int
	asks     *btree.BTreeG[Level]
	bids     *btree.BTreeG[Level]
	checksum string
	synced   bool
}

// New creates an empty book. A depth of 0 keeps every level.
func New(pair models.CurrencyPair, depth int) *Book {
	return &Book{
		pair:  pair,
		depth: depth,
		asks:  btree.NewG(degree, askLess),
		bids:  btree.NewG(degree, bidLess),
	}
}

func (b *Book) Pair() models.CurrencyPair { return b.pair }

// ApplySnapshot replaces the whole book.
func (b *Book) ApplySnapshot(snap publication.BookSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.asks.Clear(false)
	b.bids.Clear(false)
	for _, l := range snap.Data.Asks {
		b.asks.ReplaceOrInsert(Level{Price: l.Price, Volume: l.Volume, Timestamp: l.Timestamp})
	}
	for _, l := range snap.Data.Bids {
		b.bids.ReplaceOrInsert(Level{Price: l.Price, Volume: l.Volume, Timestamp: l.Timestamp})
	}
	b.truncate()
	b.checksum = ""
	b.synced = true
}

// ApplyUpdate folds an update into the book. A zero volume removes the
// level. Updates received before the first snapshot are ignored and
// reported as false.
func (b *Book) ApplyUpdate(u publication.BookUpdate) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.synced {
		return false
	}
	if u.Ask != nil {
		apply(b.asks, u.Ask.Levels)
	}
	if u.Bid != nil {
		apply(b.bids, u.Bid.Levels)
	}
	b.truncate()
	if c, ok := u.Checksum(); ok {
		b.checksum = c
	}
	return true
}

func apply(tree *btree.BTreeG[Level], levels []publication.BookLevelUpdate) {
	for _, l := range levels {
		lvl := Level{Price: l.Price, Volume: l.Volume, Timestamp: l.Timestamp}
		if l.Volume.IsZero() {
			tree.Delete(lvl)
			continue
		}
		tree.ReplaceOrInsert(lvl)
	}
}

// truncate drops levels beyond the subscribed depth.
func (b *Book) truncate() {
	if b.depth <= 0 {
		return
	}
	for b.asks.Len() > b.depth {
		b.asks.DeleteMax()
	}
	for b.bids.Len() > b.depth {
		b.bids.DeleteMax()
	}
}

// Best returns the top of book. ok is false while either side is empty.
func (b *Book) Best() (bid, ask Level, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bid, okBid := b.bids.Min()
	ask, okAsk := b.asks.Min()
	return bid, ask, okBid && okAsk
}

// Asks returns up to n ask levels from best to worst. n <= 0 returns all.
func (b *Book) Asks(n int) []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collect(b.asks, n)
}

// Bids returns up to n bid levels from best to worst. n <= 0 returns all.
func (b *Book) Bids(n int) []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collect(b.bids, n)
}

func collect(tree *btree.BTreeG[Level], n int) []Level {
	size := tree.Len()
	if n > 0 && n < size {
		size = n
	}
	out := make([]Level, 0, size)
	tree.Ascend(func(l Level) bool {
		out = append(out, l)
		return len(out) < size
	})
	return out
}

// Checksum is the last checksum carried by an update. It is not verified.
func (b *Book) Checksum() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.checksum
}

// Synced reports whether a snapshot has been applied.
func (b *Book) Synced() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.synced
}

// Spread is best ask minus best bid.
func (b *Book) Spread() (models.Float, bool) {
	bid, ask, ok := b.Best()
	if !ok {
		return models.Float{}, false
	}
	d := ask.Price.Decimal().Sub(bid.Price.Decimal())
	return models.NewFloat(d.InexactFloat64()), true
}
