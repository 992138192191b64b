package book

import (
	"sync"
	"testing"

	"krakenflow/models"
	"krakenflow/models/publication"
)

var pair = models.MustPair("XBT/USD")

func lvl(price, volume string) publication.BookLevel {
	return publication.BookLevel{Price: models.MustFloat(price), Volume: models.MustFloat(volume), Timestamp: models.MustFloat("1534614248.123678")}
}

func upd(price, volume string) publication.BookLevelUpdate {
	return publication.BookLevelUpdate{Price: models.MustFloat(price), Volume: models.MustFloat(volume), Timestamp: models.MustFloat("1534614248.456738")}
}

func snapshot() publication.BookSnapshot {
	return publication.BookSnapshot{
		ChannelID:   0,
		ChannelName: "book-10",
		Pair:        pair,
		Data: publication.BookSnapshotData{
			Asks: []publication.BookLevel{lvl("5541.30000", "2.50700000"), lvl("5541.80000", "0.33000000"), lvl("5542.70000", "0.64700000")},
			Bids: []publication.BookLevel{lvl("5541.20000", "1.52900000"), lvl("5539.90000", "0.30000000"), lvl("5539.50000", "5.00000000")},
		},
	}
}

func prices(levels []Level) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = l.Price.String()
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSnapshotOrdering(t *testing.T) {
	b := New(pair, 0)
	b.ApplySnapshot(snapshot())

	if got := prices(b.Asks(0)); !equal(got, []string{"5541.3", "5541.8", "5542.7"}) {
		t.Errorf("asks = %v", got)
	}
	if got := prices(b.Bids(2)); !equal(got, []string{"5541.2", "5539.9"}) {
		t.Errorf("bids = %v", got)
	}
	bid, ask, ok := b.Best()
	if !ok || bid.Price.String() != "5541.2" || ask.Price.String() != "5541.3" {
		t.Fatalf("best = %v %v %v", bid, ask, ok)
	}
	if s, ok := b.Spread(); !ok || s.String() != "0.1" {
		t.Errorf("spread = %v", s)
	}
}

func TestUpdateBeforeSnapshotIgnored(t *testing.T) {
	b := New(pair, 10)
	if b.ApplyUpdate(publication.BookUpdate{Ask: &publication.BookSide{Levels: []publication.BookLevelUpdate{upd("1", "1")}}}) {
		t.Fatal("update before snapshot should be ignored")
	}
	if _, _, ok := b.Best(); ok {
		t.Fatal("book should be empty")
	}
}

func TestUpdateInsertReplaceDelete(t *testing.T) {
	b := New(pair, 0)
	b.ApplySnapshot(snapshot())

	checksum := "974942666"
	ok := b.ApplyUpdate(publication.BookUpdate{
		Ask: &publication.BookSide{Levels: []publication.BookLevelUpdate{
			upd("5541.30000", "0.00000000"),
			upd("5542.00000", "1.00000000"),
		}},
		Bid: &publication.BookSide{Levels: []publication.BookLevelUpdate{
			upd("5539.90000", "7.00000000"),
		}, Checksum: &checksum},
	})
	if !ok {
		t.Fatal("update rejected")
	}
	if got := prices(b.Asks(0)); !equal(got, []string{"5541.8", "5542", "5542.7"}) {
		t.Errorf("asks = %v", got)
	}
	bids := b.Bids(0)
	if len(bids) != 3 || bids[1].Volume.String() != "7" {
		t.Errorf("bids = %+v", bids)
	}
	if b.Checksum() != checksum {
		t.Errorf("checksum = %s", b.Checksum())
	}
}

func TestDepthTruncation(t *testing.T) {
	b := New(pair, 2)
	b.ApplySnapshot(snapshot())
	if len(b.Asks(0)) != 2 || len(b.Bids(0)) != 2 {
		t.Fatalf("snapshot not truncated: asks=%v bids=%v", prices(b.Asks(0)), prices(b.Bids(0)))
	}

	b.ApplyUpdate(publication.BookUpdate{Bid: &publication.BookSide{Levels: []publication.BookLevelUpdate{upd("5541.25000", "1")}}})
	if got := prices(b.Bids(0)); !equal(got, []string{"5541.25", "5541.2"}) {
		t.Errorf("bids = %v", got)
	}
}

func TestSnapshotResets(t *testing.T) {
	b := New(pair, 0)
	b.ApplySnapshot(snapshot())
	b.ApplyUpdate(publication.BookUpdate{Ask: &publication.BookSide{Levels: []publication.BookLevelUpdate{upd("6000", "1")}}})
	b.ApplySnapshot(snapshot())
	if len(b.Asks(0)) != 3 || b.Checksum() != "" {
		t.Fatalf("asks = %v checksum = %q", prices(b.Asks(0)), b.Checksum())
	}
}

func TestConcurrentAccess(t *testing.T) {
	b := New(pair, 10)
	b.ApplySnapshot(snapshot())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.ApplyUpdate(publication.BookUpdate{Ask: &publication.BookSide{Levels: []publication.BookLevelUpdate{upd("5543", "1")}}})
		}()
		go func() {
			defer wg.Done()
			b.Best()
		}()
	}
	wg.Wait()
	if !b.Synced() {
		t.Fatal("book should be synced")
	}
}
