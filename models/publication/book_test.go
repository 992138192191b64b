package publication

import (
	"encoding/json"
	"errors"
	"testing"

	"krakenflow/models"
)

const bookAskOnly = `[
	1234,
	{
		"a": [
			["5541.30000", "2.50700000", "1534614248.456738"],
			["5542.50000", "0.40100000", "1534614248.456738"]
		],
		"c": "974942666"
	},
	"book-10",
	"XBT/USD"
]`

const bookBidOnly = `[
	1234,
	{
		"b": [
			["5541.30000", "0.00000000", "1534614335.345903"]
		],
		"c": "974942666"
	},
	"book-10",
	"XBT/USD"
]`

const bookBoth = `[
	1234,
	{
		"a": [
			["5541.30000", "2.50700000", "1534614248.456738"],
			["5542.50000", "0.40100000", "1534614248.456738"]
		]
	},
	{
		"b": [
			["5541.30000", "0.00000000", "1534614335.345903"]
		],
		"c": "974942666"
	},
	"book-10",
	"XBT/USD"
]`

const bookReplace = `[
	1234,
	{
		"a": [
			["5541.30000", "2.50700000", "1534614248.456738", "r"],
			["5542.50000", "0.40100000", "1534614248.456738", "r"]
		],
		"c": "974942666"
	},
	"book-25",
	"XBT/USD"
]`

func decodeUpdate(t *testing.T, payload string) BookUpdate {
	t.Helper()
	u, ok := mustDecode(t, payload).(BookUpdate)
	if !ok {
		t.Fatalf("not a BookUpdate: %s", payload)
	}
	return u
}

func TestBookUpdateAskOnly(t *testing.T) {
	u := decodeUpdate(t, bookAskOnly)
	if u.Ask == nil || u.Bid != nil {
		t.Fatalf("sides ask=%v bid=%v", u.Ask, u.Bid)
	}
	if len(u.Ask.Levels) != 2 || u.Ask.Levels[1].Price.String() != "5542.5" {
		t.Fatalf("levels = %+v", u.Ask.Levels)
	}
	if c, ok := u.Checksum(); !ok || c != "974942666" {
		t.Fatalf("checksum = %q %v", c, ok)
	}
	if u.ChannelID != 1234 || u.ChannelName != "book-10" || u.Pair != models.NewPair(models.XBT, models.USD) {
		t.Fatalf("header = %d %s %s", u.ChannelID, u.ChannelName, u.Pair)
	}
}

func TestBookUpdateBidOnly(t *testing.T) {
	u := decodeUpdate(t, bookBidOnly)
	if u.Ask != nil || u.Bid == nil {
		t.Fatalf("sides ask=%v bid=%v", u.Ask, u.Bid)
	}
	if !u.Bid.Levels[0].Volume.IsZero() {
		t.Fatalf("expected a removal, got %+v", u.Bid.Levels[0])
	}
}

func TestBookUpdateBothSides(t *testing.T) {
	u := decodeUpdate(t, bookBoth)
	if u.Ask == nil || u.Bid == nil {
		t.Fatalf("sides ask=%v bid=%v", u.Ask, u.Bid)
	}
	if u.Ask.Checksum != nil {
		t.Errorf("ask checksum = %v", *u.Ask.Checksum)
	}
	if u.Bid.Checksum == nil || *u.Bid.Checksum != "974942666" {
		t.Errorf("bid checksum = %v", u.Bid.Checksum)
	}
}

func TestBookUpdateBothSidesReversed(t *testing.T) {
	payload := `[7, {"b": [["1.0", "2.0", "3.0"]]}, {"a": [["4.0", "5.0", "6.0"]], "c": "1"}, "book-10", "ETH/EUR"]`
	u := decodeUpdate(t, payload)
	if u.Ask == nil || u.Bid == nil {
		t.Fatalf("sides ask=%v bid=%v", u.Ask, u.Bid)
	}
	if u.Bid.Levels[0].Price.String() != "1" || u.Ask.Levels[0].Price.String() != "4" {
		t.Fatalf("sides swapped: ask=%+v bid=%+v", u.Ask, u.Bid)
	}
}

func TestBookUpdateType(t *testing.T) {
	u := decodeUpdate(t, bookReplace)
	for _, l := range u.Ask.Levels {
		if l.UpdateType == nil || *l.UpdateType != "r" {
			t.Fatalf("update type = %v", l.UpdateType)
		}
	}
	data, err := json.Marshal(u.Ask.Levels[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["5541.3","2.507","1534614248.456738","r"]` {
		t.Fatalf("marshal = %s", data)
	}
}

func TestBookUpdateRejected(t *testing.T) {
	for _, payload := range []string{
		`[1234, {"c": "974942666"}, "book-10", "XBT/USD"]`,
		`[1234, {}, "book-10", "XBT/USD"]`,
		`[1234, {"a": [], "x": 1}, "book-10", "XBT/USD"]`,
		`[1234, {"a": []}, {"a": []}, "book-10", "XBT/USD"]`,
		`[1234, {"a": [["1", "2"]]}, "book-10", "XBT/USD"]`,
		`[1234, {"a": [["1", "2", "3", "r", "x"]]}, "book-10", "XBT/USD"]`,
	} {
		_, err := Decode([]byte(payload))
		var cerr *models.ClassificationError
		if !errors.As(err, &cerr) {
			t.Errorf("Decode(%s) error = %v", payload, err)
		}
	}
}

func TestBookUpdateFold(t *testing.T) {
	pair := models.NewPair(models.ETH, models.USD)
	side := BookSide{Levels: []BookLevelUpdate{{Price: models.MustFloat("1"), Volume: models.MustFloat("2"), Timestamp: models.MustFloat("3")}}}
	tests := []struct {
		name  string
		shape bookUpdateShape
		ask   bool
		bid   bool
	}{
		{"ask", askOnlyUpdate{channelID: 1, ask: side, channelName: "book-10", pair: pair}, true, false},
		{"bid", bidOnlyUpdate{channelID: 1, bid: side, channelName: "book-10", pair: pair}, false, true},
		{"both", askBidUpdate{channelID: 1, ask: side, bid: side, channelName: "book-10", pair: pair}, true, true},
	}
	for _, tt := range tests {
		u := tt.shape.fold()
		if (u.Ask != nil) != tt.ask || (u.Bid != nil) != tt.bid {
			t.Errorf("%s: ask=%v bid=%v", tt.name, u.Ask != nil, u.Bid != nil)
		}
		if u.ChannelID != 1 || u.Pair != pair || u.ChannelName != "book-10" {
			t.Errorf("%s: header lost: %+v", tt.name, u)
		}
	}
}

func TestBookUpdateMarshalRequiresSide(t *testing.T) {
	if _, err := json.Marshal(BookUpdate{ChannelID: 1, ChannelName: "book-10"}); err == nil {
		t.Fatal("expected error marshaling an update without sides")
	}
}

func TestBookUpdateMarshalLayout(t *testing.T) {
	u := decodeUpdate(t, bookBoth)
	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[1234,{"a":[["5541.3","2.507","1534614248.456738"],["5542.5","0.401","1534614248.456738"]]},{"b":[["5541.3","0","1534614335.345903"]],"c":"974942666"},"book-10","XBT/USD"]`
	if string(data) != want {
		t.Fatalf("marshal = %s", data)
	}
}
