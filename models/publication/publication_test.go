package publication

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"krakenflow/models"
)

const tickerPayload = `[
	0,
	{
		"a": ["5525.40000", 1, "1.000"],
		"b": ["5525.10000", 1, "1.000"],
		"c": ["5525.10000", "0.00398963"],
		"h": ["5783.00000", "5783.00000"],
		"l": ["5505.00000", "5505.00000"],
		"o": ["5760.70000", "5763.40000"],
		"p": ["5631.44067", "5653.78939"],
		"t": [11493, 16267],
		"v": ["2634.11501494", "3591.17907851"]
	},
	"ticker",
	"BTC/USD"
]`

const ohlcPayload = `[
	42,
	["1542057314.748456", "1542057360.435743", "3586.70000", "3586.70000", "3586.60000", "3586.60000", "3586.68894", "0.03373000", 2],
	"ohlc-5",
	"BTC/USD"
]`

const tradePayload = `[
	0,
	[
		["5541.20000", "0.15850568", "1534614057.321597", "s", "l", ""],
		["6060.00000", "0.02455000", "1534614057.324998", "b", "m", ""]
	],
	"trade",
	"BTC/USD"
]`

const spreadPayload = `[
	0,
	["5698.40000", "5700.00000", "1542057299.545897", "1.01234567", "0.98765432"],
	"spread",
	"BTC/USD"
]`

const snapshotPayload = `[
	0,
	{
		"as": [
			["5541.30000", "2.50700000", "1534614248.123678"],
			["5541.80000", "0.33000000", "1534614098.345543"],
			["5542.70000", "0.64700000", "1534614244.654432"]
		],
		"bs": [
			["5541.20000", "1.52900000", "1534614248.765567"],
			["5539.90000", "0.30000000", "1534614241.769870"],
			["5539.50000", "5.00000000", "1534613831.243486"]
		]
	},
	"book-100",
	"BTC/USD"
]`

const systemStatusPayload = `{"connectionID":8628615390848610000,"event":"systemStatus","status":"online","version":"1.0.0"}`

func mustDecode(t *testing.T, payload string) Publication {
	t.Helper()
	p, err := Decode([]byte(payload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return p
}

func TestDecodeClassifies(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"heartbeat", `{"event":"heartbeat"}`, "heartbeat"},
		{"system status", systemStatusPayload, "systemStatus"},
		{"ticker", tickerPayload, "ticker"},
		{"ohlc", ohlcPayload, "ohlc"},
		{"trade", tradePayload, "trade"},
		{"spread", spreadPayload, "spread"},
		{"snapshot", snapshotPayload, "bookSnapshot"},
		{"update", bookAskOnly, "bookUpdate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Name(mustDecode(t, tt.payload)); got != tt.want {
				t.Fatalf("classified as %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHeartbeatReencodes(t *testing.T) {
	p := mustDecode(t, `{"event":"heartbeat"}`)
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"event":"heartbeat"}` {
		t.Fatalf("marshal = %s", data)
	}
}

func TestSystemStatus(t *testing.T) {
	s, ok := mustDecode(t, systemStatusPayload).(SystemStatus)
	if !ok {
		t.Fatal("not a SystemStatus")
	}
	if s.ConnectionID != 8628615390848610000 || s.Status != StatusOnline || s.Version != "1.0.0" {
		t.Fatalf("decoded %+v", s)
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != systemStatusPayload {
		t.Fatalf("marshal = %s", data)
	}
}

func TestStrictEventObjects(t *testing.T) {
	for _, payload := range []string{
		`{"event":"heartbeat","extra":true}`,
		`{"event":"heartbeat2"}`,
		`{"connectionID":1,"event":"systemStatus","status":"degraded","version":"1"}`,
		`{"event":"systemStatus","status":"online","version":"1"}`,
	} {
		_, err := Decode([]byte(payload))
		var cerr *models.ClassificationError
		if !errors.As(err, &cerr) {
			t.Errorf("Decode(%s) error = %v, want ClassificationError", payload, err)
		}
	}
}

func TestTicker(t *testing.T) {
	tk, ok := mustDecode(t, tickerPayload).(Ticker)
	if !ok {
		t.Fatal("not a Ticker")
	}
	if tk.ChannelID != 0 || tk.Pair.String() != "BTC/USD" || tk.ChannelName != "ticker" {
		t.Fatalf("header = %d %s %s", tk.ChannelID, tk.ChannelName, tk.Pair)
	}
	if tk.Data.Ask.Price.String() != "5525.4" || tk.Data.Ask.WholeLotVolume != 1 {
		t.Errorf("ask = %+v", tk.Data.Ask)
	}
	if tk.Data.NumberOfTrades.Today != 11493 || tk.Data.NumberOfTrades.Last24Hours != 16267 {
		t.Errorf("trades = %+v", tk.Data.NumberOfTrades)
	}
	data, err := json.Marshal(tk)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.HasPrefix(string(data), `[0,{"a":["5525.4",1,"1"],"b":["5525.1",1,"1"],"c":["5525.1","0.00398963"]`) {
		t.Errorf("marshal = %s", data)
	}
	if !strings.HasSuffix(string(data), `"ticker","BTC/USD"]`) {
		t.Errorf("marshal = %s", data)
	}
}

func TestTickerRejectsMissingField(t *testing.T) {
	payload := strings.Replace(tickerPayload, `"o": ["5760.70000", "5763.40000"],`, "", 1)
	if _, err := Decode([]byte(payload)); err == nil {
		t.Fatal("expected ticker without open price to be rejected")
	}
}

func TestOhlc(t *testing.T) {
	o, ok := mustDecode(t, ohlcPayload).(Ohlc)
	if !ok {
		t.Fatal("not an Ohlc")
	}
	if o.ChannelID != 42 || o.ChannelName != "ohlc-5" || o.Data.Count != 2 {
		t.Fatalf("decoded %+v", o)
	}
	if o.Data.VWAP.String() != "3586.68894" {
		t.Errorf("vwap = %s", o.Data.VWAP)
	}
	short := strings.Replace(ohlcPayload, `"0.03373000", 2]`, `"0.03373000"]`, 1)
	if _, err := Decode([]byte(short)); err == nil {
		t.Fatal("expected 8 element candle to be rejected")
	}
}

func TestTrade(t *testing.T) {
	tr, ok := mustDecode(t, tradePayload).(Trade)
	if !ok {
		t.Fatal("not a Trade")
	}
	if len(tr.Data) != 2 {
		t.Fatalf("trades = %d", len(tr.Data))
	}
	first, second := tr.Data[0], tr.Data[1]
	if first.Side != Sell || first.OrderType != Limit || second.Side != Buy || second.OrderType != Market {
		t.Errorf("sides = %v/%v %v/%v", first.Side, first.OrderType, second.Side, second.OrderType)
	}
	if first.Time.String() != "1534614057.321597" {
		t.Errorf("time = %s", first.Time)
	}
	data, err := json.Marshal(tr)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[0,[["5541.2","0.15850568","1534614057.321597","s","l",""],["6060","0.02455","1534614057.324998","b","m",""]],"trade","BTC/USD"]`
	if string(data) != want {
		t.Fatalf("marshal = %s", data)
	}

	bad := strings.Replace(tradePayload, `"s", "l"`, `"x", "l"`, 1)
	if _, err := Decode([]byte(bad)); err == nil {
		t.Fatal("expected invalid side to be rejected")
	}
}

func TestSpread(t *testing.T) {
	s, ok := mustDecode(t, spreadPayload).(Spread)
	if !ok {
		t.Fatal("not a Spread")
	}
	if s.Data.Bid.String() != "5698.4" || s.Data.AskVolume.String() != "0.98765432" {
		t.Fatalf("decoded %+v", s.Data)
	}
}

func TestBookSnapshot(t *testing.T) {
	s, ok := mustDecode(t, snapshotPayload).(BookSnapshot)
	if !ok {
		t.Fatal("not a BookSnapshot")
	}
	if len(s.Data.Asks) != 3 || len(s.Data.Bids) != 3 || s.ChannelName != "book-100" {
		t.Fatalf("decoded %+v", s)
	}
	if s.Data.Bids[2].Volume.String() != "5" {
		t.Errorf("bid volume = %s", s.Data.Bids[2].Volume)
	}
}

func TestReencodeRoundTrip(t *testing.T) {
	for _, payload := range []string{tickerPayload, ohlcPayload, tradePayload, spreadPayload, snapshotPayload, bookAskOnly, bookBidOnly, bookBoth, bookReplace} {
		first := mustDecode(t, payload)
		data, err := json.Marshal(first)
		if err != nil {
			t.Fatalf("marshal %s: %v", Name(first), err)
		}
		second := mustDecode(t, string(data))
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%s changed after re-encoding:\n%+v\n%+v", Name(first), first, second)
		}
	}
}

func TestDecodeFailure(t *testing.T) {
	payload := `[1, "nope", "ticker", "BTC/USD"]`
	_, err := Decode([]byte(payload))
	var cerr *models.ClassificationError
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %v", err)
	}
	if cerr.Payload != payload || len(cerr.Attempts) != len(candidates) {
		t.Fatalf("payload = %q attempts = %d", cerr.Payload, len(cerr.Attempts))
	}
	var shape *models.ShapeMismatchError
	if !errors.As(err, &shape) {
		t.Fatal("expected a shape mismatch among the attempts")
	}
}

func TestDecodeRejectsUnknownPair(t *testing.T) {
	payload := strings.Replace(spreadPayload, "BTC/USD", "BTC/XXX", 1)
	if _, err := Decode([]byte(payload)); err == nil {
		t.Fatal("expected unknown currency to be rejected")
	}
}

func TestDecodeConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payloads := []string{tickerPayload, tradePayload, bookBoth, snapshotPayload}
			if _, err := Decode([]byte(payloads[i%len(payloads)])); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
