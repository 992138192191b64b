package request

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"krakenflow/models"
)

func marshal(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func jsonEqual(t *testing.T, a, b string) bool {
	t.Helper()
	var va, vb any
	if err := json.Unmarshal([]byte(a), &va); err != nil {
		t.Fatalf("parse %s: %v", a, err)
	}
	if err := json.Unmarshal([]byte(b), &vb); err != nil {
		t.Fatalf("parse %s: %v", b, err)
	}
	return reflect.DeepEqual(va, vb)
}

// roundTrip decodes every payload into a fresh T and checks the re-encoded
// form carries the same fields.
func roundTrip[T any, PT interface {
	*T
	json.Unmarshaler
}](t *testing.T, payloads ...string) {
	t.Helper()
	for _, payload := range payloads {
		var v T
		if err := PT(&v).UnmarshalJSON([]byte(payload)); err != nil {
			t.Fatalf("unmarshal %s: %v", payload, err)
		}
		if out := marshal(t, v); !jsonEqual(t, payload, out) {
			t.Errorf("round trip changed payload:\n%s\n%s", payload, out)
		}
	}
}

func TestPing(t *testing.T) {
	if got := marshal(t, NewPing().WithReqID(42)); got != `{"event":"ping","reqid":42}` {
		t.Fatalf("marshal = %s", got)
	}
	if got := marshal(t, NewPing()); got != `{"event":"ping"}` {
		t.Fatalf("marshal = %s", got)
	}
	roundTrip[Ping](t, `{"event":"ping","reqid":42}`, `{"event":"ping"}`)
}

func TestBuildersDoNotMutate(t *testing.T) {
	base := NewPing()
	_ = base.WithReqID(1)
	if base.ReqID != nil {
		t.Fatal("WithReqID mutated the receiver")
	}
	sub := NewSubscription("book")
	_ = sub.WithDepth(10)
	if sub.Depth != nil {
		t.Fatal("WithDepth mutated the receiver")
	}
}

func TestSubscribe(t *testing.T) {
	sub := NewSubscription("ticker").WithDepth(1).WithInterval(1).WithSnapshot(false).WithToken("0000")
	req := NewSubscribe(sub).WithReqID(1).WithPairs(models.MustPair("BTC/USD"))
	want := `{"event":"subscribe","reqid":1,"pair":["BTC/USD"],"subscription":{"depth":1,"interval":1,"name":"ticker","snapshot":false,"token":"0000"}}`
	if got := marshal(t, req); got != want {
		t.Fatalf("marshal = %s", got)
	}

	roundTrip[Subscribe](t,
		`{"event":"subscribe","pair":["XBT/USD","XBT/EUR"],"subscription":{"name":"ticker"}}`,
		`{"event":"subscribe","pair":["XBT/EUR"],"subscription":{"interval":5,"name":"ohlc"}}`,
		`{"event":"subscribe","subscription":{"name":"ownTrades","token":"WW91ciBhdXRoZW50aWNhdGlvbiB0b2tlbiBnb2VzIGhlcmUu"}}`,
	)
}

func TestSubscribeStrict(t *testing.T) {
	for _, payload := range []string{
		`{"event":"subscribe","subscription":{"name":"ticker"},"extra":1}`,
		`{"event":"subscribe","subscription":{"name":"ticker","extra":1}}`,
		`{"event":"subscribe","subscription":{"depth":10}}`,
		`{"event":"subscribe"}`,
		`{"event":"unsubscribe","subscription":{"name":"ticker"}}`,
		`{"event":"subscribe","pair":["XBTUSD"],"subscription":{"name":"ticker"}}`,
	} {
		var s Subscribe
		if err := json.Unmarshal([]byte(payload), &s); err == nil {
			t.Errorf("expected %s to be rejected", payload)
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	sub := NewUnsubscribeSubscription("ticker").WithDepth(1).WithInterval(1).WithToken("0000")
	req := NewUnsubscribe().WithReqID(1).WithFrom(FromPairs(models.MustPair("BTC/USD"))).WithSubscription(sub)
	want := `{"event":"unsubscribe","reqid":1,"pair":["BTC/USD"],"subscription":{"depth":1,"interval":1,"name":"ticker","token":"0000"}}`
	if got := marshal(t, req); got != want {
		t.Fatalf("marshal = %s", got)
	}
	if got := marshal(t, NewUnsubscribe().WithFrom(FromChannelID(10001))); got != `{"event":"unsubscribe","channelID":10001}` {
		t.Fatalf("marshal = %s", got)
	}

	roundTrip[Unsubscribe](t,
		`{"event":"unsubscribe","pair":["XBT/EUR","XBT/USD"],"subscription":{"name":"ticker"}}`,
		`{"channelID":10001,"event":"unsubscribe"}`,
		`{"event":"unsubscribe","subscription":{"name":"ownTrades","token":"WW91ciBhdXRoZW50aWNhdGlvbiB0b2tlbiBnb2VzIGhlcmUu"}}`,
	)

	var u Unsubscribe
	if err := json.Unmarshal([]byte(`{"channelID":10001,"event":"unsubscribe"}`), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if id, ok := u.From.ChannelID(); !ok || id != 10001 {
		t.Fatalf("channel id = %d %v", id, ok)
	}
	err := json.Unmarshal([]byte(`{"channelID":1,"pair":["XBT/USD"],"event":"unsubscribe"}`), &u)
	var serr *models.SchemaViolationError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v", err)
	}
	if err := json.Unmarshal([]byte(`{"event":"unsubscribe","subscription":{"name":"book","snapshot":true}}`), &u); err == nil {
		t.Fatal("snapshot is not accepted in an unsubscribe subscription")
	}
}

func TestAddOrderAllFields(t *testing.T) {
	one := models.NewFloat(1.0)
	req := NewAddOrder("0000", "a", "a", models.MustPair("BTC/USD"), one).
		WithReqID(1).
		WithPrice(one).
		WithPrice2(one).
		WithLeverage(one).
		WithOFlags("a").
		WithStartTm("a").
		WithExpireTm("a").
		WithUserRef("a").
		WithValidate("a").
		WithClose("a", "a", "a").
		WithTradingAgreement("a")
	want := `{"event":"addOrder","token":"0000","reqid":1,"ordertype":"a","type":"a","pair":"BTC/USD","price":"1","price2":"1","volume":"1","leverage":"1","oflags":"a","starttm":"a","expiretm":"a","userref":"a","validate":"a","close[ordertype]":"a","close[price]":"a","close[price2]":"a","trading_agreement":"a"}`
	if got := marshal(t, req); got != want {
		t.Fatalf("marshal = %s", got)
	}
}

func TestAddOrderOmitsUnset(t *testing.T) {
	req := NewAddOrder("tok", "limit", "buy", models.MustPair("ETH/USD"), models.NewFloat(1.0)).WithPrice(models.NewFloat(1.0))
	got := marshal(t, req)
	for _, key := range []string{"price2", "leverage", "oflags", "starttm", "expiretm", "userref", "validate", "close[", "trading_agreement", "reqid", "null"} {
		if strings.Contains(got, key) {
			t.Errorf("unexpected %q in %s", key, got)
		}
	}
	if !strings.Contains(got, `"price":"1"`) || !strings.Contains(got, `"pair":"ETH/USD"`) {
		t.Errorf("marshal = %s", got)
	}

	roundTrip[AddOrder](t,
		`{"event":"addOrder","ordertype":"limit","pair":"XBT/USD","price":"9000","token":"0000000000000000000000000000000000000000","type":"buy","volume":"10"}`,
		`{"close[ordertype]":"limit","close[price]":"9100","event":"addOrder","ordertype":"limit","pair":"XBT/USD","price":"9000","token":"0000000000000000000000000000000000000000","type":"buy","volume":"10"}`,
	)
}

func TestAddOrderRequiresVolume(t *testing.T) {
	var a AddOrder
	err := json.Unmarshal([]byte(`{"event":"addOrder","ordertype":"limit","pair":"XBT/USD","token":"0","type":"buy"}`), &a)
	var serr *models.SchemaViolationError
	if !errors.As(err, &serr) || serr.Field != "volume" {
		t.Fatalf("error = %v", err)
	}
	if err := json.Unmarshal([]byte(`{"event":"addOrder","ordertype":"limit","pair":"XBT/USD","token":"0","type":"buy","volume":10}`), &a); err == nil {
		t.Fatal("numeric volume must be rejected")
	}
}

func TestCancelOrder(t *testing.T) {
	if got := marshal(t, NewCancelOrder("0000", "0000").WithReqID(1)); got != `{"event":"cancelOrder","token":"0000","reqid":1,"txid":["0000"]}` {
		t.Fatalf("marshal = %s", got)
	}
	roundTrip[CancelOrder](t, `{"event":"cancelOrder","token":"0000000000000000000000000000000000000000","txid":["OGTT3Y-C6I3P-XRI6HX","OGTT3Y-C6I3P-X2I6HX"]}`)
}

func TestCancelAll(t *testing.T) {
	if got := marshal(t, NewCancelAll("0000").WithReqID(1)); got != `{"event":"cancelAll","token":"0000","reqid":1}` {
		t.Fatalf("marshal = %s", got)
	}
	roundTrip[CancelAll](t, `{"event":"cancelAll","token":"0000000000000000000000000000000000000000"}`)
}

func TestEventNames(t *testing.T) {
	reqs := map[string]Request{
		"ping":        NewPing(),
		"subscribe":   NewSubscribe(NewSubscription("trade")),
		"unsubscribe": NewUnsubscribe(),
		"addOrder":    AddOrder{},
		"cancelOrder": CancelOrder{},
		"cancelAll":   CancelAll{},
	}
	for want, r := range reqs {
		if r.EventName() != want {
			t.Errorf("EventName = %s, want %s", r.EventName(), want)
		}
	}
}
