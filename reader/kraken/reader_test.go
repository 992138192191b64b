package kraken

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	appconfig "krakenflow/config"
	"krakenflow/internal/channel"
	"krakenflow/logger"
	"krakenflow/models"
	"krakenflow/models/publication"
	"krakenflow/models/rest"
)

const tradeFrame = `[0,[["5541.20000","0.15850568","1534614057.321597","s","l",""]],"trade","XBT/USD"]`

const pairInfo = `{
	"altname": "%ALT%",
	"wsname": "%WS%",
	"aclass_base": "currency",
	"base": "XETH",
	"aclass_quote": "currency",
	"quote": "ZUSD",
	"lot": "unit",
	"pair_decimals": 2,
	"lot_decimals": 8,
	"lot_multiplier": 1,
	"leverage_buy": [2],
	"leverage_sell": [2],
	"fees": [[0, 0.26]],
	"fee_volume_currency": "ZUSD",
	"margin_call": 80,
	"margin_stop": 40,
	"ordermin": "0.02"
}`

func testConfig(baseURL string) *appconfig.Config {
	return &appconfig.Config{
		Reader: appconfig.ReaderConfig{
			Timeout:        time.Second,
			PingInterval:   time.Second,
			ReconnectDelay: 10 * time.Millisecond,
			RateLimit:      appconfig.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 100},
		},
		Source: appconfig.SourceConfig{Kraken: appconfig.KrakenSourceConfig{
			Websocket: appconfig.KrakenWebsocketConfig{
				Enabled: true,
				URL:     "ws://127.0.0.1:1",
				Token:   "secret",
				Pairs:   []string{"XBT/USD"},
				Subscriptions: []appconfig.SubscriptionConfig{
					{Name: "book", Depth: 10},
					{Name: "trade"},
					{Name: "ownTrades"},
				},
			},
			Rest: appconfig.KrakenRestConfig{BaseURL: baseURL, Timeout: time.Second, UserAgent: "krakenflow-test"},
		}},
	}
}

func newTestReader(t *testing.T, baseURL string) (*Kraken_WS_Reader, *channel.Channels) {
	t.Helper()
	ch := channel.NewChannels(4, 4)
	r := Kraken_WS_NewReader(testConfig(baseURL), ch, []models.CurrencyPair{models.MustPair("XBT/USD")}, "")
	r.ctx = context.Background()
	return r, ch
}

type recordingConn struct {
	mu     sync.Mutex
	frames []string
}

func (c *recordingConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, string(data))
	return nil
}

func TestProcessMessageForwardsPublication(t *testing.T) {
	r, ch := newTestReader(t, "")
	before := logger.Counters()["publications"]

	if !r.processMessage([]byte(tradeFrame)) {
		t.Fatal("trade frame was not forwarded")
	}
	select {
	case raw := <-ch.Pub:
		trade, ok := raw.Publication.(publication.Trade)
		if !ok {
			t.Fatalf("publication = %T", raw.Publication)
		}
		if len(trade.Data) != 1 || trade.Pair != models.MustPair("XBT/USD") {
			t.Errorf("trade = %+v", trade)
		}
		if raw.ReceivedAt.IsZero() {
			t.Error("received time not set")
		}
	default:
		t.Fatal("nothing on publication channel")
	}
	if got := logger.Counters()["publications"]; got != before+1 {
		t.Errorf("publications = %d, want %d", got, before+1)
	}
}

func TestProcessMessageHeartbeatNotForwarded(t *testing.T) {
	r, ch := newTestReader(t, "")
	if r.processMessage([]byte(`{"event":"heartbeat"}`)) {
		t.Fatal("heartbeat forwarded")
	}
	if len(ch.Pub) != 0 {
		t.Fatalf("pub channel len = %d", len(ch.Pub))
	}
}

func TestProcessMessageDropsWhenFull(t *testing.T) {
	r, ch := newTestReader(t, "")
	for i := 0; i < cap(ch.Pub); i++ {
		if !r.processMessage([]byte(tradeFrame)) {
			t.Fatalf("frame %d not forwarded", i)
		}
	}
	if r.processMessage([]byte(tradeFrame)) {
		t.Fatal("frame forwarded into full channel")
	}
	if ch.GetStats().PubDropped != 1 {
		t.Errorf("stats = %+v", ch.GetStats())
	}
}

func TestProcessMessageTracksSubscriptions(t *testing.T) {
	r, _ := newTestReader(t, "")
	before := logger.Counters()["responses"]

	r.processMessage([]byte(`{"channelID":10001,"channelName":"book-10","event":"subscriptionStatus","pair":"XBT/USD","status":"subscribed","subscription":{"depth":10,"name":"book"}}`))
	r.processMessage([]byte(`{"errorMessage":"Subscription depth not supported","event":"subscriptionStatus","pair":"XBT/USD","status":"error","subscription":{"depth":42,"name":"book"}}`))
	if n := r.Subscriptions(); n != 1 {
		t.Fatalf("subscriptions = %d", n)
	}

	r.processMessage([]byte(`{"channelID":10001,"channelName":"book-10","event":"subscriptionStatus","pair":"XBT/USD","status":"unsubscribed","subscription":{"depth":10,"name":"book"}}`))
	if n := r.Subscriptions(); n != 0 {
		t.Fatalf("subscriptions after unsubscribe = %d", n)
	}
	if got := logger.Counters()["responses"]; got != before+3 {
		t.Errorf("responses = %d, want %d", got, before+3)
	}
}

func TestProcessMessageUnclassified(t *testing.T) {
	r, ch := newTestReader(t, "")
	before := logger.Counters()["decode_failures"]
	for _, frame := range []string{`not json`, `{"event":"nope"}`, `[1, {}, "book-10", "XBT/USD"]`} {
		if r.processMessage([]byte(frame)) {
			t.Errorf("%s forwarded", frame)
		}
	}
	if got := logger.Counters()["decode_failures"]; got != before+3 {
		t.Errorf("decode_failures = %d, want %d", got, before+3)
	}
	if len(ch.Pub) != 0 {
		t.Errorf("pub channel len = %d", len(ch.Pub))
	}
}

func TestSubscribeAll(t *testing.T) {
	r, _ := newTestReader(t, "")
	conn := &recordingConn{}
	if err := r.subscribeAll(conn); err != nil {
		t.Fatalf("subscribeAll: %v", err)
	}
	if len(conn.frames) != 3 {
		t.Fatalf("frames = %v", conn.frames)
	}
	book := conn.frames[0]
	for _, want := range []string{`"event":"subscribe"`, `"pair":["XBT/USD"]`, `"depth":10`, `"name":"book"`} {
		if !strings.Contains(book, want) {
			t.Errorf("book frame %s missing %s", book, want)
		}
	}
	private := conn.frames[2]
	if !strings.Contains(private, `"token":"secret"`) || strings.Contains(private, `"pair"`) {
		t.Errorf("private frame = %s", private)
	}
}

func TestUnsubscribeAll(t *testing.T) {
	r, _ := newTestReader(t, "")
	conn := &recordingConn{}
	r.unsubscribeAll(conn)
	if len(conn.frames) != 3 {
		t.Fatalf("frames = %v", conn.frames)
	}
	for _, f := range conn.frames {
		if !strings.Contains(f, `"event":"unsubscribe"`) {
			t.Errorf("frame = %s", f)
		}
	}
}

func TestStartDisabled(t *testing.T) {
	r, _ := newTestReader(t, "")
	r.config.Source.Kraken.Websocket.Enabled = false
	if err := r.Kraken_WS_Start(context.Background()); err == nil {
		t.Fatal("expected error for disabled websocket")
	}
}

func assetPairsServer(t *testing.T) *httptest.Server {
	t.Helper()
	eth := strings.NewReplacer("%ALT%", "ETHUSD", "%WS%", "ETH/USD").Replace(pairInfo)
	xbt := strings.NewReplacer("%ALT%", "XBTUSD", "%WS%", "XBT/USD").Replace(pairInfo)
	body := `{"error":[],"result":{"XETHZUSD":` + eth + `,"XXBTZUSD":` + xbt + `,"XXBTZUSD.d":` + xbt + `}}`

	mux := http.NewServeMux()
	mux.HandleFunc("/0/public/AssetPairs", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("User-Agent") != "krakenflow-test" {
			t.Errorf("user agent = %q", req.Header.Get("User-Agent"))
		}
		io.WriteString(w, body)
	})
	mux.HandleFunc("/0/public/Trades", func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Query().Get("since") {
		case "":
			io.WriteString(w, `{"error":[],"result":{"XXBTZUSD":[["8552.9","0.1",1559347203.7998,"s","m",""],["8553.0","0.2",1559347204.1,"b","l",""]],"last":"100"}}`)
		case "100":
			io.WriteString(w, `{"error":[],"result":{"XXBTZUSD":[["8560.0","0.3",1559347300.5,"b","m",""]],"last":"200"}}`)
		default:
			io.WriteString(w, `{"error":[],"result":{"XXBTZUSD":[],"last":"200"}}`)
		}
	})
	return httptest.NewServer(mux)
}

func TestRestAssetPairs(t *testing.T) {
	srv := assetPairsServer(t)
	defer srv.Close()

	c := NewRestClient(testConfig(srv.URL), "")
	res, err := c.AssetPairs(context.Background())
	if err != nil {
		t.Fatalf("AssetPairs: %v", err)
	}
	if names := res.Names(); len(names) != 2 || names[0] != "XETHZUSD" || names[1] != "XXBTZUSD" {
		t.Errorf("names = %v", names)
	}
}

func TestRestTradeHistory(t *testing.T) {
	srv := assetPairsServer(t)
	defer srv.Close()

	c := NewRestClient(testConfig(srv.URL), "")
	before := logger.Counters()["rest_calls"]
	res, err := c.TradeHistory(context.Background(), rest.NewTradeHistoryRequest(models.MustPair("XBT/USD")))
	if err != nil {
		t.Fatalf("TradeHistory: %v", err)
	}
	if res.Data.Pair != "XXBTZUSD" || len(res.Data.Trades) != 2 || res.Last != "100" {
		t.Errorf("result = %+v", res)
	}
	if got := logger.Counters()["rest_calls"]; got != before+1 {
		t.Errorf("rest_calls = %d, want %d", got, before+1)
	}
}

func TestRestTradeHistoryPairMismatch(t *testing.T) {
	srv := assetPairsServer(t)
	defer srv.Close()

	c := NewRestClient(testConfig(srv.URL), "")
	if _, err := c.TradeHistory(context.Background(), rest.NewTradeHistoryRequest(models.MustPair("ETH/USD"))); err == nil {
		t.Fatal("expected pair mismatch error")
	}
}

func TestTradeHistoryPager(t *testing.T) {
	srv := assetPairsServer(t)
	defer srv.Close()

	c := NewRestClient(testConfig(srv.URL), "")
	pager := c.NewTradeHistoryPager(models.MustPair("XBT/USD"), time.Time{}, 0)

	var trades, pages int
	for {
		res, err := pager.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		pages++
		trades += len(res.Data.Trades)
	}
	if pages != 3 || trades != 3 {
		t.Errorf("pages = %d trades = %d", pages, trades)
	}
	if pager.Cursor() != "200" {
		t.Errorf("cursor = %s", pager.Cursor())
	}
}

func TestTradeHistoryPagerMaxPages(t *testing.T) {
	srv := assetPairsServer(t)
	defer srv.Close()

	c := NewRestClient(testConfig(srv.URL), "")
	pager := c.NewTradeHistoryPager(models.MustPair("XBT/USD"), time.Time{}, 1)
	if _, err := pager.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, err := pager.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("second Next error = %v", err)
	}
}

func TestRestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewRestClient(testConfig(srv.URL), "")
	if _, err := c.AssetPairs(context.Background()); err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("error = %v", err)
	}
}

func TestValidatePairs(t *testing.T) {
	srv := assetPairsServer(t)
	defer srv.Close()

	r, _ := newTestReader(t, srv.URL)
	got := r.validatePairs([]models.CurrencyPair{models.MustPair("XBT/USD"), models.MustPair("LTC/USD"), models.MustPair("ETH/USD")})
	if len(got) != 2 || got[0].String() != "XBT/USD" || got[1].String() != "ETH/USD" {
		t.Errorf("pairs = %v", pairNames(got))
	}
}

func TestValidatePairsKeepsOnRestFailure(t *testing.T) {
	r, _ := newTestReader(t, "http://127.0.0.1:1")
	pairs := []models.CurrencyPair{models.MustPair("LTC/USD")}
	if got := r.validatePairs(pairs); len(got) != 1 {
		t.Errorf("pairs = %v", pairNames(got))
	}
}
