package rest

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"krakenflow/models"
	"krakenflow/models/publication"
)

const tradeHistoryPayload = `{
	"error": [],
	"result": {
		"XXBTZUSD": [
			["8552.90000", "0.03190270", 1559347203.7998, "s", "m", ""],
			["8552.90000", "0.03155529", 1559347203.8086, "s", "m", ""],
			["8579.50000", "0.05379597", 1559350785.248, "s", "l", ""],
			["8578.10000", "0.45529068", 1559350785.297, "b", "l", "", 62143]
		],
		"last": "1559350785297011117"
	}
}`

const ethusdInfo = `{
	"altname": "ETHUSD",
	"wsname": "ETH/USD",
	"aclass_base": "currency",
	"base": "XETH",
	"aclass_quote": "currency",
	"quote": "ZUSD",
	"lot": "unit",
	"pair_decimals": 2,
	"lot_decimals": 8,
	"lot_multiplier": 1,
	"leverage_buy": [2, 3, 4, 5],
	"leverage_sell": [2, 3, 4, 5],
	"fees": [[0, 0.26], [50000, 0.24]],
	"fees_maker": [[0, 0.16], [50000, 0.14]],
	"fee_volume_currency": "ZUSD",
	"margin_call": 80,
	"margin_stop": 40,
	"ordermin": "0.02"
}`

func TestTradeHistory(t *testing.T) {
	var resp TradeHistory
	if err := json.Unmarshal([]byte(tradeHistoryPayload), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := resp.Err(); err != nil {
		t.Fatalf("api error: %v", err)
	}
	res := resp.Result
	if res.Data.Pair != "XXBTZUSD" || res.Last != "1559350785297011117" {
		t.Fatalf("pair = %s last = %s", res.Data.Pair, res.Last)
	}
	if len(res.Data.Trades) != 4 {
		t.Fatalf("trades = %d", len(res.Data.Trades))
	}
	first := res.Data.Trades[0]
	if first.Time != 1559347203.7998 || first.Side != publication.Sell || first.OrderType != publication.Market {
		t.Errorf("first trade = %+v", first)
	}
	if last := res.Data.Trades[3]; last.TradeID == nil || *last.TradeID != 62143 || last.Side != publication.Buy {
		t.Errorf("last trade = %+v", last)
	}
}

func TestTradeHistoryKeyCount(t *testing.T) {
	for _, payload := range []string{
		`{"last": "1"}`,
		`{"XXBTZUSD": [], "XETHZUSD": [], "last": "1"}`,
		`{"XXBTZUSD": []}`,
	} {
		var r TradeHistoryResult
		err := json.Unmarshal([]byte(payload), &r)
		var serr *models.SchemaViolationError
		if !errors.As(err, &serr) {
			t.Errorf("Unmarshal(%s) error = %v", payload, err)
		}
	}
}

func TestTradeHistoryRejectsStringTime(t *testing.T) {
	var r TradeHistoryResult
	if err := json.Unmarshal([]byte(`{"XXBTZUSD": [["1", "1", "1559347203.7998", "s", "m", ""]], "last": "1"}`), &r); err == nil {
		t.Fatal("REST trade time must be a number")
	}
}

func TestAssetPairsSkipsDarkPairs(t *testing.T) {
	payload := `{"error": [], "result": {"ETHUSD": ` + ethusdInfo + `, "ETHUSD.d": ` + ethusdInfo + `}}`
	res, err := Decode[AssetPairsResult]([]byte(payload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Pairs) != 1 {
		t.Fatalf("pairs = %v", res.Names())
	}
	info, ok := res.Pairs["ETHUSD"]
	if !ok {
		t.Fatal("ETHUSD missing")
	}
	if info.OrderMin.String() != "0.02" || len(info.Fees) != 2 || info.Fees[1].Volume != 50000 || info.Fees[1].Percent != 0.24 {
		t.Errorf("info = %+v", info)
	}
	if p, ok := info.Pair(); !ok || p != models.NewPair(models.ETH, models.USD) {
		t.Errorf("pair = %v %v", p, ok)
	}
	if res.WSNames()["ETH/USD"] != "ETHUSD" {
		t.Errorf("wsnames = %v", res.WSNames())
	}
}

func TestAssetPairsEmptyAfterFilter(t *testing.T) {
	payload := `{"error": [], "result": {"ETHUSD.d": ` + ethusdInfo + `}}`
	_, err := Decode[AssetPairsResult]([]byte(payload))
	var eerr *models.EmptyResultError
	if !errors.As(err, &eerr) {
		t.Fatalf("error = %v", err)
	}
}

func TestAssetPairsSkipsUndecodable(t *testing.T) {
	payload := `{"ETHUSD": ` + ethusdInfo + `, "BROKEN": {"altname": "BROKEN"}}`
	var r AssetPairsResult
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(r.Pairs) != 1 || len(r.Skipped) != 1 || r.Skipped[0] != "BROKEN" {
		t.Fatalf("pairs = %v skipped = %v", r.Names(), r.Skipped)
	}
}

func TestAPIError(t *testing.T) {
	_, err := Decode[AssetPairsResult]([]byte(`{"error": ["EQuery:Unknown asset pair"]}`))
	var aerr *models.APIError
	if !errors.As(err, &aerr) || aerr.Messages[0] != "EQuery:Unknown asset pair" {
		t.Fatalf("error = %v", err)
	}
}

func TestTradeHistoryURL(t *testing.T) {
	req := NewTradeHistoryRequest(models.MustPair("XBT/USD"))
	if got := req.URL(DefaultBaseURL); got != "https://api.kraken.com/0/public/Trades?pair=XBTUSD" {
		t.Fatalf("url = %s", got)
	}
	since := time.Unix(1559350785, 297011117)
	if got := req.WithSince(since).URL(DefaultBaseURL); got != "https://api.kraken.com/0/public/Trades?pair=XBTUSD&since=1559350785297011117" {
		t.Fatalf("url = %s", got)
	}
	if got := req.WithSince(since).WithCursor("42").URL("http://x"); got != "http://x/0/public/Trades?pair=XBTUSD&since=42" {
		t.Fatalf("url = %s", got)
	}
	if got := AssetPairsURL(DefaultBaseURL); got != "https://api.kraken.com/0/public/AssetPairs" {
		t.Fatalf("url = %s", got)
	}
}
