package rest

import (
	"encoding/json"
	"fmt"

	"krakenflow/internal/wire"
	"krakenflow/models"
	"krakenflow/models/publication"
)

// TradeData is a REST trade row. Its time is a bare JSON number.
type TradeData = publication.TradeData[float64]

// TradeHistoryData holds the trades of the single pair in a result. Pair is
// the exchange's own pair name, e.g. "XXBTZUSD".
type TradeHistoryData struct {
	Pair   string
	Trades []TradeData
}

// TradeHistoryResult is the result of /0/public/Trades.
type TradeHistoryResult struct {
	Data TradeHistoryData
	Last string
}

func (r *TradeHistoryResult) UnmarshalJSON(data []byte) error {
	m, err := wire.Object("TradeHistoryResult", data)
	if err != nil {
		return err
	}
	if err := wire.RequireKeys("TradeHistoryResult", m, "last"); err != nil {
		return err
	}
	var v TradeHistoryResult
	if err := json.Unmarshal(m["last"], &v.Last); err != nil {
		return &models.SchemaViolationError{Type: "TradeHistoryResult", Field: "last", Reason: "not a string", Err: err}
	}
	var pairs []string
	for k := range m {
		if k != "last" {
			pairs = append(pairs, k)
		}
	}
	if len(pairs) != 1 {
		return &models.SchemaViolationError{
			Type:   "TradeHistoryResult",
			Reason: fmt.Sprintf("want exactly one pair key, got %d", len(pairs)),
		}
	}
	v.Data.Pair = pairs[0]
	if err := json.Unmarshal(m[v.Data.Pair], &v.Data.Trades); err != nil {
		return &models.SchemaViolationError{Type: "TradeHistoryResult", Field: v.Data.Pair, Reason: "invalid trade list", Err: err}
	}
	*r = v
	return nil
}

func (r TradeHistoryResult) MarshalJSON() ([]byte, error) {
	trades := r.Data.Trades
	if trades == nil {
		trades = []TradeData{}
	}
	return json.Marshal(map[string]any{r.Data.Pair: trades, "last": r.Last})
}

// TradeHistory is the full /0/public/Trades envelope.
type TradeHistory = Response[TradeHistoryResult]
