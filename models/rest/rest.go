// Package rest decodes the public Kraken REST endpoints used by krakenflow:
// Trades (trade history) and AssetPairs (pair metadata).
package rest

import (
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"krakenflow/models"
)

const DefaultBaseURL = "https://api.kraken.com"

// Response is the REST envelope. Error is empty on success.
type Response[R any] struct {
	Error  []string `json:"error"`
	Result *R       `json:"result"`
}

// Err returns an *models.APIError when the envelope carries errors.
func (r Response[R]) Err() error {
	if len(r.Error) == 0 {
		return nil
	}
	return &models.APIError{Messages: append([]string(nil), r.Error...)}
}

// Decode decodes an envelope and returns its result, or the API error it
// carries.
func Decode[R any](data []byte) (*R, error) {
	var resp Response[R]
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return nil, &models.SchemaViolationError{Type: "Response", Field: "result", Reason: "required field missing"}
	}
	return resp.Result, nil
}

// TradeHistoryRequest selects the trades of a pair, optionally starting at
// Since. Cursor, the "last" value of a previous page, takes precedence over
// Since.
type TradeHistoryRequest struct {
	Pair   models.CurrencyPair
	Since  *time.Time
	Cursor string
}

func NewTradeHistoryRequest(pair models.CurrencyPair) TradeHistoryRequest {
	return TradeHistoryRequest{Pair: pair}
}

func (r TradeHistoryRequest) WithSince(t time.Time) TradeHistoryRequest {
	r.Since = &t
	return r
}

func (r TradeHistoryRequest) WithCursor(last string) TradeHistoryRequest {
	r.Cursor = last
	return r
}

// URL renders {base}/0/public/Trades?pair={CRYPTO}{FIAT}[&since={nanos}].
func (r TradeHistoryRequest) URL(base string) string {
	q := url.Values{}
	q.Set("pair", r.Pair.RestSymbol())
	switch {
	case r.Cursor != "":
		q.Set("since", r.Cursor)
	case r.Since != nil:
		q.Set("since", strconv.FormatInt(r.Since.UnixNano(), 10))
	}
	return base + "/0/public/Trades?" + q.Encode()
}

// AssetPairsURL renders {base}/0/public/AssetPairs.
func AssetPairsURL(base string) string {
	return base + "/0/public/AssetPairs"
}
