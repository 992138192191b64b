package models

import "time"

// Row kinds produced by the processor.
const (
	KindSnapshot = "snapshot"
	KindUpdate   = "update"
	KindTrade    = "trade"
)

// Sides of a normalized row. Trades use buy/sell, book rows use bid/ask.
const (
	SideBid  = "bid"
	SideAsk  = "ask"
	SideBuy  = "buy"
	SideSell = "sell"
)

// NormMessage is a single flattened book level or trade.
type NormMessage struct {
	Kind         string  `json:"kind"`
	Channel      string  `json:"channel"`
	ChannelID    int64   `json:"channel_id"`
	Pair         string  `json:"pair"`
	Side         string  `json:"side"`
	Price        float64 `json:"price"`
	Volume       float64 `json:"volume"`
	Timestamp    int64   `json:"timestamp"` // microseconds
	UpdateType   string  `json:"update_type,omitempty"`
	OrderType    string  `json:"order_type,omitempty"`
	Misc         string  `json:"misc,omitempty"`
	Checksum     string  `json:"checksum,omitempty"`
	Level        int     `json:"level,omitempty"` // 1 = best, snapshots only
	ReceivedTime int64   `json:"received_time"`
}

// BatchMessage groups rows of one channel and pair.
type BatchMessage struct {
	BatchID     string        `json:"batch_id"`
	Exchange    string        `json:"exchange"`
	Channel     string        `json:"channel"`
	Pair        string        `json:"pair"`
	Entries     []NormMessage `json:"entries"`
	RecordCount int           `json:"record_count"`
	Timestamp   time.Time     `json:"timestamp"`
	ProcessedAt time.Time     `json:"processed_at"`
}

// MicrosFromFloat converts a Kraken "seconds.fraction" timestamp into unix
// microseconds without going through float multiplication.
func MicrosFromFloat(ts Float) int64 {
	return ts.Decimal().Shift(6).IntPart()
}
