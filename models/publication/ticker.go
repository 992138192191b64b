package publication

import (
	"krakenflow/internal/wire"
	"krakenflow/models"
)

// TickerLevel is the best ask or bid: [price, wholeLotVolume, lotVolume].
type TickerLevel struct {
	Price          models.Float
	WholeLotVolume int64
	LotVolume      models.Float
}

func (l *TickerLevel) UnmarshalJSON(data []byte) error {
	return wire.Tuple("TickerLevel", data, &l.Price, &l.WholeLotVolume, &l.LotVolume)
}

func (l TickerLevel) MarshalJSON() ([]byte, error) {
	return marshalTuple(l.Price, l.WholeLotVolume, l.LotVolume)
}

// Close is the last trade: [price, lotVolume].
type Close struct {
	Price     models.Float
	LotVolume models.Float
}

func (c *Close) UnmarshalJSON(data []byte) error {
	return wire.Tuple("Close", data, &c.Price, &c.LotVolume)
}

func (c Close) MarshalJSON() ([]byte, error) {
	return marshalTuple(c.Price, c.LotVolume)
}

// PriceHistory is a [today, last24Hours] pair.
type PriceHistory[T any] struct {
	Today       T
	Last24Hours T
}

func (h *PriceHistory[T]) UnmarshalJSON(data []byte) error {
	return wire.Tuple("PriceHistory", data, &h.Today, &h.Last24Hours)
}

func (h PriceHistory[T]) MarshalJSON() ([]byte, error) {
	return marshalTuple(h.Today, h.Last24Hours)
}

// TickerData is the ticker payload object.
type TickerData struct {
	Ask            TickerLevel                `json:"a"`
	Bid            TickerLevel                `json:"b"`
	Close          Close                      `json:"c"`
	Volume         PriceHistory[models.Float] `json:"v"`
	VWAP           PriceHistory[models.Float] `json:"p"`
	NumberOfTrades PriceHistory[int64]        `json:"t"`
	Low            PriceHistory[models.Float] `json:"l"`
	High           PriceHistory[models.Float] `json:"h"`
	Open           PriceHistory[models.Float] `json:"o"`
}

func (d *TickerData) UnmarshalJSON(data []byte) error {
	type plain TickerData
	var p plain
	if err := wire.Strict("TickerData", data, &p, "a", "b", "c", "v", "p", "t", "l", "h", "o"); err != nil {
		return err
	}
	*d = TickerData(p)
	return nil
}

// Ticker is a "ticker" channel publication.
type Ticker struct {
	ChannelID   int64
	Data        TickerData
	ChannelName string
	Pair        models.CurrencyPair
}

func (Ticker) isPublication() {}

func (t Ticker) Channel() (int64, string, models.CurrencyPair) {
	return t.ChannelID, t.ChannelName, t.Pair
}

func (t *Ticker) UnmarshalJSON(data []byte) error {
	var v Ticker
	var err error
	v.ChannelID, v.ChannelName, v.Pair, err = decodeChannel("Ticker", data, &v.Data)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t Ticker) MarshalJSON() ([]byte, error) {
	return encodeChannel(t.ChannelID, t.ChannelName, t.Pair, t.Data)
}
