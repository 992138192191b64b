package publication

import (
	"krakenflow/internal/wire"
	"krakenflow/models"
)

// OhlcData is one candle:
// [time, etime, open, high, low, close, vwap, volume, count].
type OhlcData struct {
	Time   models.Float
	ETime  models.Float
	Open   models.Float
	High   models.Float
	Low    models.Float
	Close  models.Float
	VWAP   models.Float
	Volume models.Float
	Count  int64
}

func (d *OhlcData) UnmarshalJSON(data []byte) error {
	return wire.Tuple("OhlcData", data,
		&d.Time, &d.ETime, &d.Open, &d.High, &d.Low, &d.Close, &d.VWAP, &d.Volume, &d.Count)
}

func (d OhlcData) MarshalJSON() ([]byte, error) {
	return marshalTuple(d.Time, d.ETime, d.Open, d.High, d.Low, d.Close, d.VWAP, d.Volume, d.Count)
}

// Ohlc is an "ohlc-{interval}" channel publication.
type Ohlc struct {
	ChannelID   int64
	Data        OhlcData
	ChannelName string
	Pair        models.CurrencyPair
}

func (Ohlc) isPublication() {}

func (o Ohlc) Channel() (int64, string, models.CurrencyPair) {
	return o.ChannelID, o.ChannelName, o.Pair
}

func (o *Ohlc) UnmarshalJSON(data []byte) error {
	var v Ohlc
	var err error
	v.ChannelID, v.ChannelName, v.Pair, err = decodeChannel("Ohlc", data, &v.Data)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func (o Ohlc) MarshalJSON() ([]byte, error) {
	return encodeChannel(o.ChannelID, o.ChannelName, o.Pair, o.Data)
}
