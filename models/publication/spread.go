package publication

import (
	"krakenflow/internal/wire"
	"krakenflow/models"
)

// SpreadData is [bid, ask, timestamp, bidVolume, askVolume].
type SpreadData struct {
	Bid       models.Float
	Ask       models.Float
	Timestamp models.Float
	BidVolume models.Float
	AskVolume models.Float
}

func (d *SpreadData) UnmarshalJSON(data []byte) error {
	return wire.Tuple("SpreadData", data, &d.Bid, &d.Ask, &d.Timestamp, &d.BidVolume, &d.AskVolume)
}

func (d SpreadData) MarshalJSON() ([]byte, error) {
	return marshalTuple(d.Bid, d.Ask, d.Timestamp, d.BidVolume, d.AskVolume)
}

// Spread is a "spread" channel publication.
type Spread struct {
	ChannelID   int64
	Data        SpreadData
	ChannelName string
	Pair        models.CurrencyPair
}

func (Spread) isPublication() {}

func (s Spread) Channel() (int64, string, models.CurrencyPair) {
	return s.ChannelID, s.ChannelName, s.Pair
}

func (s *Spread) UnmarshalJSON(data []byte) error {
	var v Spread
	var err error
	v.ChannelID, v.ChannelName, v.Pair, err = decodeChannel("Spread", data, &v.Data)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Spread) MarshalJSON() ([]byte, error) {
	return encodeChannel(s.ChannelID, s.ChannelName, s.Pair, s.Data)
}
