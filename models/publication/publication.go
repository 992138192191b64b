// Package publication decodes the messages Kraken pushes on a public
// websocket connection. Most of them are bare positional arrays without a
// type tag, so Decode classifies a frame by attempting each known variant in
// a fixed order and keeping the first that matches structurally.
package publication

import (
	"encoding/json"

	"krakenflow/internal/wire"
	"krakenflow/models"
)

// Publication is one of Heartbeat, SystemStatus, Ticker, Ohlc, Trade, Spread,
// BookSnapshot or BookUpdate.
type Publication interface {
	isPublication()
}

// ChannelMessage is implemented by the array shaped publications.
type ChannelMessage interface {
	Publication
	Channel() (id int64, name string, pair models.CurrencyPair)
}

type decoder func(data []byte) (Publication, error)

// attempt decodes data into a fresh T. Nothing is shared between attempts, so
// a failed candidate leaves no trace.
func attempt[T Publication, PT interface {
	*T
	json.Unmarshaler
}](data []byte) (Publication, error) {
	var v T
	if err := PT(&v).UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return v, nil
}

// candidates in classification order. Heartbeat and SystemStatus carry an
// explicit event tag and go first.
var candidates = []decoder{
	attempt[Heartbeat],
	attempt[SystemStatus],
	attempt[Ticker],
	attempt[Ohlc],
	attempt[Trade],
	attempt[Spread],
	attempt[BookSnapshot],
	attempt[BookUpdate],
}

// Decode classifies a websocket frame. When no variant matches, the error is a
// *models.ClassificationError holding the frame and every attempt's failure.
func Decode(data []byte) (Publication, error) {
	attempts := make([]error, 0, len(candidates))
	for _, dec := range candidates {
		p, err := dec(data)
		if err == nil {
			return p, nil
		}
		attempts = append(attempts, err)
	}
	return nil, &models.ClassificationError{Kind: "publication", Payload: string(data), Attempts: attempts}
}

// Name returns a short variant name, used for logging and metrics.
func Name(p Publication) string {
	switch p.(type) {
	case Heartbeat:
		return "heartbeat"
	case SystemStatus:
		return "systemStatus"
	case Ticker:
		return "ticker"
	case Ohlc:
		return "ohlc"
	case Trade:
		return "trade"
	case Spread:
		return "spread"
	case BookSnapshot:
		return "bookSnapshot"
	case BookUpdate:
		return "bookUpdate"
	default:
		return "unknown"
	}
}

// decodeChannel decodes the common [channelID, payload, channelName, pair]
// layout. payload receives the raw second element.
func decodeChannel(typ string, data []byte, payload any) (id int64, name string, pair models.CurrencyPair, err error) {
	err = wire.Tuple(typ, data, &id, payload, &name, &pair)
	return
}

func encodeChannel(id int64, name string, pair models.CurrencyPair, payload ...any) ([]byte, error) {
	out := make([]any, 0, len(payload)+3)
	out = append(out, id)
	out = append(out, payload...)
	out = append(out, name, pair)
	return json.Marshal(out)
}

func marshalTuple(elems ...any) ([]byte, error) {
	return json.Marshal(elems)
}
