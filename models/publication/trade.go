package publication

import (
	"encoding/json"
	"fmt"

	"krakenflow/internal/wire"
	"krakenflow/models"
)

// Side of a trade, "b" or "s" on the wire.
type Side uint8

const (
	Buy Side = iota + 1
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

func (s Side) MarshalText() ([]byte, error) {
	switch s {
	case Buy:
		return []byte("b"), nil
	case Sell:
		return []byte("s"), nil
	}
	return nil, fmt.Errorf("invalid trade side %d", uint8(s))
}

func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "b":
		*s = Buy
	case "s":
		*s = Sell
	default:
		return fmt.Errorf("invalid trade side %q", text)
	}
	return nil
}

// OrderType of a trade, "m" or "l" on the wire.
type OrderType uint8

const (
	Market OrderType = iota + 1
	Limit
)

func (o OrderType) String() string {
	switch o {
	case Market:
		return "market"
	case Limit:
		return "limit"
	default:
		return fmt.Sprintf("OrderType(%d)", uint8(o))
	}
}

func (o OrderType) MarshalText() ([]byte, error) {
	switch o {
	case Market:
		return []byte("m"), nil
	case Limit:
		return []byte("l"), nil
	}
	return nil, fmt.Errorf("invalid order type %d", uint8(o))
}

func (o *OrderType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "m":
		*o = Market
	case "l":
		*o = Limit
	default:
		return fmt.Errorf("invalid order type %q", text)
	}
	return nil
}

// TradeData is [price, volume, time, side, orderType, misc]. The websocket
// sends time as a decimal string (models.Float) while the REST Trades endpoint
// sends a bare number (float64). REST rows may carry a trailing trade id.
type TradeData[T models.Float | float64] struct {
	Price     models.Float
	Volume    models.Float
	Time      T
	Side      Side
	OrderType OrderType
	Misc      string
	TradeID   *int64
}

func (d *TradeData[T]) UnmarshalJSON(data []byte) error {
	elems, err := wire.Array("TradeData", data)
	if err != nil {
		return err
	}
	if len(elems) != 6 && len(elems) != 7 {
		return &models.ShapeMismatchError{Type: "TradeData", Index: -1, Want: "6 or 7 elements", Got: fmt.Sprintf("%d elements", len(elems))}
	}
	var v TradeData[T]
	if err := wire.Elements("TradeData", elems, &v.Price, &v.Volume, &v.Time, &v.Side, &v.OrderType, &v.Misc); err != nil {
		return err
	}
	if len(elems) == 7 {
		var id int64
		if err := json.Unmarshal(elems[6], &id); err != nil {
			return &models.ShapeMismatchError{Type: "TradeData", Index: 6, Err: err}
		}
		v.TradeID = &id
	}
	*d = v
	return nil
}

func (d TradeData[T]) MarshalJSON() ([]byte, error) {
	if d.TradeID != nil {
		return marshalTuple(d.Price, d.Volume, d.Time, d.Side, d.OrderType, d.Misc, *d.TradeID)
	}
	return marshalTuple(d.Price, d.Volume, d.Time, d.Side, d.OrderType, d.Misc)
}

// Trade is a "trade" channel publication.
type Trade struct {
	ChannelID   int64
	Data        []TradeData[models.Float]
	ChannelName string
	Pair        models.CurrencyPair
}

func (Trade) isPublication() {}

func (t Trade) Channel() (int64, string, models.CurrencyPair) {
	return t.ChannelID, t.ChannelName, t.Pair
}

func (t *Trade) UnmarshalJSON(data []byte) error {
	var v Trade
	var raw json.RawMessage
	var err error
	v.ChannelID, v.ChannelName, v.Pair, err = decodeChannel("Trade", data, &raw)
	if err != nil {
		return err
	}
	elems, err := wire.Array("Trade", raw)
	if err != nil {
		return err
	}
	v.Data = make([]TradeData[models.Float], len(elems))
	for i, e := range elems {
		if err := v.Data[i].UnmarshalJSON(e); err != nil {
			return err
		}
	}
	*t = v
	return nil
}

func (t Trade) MarshalJSON() ([]byte, error) {
	data := t.Data
	if data == nil {
		data = []TradeData[models.Float]{}
	}
	return encodeChannel(t.ChannelID, t.ChannelName, t.Pair, data)
}
