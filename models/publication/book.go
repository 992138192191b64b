package publication

import (
	"encoding/json"
	"errors"
	"fmt"

	"krakenflow/internal/wire"
	"krakenflow/models"
)

// BookLevel is a snapshot price level: [price, volume, timestamp].
type BookLevel struct {
	Price     models.Float
	Volume    models.Float
	Timestamp models.Float
}

func (l *BookLevel) UnmarshalJSON(data []byte) error {
	return wire.Tuple("BookLevel", data, &l.Price, &l.Volume, &l.Timestamp)
}

func (l BookLevel) MarshalJSON() ([]byte, error) {
	return marshalTuple(l.Price, l.Volume, l.Timestamp)
}

// BookSnapshotData holds both sides of a snapshot, best level first.
type BookSnapshotData struct {
	Asks []BookLevel `json:"as"`
	Bids []BookLevel `json:"bs"`
}

func (d *BookSnapshotData) UnmarshalJSON(data []byte) error {
	type plain BookSnapshotData
	var p plain
	if err := wire.Strict("BookSnapshotData", data, &p, "as", "bs"); err != nil {
		return err
	}
	*d = BookSnapshotData(p)
	return nil
}

func (d BookSnapshotData) MarshalJSON() ([]byte, error) {
	type plain BookSnapshotData
	p := plain(d)
	if p.Asks == nil {
		p.Asks = []BookLevel{}
	}
	if p.Bids == nil {
		p.Bids = []BookLevel{}
	}
	return json.Marshal(p)
}

// BookSnapshot is the first message of a "book-{depth}" subscription.
type BookSnapshot struct {
	ChannelID   int64
	Data        BookSnapshotData
	ChannelName string
	Pair        models.CurrencyPair
}

func (BookSnapshot) isPublication() {}

func (s BookSnapshot) Channel() (int64, string, models.CurrencyPair) {
	return s.ChannelID, s.ChannelName, s.Pair
}

func (s *BookSnapshot) UnmarshalJSON(data []byte) error {
	var v BookSnapshot
	var err error
	v.ChannelID, v.ChannelName, v.Pair, err = decodeChannel("BookSnapshot", data, &v.Data)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s BookSnapshot) MarshalJSON() ([]byte, error) {
	return encodeChannel(s.ChannelID, s.ChannelName, s.Pair, s.Data)
}

// BookLevelUpdate is [price, volume, timestamp] with an optional fourth
// update type element ("r" for a republished level). A zero volume removes
// the level.
type BookLevelUpdate struct {
	Price      models.Float
	Volume     models.Float
	Timestamp  models.Float
	UpdateType *string
}

func (l *BookLevelUpdate) UnmarshalJSON(data []byte) error {
	elems, err := wire.Array("BookLevelUpdate", data)
	if err != nil {
		return err
	}
	if len(elems) != 3 && len(elems) != 4 {
		return &models.ShapeMismatchError{Type: "BookLevelUpdate", Index: -1, Want: "3 or 4 elements", Got: fmt.Sprintf("%d elements", len(elems))}
	}
	var v BookLevelUpdate
	dst := []any{&v.Price, &v.Volume, &v.Timestamp}
	if len(elems) == 4 {
		v.UpdateType = new(string)
		dst = append(dst, v.UpdateType)
	}
	if err := wire.Elements("BookLevelUpdate", elems, dst...); err != nil {
		return err
	}
	*l = v
	return nil
}

func (l BookLevelUpdate) MarshalJSON() ([]byte, error) {
	if l.UpdateType != nil {
		return marshalTuple(l.Price, l.Volume, l.Timestamp, *l.UpdateType)
	}
	return marshalTuple(l.Price, l.Volume, l.Timestamp)
}

// BookSide is the delta of one side of the book plus the checksum the
// exchange attached to it, if any.
type BookSide struct {
	Levels   []BookLevelUpdate
	Checksum *string
}

type askPayload struct {
	Levels   []BookLevelUpdate `json:"a"`
	Checksum *string           `json:"c,omitempty"`
}

type bidPayload struct {
	Levels   []BookLevelUpdate `json:"b"`
	Checksum *string           `json:"c,omitempty"`
}

func decodeAsk(data []byte) (BookSide, error) {
	var p askPayload
	if err := wire.Strict("AskUpdate", data, &p, "a"); err != nil {
		return BookSide{}, err
	}
	return BookSide{Levels: p.Levels, Checksum: p.Checksum}, nil
}

func decodeBid(data []byte) (BookSide, error) {
	var p bidPayload
	if err := wire.Strict("BidUpdate", data, &p, "b"); err != nil {
		return BookSide{}, err
	}
	return BookSide{Levels: p.Levels, Checksum: p.Checksum}, nil
}

func nonNil(levels []BookLevelUpdate) []BookLevelUpdate {
	if levels == nil {
		return []BookLevelUpdate{}
	}
	return levels
}

// BookUpdate is an incremental "book-{depth}" publication. At least one of
// Ask and Bid is set.
type BookUpdate struct {
	ChannelID   int64
	Ask         *BookSide
	Bid         *BookSide
	ChannelName string
	Pair        models.CurrencyPair
}

func (BookUpdate) isPublication() {}

func (u BookUpdate) Channel() (int64, string, models.CurrencyPair) {
	return u.ChannelID, u.ChannelName, u.Pair
}

// Checksum returns the checksum of the update. The exchange attaches it to
// the last side object of the message.
func (u BookUpdate) Checksum() (string, bool) {
	if u.Bid != nil && u.Bid.Checksum != nil {
		return *u.Bid.Checksum, true
	}
	if u.Ask != nil && u.Ask.Checksum != nil {
		return *u.Ask.Checksum, true
	}
	return "", false
}

func (u *BookUpdate) UnmarshalJSON(data []byte) error {
	shape, err := decodeBookUpdateShape(data)
	if err != nil {
		return err
	}
	*u = shape.fold()
	return nil
}

func (u BookUpdate) MarshalJSON() ([]byte, error) {
	var sides []any
	if u.Ask != nil {
		sides = append(sides, askPayload{Levels: nonNil(u.Ask.Levels), Checksum: u.Ask.Checksum})
	}
	if u.Bid != nil {
		sides = append(sides, bidPayload{Levels: nonNil(u.Bid.Levels), Checksum: u.Bid.Checksum})
	}
	if len(sides) == 0 {
		return nil, &models.SchemaViolationError{Type: "BookUpdate", Reason: "neither ask nor bid side present"}
	}
	return encodeChannel(u.ChannelID, u.ChannelName, u.Pair, sides...)
}

// bookUpdateShape is one of the three layouts a book update arrives in.
// fold maps it onto the canonical BookUpdate.
type bookUpdateShape interface {
	fold() BookUpdate
}

type askOnlyUpdate struct {
	channelID   int64
	ask         BookSide
	channelName string
	pair        models.CurrencyPair
}

func (s askOnlyUpdate) fold() BookUpdate {
	ask := s.ask
	return BookUpdate{ChannelID: s.channelID, Ask: &ask, ChannelName: s.channelName, Pair: s.pair}
}

type bidOnlyUpdate struct {
	channelID   int64
	bid         BookSide
	channelName string
	pair        models.CurrencyPair
}

func (s bidOnlyUpdate) fold() BookUpdate {
	bid := s.bid
	return BookUpdate{ChannelID: s.channelID, Bid: &bid, ChannelName: s.channelName, Pair: s.pair}
}

type askBidUpdate struct {
	channelID   int64
	ask         BookSide
	bid         BookSide
	channelName string
	pair        models.CurrencyPair
}

func (s askBidUpdate) fold() BookUpdate {
	ask, bid := s.ask, s.bid
	return BookUpdate{ChannelID: s.channelID, Ask: &ask, Bid: &bid, ChannelName: s.channelName, Pair: s.pair}
}

func decodeAskOnly(data []byte) (bookUpdateShape, error) {
	var s askOnlyUpdate
	var raw json.RawMessage
	var err error
	if s.channelID, s.channelName, s.pair, err = decodeChannel("BookUpdate", data, &raw); err != nil {
		return nil, err
	}
	if s.ask, err = decodeAsk(raw); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeBidOnly(data []byte) (bookUpdateShape, error) {
	var s bidOnlyUpdate
	var raw json.RawMessage
	var err error
	if s.channelID, s.channelName, s.pair, err = decodeChannel("BookUpdate", data, &raw); err != nil {
		return nil, err
	}
	if s.bid, err = decodeBid(raw); err != nil {
		return nil, err
	}
	return s, nil
}

// decodeAskBid accepts the two side objects in either order.
func decodeAskBid(data []byte) (bookUpdateShape, error) {
	var s askBidUpdate
	var first, second json.RawMessage
	if err := wire.Tuple("BookUpdate", data, &s.channelID, &first, &second, &s.channelName, &s.pair); err != nil {
		return nil, err
	}
	ask, askErr := decodeAsk(first)
	bid, bidErr := decodeBid(second)
	if askErr != nil || bidErr != nil {
		var err error
		if bid, err = decodeBid(first); err != nil {
			return nil, errors.Join(askErr, bidErr)
		}
		if ask, err = decodeAsk(second); err != nil {
			return nil, errors.Join(askErr, bidErr)
		}
	}
	s.ask, s.bid = ask, bid
	return s, nil
}

var bookUpdateShapes = []func([]byte) (bookUpdateShape, error){
	decodeAskOnly,
	decodeBidOnly,
	decodeAskBid,
}

func decodeBookUpdateShape(data []byte) (bookUpdateShape, error) {
	var errs []error
	for _, dec := range bookUpdateShapes {
		shape, err := dec(data)
		if err == nil {
			return shape, nil
		}
		errs = append(errs, err)
	}
	return nil, &models.SchemaViolationError{
		Type:   "BookUpdate",
		Reason: "no book update layout matched",
		Err:    errors.Join(errs...),
	}
}
