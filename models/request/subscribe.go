package request

import (
	"encoding/json"

	"krakenflow/internal/wire"
	"krakenflow/models"
)

// Subscription describes the channel of a subscribe request.
type Subscription struct {
	Depth    *int64  `json:"depth,omitempty"`
	Interval *int64  `json:"interval,omitempty"`
	Name     string  `json:"name"`
	Snapshot *bool   `json:"snapshot,omitempty"`
	Token    *string `json:"token,omitempty"`
}

// NewSubscription starts a subscription to the named channel ("ticker",
// "ohlc", "trade", "spread", "book", "ownTrades", ...).
func NewSubscription(name string) Subscription { return Subscription{Name: name} }

func (s Subscription) WithDepth(depth int64) Subscription {
	s.Depth = ptr(depth)
	return s
}

// WithInterval sets the candle interval in minutes.
func (s Subscription) WithInterval(minutes int64) Subscription {
	s.Interval = ptr(minutes)
	return s
}

func (s Subscription) WithSnapshot(snapshot bool) Subscription {
	s.Snapshot = ptr(snapshot)
	return s
}

func (s Subscription) WithToken(token string) Subscription {
	s.Token = ptr(token)
	return s
}

func (s *Subscription) UnmarshalJSON(data []byte) error {
	type plain Subscription
	var p plain
	if err := wire.Strict("Subscription", data, &p, "name"); err != nil {
		return err
	}
	*s = Subscription(p)
	return nil
}

// Subscribe subscribes to a channel for a set of pairs. Private channels
// take no pairs and carry a token in the subscription instead.
type Subscribe struct {
	ReqID        *int64
	Pairs        []models.CurrencyPair
	Subscription Subscription
}

func NewSubscribe(sub Subscription) Subscribe { return Subscribe{Subscription: sub} }

func (s Subscribe) WithReqID(id int64) Subscribe {
	s.ReqID = ptr(id)
	return s
}

func (s Subscribe) WithPairs(pairs ...models.CurrencyPair) Subscribe {
	s.Pairs = append([]models.CurrencyPair(nil), pairs...)
	return s
}

func (Subscribe) EventName() string { return EventSubscribe }

type subscribeWire struct {
	Event        string                `json:"event"`
	ReqID        *int64                `json:"reqid,omitempty"`
	Pair         []models.CurrencyPair `json:"pair,omitempty"`
	Subscription Subscription          `json:"subscription"`
}

func (s Subscribe) MarshalJSON() ([]byte, error) {
	return json.Marshal(subscribeWire{Event: EventSubscribe, ReqID: s.ReqID, Pair: s.Pairs, Subscription: s.Subscription})
}

func (s *Subscribe) UnmarshalJSON(data []byte) error {
	var w subscribeWire
	if err := wire.StrictEvent("Subscribe", data, EventSubscribe, &w, "subscription"); err != nil {
		return err
	}
	*s = Subscribe{ReqID: w.ReqID, Pairs: w.Pair, Subscription: w.Subscription}
	return nil
}

// UnsubscribeSubscription is the subscription object of an unsubscribe
// request. Unlike Subscription it has no snapshot flag.
type UnsubscribeSubscription struct {
	Depth    *int64  `json:"depth,omitempty"`
	Interval *int64  `json:"interval,omitempty"`
	Name     string  `json:"name"`
	Token    *string `json:"token,omitempty"`
}

func NewUnsubscribeSubscription(name string) UnsubscribeSubscription {
	return UnsubscribeSubscription{Name: name}
}

func (s UnsubscribeSubscription) WithDepth(depth int64) UnsubscribeSubscription {
	s.Depth = ptr(depth)
	return s
}

func (s UnsubscribeSubscription) WithInterval(minutes int64) UnsubscribeSubscription {
	s.Interval = ptr(minutes)
	return s
}

func (s UnsubscribeSubscription) WithToken(token string) UnsubscribeSubscription {
	s.Token = ptr(token)
	return s
}

func (s *UnsubscribeSubscription) UnmarshalJSON(data []byte) error {
	type plain UnsubscribeSubscription
	var p plain
	if err := wire.Strict("UnsubscribeSubscription", data, &p, "name"); err != nil {
		return err
	}
	*s = UnsubscribeSubscription(p)
	return nil
}

// UnsubscribeFrom selects what to unsubscribe from: a channel id or a list
// of pairs. Build it with FromChannelID or FromPairs.
type UnsubscribeFrom struct {
	channelID *int64
	pairs     []models.CurrencyPair
}

func FromChannelID(id int64) UnsubscribeFrom {
	return UnsubscribeFrom{channelID: ptr(id)}
}

func FromPairs(pairs ...models.CurrencyPair) UnsubscribeFrom {
	return UnsubscribeFrom{pairs: append([]models.CurrencyPair{}, pairs...)}
}

// ChannelID reports the channel id when the selector is a channel.
func (f UnsubscribeFrom) ChannelID() (int64, bool) {
	if f.channelID == nil {
		return 0, false
	}
	return *f.channelID, true
}

// Pairs returns the pairs when the selector is a pair list.
func (f UnsubscribeFrom) Pairs() []models.CurrencyPair {
	return f.pairs
}

// Unsubscribe stops a subscription.
type Unsubscribe struct {
	ReqID        *int64
	From         *UnsubscribeFrom
	Subscription *UnsubscribeSubscription
}

func NewUnsubscribe() Unsubscribe { return Unsubscribe{} }

func (u Unsubscribe) WithReqID(id int64) Unsubscribe {
	u.ReqID = ptr(id)
	return u
}

func (u Unsubscribe) WithFrom(from UnsubscribeFrom) Unsubscribe {
	u.From = &from
	return u
}

func (u Unsubscribe) WithSubscription(sub UnsubscribeSubscription) Unsubscribe {
	u.Subscription = &sub
	return u
}

func (Unsubscribe) EventName() string { return EventUnsubscribe }

type unsubscribeWire struct {
	Event        string                   `json:"event"`
	ReqID        *int64                   `json:"reqid,omitempty"`
	ChannelID    *int64                   `json:"channelID,omitempty"`
	Pair         []models.CurrencyPair    `json:"pair,omitempty"`
	Subscription *UnsubscribeSubscription `json:"subscription,omitempty"`
}

func (u Unsubscribe) MarshalJSON() ([]byte, error) {
	w := unsubscribeWire{Event: EventUnsubscribe, ReqID: u.ReqID, Subscription: u.Subscription}
	if u.From != nil {
		w.ChannelID = u.From.channelID
		w.Pair = u.From.pairs
	}
	return json.Marshal(w)
}

func (u *Unsubscribe) UnmarshalJSON(data []byte) error {
	var w unsubscribeWire
	if err := wire.StrictEvent("Unsubscribe", data, EventUnsubscribe, &w); err != nil {
		return err
	}
	v := Unsubscribe{ReqID: w.ReqID, Subscription: w.Subscription}
	switch {
	case w.ChannelID != nil && w.Pair != nil:
		return &models.SchemaViolationError{Type: "Unsubscribe", Field: "channelID", Reason: "channelID and pair are mutually exclusive"}
	case w.ChannelID != nil:
		v.From = &UnsubscribeFrom{channelID: w.ChannelID}
	case w.Pair != nil:
		v.From = &UnsubscribeFrom{pairs: w.Pair}
	}
	*u = v
	return nil
}
