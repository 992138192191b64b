// Package request encodes the commands a client sends over the Kraken
// websocket. Every type injects its event literal when marshaled and leaves
// out optional fields that were never set. Builders return modified copies.
package request

import (
	"encoding/json"

	"krakenflow/internal/wire"
)

const (
	EventPing        = "ping"
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
	EventAddOrder    = "addOrder"
	EventCancelOrder = "cancelOrder"
	EventCancelAll   = "cancelAll"
)

// Request is implemented by Ping, Subscribe, Unsubscribe, AddOrder,
// CancelOrder and CancelAll.
type Request interface {
	json.Marshaler
	EventName() string
}

func ptr[T any](v T) *T { return &v }

// Ping asks the server for a pong carrying the same reqid.
type Ping struct {
	ReqID *int64
}

func NewPing() Ping { return Ping{} }

func (p Ping) WithReqID(id int64) Ping {
	p.ReqID = ptr(id)
	return p
}

func (Ping) EventName() string { return EventPing }

type pingWire struct {
	Event string `json:"event"`
	ReqID *int64 `json:"reqid,omitempty"`
}

func (p Ping) MarshalJSON() ([]byte, error) {
	return json.Marshal(pingWire{Event: EventPing, ReqID: p.ReqID})
}

func (p *Ping) UnmarshalJSON(data []byte) error {
	var w pingWire
	if err := wire.StrictEvent("Ping", data, EventPing, &w); err != nil {
		return err
	}
	*p = Ping{ReqID: w.ReqID}
	return nil
}

// CancelOrder cancels one or more open orders by transaction id.
type CancelOrder struct {
	Token string
	ReqID *int64
	TxID  []string
}

func NewCancelOrder(token string, txid ...string) CancelOrder {
	return CancelOrder{Token: token, TxID: append([]string(nil), txid...)}
}

func (c CancelOrder) WithReqID(id int64) CancelOrder {
	c.ReqID = ptr(id)
	return c
}

func (CancelOrder) EventName() string { return EventCancelOrder }

type cancelOrderWire struct {
	Event string   `json:"event"`
	Token string   `json:"token"`
	ReqID *int64   `json:"reqid,omitempty"`
	TxID  []string `json:"txid"`
}

func (c CancelOrder) MarshalJSON() ([]byte, error) {
	txid := c.TxID
	if txid == nil {
		txid = []string{}
	}
	return json.Marshal(cancelOrderWire{Event: EventCancelOrder, Token: c.Token, ReqID: c.ReqID, TxID: txid})
}

func (c *CancelOrder) UnmarshalJSON(data []byte) error {
	var w cancelOrderWire
	if err := wire.StrictEvent("CancelOrder", data, EventCancelOrder, &w, "token", "txid"); err != nil {
		return err
	}
	*c = CancelOrder{Token: w.Token, ReqID: w.ReqID, TxID: w.TxID}
	return nil
}

// CancelAll cancels every open order of the account.
type CancelAll struct {
	Token string
	ReqID *int64
}

func NewCancelAll(token string) CancelAll { return CancelAll{Token: token} }

func (c CancelAll) WithReqID(id int64) CancelAll {
	c.ReqID = ptr(id)
	return c
}

func (CancelAll) EventName() string { return EventCancelAll }

type cancelAllWire struct {
	Event string `json:"event"`
	Token string `json:"token"`
	ReqID *int64 `json:"reqid,omitempty"`
}

func (c CancelAll) MarshalJSON() ([]byte, error) {
	return json.Marshal(cancelAllWire{Event: EventCancelAll, Token: c.Token, ReqID: c.ReqID})
}

func (c *CancelAll) UnmarshalJSON(data []byte) error {
	var w cancelAllWire
	if err := wire.StrictEvent("CancelAll", data, EventCancelAll, &w, "token"); err != nil {
		return err
	}
	*c = CancelAll{Token: w.Token, ReqID: w.ReqID}
	return nil
}
