// Package response decodes the replies Kraken sends to websocket requests.
// Replies are objects with an event literal; Decode tries each variant in
// turn with a strict schema and keeps the first match.
package response

import (
	"encoding/json"
	"fmt"

	"krakenflow/internal/wire"
	"krakenflow/models"
)

const (
	EventError              = "error"
	EventSubscriptionStatus = "subscriptionStatus"
	EventPong               = "pong"
	EventAddOrderStatus     = "addOrderStatus"
	EventCancelOrderStatus  = "cancelOrderStatus"
	EventCancelAllStatus    = "cancelAllStatus"
)

// Response is one of Error, SubscriptionStatus, Pong, AddOrderStatus,
// CancelOrderStatus or CancelAllStatus.
type Response interface {
	isResponse()
	EventName() string
}

func attempt[T Response, PT interface {
	*T
	json.Unmarshaler
}](data []byte) (Response, error) {
	var v T
	if err := PT(&v).UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return v, nil
}

var candidates = []func([]byte) (Response, error){
	attempt[Error],
	attempt[SubscriptionStatus],
	attempt[Pong],
	attempt[AddOrderStatus],
	attempt[CancelAllStatus],
	attempt[CancelOrderStatus],
}

// Decode classifies a reply. When nothing matches, the error is a
// *models.ClassificationError.
func Decode(data []byte) (Response, error) {
	attempts := make([]error, 0, len(candidates))
	for _, dec := range candidates {
		r, err := dec(data)
		if err == nil {
			return r, nil
		}
		attempts = append(attempts, err)
	}
	return nil, &models.ClassificationError{Kind: "response", Payload: string(data), Attempts: attempts}
}

// OrderStatus is "ok" or "error".
type OrderStatus string

const (
	StatusOK    OrderStatus = "ok"
	StatusError OrderStatus = "error"
)

func (s *OrderStatus) UnmarshalText(text []byte) error {
	switch OrderStatus(text) {
	case StatusOK, StatusError:
		*s = OrderStatus(text)
		return nil
	}
	return fmt.Errorf("invalid order status %q", text)
}

// Error is sent for requests the server could not parse or had to reject.
type Error struct {
	ErrorMessage string
	ReqID        *int64
}

func (Error) isResponse() {}
func (Error) EventName() string { return EventError }
func (e Error) Error() string { return e.ErrorMessage }

type errorWire struct {
	Event        string `json:"event"`
	ErrorMessage string `json:"errorMessage"`
	ReqID        *int64 `json:"reqid,omitempty"`
}

func (e *Error) UnmarshalJSON(data []byte) error {
	var w errorWire
	if err := wire.StrictEvent("Error", data, EventError, &w, "errorMessage"); err != nil {
		return err
	}
	*e = Error{ErrorMessage: w.ErrorMessage, ReqID: w.ReqID}
	return nil
}

func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorWire{Event: EventError, ErrorMessage: e.ErrorMessage, ReqID: e.ReqID})
}

// Pong answers a ping.
type Pong struct {
	ReqID *int64
}

func (Pong) isResponse() {}
func (Pong) EventName() string { return EventPong }

type pongWire struct {
	Event string `json:"event"`
	ReqID *int64 `json:"reqid,omitempty"`
}

func (p *Pong) UnmarshalJSON(data []byte) error {
	var w pongWire
	if err := wire.StrictEvent("Pong", data, EventPong, &w); err != nil {
		return err
	}
	*p = Pong{ReqID: w.ReqID}
	return nil
}

func (p Pong) MarshalJSON() ([]byte, error) {
	return json.Marshal(pongWire{Event: EventPong, ReqID: p.ReqID})
}
