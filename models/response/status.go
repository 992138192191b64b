package response

import (
	"encoding/json"

	"krakenflow/internal/wire"
	"krakenflow/models"
)

// StatusSubscription echoes the subscription a status refers to. Unknown
// members are tolerated here since the server adds channel specific ones.
type StatusSubscription struct {
	Depth    *int64  `json:"depth,omitempty"`
	Interval *int64  `json:"interval,omitempty"`
	Name     string  `json:"name"`
	Token    *string `json:"token,omitempty"`
}

func (s *StatusSubscription) UnmarshalJSON(data []byte) error {
	m, err := wire.Object("StatusSubscription", data)
	if err != nil {
		return err
	}
	if err := wire.RequireKeys("StatusSubscription", m, "name"); err != nil {
		return err
	}
	type plain StatusSubscription
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return &models.SchemaViolationError{Type: "StatusSubscription", Reason: "decode failed", Err: err}
	}
	*s = StatusSubscription(p)
	return nil
}

// SubscriptionResult holds either the channel id of a successful
// subscription or the error message of a failed one.
type SubscriptionResult struct {
	ChannelID    *int64
	ErrorMessage *string
}

// Failed reports whether the result carries an error message.
func (r SubscriptionResult) Failed() bool { return r.ErrorMessage != nil }

// SubscriptionStatus acknowledges a subscribe or unsubscribe request.
type SubscriptionStatus struct {
	Result       *SubscriptionResult
	ChannelName  *string
	ReqID        *int64
	Pair         *models.CurrencyPair
	Status       string
	Subscription StatusSubscription
}

func (SubscriptionStatus) isResponse() {}
func (SubscriptionStatus) EventName() string { return EventSubscriptionStatus }

type subscriptionStatusWire struct {
	Event        string               `json:"event"`
	ChannelID    *int64               `json:"channelID,omitempty"`
	ErrorMessage *string              `json:"errorMessage,omitempty"`
	ChannelName  *string              `json:"channelName,omitempty"`
	ReqID        *int64               `json:"reqid,omitempty"`
	Pair         *models.CurrencyPair `json:"pair,omitempty"`
	Status       string               `json:"status"`
	Subscription StatusSubscription   `json:"subscription"`
}

func (s *SubscriptionStatus) UnmarshalJSON(data []byte) error {
	var w subscriptionStatusWire
	if err := wire.StrictEvent("SubscriptionStatus", data, EventSubscriptionStatus, &w, "status", "subscription"); err != nil {
		return err
	}
	v := SubscriptionStatus{ChannelName: w.ChannelName, ReqID: w.ReqID, Pair: w.Pair, Status: w.Status, Subscription: w.Subscription}
	switch {
	case w.ChannelID != nil && w.ErrorMessage != nil:
		return &models.SchemaViolationError{Type: "SubscriptionStatus", Field: "channelID", Reason: "channelID and errorMessage are mutually exclusive"}
	case w.ChannelID != nil || w.ErrorMessage != nil:
		v.Result = &SubscriptionResult{ChannelID: w.ChannelID, ErrorMessage: w.ErrorMessage}
	}
	*s = v
	return nil
}

func (s SubscriptionStatus) MarshalJSON() ([]byte, error) {
	w := subscriptionStatusWire{
		Event:        EventSubscriptionStatus,
		ChannelName:  s.ChannelName,
		ReqID:        s.ReqID,
		Pair:         s.Pair,
		Status:       s.Status,
		Subscription: s.Subscription,
	}
	if s.Result != nil {
		w.ChannelID = s.Result.ChannelID
		w.ErrorMessage = s.Result.ErrorMessage
	}
	return json.Marshal(w)
}

// AddOrderStatus answers an addOrder request.
type AddOrderStatus struct {
	ReqID        *int64
	Status       OrderStatus
	TxID         *string
	Descr        *string
	ErrorMessage *string
}

func (AddOrderStatus) isResponse() {}
func (AddOrderStatus) EventName() string { return EventAddOrderStatus }

type addOrderStatusWire struct {
	Event        string      `json:"event"`
	ReqID        *int64      `json:"reqid,omitempty"`
	Status       OrderStatus `json:"status"`
	TxID         *string     `json:"txid,omitempty"`
	Descr        *string     `json:"descr,omitempty"`
	ErrorMessage *string     `json:"errorMessage,omitempty"`
}

func (a *AddOrderStatus) UnmarshalJSON(data []byte) error {
	var w addOrderStatusWire
	if err := wire.StrictEvent("AddOrderStatus", data, EventAddOrderStatus, &w, "status"); err != nil {
		return err
	}
	*a = AddOrderStatus{ReqID: w.ReqID, Status: w.Status, TxID: w.TxID, Descr: w.Descr, ErrorMessage: w.ErrorMessage}
	return nil
}

func (a AddOrderStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(addOrderStatusWire{
		Event:        EventAddOrderStatus,
		ReqID:        a.ReqID,
		Status:       a.Status,
		TxID:         a.TxID,
		Descr:        a.Descr,
		ErrorMessage: a.ErrorMessage,
	})
}

// CancelOrderStatus answers a cancelOrder request.
type CancelOrderStatus struct {
	ReqID        *int64
	Status       OrderStatus
	ErrorMessage *string
}

func (CancelOrderStatus) isResponse() {}
func (CancelOrderStatus) EventName() string { return EventCancelOrderStatus }

type cancelOrderStatusWire struct {
	Event        string      `json:"event"`
	ReqID        *int64      `json:"reqid,omitempty"`
	Status       OrderStatus `json:"status"`
	ErrorMessage *string     `json:"errorMessage,omitempty"`
}

func (c *CancelOrderStatus) UnmarshalJSON(data []byte) error {
	var w cancelOrderStatusWire
	if err := wire.StrictEvent("CancelOrderStatus", data, EventCancelOrderStatus, &w, "status"); err != nil {
		return err
	}
	*c = CancelOrderStatus{ReqID: w.ReqID, Status: w.Status, ErrorMessage: w.ErrorMessage}
	return nil
}

func (c CancelOrderStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(cancelOrderStatusWire{Event: EventCancelOrderStatus, ReqID: c.ReqID, Status: c.Status, ErrorMessage: c.ErrorMessage})
}

// CancelAllStatus answers a cancelAll request. Count is the number of
// cancelled orders.
type CancelAllStatus struct {
	ReqID        *int64
	Count        *int64
	Status       OrderStatus
	ErrorMessage *string
}

func (CancelAllStatus) isResponse() {}
func (CancelAllStatus) EventName() string { return EventCancelAllStatus }

type cancelAllStatusWire struct {
	Event        string      `json:"event"`
	ReqID        *int64      `json:"reqid,omitempty"`
	Count        *int64      `json:"count,omitempty"`
	Status       OrderStatus `json:"status"`
	ErrorMessage *string     `json:"errorMessage,omitempty"`
}

func (c *CancelAllStatus) UnmarshalJSON(data []byte) error {
	var w cancelAllStatusWire
	if err := wire.StrictEvent("CancelAllStatus", data, EventCancelAllStatus, &w, "status"); err != nil {
		return err
	}
	*c = CancelAllStatus{ReqID: w.ReqID, Count: w.Count, Status: w.Status, ErrorMessage: w.ErrorMessage}
	return nil
}

func (c CancelAllStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(cancelAllStatusWire{Event: EventCancelAllStatus, ReqID: c.ReqID, Count: c.Count, Status: c.Status, ErrorMessage: c.ErrorMessage})
}
