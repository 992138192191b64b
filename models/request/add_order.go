package request

import (
	"encoding/json"

	"krakenflow/internal/wire"
	"krakenflow/models"
)

// AddOrder places an order. OrderType and Type are passed through as the
// exchange spells them ("limit", "buy", ...).
type AddOrder struct {
	Token            string
	ReqID            *int64
	OrderType        string
	Type             string
	Pair             models.CurrencyPair
	Price            *models.Float
	Price2           *models.Float
	Volume           models.Float
	Leverage         *models.Float
	OFlags           *string
	StartTm          *string
	ExpireTm         *string
	UserRef          *string
	Validate         *string
	CloseOrderType   *string
	ClosePrice       *string
	ClosePrice2      *string
	TradingAgreement *string
}

// NewAddOrder fills the required fields.
func NewAddOrder(token, orderType, side string, pair models.CurrencyPair, volume models.Float) AddOrder {
	return AddOrder{Token: token, OrderType: orderType, Type: side, Pair: pair, Volume: volume}
}

func (a AddOrder) WithReqID(id int64) AddOrder {
	a.ReqID = ptr(id)
	return a
}

func (a AddOrder) WithPrice(p models.Float) AddOrder {
	a.Price = ptr(p)
	return a
}

func (a AddOrder) WithPrice2(p models.Float) AddOrder {
	a.Price2 = ptr(p)
	return a
}

func (a AddOrder) WithLeverage(l models.Float) AddOrder {
	a.Leverage = ptr(l)
	return a
}

func (a AddOrder) WithOFlags(flags string) AddOrder {
	a.OFlags = ptr(flags)
	return a
}

func (a AddOrder) WithStartTm(tm string) AddOrder {
	a.StartTm = ptr(tm)
	return a
}

func (a AddOrder) WithExpireTm(tm string) AddOrder {
	a.ExpireTm = ptr(tm)
	return a
}

func (a AddOrder) WithUserRef(ref string) AddOrder {
	a.UserRef = ptr(ref)
	return a
}

func (a AddOrder) WithValidate(v string) AddOrder {
	a.Validate = ptr(v)
	return a
}

// WithClose attaches a conditional close order. Empty price strings are left
// out.
func (a AddOrder) WithClose(orderType, price, price2 string) AddOrder {
	a.CloseOrderType = ptr(orderType)
	if price != "" {
		a.ClosePrice = ptr(price)
	}
	if price2 != "" {
		a.ClosePrice2 = ptr(price2)
	}
	return a
}

func (a AddOrder) WithTradingAgreement(v string) AddOrder {
	a.TradingAgreement = ptr(v)
	return a
}

func (AddOrder) EventName() string { return EventAddOrder }

type addOrderWire struct {
	Event            string              `json:"event"`
	Token            string              `json:"token"`
	ReqID            *int64              `json:"reqid,omitempty"`
	OrderType        string              `json:"ordertype"`
	Type             string              `json:"type"`
	Pair             models.CurrencyPair `json:"pair"`
	Price            *models.Float       `json:"price,omitempty"`
	Price2           *models.Float       `json:"price2,omitempty"`
	Volume           models.Float        `json:"volume"`
	Leverage         *models.Float       `json:"leverage,omitempty"`
	OFlags           *string             `json:"oflags,omitempty"`
	StartTm          *string             `json:"starttm,omitempty"`
	ExpireTm         *string             `json:"expiretm,omitempty"`
	UserRef          *string             `json:"userref,omitempty"`
	Validate         *string             `json:"validate,omitempty"`
	CloseOrderType   *string             `json:"close[ordertype],omitempty"`
	ClosePrice       *string             `json:"close[price],omitempty"`
	ClosePrice2      *string             `json:"close[price2],omitempty"`
	TradingAgreement *string             `json:"trading_agreement,omitempty"`
}

func (a AddOrder) MarshalJSON() ([]byte, error) {
	return json.Marshal(addOrderWire{
		Event:            EventAddOrder,
		Token:            a.Token,
		ReqID:            a.ReqID,
		OrderType:        a.OrderType,
		Type:             a.Type,
		Pair:             a.Pair,
		Price:            a.Price,
		Price2:           a.Price2,
		Volume:           a.Volume,
		Leverage:         a.Leverage,
		OFlags:           a.OFlags,
		StartTm:          a.StartTm,
		ExpireTm:         a.ExpireTm,
		UserRef:          a.UserRef,
		Validate:         a.Validate,
		CloseOrderType:   a.CloseOrderType,
		ClosePrice:       a.ClosePrice,
		ClosePrice2:      a.ClosePrice2,
		TradingAgreement: a.TradingAgreement,
	})
}

func (a *AddOrder) UnmarshalJSON(data []byte) error {
	var w addOrderWire
	if err := wire.StrictEvent("AddOrder", data, EventAddOrder, &w, "token", "ordertype", "type", "pair", "volume"); err != nil {
		return err
	}
	*a = AddOrder{
		Token:            w.Token,
		ReqID:            w.ReqID,
		OrderType:        w.OrderType,
		Type:             w.Type,
		Pair:             w.Pair,
		Price:            w.Price,
		Price2:           w.Price2,
		Volume:           w.Volume,
		Leverage:         w.Leverage,
		OFlags:           w.OFlags,
		StartTm:          w.StartTm,
		ExpireTm:         w.ExpireTm,
		UserRef:          w.UserRef,
		Validate:         w.Validate,
		CloseOrderType:   w.CloseOrderType,
		ClosePrice:       w.ClosePrice,
		ClosePrice2:      w.ClosePrice2,
		TradingAgreement: w.TradingAgreement,
	}
	return nil
}
