package types

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rxtech-lab/argo-fleet/pkg/errors"
)

type PurchaseType string

type OrderType string

type TimeInForce string

type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

const (
	TimeInForceDay TimeInForce = "DAY"
	TimeInForceGTC TimeInForce = "GTC"
)

const (
	OrderReasonEntrySignal string = "entry_signal"
	OrderReasonExitFill    string = "exit_fill"
	OrderReasonResubmit    string = "resubmit"
	OrderReasonReconcile   string = "reconcile"
)

// ExecuteOrder is an order request handed to the gateway for submission.
type ExecuteOrder struct {
	ID          string       `yaml:"id" json:"id" csv:"id" validate:"required,uuid"`
	Symbol      string       `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Side        PurchaseType `yaml:"side" json:"side" csv:"side" validate:"required,oneof=BUY SELL"`
	OrderType   OrderType    `yaml:"order_type" json:"order_type" csv:"order_type" validate:"required,oneof=MARKET LIMIT"`
	TimeInForce TimeInForce  `yaml:"time_in_force" json:"time_in_force" csv:"time_in_force" validate:"required,oneof=DAY GTC"`
	Quantity    float64      `yaml:"quantity" json:"quantity" csv:"quantity" validate:"required,gt=0"`
	Price       float64      `yaml:"price" json:"price" csv:"price" validate:"required,gt=0"`
	// Reason records why the order was created, e.g. "entry_signal" or "resubmit".
	Reason string `yaml:"reason" json:"reason" csv:"reason" validate:"required"`
}

// Order is the broker's view of a submitted order.
type Order struct {
	OrderID        string       `yaml:"order_id" json:"order_id" csv:"order_id" validate:"required"`
	Symbol         string       `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Side           PurchaseType `yaml:"side" json:"side" csv:"side" validate:"required,oneof=BUY SELL"`
	Quantity       float64      `yaml:"quantity" json:"quantity" csv:"quantity" validate:"required,gt=0"`
	FilledQuantity float64      `yaml:"filled_quantity" json:"filled_quantity" csv:"filled_quantity" validate:"gte=0"`
	Price          float64      `yaml:"price" json:"price" csv:"price" validate:"gte=0"`
	Status         OrderStatus  `yaml:"status" json:"status" csv:"status"`
	Timestamp      time.Time    `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
}

// IsTerminal reports whether the status can no longer change.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// Validate validates the ExecuteOrder struct.
func (eo *ExecuteOrder) Validate() error {
	validate := validator.New()
	if err := validate.Struct(eo); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidExecuteOrder, "invalid execute order", err)
	}

	return nil
}

// Validate validates the Order struct.
func (o *Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	return nil
}
