package types

type OrderUpdateKind string

const (
	OrderUpdateKindNew         OrderUpdateKind = "new"
	OrderUpdateKindFill        OrderUpdateKind = "fill"
	OrderUpdateKindPartialFill OrderUpdateKind = "partial_fill"
	OrderUpdateKindCanceled    OrderUpdateKind = "canceled"
	OrderUpdateKindRejected    OrderUpdateKind = "rejected"
)

// OrderUpdate is a push notification from the broker's order update feed.
// Order carries the raw order snapshot attached to the notification; it may
// lag the broker's own bookkeeping, which is why "new" updates are resolved
// against a fresh order query before being acted on.
type OrderUpdate struct {
	Kind    OrderUpdateKind `yaml:"kind" json:"kind" validate:"required,oneof=new fill partial_fill canceled rejected"`
	OrderID string          `yaml:"order_id" json:"order_id" validate:"required"`
	Symbol  string          `yaml:"symbol" json:"symbol" validate:"required"`
	Order   Order           `yaml:"order" json:"order"`
}
