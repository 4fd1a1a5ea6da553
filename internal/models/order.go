package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the shipment axis of an order's lifecycle.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// orderTransitions lists the allowed next statuses. Cancellation is
// reachable from every non-terminal state; delivered and cancelled are
// terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderConfirmed, OrderCancelled},
	OrderConfirmed:  {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered, OrderCancelled},
	OrderDelivered:  {},
	OrderCancelled:  {},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransitionTo reports whether the move from s to next is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus is the payment axis, independent of shipment status.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

// Address is an order address snapshot.
type Address struct {
	Street  string `json:"street,omitempty" bson:"street,omitempty"`
	City    string `json:"city,omitempty" bson:"city,omitempty"`
	State   string `json:"state,omitempty" bson:"state,omitempty"`
	Country string `json:"country,omitempty" bson:"country,omitempty"`
	ZipCode string `json:"zip_code,omitempty" bson:"zip_code,omitempty"`
}

// OrderItem is one priced line of an order. Unit price is captured at
// order time and never recomputed from the live catalog.
type OrderItem struct {
	Product        primitive.ObjectID `json:"product" bson:"product"`
	SKU            string             `json:"sku" bson:"sku"`
	Name           string             `json:"name" bson:"name"`
	Size           string             `json:"size" bson:"size"`
	Quantity       int64              `json:"quantity" bson:"quantity"`
	UnitPriceCents int64              `json:"unit_price_cents" bson:"unit_price_cents"`
	TotalCents     int64              `json:"total_cents" bson:"total_cents"`
}

// Order is a persisted, validated order. It owns its line-item
// snapshots; the catalog keeps the live inventory counters.
type Order struct {
	ID                  primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OrderNumber         string             `json:"order_number" bson:"order_number"`
	User                primitive.ObjectID `json:"user" bson:"user"`
	Items               []OrderItem        `json:"items" bson:"items"`
	BillingAddress      Address            `json:"billing_address,omitempty" bson:"billing_address,omitempty"`
	ShippingAddress     Address            `json:"shipping_address,omitempty" bson:"shipping_address,omitempty"`
	PaymentMethod       string             `json:"payment_method" bson:"payment_method"`
	ShippingMethod      string             `json:"shipping_method,omitempty" bson:"shipping_method,omitempty"`
	Notes               string             `json:"notes,omitempty" bson:"notes,omitempty"`
	PurchaseOrderNumber string             `json:"purchase_order_number,omitempty" bson:"purchase_order_number,omitempty"`
	Status              OrderStatus        `json:"status" bson:"status"`
	PaymentStatus       PaymentStatus      `json:"payment_status" bson:"payment_status"`
	SubtotalCents       int64              `json:"subtotal_cents" bson:"subtotal_cents"`
	TaxCents            int64              `json:"tax_cents" bson:"tax_cents"`
	ShippingCents       int64              `json:"shipping_cents" bson:"shipping_cents"`
	DiscountCents       int64              `json:"discount_cents" bson:"discount_cents"`
	TotalCents          int64              `json:"total_cents" bson:"total_cents"`
	TrackingNumber      string             `json:"tracking_number,omitempty" bson:"tracking_number,omitempty"`
	EstimatedDelivery   time.Time          `json:"estimated_delivery" bson:"estimated_delivery"`
	PaidAt              *time.Time         `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	DeliveredAt         *time.Time         `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`
	CreatedAt           time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at" bson:"updated_at"`
}
