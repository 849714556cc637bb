package model

import (
	"time"

	"membership-marketplace/internal/domain"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusIgnored   OrderStatus = "ignored"
)

// OrderItem is a line item snapshotted at purchase time. Prices are copied
// from the product so later catalogue edits never change a placed order.
type OrderItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	ImageURL   string `json:"image_url"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

// OrderPayment links an order to the intent that paid for it. IntentID is
// unique across orders: a second order can never be created from the same
// intent.
type OrderPayment struct {
	Gateway  string
	IntentID string
	PaidAt   time.Time
}

// Order is the fulfillment artifact of a cart or direct purchase.
type Order struct {
	ID           string
	UserID       *string
	SessionID    *string
	ProviderID   string
	Items        []OrderItem
	TotalCents   int64
	Status       OrderStatus
	Payment      OrderPayment
	CancelReason string
	// ExpiresAt bounds how long the provider may leave the order pending.
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewOrder(id string, actor Actor, providerID string, items []OrderItem, totalCents int64, payment OrderPayment, expiry time.Duration) (*Order, error) {
	if id == "" || providerID == "" || !actor.Valid() || len(items) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	if expiry <= 0 {
		expiry = 5 * time.Minute
	}
	now := time.Now().UTC()
	o := &Order{
		ID:         id,
		ProviderID: providerID,
		Items:      items,
		TotalCents: totalCents,
		Status:     OrderStatusPending,
		Payment:    payment,
		ExpiresAt:  now.Add(expiry),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if actor.UserID != "" {
		uid := actor.UserID
		o.UserID = &uid
	} else {
		sid := actor.SessionID
		o.SessionID = &sid
	}
	return o, nil
}
