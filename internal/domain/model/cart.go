package model

import "time"

// CartItem carries the product snapshot needed to build an order line
// without re-reading the catalogue at finalization time.
type CartItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	ImageURL   string `json:"image_url"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

// Cart belongs to a customer or a guest session.
type Cart struct {
	ID         string
	UserID     *string
	SessionID  *string
	ProviderID string
	Items      []CartItem
	UpdatedAt  time.Time
}

// TotalCents sums the line items.
func (c *Cart) TotalCents() int64 {
	var t int64
	for _, it := range c.Items {
		t += it.PriceCents * int64(it.Quantity)
	}
	return t
}

// Snapshot converts cart items into order lines.
func (c *Cart) Snapshot() []OrderItem {
	out := make([]OrderItem, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, OrderItem{
			ProductID:  it.ProductID,
			Name:       it.Name,
			ImageURL:   it.ImageURL,
			PriceCents: it.PriceCents,
			Quantity:   it.Quantity,
		})
	}
	return out
}
