package models

import (
	"database/sql"
	"time"
)

// Order is the model for the 'orders' table.
// The catalog/checkout layer owns this table; the confirmation pipeline only
// reads it and flips 'status' to 'paid' on approval.
type Order struct {
	ID          int64   `json:"id" db:"id"`
	OrderNumber string  `json:"orderNumber" db:"order_number"` // Human-readable reference, e.g. ORD-100
	Status      string  `json:"status" db:"status"`            // pending, paid, confirmed, completed, cancelled
	Total       float64 `json:"total" db:"total"`

	// Notes is a legacy column: old checkouts stored the purchased line items
	// here as a JSON array of {productId, productTitle}.
	Notes sql.NullString `json:"-" db:"notes"`

	// ProductID is an even older legacy column from when an order could hold
	// exactly one product. Used only as a last-resort fulfillment fallback.
	ProductID sql.NullInt64 `json:"productId,omitempty" db:"product_id"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// OrderItem is the model for the 'order_items' table (the modern
// representation of what an order purchased).
type OrderItem struct {
	ID           int64     `json:"id" db:"id"`
	OrderID      int64     `json:"orderId" db:"order_id"`
	ProductID    int64     `json:"productId" db:"product_id"`
	ProductTitle string    `json:"productTitle" db:"product_title"` // Title at the time of purchase
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
