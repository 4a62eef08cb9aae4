package models

import (
	"time"
)

// Product is the model for the 'products' table.
// Pointers are used for nullable columns so the JSON stays clean.
type Product struct {
	ID    int64   `json:"id" db:"id"`
	Title string  `json:"title" db:"title"`
	Price float64 `json:"price" db:"price"`

	// DownloadURL is NULL for physical products; only products with a
	// download URL are deliverable by the fulfillment resolver.
	DownloadURL *string `json:"downloadUrl,omitempty" db:"download_url"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
