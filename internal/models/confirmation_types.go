package models

import (
	"time"
)

// QrisConfirmation is the model for the 'qris_confirmations' table.
// A confirmation is a customer's claim of having paid via QRIS transfer,
// waiting for a human to approve or reject it.
//
// Status lifecycle: 'pending' -> 'approved' OR 'pending' -> 'rejected'.
// Once the status leaves 'pending' it never changes again.
type QrisConfirmation struct {
	ID          int64  `json:"id" db:"id"`
	OrderID     *int64 `json:"orderId,omitempty" db:"order_id"` // May be NULL if the order number didn't match at submit time
	OrderNumber string `json:"orderNumber" db:"order_number"`

	// --- Customer Identity ---
	CustomerName  string  `json:"customerName" db:"customer_name"`
	CustomerEmail string  `json:"customerEmail" db:"customer_email"`
	CustomerPhone *string `json:"customerPhone,omitempty" db:"customer_phone"`

	// --- Payment Claim ---
	Amount     float64 `json:"amount" db:"amount"` // Customer-asserted amount, in Rupiah
	ProofImage string  `json:"proofImage" db:"proof_image"`
	Notes      *string `json:"notes,omitempty" db:"notes"`

	// --- Review Outcome ---
	Status     string     `json:"status" db:"status"` // pending, approved, rejected
	AdminNotes *string    `json:"adminNotes,omitempty" db:"admin_notes"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty" db:"approved_at"`
	ApprovedBy *string    `json:"approvedBy,omitempty" db:"approved_by"`

	// TelegramMessageID remembers the alert message we sent to the admin
	// chat, so the final decision can be reflected onto it later.
	TelegramMessageID *int64 `json:"-" db:"telegram_message_id"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// DownloadLink is a deliverable digital item. It is derived (never stored):
// the fulfillment resolver produces these from whatever shape the order's
// purchase data happens to be in.
type DownloadLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}
