package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rakhadenta/digistore-golang/internal/models"
)

//
// --- Admin: QRIS Confirmation Handlers ---
//

// ListConfirmations is the handler for GET /v1/admin/qris-confirmations.
// It returns confirmations for review, defaulting to the pending queue.
func (h *Handlers) ListConfirmations(c *gin.Context) {
	// 1. --- Resolve Status Filter ---
	status := c.DefaultQuery("status", "pending")
	switch status {
	case "pending", "approved", "rejected":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of: pending, approved, rejected"})
		return
	}

	// 2. --- Query Database ---
	query := "SELECT " + confirmationColumns + ` FROM qris_confirmations
		WHERE status = ?
		ORDER BY created_at ASC`

	rows, err := h.DB.Query(query, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	// 3. --- Scan Rows ---
	var confirmations []*models.QrisConfirmation
	for rows.Next() {
		conf, err := scanConfirmation(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan confirmation"})
			return
		}
		confirmations = append(confirmations, conf)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating rows"})
		return
	}

	if confirmations == nil {
		confirmations = []*models.QrisConfirmation{}
	}

	// 4. --- Send Response ---
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"confirmations": confirmations,
	})
}

// ProcessConfirmationInput defines the JSON for the admin decision call.
type ProcessConfirmationInput struct {
	ID         int64  `json:"id" binding:"required"`
	Status     string `json:"status" binding:"required,oneof=approved rejected"`
	AdminNotes string `json:"adminNotes"`
}

// ProcessConfirmation is the handler for PATCH /v1/admin/qris-confirmations.
// It is the admin-console entry point into the decision state machine; the
// Telegram webhook is the other one. A confirmation that was already decided
// (by either channel) is a harmless no-op, not an error, so retries and
// double-clicks stay idempotent.
func (h *Handlers) ProcessConfirmation(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input ProcessConfirmationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Resolve the Acting Operator ---
	actor := "admin"
	if userID_raw, exists := c.Get("userID"); exists {
		var email string
		err := h.DB.QueryRow("SELECT email FROM users WHERE id = ?", userID_raw.(int64)).Scan(&email)
		if err == nil {
			actor = email
		} else if err != sql.ErrNoRows {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve operator"})
			return
		}
	}

	// 3. --- Run the State Machine ---
	conf, err := h.processConfirmationDecision(c.Request.Context(), input.ID, input.Status, actor, input.AdminNotes)
	if err != nil {
		switch {
		case errors.Is(err, ErrConfirmationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Confirmation not found"})
		case errors.Is(err, ErrAlreadyProcessed):
			c.JSON(http.StatusOK, gin.H{
				"success":          true,
				"alreadyProcessed": true,
				"message":          "This confirmation has already been processed",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process confirmation"})
		}
		return
	}

	// 4. --- Send Response ---
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"confirmation": conf,
	})
}
