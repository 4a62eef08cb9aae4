package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rakhadenta/digistore-golang/internal/models"
	"github.com/rakhadenta/digistore-golang/internal/telegram"
)

//
// --- QRIS Confirmation Handlers (Public) ---
//

// SubmitConfirmationInput defines the JSON for a proof-of-payment submission.
type SubmitConfirmationInput struct {
	OrderID       *int64  `json:"orderId"`
	OrderNumber   string  `json:"orderNumber"`
	CustomerName  string  `json:"customerName" binding:"required"`
	CustomerEmail string  `json:"customerEmail" binding:"required,email"`
	CustomerPhone *string `json:"customerPhone"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	ProofImage    string  `json:"proofImage" binding:"required"`
	Notes         *string `json:"notes"`
}

// SubmitConfirmation is the handler for POST /v1/qris-confirmation.
// It records the customer's payment claim as 'pending' and alerts the
// operators. Only the database insert has to succeed: every alert below it
// is best-effort.
func (h *Handlers) SubmitConfirmation(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input SubmitConfirmationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Correlate With an Order ---
	// A missing match is tolerated: the confirmation is still recorded with
	// a NULL order_id and an operator can repair it later.
	orderID := input.OrderID
	if orderID == nil && input.OrderNumber != "" {
		var id int64
		err := h.DB.QueryRow("SELECT id FROM orders WHERE order_number = ?", input.OrderNumber).Scan(&id)
		if err == nil {
			orderID = &id
		} else if err != sql.ErrNoRows {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up order"})
			return
		}
	}

	// 3. --- Insert the Confirmation ---
	now := time.Now()
	query := `
		INSERT INTO qris_confirmations
		(order_id, order_number, customer_name, customer_email, customer_phone,
		 amount, proof_image, notes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?, ?)`

	result, err := h.DB.Exec(query,
		orderID, input.OrderNumber, input.CustomerName, input.CustomerEmail, input.CustomerPhone,
		input.Amount, input.ProofImage, input.Notes, now, now)
	if err != nil {
		// The customer must know their submission did not register.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save payment confirmation"})
		return
	}

	confirmationID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get new confirmation ID"})
		return
	}

	conf := &models.QrisConfirmation{
		ID:            confirmationID,
		OrderID:       orderID,
		OrderNumber:   input.OrderNumber,
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		CustomerPhone: input.CustomerPhone,
		Amount:        input.Amount,
		ProofImage:    input.ProofImage,
		Notes:         input.Notes,
		Status:        "pending",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// 4. --- Alert the Operators (Best-Effort) ---
	h.notifyAdminsOfSubmission(conf)
	h.sendTelegramAlert(conf)

	// 5. --- Send Success Response ---
	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"confirmation": conf,
	})
}

// notifyAdminsOfSubmission inserts one in-system notification per
// administrator. Failures are logged, never surfaced.
func (h *Handlers) notifyAdminsOfSubmission(conf *models.QrisConfirmation) {
	rows, err := h.DB.Query("SELECT id FROM users WHERE role = 'administrator'")
	if err != nil {
		log.Printf("WARNING: failed to load administrators for notification: %v", err)
		return
	}
	defer rows.Close()

	message := fmt.Sprintf("New QRIS payment confirmation for order %s (Rp %.0f) from %s",
		conf.OrderNumber, conf.Amount, conf.CustomerName)
	link := fmt.Sprintf("/admin/qris-confirmations?id=%d", conf.ID)

	for rows.Next() {
		var adminID int64
		if err := rows.Scan(&adminID); err != nil {
			log.Printf("WARNING: failed to scan administrator id: %v", err)
			return
		}
		if err := h.AddNotification(h.DB, adminID, message, link); err != nil {
			log.Printf("WARNING: %v", err)
		}
	}
}

// sendTelegramAlert posts the proof image with approve/reject inline buttons
// to the admin chat and remembers the resulting message id so the decision
// can be stamped onto it later. Best-effort.
func (h *Handlers) sendTelegramAlert(conf *models.QrisConfirmation) {
	caption := fmt.Sprintf("🔔 New QRIS Payment Confirmation\n\nOrder: %s\nCustomer: %s (%s)\nAmount: Rp %.0f",
		conf.OrderNumber, conf.CustomerName, conf.CustomerEmail, conf.Amount)
	if conf.Notes != nil && *conf.Notes != "" {
		caption += "\nNotes: " + *conf.Notes
	}

	buttons := [][]telegram.InlineButton{
		{
			{Text: "✅ Approve", CallbackData: fmt.Sprintf("approve_%d", conf.ID)},
			{Text: "❌ Reject", CallbackData: fmt.Sprintf("reject_%d", conf.ID)},
		},
	}
	if consoleURL := os.Getenv("ADMIN_CONSOLE_URL"); consoleURL != "" {
		buttons = append(buttons, []telegram.InlineButton{
			{Text: "Open Admin Console", URL: consoleURL},
		})
	}

	res := h.Telegram.SendPhoto(conf.ProofImage, caption, buttons)
	if !res.Success {
		log.Printf("WARNING: failed to send Telegram alert for confirmation %d: %s", conf.ID, res.Error)
		return
	}

	conf.TelegramMessageID = &res.MessageID
	if _, err := h.DB.Exec(
		"UPDATE qris_confirmations SET telegram_message_id = ? WHERE id = ?",
		res.MessageID, conf.ID); err != nil {
		log.Printf("WARNING: failed to store Telegram message id for confirmation %d: %v", conf.ID, err)
	}
}

// GetConfirmationsByOrderNumber is the handler for
// GET /v1/qris-confirmation?orderNumber=...
// It returns the matching confirmations newest first; when the newest one is
// approved, the response also carries the resolved download links so the
// storefront can show them immediately.
func (h *Handlers) GetConfirmationsByOrderNumber(c *gin.Context) {
	// 1. --- Validate Query ---
	orderNumber := c.Query("orderNumber")
	if orderNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderNumber query parameter is required"})
		return
	}

	// 2. --- Query Confirmations ---
	query := "SELECT " + confirmationColumns + ` FROM qris_confirmations
		WHERE order_number = ?
		ORDER BY created_at DESC`

	rows, err := h.DB.Query(query, orderNumber)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

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

	// 3. --- Attach Download Links When Already Approved ---
	response := gin.H{
		"success":       true,
		"confirmations": confirmations,
	}
	if len(confirmations) > 0 && confirmations[0].Status == "approved" {
		newest := confirmations[0]
		links := h.Resolver.ResolveDownloadLinks(c.Request.Context(), newest.OrderID, newest.OrderNumber)
		if links == nil {
			links = []models.DownloadLink{}
		}
		response["downloadLinks"] = links
	}

	c.JSON(http.StatusOK, response)
}

// RemindPendingConfirmations is called by the background worker. It nudges
// the admin chat about confirmations that have been waiting too long.
func (h *Handlers) RemindPendingConfirmations() {
	cutoff := time.Now().Add(-6 * time.Hour)

	var count int
	err := h.DB.QueryRow(
		"SELECT COUNT(*) FROM qris_confirmations WHERE status = 'pending' AND created_at < ?",
		cutoff).Scan(&count)
	if err != nil {
		log.Printf("WARNING: pending-confirmation reminder query failed: %v", err)
		return
	}
	if count == 0 {
		return
	}

	text := fmt.Sprintf("⏰ Reminder: %d QRIS payment confirmation(s) have been waiting for review for over 6 hours.", count)
	if res := h.Telegram.SendMessage(text, nil); !res.Success {
		log.Printf("WARNING: failed to send pending-confirmation reminder: %s", res.Error)
	}
}
