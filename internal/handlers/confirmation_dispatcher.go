package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rakhadenta/digistore-golang/internal/models"
)

// Sentinel errors for the decision state machine. Callers map these to their
// transport-specific responses (HTTP status, callback answer text).
var (
	ErrConfirmationNotFound = errors.New("confirmation not found")
	ErrAlreadyProcessed     = errors.New("confirmation already processed")
)

// confirmationColumns is the scan order used by scanConfirmation.
const confirmationColumns = `id, order_id, order_number, customer_name, customer_email, customer_phone,
		amount, proof_image, notes, status, admin_notes, approved_at, approved_by,
		telegram_message_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanConfirmation scans one qris_confirmations row (selected with
// confirmationColumns) into a model, converting nullable columns to pointers.
func scanConfirmation(row rowScanner) (*models.QrisConfirmation, error) {
	var conf models.QrisConfirmation
	var orderID, telegramMessageID sql.NullInt64
	var customerPhone, notes, adminNotes, approvedBy sql.NullString
	var approvedAt sql.NullTime

	err := row.Scan(
		&conf.ID,
		&orderID,
		&conf.OrderNumber,
		&conf.CustomerName,
		&conf.CustomerEmail,
		&customerPhone,
		&conf.Amount,
		&conf.ProofImage,
		&notes,
		&conf.Status,
		&adminNotes,
		&approvedAt,
		&approvedBy,
		&telegramMessageID,
		&conf.CreatedAt,
		&conf.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if orderID.Valid {
		conf.OrderID = &orderID.Int64
	}
	if customerPhone.Valid {
		conf.CustomerPhone = &customerPhone.String
	}
	if notes.Valid {
		conf.Notes = &notes.String
	}
	if adminNotes.Valid {
		conf.AdminNotes = &adminNotes.String
	}
	if approvedAt.Valid {
		conf.ApprovedAt = &approvedAt.Time
	}
	if approvedBy.Valid {
		conf.ApprovedBy = &approvedBy.String
	}
	if telegramMessageID.Valid {
		conf.TelegramMessageID = &telegramMessageID.Int64
	}

	return &conf, nil
}

// processConfirmationDecision is the single state machine behind both the
// admin-console PATCH and the Telegram callback. decision must be 'approved'
// or 'rejected'.
//
// The decisive write is a conditional UPDATE (status must still be 'pending'
// at write time), so two racing approvals settle exactly one winner: the
// loser's update matches zero rows and gets ErrAlreadyProcessed with no side
// effects. Everything after the commit (resolving links, mail, editing the
// Telegram alert) is best-effort; the stored decision is the fact of record.
func (h *Handlers) processConfirmationDecision(ctx context.Context, confirmationID int64, decision, actor, adminNotes string) (*models.QrisConfirmation, error) {
	now := time.Now()

	// The audit note always records which channel decided.
	note := fmt.Sprintf("Processed by %s", actor)
	if adminNotes != "" {
		note = note + ": " + adminNotes
	}

	// 1. --- Begin Transaction ---
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback() // Safety net

	// 2. --- Decisive Conditional Write ---
	// The WHERE clause is the idempotency guard: it only matches while the
	// confirmation is still pending.
	var result sql.Result
	if decision == "approved" {
		result, err = tx.ExecContext(ctx, `
			UPDATE qris_confirmations
			SET status = 'approved', admin_notes = ?, approved_at = ?, approved_by = ?, updated_at = ?
			WHERE id = ? AND status = 'pending'`,
			note, now, actor, now, confirmationID)
	} else {
		result, err = tx.ExecContext(ctx, `
			UPDATE qris_confirmations
			SET status = 'rejected', admin_notes = ?, updated_at = ?
			WHERE id = ? AND status = 'pending'`,
			note, now, confirmationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write decision: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check decision write: %w", err)
	}

	if affected == 0 {
		// Either the confirmation doesn't exist, or another channel already
		// decided it. A follow-up read tells the two apart.
		var status string
		err := tx.QueryRowContext(ctx,
			"SELECT status FROM qris_confirmations WHERE id = ?", confirmationID,
		).Scan(&status)
		if err == sql.ErrNoRows {
			return nil, ErrConfirmationNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load confirmation: %w", err)
		}
		return nil, ErrAlreadyProcessed
	}

	// 3. --- Reload the Updated Confirmation ---
	// Both the order sync and the post-commit effects need its fields.
	conf, err := scanConfirmation(tx.QueryRowContext(ctx,
		"SELECT "+confirmationColumns+" FROM qris_confirmations WHERE id = ?", confirmationID))
	if err != nil {
		return nil, fmt.Errorf("failed to load confirmation: %w", err)
	}

	// 4. --- Order Status Sync (approval only) ---
	// Resolve by order number first, else by order id. Zero matches is fine:
	// the confirmation may have been submitted against an unknown order
	// number, and an operator can repair the correlation later.
	if decision == "approved" {
		if err := h.markOrderPaid(ctx, tx, conf, now); err != nil {
			return nil, err
		}
	}

	// 5. --- Commit ---
	// Anything failing above this point is a hard error for the caller.
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit decision: %w", err)
	}

	// 6. --- Best-Effort Side Effects ---
	// The decision is durable now; nothing below may fail the request.
	if decision == "approved" {
		links := h.Resolver.ResolveDownloadLinks(ctx, conf.OrderID, conf.OrderNumber)
		if err := h.Mailer.SendDownloadLinks(conf.CustomerEmail, conf.CustomerName, conf.OrderNumber, conf.Amount, links); err != nil {
			log.Printf("WARNING: failed to send download links for confirmation %d: %v", conf.ID, err)
		}
	}

	h.reflectDecisionToTelegram(conf, decision, actor, now)

	return conf, nil
}

// markOrderPaid flips the backing order to 'paid' inside the decision
// transaction.
func (h *Handlers) markOrderPaid(ctx context.Context, tx *sql.Tx, conf *models.QrisConfirmation, now time.Time) error {
	if conf.OrderNumber != "" {
		result, err := tx.ExecContext(ctx,
			"UPDATE orders SET status = 'paid', updated_at = ? WHERE order_number = ?",
			now, conf.OrderNumber)
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		if affected, err := result.RowsAffected(); err == nil && affected > 0 {
			return nil
		}
	}

	if conf.OrderID != nil {
		_, err := tx.ExecContext(ctx,
			"UPDATE orders SET status = 'paid', updated_at = ? WHERE id = ?",
			now, *conf.OrderID)
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
	}

	return nil
}

// reflectDecisionToTelegram edits the original alert message's caption so
// the admin chat shows the final outcome. Best-effort.
func (h *Handlers) reflectDecisionToTelegram(conf *models.QrisConfirmation, decision, actor string, when time.Time) {
	if conf.TelegramMessageID == nil {
		return
	}

	var headline string
	if decision == "approved" {
		headline = "✅ APPROVED"
	} else {
		headline = "❌ REJECTED"
	}

	caption := fmt.Sprintf("%s\n\nOrder: %s\nCustomer: %s\nAmount: Rp %.0f\n\nBy %s at %s",
		headline, conf.OrderNumber, conf.CustomerName, conf.Amount,
		actor, when.Format("02 Jan 2006 15:04"))

	if res := h.Telegram.EditMessageCaption(*conf.TelegramMessageID, caption); !res.Success {
		log.Printf("WARNING: failed to update Telegram alert for confirmation %d: %s", conf.ID, res.Error)
	}
}
