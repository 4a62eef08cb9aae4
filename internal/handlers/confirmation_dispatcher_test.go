package handlers

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rakhadenta/digistore-golang/internal/models"
)

func TestProcessConfirmationDecision(t *testing.T) {
	now := time.Now()

	approvedRow := func(orderID interface{}, orderNumber string, telegramMessageID interface{}) *sqlmock.Rows {
		return sqlmock.NewRows(confirmationColumnNames).AddRow(
			int64(7), orderID, orderNumber, "Budi Santoso", "budi@example.com", nil,
			150000.0, "http://localhost:8080/uploads/proof.jpg", nil, "approved",
			"Processed by admin@shop.test: ok", now, "admin@shop.test",
			telegramMessageID, now, now,
		)
	}

	t.Run("approval applies all side effects exactly once", func(t *testing.T) {
		h, mock, tg, mailer, resolver := newTestHandlers(t)
		resolver.links = []models.DownloadLink{
			{Title: "E-Book Vol. 1", URL: "https://cdn.example.com/ebook-1.pdf"},
			{Title: "E-Book Vol. 2", URL: "https://cdn.example.com/ebook-2.pdf"},
		}

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE qris_confirmations").
			WithArgs("Processed by admin@shop.test: ok", sqlmock.AnyArg(), "admin@shop.test", sqlmock.AnyArg(), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT (.+) FROM qris_confirmations WHERE id").
			WithArgs(int64(7)).
			WillReturnRows(approvedRow(int64(5), "ORD-100", int64(42)))
		mock.ExpectExec("UPDATE orders SET status = 'paid'").
			WithArgs(sqlmock.AnyArg(), "ORD-100").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		conf, err := h.processConfirmationDecision(context.Background(), 7, "approved", "admin@shop.test", "ok")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if conf.Status != "approved" {
			t.Errorf("expected status approved, got %s", conf.Status)
		}

		if len(mailer.sent) != 1 {
			t.Fatalf("expected exactly 1 mail, got %d", len(mailer.sent))
		}
		if len(mailer.sent[0].Links) != 2 {
			t.Errorf("expected 2 download links in the mail, got %d", len(mailer.sent[0].Links))
		}
		if mailer.sent[0].To != "budi@example.com" {
			t.Errorf("mail went to %s", mailer.sent[0].To)
		}
		if len(tg.edits) != 1 || tg.edits[0] != 42 {
			t.Errorf("expected the original alert (message 42) to be edited once, got %v", tg.edits)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("second decision is a no-op with no side effects", func(t *testing.T) {
		h, mock, tg, mailer, _ := newTestHandlers(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE qris_confirmations").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT status FROM qris_confirmations").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("approved"))
		mock.ExpectRollback()

		_, err := h.processConfirmationDecision(context.Background(), 7, "approved", "telegram:@owner", "")
		if !errors.Is(err, ErrAlreadyProcessed) {
			t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
		}

		if len(mailer.sent) != 0 {
			t.Errorf("no mail may be sent on a duplicate decision, got %d", len(mailer.sent))
		}
		if len(tg.edits) != 0 {
			t.Errorf("no caption edit may happen on a duplicate decision, got %v", tg.edits)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("unknown confirmation id", func(t *testing.T) {
		h, mock, _, _, _ := newTestHandlers(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE qris_confirmations").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT status FROM qris_confirmations").
			WithArgs(int64(999)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := h.processConfirmationDecision(context.Background(), 999, "approved", "admin", "")
		if !errors.Is(err, ErrConfirmationNotFound) {
			t.Fatalf("expected ErrConfirmationNotFound, got %v", err)
		}
	})

	t.Run("rejection touches neither orders nor mail", func(t *testing.T) {
		h, mock, tg, mailer, resolver := newTestHandlers(t)

		rejectedRow := sqlmock.NewRows(confirmationColumnNames).AddRow(
			int64(42), nil, "ORD-200", "Sari Dewi", "sari@example.com", nil,
			99000.0, "http://localhost:8080/uploads/proof2.jpg", nil, "rejected",
			"Processed by telegram:@owner", nil, nil,
			int64(88), now, now,
		)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE qris_confirmations").
			WithArgs("Processed by telegram:@owner", sqlmock.AnyArg(), int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT (.+) FROM qris_confirmations WHERE id").
			WithArgs(int64(42)).
			WillReturnRows(rejectedRow)
		mock.ExpectCommit()

		conf, err := h.processConfirmationDecision(context.Background(), 42, "rejected", "telegram:@owner", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if conf.Status != "rejected" {
			t.Errorf("expected status rejected, got %s", conf.Status)
		}

		if len(mailer.sent) != 0 {
			t.Errorf("rejection must not send mail, got %d", len(mailer.sent))
		}
		if resolver.calls != 0 {
			t.Errorf("rejection must not resolve links, got %d calls", resolver.calls)
		}
		if len(tg.edits) != 1 || tg.edits[0] != 88 {
			t.Errorf("expected alert caption edit on message 88, got %v", tg.edits)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("approval without a matching order still succeeds", func(t *testing.T) {
		h, mock, _, mailer, _ := newTestHandlers(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE qris_confirmations").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT (.+) FROM qris_confirmations WHERE id").
			WithArgs(int64(7)).
			WillReturnRows(approvedRow(nil, "ORD-404", nil))
		// The order sync matches nothing; with no known order id there is no
		// second attempt and the approval still commits.
		mock.ExpectExec("UPDATE orders SET status = 'paid'").
			WithArgs(sqlmock.AnyArg(), "ORD-404").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		conf, err := h.processConfirmationDecision(context.Background(), 7, "approved", "admin@shop.test", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if conf.Status != "approved" {
			t.Errorf("expected status approved, got %s", conf.Status)
		}
		if len(mailer.sent) != 1 {
			t.Errorf("mail should still be dispatched, got %d", len(mailer.sent))
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}
