package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/rakhadenta/digistore-golang/internal/models"
	"github.com/rakhadenta/digistore-golang/internal/telegram"
)

func postConfirmation(h *Handlers, body string) *httptest.ResponseRecorder {
	router := gin.New()
	router.POST("/v1/qris-confirmation", h.SubmitConfirmation)

	req := httptest.NewRequest(http.MethodPost, "/v1/qris-confirmation", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitConfirmation(t *testing.T) {
	validBody := `{
		"orderNumber": "ORD-100",
		"customerName": "Budi Santoso",
		"customerEmail": "budi@example.com",
		"amount": 150000,
		"proofImage": "http://localhost:8080/uploads/proof.jpg"
	}`

	t.Run("records the submission and alerts the operators", func(t *testing.T) {
		h, mock, tg, _, _ := newTestHandlers(t)

		mock.ExpectQuery("SELECT id FROM orders WHERE order_number").
			WithArgs("ORD-100").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
		mock.ExpectExec("INSERT INTO qris_confirmations").
			WillReturnResult(sqlmock.NewResult(10, 1))
		mock.ExpectQuery("SELECT id FROM users WHERE role = 'administrator'").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
		mock.ExpectExec("INSERT INTO notifications").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE qris_confirmations SET telegram_message_id").
			WithArgs(int64(77), int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		rec := postConfirmation(h, validBody)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"success":true`) {
			t.Errorf("expected success:true, got %s", rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"orderId":5`) {
			t.Errorf("expected the order to be correlated, got %s", rec.Body.String())
		}
		if len(tg.photos) != 1 {
			t.Errorf("expected one Telegram photo alert, got %d", len(tg.photos))
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("unknown order number is tolerated", func(t *testing.T) {
		h, mock, _, _, _ := newTestHandlers(t)

		body := strings.Replace(validBody, "ORD-100", "ORD-404", 1)

		mock.ExpectQuery("SELECT id FROM orders WHERE order_number").
			WithArgs("ORD-404").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectExec("INSERT INTO qris_confirmations").
			WithArgs(nil, "ORD-404", "Budi Santoso", "budi@example.com", nil,
				150000.0, "http://localhost:8080/uploads/proof.jpg", nil,
				sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(11, 1))
		mock.ExpectQuery("SELECT id FROM users WHERE role = 'administrator'").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec("UPDATE qris_confirmations SET telegram_message_id").
			WithArgs(int64(77), int64(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		rec := postConfirmation(h, body)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("telegram outage does not fail the submission", func(t *testing.T) {
		h, mock, tg, _, _ := newTestHandlers(t)
		tg.sendResult = telegram.Result{Success: false, Error: "sendPhoto: HTTP 502"}

		mock.ExpectQuery("SELECT id FROM orders WHERE order_number").
			WithArgs("ORD-100").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
		mock.ExpectExec("INSERT INTO qris_confirmations").
			WillReturnResult(sqlmock.NewResult(12, 1))
		mock.ExpectQuery("SELECT id FROM users WHERE role = 'administrator'").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		// No telegram_message_id update: the send failed.

		rec := postConfirmation(h, validBody)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 despite the Telegram outage, got %d", rec.Code)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("rejects an invalid payload before touching storage", func(t *testing.T) {
		h, mock, _, _, _ := newTestHandlers(t)

		rec := postConfirmation(h, `{"orderNumber": "ORD-100", "amount": 150000}`)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("no queries may run for an invalid payload: %v", err)
		}
	})
}

func TestRemindPendingConfirmations(t *testing.T) {
	t.Run("stale pending confirmations trigger a chat reminder", func(t *testing.T) {
		h, mock, tg, _, _ := newTestHandlers(t)

		mock.ExpectQuery("SELECT COUNT(.+) FROM qris_confirmations WHERE status = 'pending'").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		h.RemindPendingConfirmations()

		if len(tg.messages) != 1 || !strings.Contains(tg.messages[0], "3") {
			t.Errorf("expected one reminder naming 3 confirmations, got %v", tg.messages)
		}
	})

	t.Run("nothing pending means no reminder", func(t *testing.T) {
		h, mock, tg, _, _ := newTestHandlers(t)

		mock.ExpectQuery("SELECT COUNT(.+) FROM qris_confirmations WHERE status = 'pending'").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		h.RemindPendingConfirmations()

		if len(tg.messages) != 0 {
			t.Errorf("expected no reminder, got %v", tg.messages)
		}
	})
}

func TestGetConfirmationsByOrderNumber(t *testing.T) {
	t.Run("approved confirmation carries download links", func(t *testing.T) {
		h, mock, _, _, resolver := newTestHandlers(t)
		resolver.links = []models.DownloadLink{{Title: "E-Book", URL: "https://cdn.example.com/ebook.pdf"}}
		now := time.Now()

		mock.ExpectQuery("SELECT (.+) FROM qris_confirmations").
			WithArgs("ORD-100").
			WillReturnRows(sqlmock.NewRows(confirmationColumnNames).AddRow(
				int64(7), int64(5), "ORD-100", "Budi Santoso", "budi@example.com", nil,
				150000.0, "http://localhost:8080/uploads/proof.jpg", nil, "approved",
				"Processed by admin@shop.test", now, "admin@shop.test", int64(42), now, now,
			))

		router := gin.New()
		router.GET("/v1/qris-confirmation", h.GetConfirmationsByOrderNumber)
		req := httptest.NewRequest(http.MethodGet, "/v1/qris-confirmation?orderNumber=ORD-100", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "ebook.pdf") {
			t.Errorf("expected download links in the response, got %s", rec.Body.String())
		}
		if resolver.calls != 1 {
			t.Errorf("expected one resolver call, got %d", resolver.calls)
		}
	})

	t.Run("missing orderNumber is a validation error", func(t *testing.T) {
		h, _, _, _, _ := newTestHandlers(t)

		router := gin.New()
		router.GET("/v1/qris-confirmation", h.GetConfirmationsByOrderNumber)
		req := httptest.NewRequest(http.MethodGet, "/v1/qris-confirmation", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}
