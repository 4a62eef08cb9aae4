package handlers

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/rakhadenta/digistore-golang/internal/models"
	"github.com/rakhadenta/digistore-golang/internal/telegram"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeTelegram records gateway calls and answers with canned results.
type fakeTelegram struct {
	sendResult telegram.Result

	messages []string
	photos   []string
	answers  []string
	edits    []int64
}

func (f *fakeTelegram) SendMessage(text string, opts *telegram.SendOptions) telegram.Result {
	f.messages = append(f.messages, text)
	return f.sendResult
}

func (f *fakeTelegram) SendPhoto(photoURL, caption string, buttons [][]telegram.InlineButton) telegram.Result {
	f.photos = append(f.photos, photoURL)
	return f.sendResult
}

func (f *fakeTelegram) AnswerCallback(callbackID, text string, showAlert bool) telegram.Result {
	f.answers = append(f.answers, text)
	return telegram.Result{Success: true}
}

func (f *fakeTelegram) EditMessageCaption(messageID int64, caption string) telegram.Result {
	f.edits = append(f.edits, messageID)
	return telegram.Result{Success: true}
}

type sentMail struct {
	To          string
	OrderNumber string
	Amount      float64
	Links       []models.DownloadLink
}

// fakeMailer records every delivery mail.
type fakeMailer struct {
	sent []sentMail
}

func (f *fakeMailer) SendDownloadLinks(to, customerName, orderNumber string, amount float64, links []models.DownloadLink) error {
	f.sent = append(f.sent, sentMail{To: to, OrderNumber: orderNumber, Amount: amount, Links: links})
	return nil
}

// fakeResolver returns a fixed link list.
type fakeResolver struct {
	links []models.DownloadLink
	calls int
}

func (f *fakeResolver) ResolveDownloadLinks(ctx context.Context, orderID *int64, orderNumber string) []models.DownloadLink {
	f.calls++
	return f.links
}

// newTestHandlers wires a Handlers struct around sqlmock and the fakes.
func newTestHandlers(t *testing.T) (*Handlers, sqlmock.Sqlmock, *fakeTelegram, *fakeMailer, *fakeResolver) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tg := &fakeTelegram{sendResult: telegram.Result{Success: true, MessageID: 77}}
	mailer := &fakeMailer{}
	resolver := &fakeResolver{}

	h := &Handlers{
		DB:       db,
		Telegram: tg,
		Mailer:   mailer,
		Resolver: resolver,
	}
	return h, mock, tg, mailer, resolver
}

// confirmationColumnNames matches the scan order of scanConfirmation.
var confirmationColumnNames = []string{
	"id", "order_id", "order_number", "customer_name", "customer_email", "customer_phone",
	"amount", "proof_image", "notes", "status", "admin_notes", "approved_at", "approved_by",
	"telegram_message_id", "created_at", "updated_at",
}
