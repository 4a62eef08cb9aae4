package handlers

import (
	"context"
	"database/sql"

	"github.com/rakhadenta/digistore-golang/internal/models"
	"github.com/rakhadenta/digistore-golang/internal/telegram"
)

// TelegramGateway is the slice of the bot-messaging client the handlers
// need. All calls are fire-and-forget: they return a Result, never an error.
type TelegramGateway interface {
	SendMessage(text string, opts *telegram.SendOptions) telegram.Result
	SendPhoto(photoURL, caption string, buttons [][]telegram.InlineButton) telegram.Result
	AnswerCallback(callbackID, text string, showAlert bool) telegram.Result
	EditMessageCaption(messageID int64, caption string) telegram.Result
}

// Mailer sends the download-link delivery mail after an approval.
type Mailer interface {
	SendDownloadLinks(to, customerName, orderNumber string, amount float64, links []models.DownloadLink) error
}

// LinkResolver produces the deliverable download links for an order.
type LinkResolver interface {
	ResolveDownloadLinks(ctx context.Context, orderID *int64, orderNumber string) []models.DownloadLink
}

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB       *sql.DB
	Telegram TelegramGateway
	Mailer   Mailer
	Resolver LinkResolver
}
