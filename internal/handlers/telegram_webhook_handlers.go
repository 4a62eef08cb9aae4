package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

//
// --- Telegram Webhook Handler ---
//

// telegramUpdate is the slice of the Bot API update envelope we care about.
type telegramUpdate struct {
	UpdateID      int64          `json:"update_id"`
	CallbackQuery *callbackQuery `json:"callback_query"`
}

// callbackQuery is an inline-button press forwarded by the bot platform.
type callbackQuery struct {
	ID   string `json:"id"`
	From struct {
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
	} `json:"from"`
	Message *struct {
		MessageID int64 `json:"message_id"`
	} `json:"message"`
	Data string `json:"data"`
}

// parseCallbackData turns the raw "<approve|reject>_<confirmationId>" button
// token into a typed decision at the transport boundary. Nothing past this
// function ever sees the raw string.
func parseCallbackData(data string) (decision string, confirmationID int64, err error) {
	action, rawID, found := strings.Cut(data, "_")
	if !found {
		return "", 0, fmt.Errorf("unrecognized callback data %q", data)
	}

	switch action {
	case "approve":
		decision = "approved"
	case "reject":
		decision = "rejected"
	default:
		return "", 0, fmt.Errorf("unrecognized callback action %q", action)
	}

	confirmationID, err = strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid confirmation id in callback data %q", data)
	}

	return decision, confirmationID, nil
}

// HandleTelegramWebhook is the handler for POST /v1/telegram/webhook, the
// bot-side entry point into the decision state machine.
//
// The platform contract is to always answer {"ok":true}: returning an error
// status would make Telegram redeliver the update, and a decision that
// failed here can still be made from the admin console. The human-facing
// outcome travels through answerCallbackQuery instead.
func (h *Handlers) HandleTelegramWebhook(c *gin.Context) {
	// 1. --- Decode the Update ---
	var update telegramUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		log.Printf("WARNING: undecodable Telegram update: %v", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	// Only inline-button presses matter here; other update kinds
	// (messages, edits) are acknowledged and dropped.
	if update.CallbackQuery == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	cq := update.CallbackQuery

	// 2. --- Parse the Button Token ---
	decision, confirmationID, err := parseCallbackData(cq.Data)
	if err != nil {
		log.Printf("WARNING: %v", err)
		h.Telegram.AnswerCallback(cq.ID, "Unrecognized action.", true)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	// 3. --- Run the State Machine ---
	actor := "telegram-bot"
	if cq.From.Username != "" {
		actor = "telegram:@" + cq.From.Username
	}

	_, err = h.processConfirmationDecision(c.Request.Context(), confirmationID, decision, actor, "")

	// 4. --- Acknowledge the Callback ---
	// Exactly once per callback, whatever happened: the approver must learn
	// whether their press was the one that stuck.
	var answer string
	switch {
	case err == nil && decision == "approved":
		answer = "Payment approved ✅ Download links are on their way."
	case err == nil:
		answer = "Payment rejected ❌"
	case errors.Is(err, ErrAlreadyProcessed):
		answer = "This confirmation was already processed."
	case errors.Is(err, ErrConfirmationNotFound):
		answer = "Confirmation not found."
	default:
		log.Printf("WARNING: Telegram decision for confirmation %d failed: %v", confirmationID, err)
		answer = "Something went wrong. Please use the admin console."
	}

	if res := h.Telegram.AnswerCallback(cq.ID, answer, false); !res.Success {
		log.Printf("WARNING: failed to answer callback %s: %s", cq.ID, res.Error)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
