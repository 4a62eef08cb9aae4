package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Result is the outcome of a single Bot API call.
// The gateway is fire-and-forget by contract: callers get a Result, never an
// error, so a messaging outage can never abort a business transaction.
type Result struct {
	Success   bool
	MessageID int64 // Set on sendMessage/sendPhoto when the API returns a message
	Error     string
}

// InlineButton is one button of an inline keyboard. Exactly one of
// CallbackData or URL should be set.
type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// SendOptions are the optional knobs for SendMessage.
type SendOptions struct {
	ParseMode string // e.g. "HTML" or "Markdown"
	Buttons   [][]InlineButton
}

// Client is a thin wrapper around the Telegram Bot HTTP API.
// An empty bot token disables the client entirely: every call returns a
// failed Result without touching the network.
type Client struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
}

// NewClient builds a client against the real Bot API endpoint.
func NewClient(token, chatID string) *Client {
	return NewClientWithBase(token, chatID, "https://api.telegram.org", &http.Client{Timeout: 10 * time.Second})
}

// NewClientWithBase allows pointing the client at a different API base
// (used by tests to target a local fake server).
func NewClientWithBase(token, chatID, apiBase string, httpClient *http.Client) *Client {
	return &Client{
		token:   token,
		chatID:  chatID,
		apiBase: apiBase,
		client:  httpClient,
	}
}

// SendMessage sends a plain text message to the configured admin chat.
func (c *Client) SendMessage(text string, opts *SendOptions) Result {
	payload := map[string]interface{}{
		"chat_id": c.chatID,
		"text":    text,
	}
	if opts != nil {
		if opts.ParseMode != "" {
			payload["parse_mode"] = opts.ParseMode
		}
		if len(opts.Buttons) > 0 {
			payload["reply_markup"] = map[string]interface{}{"inline_keyboard": opts.Buttons}
		}
	}
	return c.call("sendMessage", payload)
}

// SendPhoto sends a photo (by URL) with a caption and an optional inline
// keyboard to the configured admin chat.
func (c *Client) SendPhoto(photoURL, caption string, buttons [][]InlineButton) Result {
	payload := map[string]interface{}{
		"chat_id": c.chatID,
		"photo":   photoURL,
		"caption": caption,
	}
	if len(buttons) > 0 {
		payload["reply_markup"] = map[string]interface{}{"inline_keyboard": buttons}
	}
	return c.call("sendPhoto", payload)
}

// AnswerCallback acknowledges a callback query so the pressed button stops
// showing a spinner. Must be called once per received callback, whatever the
// business outcome was.
func (c *Client) AnswerCallback(callbackID, text string, showAlert bool) Result {
	payload := map[string]interface{}{
		"callback_query_id": callbackID,
	}
	if text != "" {
		payload["text"] = text
	}
	if showAlert {
		payload["show_alert"] = true
	}
	return c.call("answerCallbackQuery", payload)
}

// EditMessageCaption rewrites the caption of a previously sent photo message
// in place (used to stamp the final decision onto the original alert).
func (c *Client) EditMessageCaption(messageID int64, caption string) Result {
	payload := map[string]interface{}{
		"chat_id":    c.chatID,
		"message_id": messageID,
		"caption":    caption,
	}
	return c.call("editMessageCaption", payload)
}

// call posts one Bot API method and maps every possible failure (transport,
// non-2xx, ok:false envelope) into a failed Result.
func (c *Client) call(method string, payload interface{}) Result {
	if c.token == "" {
		return Result{Success: false, Error: "telegram disabled: no bot token configured"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("marshal %s payload: %v", method, err)}
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
	resp, err := c.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("%s request failed: %v", method, err)}
	}
	defer resp.Body.Close()

	// The Bot API wraps everything in an {ok, result, description} envelope.
	// 'result' is a message object for sends and a bare boolean for
	// answerCallbackQuery, so it is decoded lazily.
	var envelope struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("%s: invalid response (HTTP %d): %v", method, resp.StatusCode, err)}
	}

	if !envelope.OK {
		msg := envelope.Description
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return Result{Success: false, Error: fmt.Sprintf("%s: %s", method, msg)}
	}

	result := Result{Success: true}
	var message struct {
		MessageID int64 `json:"message_id"`
	}
	if len(envelope.Result) > 0 && json.Unmarshal(envelope.Result, &message) == nil {
		result.MessageID = message.MessageID
	}
	return result
}
