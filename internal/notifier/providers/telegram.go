package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ibeckermayer/kudos4me/internal/digest"
)

// TelegramSender posts run messages to a chat through the Bot API
type TelegramSender struct {
	client *resty.Client
	token  string
	chatID string
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegramSender creates a sender for the bot token and chat
func NewTelegramSender(apiURL, token, chatID string) *TelegramSender {
	client := resty.New().
		SetBaseURL(strings.TrimRight(apiURL, "/")).
		SetTimeout(15 * time.Second)
	return &TelegramSender{client: client, token: token, chatID: chatID}
}

func (t *TelegramSender) Name() string { return "telegram" }

// Send posts the plain-text body of d
func (t *TelegramSender) Send(ctx context.Context, d *digest.Digest) error {
	var out telegramResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"chat_id": t.chatID,
			"text":    d.PlainBody,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/bot" + t.token + "/sendMessage")
	if err != nil {
		return t.redact(err)
	}
	if resp.IsError() || !out.OK {
		return fmt.Errorf("telegram rejected message (%d): %s", resp.StatusCode(), out.Description)
	}
	return nil
}

// redact keeps the bot token out of transport errors, which embed the URL.
func (t *TelegramSender) redact(err error) error {
	if t.token == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), t.token, "<token>"))
}
