// Package line adapts the LINE Messaging API: webhook verification and
// parsing on the way in, replies on the way out.
package line

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// ErrInvalidSignature means the X-Line-Signature header did not match.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// maxReplyLength is the LINE limit for a text message.
const maxReplyLength = 5000

// TextEvent is an inbound text message that can be answered.
type TextEvent struct {
	ReplyToken string
	Text       string
	UserID     string
}

// ParseRequest verifies the signature and returns the text message events of
// the callback. Other event kinds are skipped.
func ParseRequest(channelSecret string, r *http.Request) ([]TextEvent, error) {
	cb, err := webhook.ParseRequest(channelSecret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("parse webhook: %w", err)
	}

	var out []TextEvent
	for _, ev := range cb.Events {
		e, ok := ev.(webhook.MessageEvent)
		if !ok {
			continue
		}
		msg, ok := e.Message.(webhook.TextMessageContent)
		if !ok || e.ReplyToken == "" {
			continue
		}
		out = append(out, TextEvent{
			ReplyToken: e.ReplyToken,
			Text:       msg.Text,
			UserID:     sourceUserID(e.Source),
		})
	}
	return out, nil
}

func sourceUserID(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	default:
		return ""
	}
}

// Client sends replies with a channel access token.
type Client struct {
	api *messaging_api.MessagingApiAPI
}

type Option = messaging_api.MessagingApiAPIOption

// WithEndpoint points the client at another API host, e.g. a test server.
func WithEndpoint(endpoint string) Option {
	return messaging_api.WithEndpoint(endpoint)
}

func NewClient(channelToken string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(channelToken) == "" {
		return nil, errors.New("missing LINE_CHANNEL_ACCESS_TOKEN")
	}
	api, err := messaging_api.NewMessagingApiAPI(channelToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create messaging api client: %w", err)
	}
	return &Client{api: api}, nil
}

// Reply answers a message with a single text bubble. Reply tokens are single
// use, so failures are not retried.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	if r := []rune(text); len(r) > maxReplyLength {
		text = string(r[:maxReplyLength-1]) + "…"
	}
	_, err := c.api.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	})
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}
	return nil
}
