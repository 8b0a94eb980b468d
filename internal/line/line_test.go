package line

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const testSecret = "channel-secret"

const callbackBody = `{
  "destination": "Ubot",
  "events": [
    {
      "type": "message",
      "mode": "active",
      "timestamp": 1718409600000,
      "webhookEventId": "01HZZZ0000000000000000001",
      "deliveryContext": {"isRedelivery": false},
      "replyToken": "reply-1",
      "source": {"type": "user", "userId": "U1"},
      "message": {"type": "text", "id": "1001", "quoteToken": "q1", "text": "today"}
    },
    {
      "type": "follow",
      "mode": "active",
      "timestamp": 1718409600001,
      "webhookEventId": "01HZZZ0000000000000000002",
      "deliveryContext": {"isRedelivery": false},
      "replyToken": "reply-2",
      "source": {"type": "user", "userId": "U2"},
      "follow": {"isUnblocked": false}
    },
    {
      "type": "message",
      "mode": "active",
      "timestamp": 1718409600002,
      "webhookEventId": "01HZZZ0000000000000000003",
      "deliveryContext": {"isRedelivery": false},
      "replyToken": "reply-3",
      "source": {"type": "group", "groupId": "G1", "userId": "U3"},
      "message": {"type": "text", "id": "1002", "quoteToken": "q3", "text": " save "}
    }
  ]
}`

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newRequest(body, signature string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if signature != "" {
		r.Header.Set("X-Line-Signature", signature)
	}
	return r
}

func TestParseRequest(t *testing.T) {
	events, err := ParseRequest(testSecret, newRequest(callbackBody, sign(testSecret, []byte(callbackBody))))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 text events, got %+v", events)
	}
	if events[0].ReplyToken != "reply-1" || events[0].Text != "today" || events[0].UserID != "U1" {
		t.Errorf("unexpected first event %+v", events[0])
	}
	if events[1].ReplyToken != "reply-3" || events[1].Text != " save " || events[1].UserID != "U3" {
		t.Errorf("unexpected second event %+v", events[1])
	}
}

func TestParseRequestRejectsBadSignature(t *testing.T) {
	for name, sig := range map[string]string{
		"missing":     "",
		"wrong key":   sign("other-secret", []byte(callbackBody)),
		"not base64":  "!!!",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRequest(testSecret, newRequest(callbackBody, sig))
			if !errors.Is(err, ErrInvalidSignature) {
				t.Fatalf("expected ErrInvalidSignature, got %v", err)
			}
		})
	}
}

func TestParseRequestMalformedBody(t *testing.T) {
	body := `{"events": [`
	_, err := ParseRequest(testSecret, newRequest(body, sign(testSecret, []byte(body))))
	if err == nil || errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected a parse error, got %v", err)
	}
}

func TestClientReply(t *testing.T) {
	var gotAuth, gotPath string
	var got struct {
		ReplyToken string `json:"replyToken"`
		Messages   []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth, gotPath = r.Header.Get("Authorization"), r.URL.Path
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode body %s: %v", body, err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sentMessages":[{"id":"1","quoteToken":"q"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient("token-123", WithEndpoint(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Reply(context.Background(), "reply-1", "今日の合計: ¥1,000"); err != nil {
		t.Fatalf("Reply: %v", err)
	}

	if gotAuth != "Bearer token-123" || gotPath != "/v2/bot/message/reply" {
		t.Errorf("auth=%q path=%q", gotAuth, gotPath)
	}
	if got.ReplyToken != "reply-1" || len(got.Messages) != 1 || got.Messages[0].Type != "text" || got.Messages[0].Text != "今日の合計: ¥1,000" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestClientReplyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Invalid reply token"}`))
	}))
	defer srv.Close()

	c, _ := NewClient("token", WithEndpoint(srv.URL))
	if err := c.Reply(context.Background(), "expired", "hi"); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient(" "); err == nil {
		t.Fatal("expected error")
	}
}

func TestReplyTruncatesLongText(t *testing.T) {
	var size int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct{ Text string } `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		size = len([]rune(body.Messages[0].Text))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, _ := NewClient("token", WithEndpoint(srv.URL))
	long := string(bytes.Repeat([]byte("a"), maxReplyLength+10))
	if err := c.Reply(context.Background(), "r", long); err != nil {
		t.Fatal(err)
	}
	if size != maxReplyLength {
		t.Fatalf("reply length = %d, want %d", size, maxReplyLength)
	}
}
