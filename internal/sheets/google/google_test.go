package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewWithOptions(context.Background(), "sheet-id", "Sheet1",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c.SetRetryDelay(time.Millisecond)
	return c
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "id"})
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestCredentialsLoad(t *testing.T) {
	ctx := context.Background()
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	data, err := Credentials{JSON: ` {"type":"service_account"} `}.Load(ctx)
	if err != nil || string(data) != `{"type":"service_account"}` {
		t.Fatalf("inline: %q %v", data, err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	data, err = Credentials{File: path}.Load(ctx)
	if err != nil || string(data) != `{"from":"file"}` {
		t.Fatalf("file: %q %v", data, err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	data, err = Credentials{}.Load(ctx)
	if err != nil || string(data) != `{"from":"file"}` {
		t.Fatalf("adc fallback: %q %v", data, err)
	}

	if _, err := (Credentials{File: filepath.Join(t.TempDir(), "nope.json")}).Load(ctx); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCredentialsClientEmail(t *testing.T) {
	ctx := context.Background()
	email, err := Credentials{JSON: `{"type":"service_account","client_email":"bot@kakeibo.iam.gserviceaccount.com"}`}.ClientEmail(ctx)
	if err != nil || email != "bot@kakeibo.iam.gserviceaccount.com" {
		t.Fatalf("ClientEmail = %q, %v", email, err)
	}
	if _, err := (Credentials{JSON: "not json"}).ClientEmail(ctx); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := (Credentials{JSON: "not json"}).Google(ctx, "scope"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestClientReadAll(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"range":"Sheet1!A1:C3","majorDimension":"ROWS","values":[
			["date","amount","payer"],
			["2024-06-01","1,000","Alice"],
			["2024-06-03"," 500 "]
		]}`)
	})

	rows, err := c.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/values/Sheet1!A:C") {
		t.Errorf("unexpected path %q", gotPath)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %v", rows)
	}
	if rows[1][1] != "1,000" || rows[2][1] != "500" || len(rows[2]) != 2 {
		t.Errorf("unexpected rows %v", rows)
	}
}

func TestClientReadAllEmptySheet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"range":"Sheet1!A1:C1000","majorDimension":"ROWS"}`)
	})
	rows, err := c.ReadAll(context.Background())
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected no rows, got %v err=%v", rows, err)
	}
}

func TestClientClear(t *testing.T) {
	var gotPath, gotMethod string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		fmt.Fprint(w, `{"spreadsheetId":"sheet-id","clearedRange":"Sheet1!A1:C3"}`)
	})
	if err := c.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if gotMethod != http.MethodPost || !strings.HasSuffix(gotPath, "/values/Sheet1:clear") {
		t.Errorf("unexpected request %s %s", gotMethod, gotPath)
	}
}

func TestClientRetriesRateLimited(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"code":429,"message":"quota exceeded"}}`)
			return
		}
		fmt.Fprint(w, `{"values":[["date","amount"]]}`)
	})
	rows, err := c.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if calls.Load() != 2 || len(rows) != 1 {
		t.Fatalf("calls=%d rows=%v", calls.Load(), rows)
	}
}

func TestRetryDelayIsCapped(t *testing.T) {
	calls := 0
	start := time.Now()
	err := retryRateLimited(context.Background(), time.Hour, 10*time.Millisecond, "test", func() error {
		calls++
		return &googleapi.Error{Code: http.StatusTooManyRequests}
	})
	if !IsRateLimited(err) || calls != 3 {
		t.Fatalf("err=%v calls=%d, want the 429 after 3 attempts", err, calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("retries took %v, the per-wait cap was ignored", elapsed)
	}
}

func TestClientDoesNotRetryOtherErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"The caller does not have permission"}}`)
	})
	err := c.Clear(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if IsRateLimited(err) {
		t.Errorf("403 reported as rate limited: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single call, got %d", calls.Load())
	}
}

func TestClientNotInitialized(t *testing.T) {
	c := &Client{}
	if _, err := c.ReadAll(context.Background()); err == nil {
		t.Error("expected error from ReadAll")
	}
	if err := c.Clear(context.Background()); err == nil {
		t.Error("expected error from Clear")
	}
}

func TestQuoteSheet(t *testing.T) {
	cases := map[string]string{
		"Sheet1":     "Sheet1",
		"家計簿":        "家計簿",
		"My Sheet":   "'My Sheet'",
		"Bob's list": "'Bob''s list'",
	}
	for in, want := range cases {
		if got := quoteSheet(in); got != want {
			t.Errorf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}
