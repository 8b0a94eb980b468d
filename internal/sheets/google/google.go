package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kakeibo/internal/core"
	ports "kakeibo/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client reads and clears the live worksheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	retryDelay    time.Duration
}

var _ ports.LiveTable = (*Client)(nil)

type Config struct {
	SpreadsheetID string
	SheetName     string // default "Sheet1"
	Credentials   Credentials
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	opts, err := ClientOptions(ctx, cfg.Credentials, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("sheets credentials: %w", err)
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.SpreadsheetID, "sheet", cfg.SheetName)
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithOptions builds a client from explicit api options, e.g. a test
// endpoint.
func NewWithOptions(ctx context.Context, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, sheetName), nil
}

func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Sheet1"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		retryDelay:    DefaultRetryDelay,
	}
}

// SetRetryDelay changes the wait between rate-limited attempts.
func (c *Client) SetRetryDelay(d time.Duration) { c.retryDelay = d }

// ReadAll returns columns A:C of the worksheet as displayed in the sheet.
func (c *Client) ReadAll(ctx context.Context) ([]core.RawRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := c.rangeOf("A:C")
	var resp *gsheet.ValueRange
	err := RetryRateLimited(ctx, c.retryDelay, "sheets.read", func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
			ValueRenderOption("FORMATTED_VALUE").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]core.RawRow, 0, len(resp.Values))
	for _, row := range resp.Values {
		out = append(out, toStrings(row))
	}
	return out, nil
}

// Clear removes every value from the worksheet, header included.
func (c *Client) Clear(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := quoteSheet(c.sheetName)
	err := RetryRateLimited(ctx, c.retryDelay, "sheets.clear", func() error {
		_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) rangeOf(cols string) string {
	return quoteSheet(c.sheetName) + "!" + cols
}

// quoteSheet wraps names that A1 notation would otherwise misread.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!:") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

func toStrings(in []interface{}) core.RawRow {
	out := make(core.RawRow, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
