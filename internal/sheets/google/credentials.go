package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
)

// Credentials locates a service account key. JSON wins over File; when both
// are empty GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Credentials struct {
	JSON string
	File string
}

var ErrNoCredentials = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")

// Load returns the raw service account key.
func (c Credentials) Load(ctx context.Context) ([]byte, error) {
	inline := strings.TrimSpace(c.JSON)
	file := strings.TrimSpace(c.File)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account credentials file", "path", file, "size", len(data))
		return data, nil
	default:
		return nil, ErrNoCredentials
	}
}

// Google parses the key into oauth2 credentials for scopes.
func (c Credentials) Google(ctx context.Context, scopes ...string) (*googleoauth.Credentials, error) {
	data, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	gc, err := googleoauth.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	return gc, nil
}

// ClientEmail returns the service account address the sheet and archive
// file must be shared with.
func (c Credentials) ClientEmail(ctx context.Context) (string, error) {
	data, err := c.Load(ctx)
	if err != nil {
		return "", err
	}
	var key struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(data, &key); err != nil {
		return "", fmt.Errorf("decode service account key: %w", err)
	}
	return key.ClientEmail, nil
}

// ClientOptions builds the google api options for a service account with the
// given scopes.
func ClientOptions(ctx context.Context, creds Credentials, scopes ...string) ([]goption.ClientOption, error) {
	gc, err := creds.Google(ctx, scopes...)
	if err != nil {
		return nil, err
	}
	return []goption.ClientOption{goption.WithCredentials(gc)}, nil
}
