package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"kakeibo/internal/sheets/google"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// fileStore is the subset of Drive the archive needs.
type fileStore interface {
	Download(ctx context.Context, id string) ([]byte, error)
	Create(ctx context.Context, name, folderID string, data []byte) (string, error)
	Update(ctx context.Context, id string, data []byte) error
}

type driveFiles struct {
	svc        *drive.Service
	retryDelay time.Duration
}

func (d *driveFiles) Download(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := google.RetryRateLimited(ctx, d.retryDelay, "drive.download", func() error {
		resp, err := d.svc.Files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", id, err)
	}
	return data, nil
}

func (d *driveFiles) Create(ctx context.Context, name, folderID string, data []byte) (string, error) {
	meta := &drive.File{Name: name, MimeType: xlsxMimeType}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}
	var id string
	err := google.RetryRateLimited(ctx, d.retryDelay, "drive.create", func() error {
		f, err := d.svc.Files.Create(meta).
			Media(bytes.NewReader(data), googleapi.ContentType(xlsxMimeType)).
			Fields("id").
			SupportsAllDrives(true).
			Context(ctx).Do()
		if err != nil {
			return err
		}
		id = f.Id
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	return id, nil
}

func (d *driveFiles) Update(ctx context.Context, id string, data []byte) error {
	err := google.RetryRateLimited(ctx, d.retryDelay, "drive.update", func() error {
		_, err := d.svc.Files.Update(id, &drive.File{}).
			Media(bytes.NewReader(data), googleapi.ContentType(xlsxMimeType)).
			Fields("id").
			SupportsAllDrives(true).
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", id, err)
	}
	return nil
}
