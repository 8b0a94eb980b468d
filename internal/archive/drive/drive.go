// Package drive keeps the archive table as an xlsx file in Google Drive.
//
// Drive has no append primitive for file contents, so every save downloads
// the workbook, adds rows and uploads it again. Saves are serialized inside
// the process. The file id is created lazily and written to an IDStore so a
// restart finds the same file.
package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"kakeibo/internal/core"
	ports "kakeibo/internal/sheets"
	"kakeibo/internal/sheets/google"

	"golang.org/x/sync/singleflight"
	"google.golang.org/api/drive/v3"
	goption "google.golang.org/api/option"
)

const DefaultFileName = "kakeibo_archive.xlsx"

// IDStore persists the archive file id.
type IDStore interface {
	ArchiveFileID(ctx context.Context) (string, error)
	SetArchiveFileID(ctx context.Context, id string) error
}

type Config struct {
	FileID      string // pre-provisioned file, takes precedence over the store
	FileName    string
	FolderID    string
	Credentials google.Credentials
}

type Archive struct {
	files    fileStore
	ids      IDStore
	fileName string
	folderID string

	mu     sync.Mutex // serializes read-modify-write cycles
	idMu   sync.Mutex
	fileID string
	loads  singleflight.Group
}

var _ ports.ArchiveTable = (*Archive)(nil)

// New creates a Drive-backed archive. ids may be nil, in which case a lazily
// created file id only lives as long as the process.
func New(ctx context.Context, cfg Config, ids IDStore) (*Archive, error) {
	opts, err := google.ClientOptions(ctx, cfg.Credentials, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("drive credentials: %w", err)
	}
	return NewWithOptions(ctx, cfg, ids, opts...)
}

func NewWithOptions(ctx context.Context, cfg Config, ids IDStore, opts ...goption.ClientOption) (*Archive, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return newArchive(&driveFiles{svc: svc, retryDelay: google.DefaultRetryDelay}, cfg, ids), nil
}

func newArchive(files fileStore, cfg Config, ids IDStore) *Archive {
	name := strings.TrimSpace(cfg.FileName)
	if name == "" {
		name = DefaultFileName
	}
	return &Archive{
		files:    files,
		ids:      ids,
		fileName: name,
		folderID: strings.TrimSpace(cfg.FolderID),
		fileID:   strings.TrimSpace(cfg.FileID),
	}
}

// FileID returns the known archive file id, consulting the store when the
// process has not seen one yet.
func (a *Archive) FileID(ctx context.Context) (string, error) {
	a.idMu.Lock()
	defer a.idMu.Unlock()
	if a.fileID != "" || a.ids == nil {
		return a.fileID, nil
	}
	id, err := a.ids.ArchiveFileID(ctx)
	if err != nil {
		return "", fmt.Errorf("load archive file id: %w", err)
	}
	a.fileID = id
	return id, nil
}

func (a *Archive) setFileID(ctx context.Context, id string) error {
	a.idMu.Lock()
	a.fileID = id
	a.idMu.Unlock()
	if a.ids == nil {
		slog.WarnContext(ctx, "Archive file id is not persisted; set ARCHIVE_FILE_ID to keep it across restarts", "file_id", id)
		return nil
	}
	if err := a.ids.SetArchiveFileID(ctx, id); err != nil {
		return fmt.Errorf("persist archive file id %s: %w", id, err)
	}
	return nil
}

// Append adds rows to the workbook, creating it with the header on first use.
func (a *Archive) Append(ctx context.Context, rows []core.RawRow) (string, error) {
	if len(rows) == 0 {
		return "", errors.New("no rows to append")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	id, err := a.FileID(ctx)
	if err != nil {
		return "", err
	}

	if id == "" {
		data, err := encodeRows(append([]core.RawRow{core.ArchiveHeader}, rows...))
		if err != nil {
			return "", err
		}
		id, err = a.files.Create(ctx, a.fileName, a.folderID, data)
		if err != nil {
			return "", err
		}
		slog.InfoContext(ctx, "Created archive file", "file_id", id, "name", a.fileName, "rows", len(rows))
		// The rows are already archived; a lost id only costs a restart.
		if err := a.setFileID(ctx, id); err != nil {
			slog.WarnContext(ctx, "Archive file id not persisted; set ARCHIVE_FILE_ID to keep it across restarts", "file_id", id, "error", err)
		}
		return id, nil
	}

	// Not through load: a shared download may predate the last Update.
	current, err := a.download(ctx, id)
	if err != nil {
		return "", err
	}
	if len(current) == 0 {
		current = []core.RawRow{core.ArchiveHeader}
	}
	data, err := encodeRows(append(current, rows...))
	if err != nil {
		return "", err
	}
	if err := a.files.Update(ctx, id, data); err != nil {
		return "", err
	}
	a.loads.Forget(id)
	slog.InfoContext(ctx, "Updated archive file", "file_id", id, "appended", len(rows), "total", len(current)-1+len(rows))
	return id, nil
}

// EnsureFile creates a header-only workbook when no archive file exists yet
// and returns the file id.
func (a *Archive) EnsureFile(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, err := a.FileID(ctx)
	if err != nil || id != "" {
		return id, err
	}
	data, err := encodeRows([]core.RawRow{core.ArchiveHeader})
	if err != nil {
		return "", err
	}
	if id, err = a.files.Create(ctx, a.fileName, a.folderID, data); err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Created empty archive file", "file_id", id, "name", a.fileName)
	return id, a.setFileID(ctx, id)
}

// ReadAll downloads the workbook. A missing archive reads as empty.
func (a *Archive) ReadAll(ctx context.Context) ([]core.RawRow, error) {
	id, err := a.FileID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	return a.load(ctx, id)
}

func (a *Archive) download(ctx context.Context, id string) ([]core.RawRow, error) {
	data, err := a.files.Download(ctx, id)
	if err != nil {
		return nil, err
	}
	return decodeRows(data)
}

// load collapses concurrent reads of the same file into one download.
func (a *Archive) load(ctx context.Context, id string) ([]core.RawRow, error) {
	v, err, _ := a.loads.Do(id, func() (interface{}, error) {
		return a.download(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	rows := v.([]core.RawRow)
	out := make([]core.RawRow, len(rows))
	copy(out, rows)
	return out, nil
}
