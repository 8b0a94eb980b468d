package sheets

import (
	"context"

	"kakeibo/internal/core"
)

// Ports for outbound adapters.
type (
	// LiveTable is the worksheet people type new expenses into.
	LiveTable interface {
		// ReadAll returns every row including the header. An empty sheet
		// returns no rows and no error.
		ReadAll(ctx context.Context) ([]core.RawRow, error)
		// Clear removes all rows, header included.
		Clear(ctx context.Context) error
	}

	// ArchiveTable accumulates rows moved out of the live table.
	ArchiveTable interface {
		// Append adds rows in order, creating the archive with
		// core.ArchiveHeader when it does not exist yet. The returned
		// reference identifies where the rows landed (file id, table name).
		Append(ctx context.Context, rows []core.RawRow) (ref string, err error)
		// ReadAll returns the archive contents with the header as first row.
		ReadAll(ctx context.Context) ([]core.RawRow, error)
	}
)
