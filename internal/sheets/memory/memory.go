package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"kakeibo/internal/core"
	ports "kakeibo/internal/sheets"
)

var (
	_ ports.LiveTable    = (*Live)(nil)
	_ ports.ArchiveTable = (*Archive)(nil)
)

// Live is an in-process live table.
type Live struct {
	mu   sync.Mutex
	rows []core.RawRow
}

func NewLive(rows ...core.RawRow) *Live {
	return &Live{rows: cloneRows(rows)}
}

// NewLiveFromFile seeds a live table from a comma separated file, one row per
// line. Blank lines and lines starting with "#" are skipped. A missing file
// yields an empty table.
func NewLiveFromFile(path string) *Live {
	return NewLive(readRows(path)...)
}

func (l *Live) ReadAll(_ context.Context) ([]core.RawRow, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneRows(l.rows), nil
}

func (l *Live) Clear(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = nil
	return nil
}

// Put appends rows as a person editing the sheet would.
func (l *Live) Put(rows ...core.RawRow) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, cloneRows(rows)...)
}

// Archive is an in-process archive table.
type Archive struct {
	mu   sync.Mutex
	rows []core.RawRow
}

func NewArchive() *Archive {
	return &Archive{}
}

// Append stores rows and returns a synthetic reference.
func (a *Archive) Append(_ context.Context, rows []core.RawRow) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.rows) == 0 {
		a.rows = append(a.rows, append(core.RawRow(nil), core.ArchiveHeader...))
	}
	a.rows = append(a.rows, cloneRows(rows)...)
	return fmt.Sprintf("mem:%d", len(a.rows)-1), nil
}

func (a *Archive) ReadAll(_ context.Context) ([]core.RawRow, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneRows(a.rows), nil
}

func cloneRows(in []core.RawRow) []core.RawRow {
	if len(in) == 0 {
		return nil
	}
	out := make([]core.RawRow, len(in))
	for i, r := range in {
		out[i] = append(core.RawRow(nil), r...)
	}
	return out
}

func readRows(path string) []core.RawRow {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.RawRow
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cells := strings.Split(line, ",")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		out = append(out, core.RawRow(cells))
	}
	return out
}
