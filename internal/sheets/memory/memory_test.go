package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"kakeibo/internal/core"
)

func TestLiveReadAllAndClear(t *testing.T) {
	ctx := context.Background()
	l := NewLive(core.ArchiveHeader, core.RawRow{"2024-06-01", "1000", "Alice"})

	rows, err := l.ReadAll(ctx)
	if err != nil || len(rows) != 2 {
		t.Fatalf("unexpected rows: %v err=%v", rows, err)
	}

	// Returned rows are copies.
	rows[1][1] = "0"
	again, _ := l.ReadAll(ctx)
	if again[1][1] != "1000" {
		t.Fatalf("ReadAll leaked internal state: %v", again)
	}

	if err := l.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	rows, _ = l.ReadAll(ctx)
	if len(rows) != 0 {
		t.Fatalf("expected empty table after clear, got %v", rows)
	}

	l.Put(core.RawRow{"date"}, core.RawRow{"2024-06-02", "5"})
	rows, _ = l.ReadAll(ctx)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after put, got %v", rows)
	}
}

func TestArchiveAppendWritesHeaderOnce(t *testing.T) {
	ctx := context.Background()
	a := NewArchive()

	rows, _ := a.ReadAll(ctx)
	if len(rows) != 0 {
		t.Fatalf("new archive should be empty, got %v", rows)
	}

	ref, err := a.Append(ctx, []core.RawRow{{"2024-06-01", "1000", "Alice"}})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	ref, _ = a.Append(ctx, []core.RawRow{{"2024-06-03", "500", ""}, {"2024-06-04", "1", ""}})
	if ref != "mem:3" {
		t.Fatalf("unexpected ref %q", ref)
	}

	rows, _ = a.ReadAll(ctx)
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %v", rows)
	}
	if rows[0][0] != "date" || rows[0][1] != "amount" || rows[0][2] != "payer" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[3][0] != "2024-06-04" {
		t.Fatalf("rows out of order: %v", rows)
	}
}

func TestNewLiveFromFile(t *testing.T) {
	dir := t.TempDir()
	if l := NewLiveFromFile(filepath.Join(dir, "missing.csv")); l == nil {
		t.Fatal("expected empty table for missing file")
	}

	path := filepath.Join(dir, "seed.csv")
	content := "# seed\ndate,amount,payer\n\n2024-06-01, 1000 ,Alice\n2024-06-02,500\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rows, _ := NewLiveFromFile(path).ReadAll(context.Background())
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %v", rows)
	}
	if rows[1][1] != "1000" || len(rows[2]) != 2 {
		t.Fatalf("unexpected rows: %v", rows)
	}
}
