package memory

import (
	"context"
	"testing"

	"finanzen/internal/core"
)

func TestMemoryStoreExport(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.ExportTransactions(ctx, core.Import{ID: 1}, []core.Transaction{{ImportHash: "a"}, {ImportHash: "b"}})
	if err != nil || ref != "mem:1-2" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}
	ref, err = s.ExportTransactions(ctx, core.Import{ID: 2}, []core.Transaction{{ImportHash: "c"}})
	if err != nil || ref != "mem:3-3" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}

	if s.Rows() != 3 {
		t.Fatalf("expected 3 rows, got %d", s.Rows())
	}
	exports := s.Exports()
	if len(exports) != 2 || exports[1].Import.ID != 2 || exports[1].Transactions[0].ImportHash != "c" {
		t.Fatalf("unexpected exports: %+v", exports)
	}
}

func TestMemoryStoreSkipsEmptyExport(t *testing.T) {
	s := New()
	ref, err := s.ExportTransactions(context.Background(), core.Import{ID: 1}, nil)
	if err != nil || ref != "" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}
	if len(s.Exports()) != 0 {
		t.Fatalf("empty export should not be recorded")
	}
}
