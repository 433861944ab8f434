package memory

import (
	"context"
	"testing"

	"finanzas/internal/sheets"
)

func TestAppendRowsDeduplicatesByEventID(t *testing.T) {
	s := New()
	ctx := context.Background()

	rows := []sheets.StatementRow{
		{EventID: "ev-1", Amount: "100.00"},
		{EventID: "ev-2", Amount: "50.00"},
	}
	if err := s.AppendRows(ctx, rows); err != nil {
		t.Fatalf("AppendRows: %v", err)
	}
	// Same batch again: both rows already exported.
	if err := s.AppendRows(ctx, rows); err != nil {
		t.Fatalf("AppendRows repeat: %v", err)
	}

	if got := len(s.Rows()); got != 2 {
		t.Errorf("expected 2 rows after duplicate append, got %d", got)
	}

	ids, err := s.ExistingEventIDs(ctx)
	if err != nil {
		t.Fatalf("ExistingEventIDs: %v", err)
	}
	if !ids["ev-1"] || !ids["ev-2"] {
		t.Errorf("expected both event IDs recorded, got %v", ids)
	}
}

func TestAppendRowsFailureStoresNothing(t *testing.T) {
	s := New()
	s.FailAppends = true

	err := s.AppendRows(context.Background(), []sheets.StatementRow{{EventID: "ev-1"}})
	if err == nil {
		t.Fatal("expected append failure")
	}
	if got := len(s.Rows()); got != 0 {
		t.Errorf("failed append must store nothing, got %d rows", got)
	}
}
