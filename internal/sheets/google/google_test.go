package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ports "finanzas/internal/sheets"
)

func TestNewRejectsIncompleteOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{
			name:    "missing spreadsheet",
			opts:    Options{SheetName: "Movimientos"},
			wantErr: "spreadsheet",
		},
		{
			name:    "missing sheet name",
			opts:    Options{SpreadsheetID: "abc"},
			wantErr: "sheet name",
		},
		{
			name:    "missing credentials",
			opts:    Options{SpreadsheetID: "abc", SheetName: "Movimientos"},
			wantErr: "OAuth client",
		},
		{
			name: "missing token",
			opts: Options{
				SpreadsheetID:   "abc",
				SheetName:       "Movimientos",
				OAuthClientJSON: `{"installed":{"client_id":"x","client_secret":"y","redirect_uris":["http://localhost"],"auth_uri":"https://a","token_uri":"https://t"}}`,
			},
			wantErr: "OAuth token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.opts)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadJSONPrefersInline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := loadJSON(`{"from":"inline"}`, path)
	if err != nil {
		t.Fatalf("loadJSON: %v", err)
	}
	if string(got) != `{"from":"inline"}` {
		t.Errorf("inline JSON should win over file, got %s", got)
	}

	got, err = loadJSON("", path)
	if err != nil {
		t.Fatalf("loadJSON from file: %v", err)
	}
	if string(got) != `{"from":"file"}` {
		t.Errorf("expected file contents, got %s", got)
	}

	if _, err := loadJSON("", ""); err == nil {
		t.Error("expected error when neither source is provided")
	}
}

func TestRowValuesColumnOrder(t *testing.T) {
	row := ports.StatementRow{
		EventID:     "ev-1",
		Date:        "2026-03-15",
		Account:     "Cuenta Nómina",
		Category:    "Alimentación",
		Type:        "expense",
		Amount:      "125000.00",
		Currency:    "COP",
		Description: "Mercado semanal",
	}

	got := rowValues(row)
	want := []any{"ev-1", "2026-03-15", "Cuenta Nómina", "Alimentación", "expense", "125000.00", "COP", "Mercado semanal"}
	if len(got) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
