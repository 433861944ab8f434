package memory

import (
	"context"
	"errors"
	"sync"

	"finanzas/internal/sheets"
)

// Store is an in-memory statement used by tests and by local runs
// without a Google spreadsheet. It applies the same event-ID
// de-duplication a real statement gets from ExistingEventIDs.
type Store struct {
	mu   sync.Mutex
	rows []sheets.StatementRow
	ids  map[string]bool

	// FailAppends makes every AppendRows call fail, for retry tests.
	FailAppends bool
}

func New() *Store {
	return &Store{ids: make(map[string]bool)}
}

// AppendRows stores the rows, skipping any event ID seen before.
func (s *Store) AppendRows(_ context.Context, rows []sheets.StatementRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailAppends {
		return errors.New("append rejected")
	}

	for _, row := range rows {
		if row.EventID != "" && s.ids[row.EventID] {
			continue
		}
		s.rows = append(s.rows, row)
		if row.EventID != "" {
			s.ids[row.EventID] = true
		}
	}
	return nil
}

// ExistingEventIDs returns a copy of the stored event IDs.
func (s *Store) ExistingEventIDs(_ context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]bool, len(s.ids))
	for id := range s.ids {
		ids[id] = true
	}
	return ids, nil
}

// Rows returns a copy of the stored statement.
func (s *Store) Rows() []sheets.StatementRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]sheets.StatementRow, len(s.rows))
	copy(out, s.rows)
	return out
}
