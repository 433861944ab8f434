package sheets

import "context"

// StatementRow is one committed ledger movement in export form. Amounts
// travel as decimal strings so no precision is lost on the way out.
type StatementRow struct {
	EventID     string
	Date        string
	Account     string
	Category    string
	Type        string
	Amount      string
	Currency    string
	Description string
}

// Ports for outbound statement adapters.
type (
	// StatementWriter appends rows to an external statement, such as a
	// Google Sheets document.
	StatementWriter interface {
		AppendRows(ctx context.Context, rows []StatementRow) error
	}

	// StatementReader lists the event IDs already present in the
	// statement, so writers can skip rows that were exported before.
	StatementReader interface {
		ExistingEventIDs(ctx context.Context) (map[string]bool, error)
	}
)
