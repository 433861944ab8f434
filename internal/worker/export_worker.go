package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/sheets"
)

// LedgerReader is the slice of the store the export worker needs to
// turn an event envelope back into a full statement row.
type LedgerReader interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
}

// ExportWorker consumes ledger events and mirrors the committed
// transactions into an external statement. Rows are buffered and
// appended in batches, either when the buffer fills or on the flush
// interval. Event IDs already present in the statement are skipped, so
// redelivered events never duplicate rows.
type ExportWorker struct {
	store         LedgerReader
	writer        sheets.StatementWriter
	batchSize     int
	flushInterval time.Duration

	mu       sync.Mutex
	pending  []sheets.StatementRow
	exported map[string]bool
}

func NewExportWorker(store LedgerReader, writer sheets.StatementWriter, batchSize int, flushInterval time.Duration) *ExportWorker {
	if batchSize < 1 {
		batchSize = 1
	}
	return &ExportWorker{
		store:         store,
		writer:        writer,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		exported:      make(map[string]bool),
	}
}

// LoadExported primes the de-duplication set from the statement itself,
// so a restarted worker does not re-append rows it exported before.
func (w *ExportWorker) LoadExported(ctx context.Context) error {
	reader, ok := w.writer.(sheets.StatementReader)
	if !ok {
		return nil
	}

	ids, err := reader.ExistingEventIDs(ctx)
	if err != nil {
		return fmt.Errorf("read exported event IDs: %w", err)
	}

	w.mu.Lock()
	for id := range ids {
		w.exported[id] = true
	}
	w.mu.Unlock()

	slog.InfoContext(ctx, "Loaded exported statement keys", "count", len(ids))
	return nil
}

// HandleEvent turns one ledger event into a statement row. Deleted
// transactions leave no row to export and are acknowledged silently.
// When the buffer reaches the batch size the append runs inline, so an
// append failure propagates and the triggering event is redelivered.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	if ev.EventType == amqp.EventTransactionDeleted {
		slog.DebugContext(ctx, "Skipping deleted transaction",
			log.FieldEventID, ev.EventID,
			log.FieldTransactionID, ev.TransactionID)
		return nil
	}

	row, err := w.buildRow(ctx, ev)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// The row vanished between publish and consume.
			slog.WarnContext(ctx, "Transaction gone before export",
				log.FieldEventID, ev.EventID,
				log.FieldTransactionID, ev.TransactionID)
			return nil
		}
		return err
	}

	w.mu.Lock()
	if w.exported[ev.EventID] {
		w.mu.Unlock()
		slog.DebugContext(ctx, "Event already exported", log.FieldEventID, ev.EventID)
		return nil
	}
	w.exported[ev.EventID] = true
	w.pending = append(w.pending, row)
	full := len(w.pending) >= w.batchSize
	w.mu.Unlock()

	if full {
		return w.Flush(ctx)
	}
	return nil
}

// Flush appends all buffered rows. On failure the rows return to the
// buffer and their event IDs become eligible again.
func (w *ExportWorker) Flush(ctx context.Context) error {
	w.mu.Lock()
	batch := w.pending
	w.pending = nil
	w.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := w.writer.AppendRows(ctx, batch); err != nil {
		w.mu.Lock()
		w.pending = append(batch, w.pending...)
		for _, row := range batch {
			delete(w.exported, row.EventID)
		}
		w.mu.Unlock()
		return fmt.Errorf("append statement batch of %d: %w", len(batch), err)
	}

	slog.InfoContext(ctx, "Statement batch exported", "rows", len(batch))
	return nil
}

// Run flushes the buffer on the configured interval until the context
// ends, then performs a final drain flush.
func (w *ExportWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic statement flush failed", log.FieldError, err)
			}
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := w.Flush(drainCtx); err != nil {
				slog.ErrorContext(drainCtx, "Final statement flush failed", log.FieldError, err)
			}
			return ctx.Err()
		}
	}
}

// Pending returns the number of buffered rows.
func (w *ExportWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *ExportWorker) buildRow(ctx context.Context, ev *amqp.TransactionEvent) (sheets.StatementRow, error) {
	t, err := w.store.GetTransaction(ctx, ev.TransactionID)
	if err != nil {
		return sheets.StatementRow{}, err
	}
	account, err := w.store.GetAccount(ctx, t.AccountID)
	if err != nil {
		return sheets.StatementRow{}, fmt.Errorf("account of transaction %d: %w", t.ID, err)
	}
	category, err := w.store.GetCategory(ctx, t.CategoryID)
	if err != nil {
		return sheets.StatementRow{}, fmt.Errorf("category of transaction %d: %w", t.ID, err)
	}

	return sheets.StatementRow{
		EventID:     ev.EventID,
		Date:        t.Date.String(),
		Account:     account.Name,
		Category:    category.Name,
		Type:        string(t.Type),
		Amount:      t.Amount.String(),
		Currency:    account.Currency,
		Description: t.Description,
	}, nil
}
