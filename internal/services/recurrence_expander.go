package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/storage"
)

// maxOccurrencesPerScan bounds how far one scan catches a template up.
// A daily template that sat unprocessed for years would otherwise keep a
// scan busy indefinitely; the next scan continues where this one stopped.
const maxOccurrencesPerScan = 366

// RecurrenceExpander materializes recurring templates into concrete
// child transactions. Each materialization runs through the
// LedgerSynchronizer like any user-created transaction.
//
// A template loops active -> expanded -> active until the next computed
// occurrence passes its end date, which moves it to ended for good.
type RecurrenceExpander struct {
	repo   Repository
	ledger *LedgerSynchronizer
}

func NewRecurrenceExpander(repo Repository, ledger *LedgerSynchronizer) *RecurrenceExpander {
	return &RecurrenceExpander{
		repo:   repo,
		ledger: ledger,
	}
}

// NextOccurrenceDate computes the occurrence that follows current for
// the given template. Pass the zero date to advance from the template's
// own date (nothing materialized yet). Pure calendar arithmetic; safe
// for previews.
//
// The template's original date stays the anchor for monthly and yearly
// clamping: a template dated Jan 31 yields Feb 28, then Mar 31.
func (e *RecurrenceExpander) NextOccurrenceDate(template core.Transaction, current core.Date) (core.Date, error) {
	if !template.Recurrent {
		return core.Date{}, &core.InvalidRecurrenceError{TemplateID: template.ID, Reason: "not a recurring template"}
	}
	if template.Frequency == "" {
		return core.Date{}, &core.InvalidRecurrenceError{TemplateID: template.ID, Reason: "missing frequency"}
	}

	advancer, err := GetOccurrenceAdvancer(template.Frequency)
	if err != nil {
		return core.Date{}, &core.InvalidRecurrenceError{TemplateID: template.ID, Reason: err.Error()}
	}

	if current.IsZero() {
		current = template.Date
	}
	return advancer.Next(template.Date, current), nil
}

// NextForTemplate computes the next occurrence for a stored template,
// advancing from its latest materialized child.
func (e *RecurrenceExpander) NextForTemplate(ctx context.Context, templateID int64) (core.Date, error) {
	template, err := e.repo.GetTransaction(ctx, templateID)
	if err != nil {
		return core.Date{}, err
	}
	latest, err := e.repo.LatestChildDate(ctx, templateID)
	if err != nil {
		return core.Date{}, err
	}
	return e.NextOccurrenceDate(template, latest)
}

// Expand materializes the next occurrence of one template, whether or
// not it is due yet. Returns nil without error when the template just
// transitioned to ended.
//
// Creation failures leave the template active so the next scan retries.
func (e *RecurrenceExpander) Expand(ctx context.Context, template core.Transaction) (*core.Transaction, error) {
	var created *core.Transaction
	err := e.repo.RunInTransaction(ctx, func(store storage.Store) error {
		var err error
		created, _, err = e.expandNext(ctx, store, template, core.Date{})
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ExpandDue scans every active template and materializes each occurrence
// due on or before today. Running it twice for the same day creates no
// duplicates: already-materialized occurrences are skipped, and a unique
// index on (parent, date) backs that check under concurrency.
func (e *RecurrenceExpander) ExpandDue(ctx context.Context, today core.Date) (core.ExpansionReport, error) {
	templates, err := e.repo.ListActiveTemplates(ctx)
	if err != nil {
		return core.ExpansionReport{}, fmt.Errorf("list active templates: %w", err)
	}

	report := core.ExpansionReport{Scanned: len(templates)}
	slog.InfoContext(ctx, "Expanding due recurring templates",
		log.FieldOperation, log.OpScan,
		"total_active", len(templates),
		log.FieldDate, today.String())

	for _, template := range templates {
		for n := 0; n < maxOccurrencesPerScan; n++ {
			var (
				created *core.Transaction
				ended   bool
			)
			err := e.repo.RunInTransaction(ctx, func(store storage.Store) error {
				var err error
				created, ended, err = e.expandNext(ctx, store, template, today)
				return err
			})

			if err != nil {
				var invalid *core.InvalidRecurrenceError
				if errors.As(err, &invalid) {
					report.Invalid = append(report.Invalid, core.InvalidTemplate{
						TemplateID: template.ID,
						Reason:     invalid.Reason,
					})
					slog.WarnContext(ctx, "Skipping invalid recurring template",
						log.FieldTemplateID, template.ID,
						log.FieldError, invalid.Reason)
				} else {
					// Template stays active; the next scan retries.
					report.Failed++
					slog.ErrorContext(ctx, "Failed to materialize occurrence",
						log.FieldTemplateID, template.ID,
						log.FieldError, err)
				}
				break
			}

			if ended {
				report.Ended++
				slog.InfoContext(ctx, "Recurring template ended",
					log.FieldTemplateID, template.ID)
				break
			}
			if created == nil {
				break // caught up
			}

			report.Expanded++
			slog.InfoContext(ctx, "Materialized recurring transaction",
				log.FieldTemplateID, template.ID,
				log.FieldTransactionID, created.ID,
				log.FieldDate, created.Date.String(),
				log.FieldAmount, created.Amount.String(),
				log.FieldFrequency, string(template.Frequency))
		}
	}

	slog.InfoContext(ctx, "Recurring template expansion complete",
		"scanned", report.Scanned,
		"expanded", report.Expanded,
		"ended", report.Ended,
		"failed", report.Failed,
		"invalid", len(report.Invalid))
	return report, nil
}

// expandNext advances one template by a single occurrence inside the
// given store scope. A non-zero dueBy bounds materialization to
// occurrences on or before that date. Returns the created child, or
// ended=true when the template reached its end date, or (nil, false)
// when there is nothing to do.
func (e *RecurrenceExpander) expandNext(ctx context.Context, store storage.Store, template core.Transaction, dueBy core.Date) (*core.Transaction, bool, error) {
	latest, err := store.LatestChildDate(ctx, template.ID)
	if err != nil {
		return nil, false, fmt.Errorf("latest occurrence of template %d: %w", template.ID, err)
	}

	next, err := e.NextOccurrenceDate(template, latest)
	if err != nil {
		return nil, false, err
	}

	if !template.EndDate.IsZero() && next.After(template.EndDate.Time) {
		if err := store.SetRecurrenceState(ctx, template.ID, core.RecurrenceEnded); err != nil {
			return nil, false, fmt.Errorf("end template %d: %w", template.ID, err)
		}
		return nil, true, nil
	}

	if !dueBy.IsZero() && next.After(dueBy.Time) {
		return nil, false, nil
	}

	// Another scan may have materialized this occurrence already.
	if _, err := store.GetChildByDate(ctx, template.ID, next); err == nil {
		return nil, false, nil
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, false, err
	}

	child := template
	child.ID = 0
	child.Recurrent = false
	child.Frequency = ""
	child.Date = next
	child.ParentID = template.ID
	child.State = core.RecurrenceActive

	created, err := store.CreateTransaction(ctx, child)
	if err != nil {
		return nil, false, fmt.Errorf("materialize occurrence of template %d: %w", template.ID, err)
	}
	if err := e.ledger.OnCreate(ctx, store, created); err != nil {
		return nil, false, err
	}
	return &created, false, nil
}
