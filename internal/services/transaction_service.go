package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/storage"
)

// Repository is the persistence surface the services build on: the
// query interface plus transactional execution.
// *storage.SQLiteRepository satisfies it; tests substitute fakes.
type Repository interface {
	storage.Store
	storage.UnitOfWork
}

// TransactionService orchestrates transaction mutations: validation,
// the edit-window policy, balance synchronization, and event publishing.
type TransactionService struct {
	repo       Repository
	ledger     *LedgerSynchronizer
	amqpClient *amqp.Client
	editWindow time.Duration
}

// NewTransactionService wires the transaction flows. amqpClient may be
// nil; events are then skipped. editWindow bounds how far back history
// may be edited; zero disables the policy.
func NewTransactionService(repo Repository, ledger *LedgerSynchronizer, amqpClient *amqp.Client, editWindow time.Duration) *TransactionService {
	return &TransactionService{
		repo:       repo,
		ledger:     ledger,
		amqpClient: amqpClient,
		editWindow: editWindow,
	}
}

// Create validates and persists a transaction, adjusting the owning
// account's balance in the same unit of work. An adjustment rejected
// for insufficient funds rolls the insert back.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkReferences(ctx, t); err != nil {
		return core.Transaction{}, err
	}

	var created core.Transaction
	err := s.repo.RunInTransaction(ctx, func(store storage.Store) error {
		var err error
		created, err = store.CreateTransaction(ctx, t)
		if err != nil {
			return err
		}
		return s.ledger.OnCreate(ctx, store, created)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction recorded",
		log.FieldTransactionID, created.ID,
		log.FieldAccountID, created.AccountID,
		log.FieldTxType, string(created.Type),
		log.FieldAmount, created.Amount.String(),
		log.FieldDate, created.Date.String())

	s.publishEvent(ctx, amqp.EventTransactionCreated, created)
	return created, nil
}

// Update replaces a transaction with a new version. The reversal of the
// old version and the application of the new one run in one unit of
// work, so a failed second half leaves the balance untouched.
func (s *TransactionService) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	old, err := s.repo.GetTransaction(ctx, t.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	if !s.withinEditWindow(old) {
		return core.Transaction{}, core.ErrOutsideEditWindow
	}
	if t.Recurrent != old.Recurrent {
		return core.Transaction{}, &core.InvalidRecurrenceError{
			TemplateID: old.ID,
			Reason:     "recurrence flag cannot change after creation",
		}
	}

	// Ownership and lineage never change through an edit.
	t.UserID = old.UserID
	t.ParentID = old.ParentID
	t.State = old.State

	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkReferences(ctx, t); err != nil {
		return core.Transaction{}, err
	}

	var updated core.Transaction
	err = s.repo.RunInTransaction(ctx, func(store storage.Store) error {
		if err := store.UpdateTransaction(ctx, t); err != nil {
			return err
		}
		if err := s.ledger.OnUpdate(ctx, store, old, t); err != nil {
			return err
		}
		var err error
		updated, err = store.GetTransaction(ctx, t.ID)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated",
		log.FieldTransactionID, updated.ID,
		log.FieldAccountID, updated.AccountID,
		log.FieldAmount, updated.Amount.String())

	s.publishEvent(ctx, amqp.EventTransactionUpdated, updated)
	return updated, nil
}

// Delete removes a transaction and reverses its balance contribution.
// Children of a deleted template are kept; they are real history and
// only lose the back-reference.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	t, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if !s.withinEditWindow(t) {
		return core.ErrOutsideEditWindow
	}

	err = s.repo.RunInTransaction(ctx, func(store storage.Store) error {
		if err := store.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		return s.ledger.OnDelete(ctx, store, t)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted",
		log.FieldTransactionID, id,
		log.FieldAccountID, t.AccountID,
		log.FieldAmount, t.Amount.String())

	s.publishEvent(ctx, amqp.EventTransactionDeleted, t)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *TransactionService) List(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx, f)
}

// checkReferences verifies the account and category exist and fit the
// transaction: movements on inactive accounts are rejected, and the
// category kind must match the transaction type.
func (s *TransactionService) checkReferences(ctx context.Context, t core.Transaction) error {
	account, err := s.repo.GetAccount(ctx, t.AccountID)
	if err != nil {
		return err
	}
	if !account.Active {
		return fmt.Errorf("account %d: %w", account.ID, core.ErrAccountInactive)
	}

	category, err := s.repo.GetCategory(ctx, t.CategoryID)
	if err != nil {
		return err
	}
	if category.Kind != t.Type {
		return fmt.Errorf("category %q is %s, transaction is %s: %w",
			category.Name, category.Kind, t.Type, core.ErrCategoryKindMismatch)
	}
	return nil
}

// withinEditWindow reports whether the transaction's date is recent
// enough to edit. Future dates are always editable.
func (s *TransactionService) withinEditWindow(t core.Transaction) bool {
	if s.editWindow <= 0 {
		return true
	}
	return time.Since(t.Date.Time) <= s.editWindow
}

// publishEvent emits a transaction event; failures are logged, never
// surfaced, since the row is already committed.
func (s *TransactionService) publishEvent(ctx context.Context, eventType string, t core.Transaction) {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping event",
			log.FieldEventType, eventType)
		return
	}
	if err := s.amqpClient.PublishTransactionEvent(ctx, eventType, t.ID, t.UserID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldEventType, eventType,
			log.FieldTransactionID, t.ID,
			log.FieldError, err)
	}
}
