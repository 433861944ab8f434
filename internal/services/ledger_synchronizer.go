package services

import (
	"context"
	"fmt"
	"log/slog"

	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/storage"
)

// LedgerSynchronizer keeps an account's cached balance consistent with
// its transaction history. Mutations adjust the balance incrementally;
// Reconcile re-derives it from scratch and reports any drift.
//
// Methods take the Store they should write through, so callers decide
// the transaction scope: wrapping the row mutation and the balance
// adjustment in one unit of work makes them commit or roll back
// together.
type LedgerSynchronizer struct{}

func NewLedgerSynchronizer() *LedgerSynchronizer {
	return &LedgerSynchronizer{}
}

// Apply adjusts the owning account's cached balance by
// direction × signed amount, where the signed amount is positive for
// income and negative for expense. direction is +1 for an insert and -1
// for a delete or reversal.
//
// Returns InsufficientFundsError when the adjustment would drive the
// balance negative on an account type that enforces non-negative
// balances; the caller must abort the surrounding mutation.
func (s *LedgerSynchronizer) Apply(ctx context.Context, store storage.Store, t core.Transaction, direction int) error {
	account, err := store.GetAccount(ctx, t.AccountID)
	if err != nil {
		return fmt.Errorf("load account for balance adjustment: %w", err)
	}

	delta := t.SignedAmount()
	if direction < 0 {
		delta = delta.Neg()
	}

	balance := account.CurrentBalance.Add(delta)
	if balance.IsNegative() && !account.Type.AllowsNegativeBalance() {
		return &core.InsufficientFundsError{
			AccountID: account.ID,
			Balance:   account.CurrentBalance,
			Requested: delta,
		}
	}

	if err := store.UpdateAccountBalance(ctx, account.ID, balance); err != nil {
		return fmt.Errorf("persist adjusted balance: %w", err)
	}

	slog.DebugContext(ctx, "Balance adjusted",
		log.FieldAccountID, account.ID,
		log.FieldTransactionID, t.ID,
		log.FieldDelta, delta.String(),
		log.FieldBalance, balance.String())
	return nil
}

// OnCreate runs after a transaction row is inserted.
func (s *LedgerSynchronizer) OnCreate(ctx context.Context, store storage.Store, t core.Transaction) error {
	return s.Apply(ctx, store, t, +1)
}

// OnDelete runs after a transaction row is removed.
func (s *LedgerSynchronizer) OnDelete(ctx context.Context, store storage.Store, t core.Transaction) error {
	return s.Apply(ctx, store, t, -1)
}

// OnUpdate reverses the old version and applies the new one. Both halves
// must run inside the same unit of work: when the second apply fails the
// caller's rollback undoes the first.
func (s *LedgerSynchronizer) OnUpdate(ctx context.Context, store storage.Store, oldTx, newTx core.Transaction) error {
	if err := s.Apply(ctx, store, oldTx, -1); err != nil {
		return fmt.Errorf("reverse previous version: %w", err)
	}
	if err := s.Apply(ctx, store, newTx, +1); err != nil {
		return fmt.Errorf("apply new version: %w", err)
	}
	return nil
}

// Reconcile recomputes the account balance from the full ledger as
// initial balance plus incomes minus expenses, overwrites the cached
// value, and reports what changed. Drift is reported, never an error.
func (s *LedgerSynchronizer) Reconcile(ctx context.Context, store storage.Store, accountID int64) (core.ReconcileReport, error) {
	account, err := store.GetAccount(ctx, accountID)
	if err != nil {
		return core.ReconcileReport{}, fmt.Errorf("load account for reconcile: %w", err)
	}

	income, expenses, err := store.SumAccountFlows(ctx, accountID)
	if err != nil {
		return core.ReconcileReport{}, fmt.Errorf("sum account flows: %w", err)
	}

	recomputed := account.InitialBalance.Add(income).Sub(expenses)
	report := core.ReconcileReport{
		AccountID:  accountID,
		Previous:   account.CurrentBalance,
		Recomputed: recomputed,
		Delta:      recomputed.Sub(account.CurrentBalance),
	}

	if err := store.UpdateAccountBalance(ctx, accountID, recomputed); err != nil {
		return core.ReconcileReport{}, fmt.Errorf("persist reconciled balance: %w", err)
	}

	if !report.Delta.IsZero() {
		slog.WarnContext(ctx, "Balance drift corrected",
			log.FieldAccountID, accountID,
			log.FieldBalance, recomputed.String(),
			log.FieldDelta, report.Delta.String())
	}
	return report, nil
}
