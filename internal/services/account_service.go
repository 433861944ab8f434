package services

import (
	"context"
	"fmt"
	"log/slog"

	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/storage"
)

// AccountService manages accounts and their cached balances.
type AccountService struct {
	repo   Repository
	ledger *LedgerSynchronizer
}

func NewAccountService(repo Repository, ledger *LedgerSynchronizer) *AccountService {
	return &AccountService{
		repo:   repo,
		ledger: ledger,
	}
}

// Create opens an account. The cached balance starts at the declared
// initial balance.
func (s *AccountService) Create(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	a.CurrentBalance = a.InitialBalance
	a.Active = true

	created, err := s.repo.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, err
	}

	slog.InfoContext(ctx, "Account created",
		log.FieldAccountID, created.ID,
		log.FieldUserID, created.UserID,
		log.FieldBalance, created.CurrentBalance.String(),
		log.FieldCurrency, created.Currency)
	return created, nil
}

func (s *AccountService) Get(ctx context.Context, id int64) (core.Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *AccountService) List(ctx context.Context, userID int64) ([]core.Account, error) {
	return s.repo.ListAccounts(ctx, userID)
}

// Update changes account metadata. Balances never change here; they
// belong to the ledger.
func (s *AccountService) Update(ctx context.Context, a core.Account) (core.Account, error) {
	current, err := s.repo.GetAccount(ctx, a.ID)
	if err != nil {
		return core.Account{}, err
	}

	a.UserID = current.UserID
	a.InitialBalance = current.InitialBalance
	a.CurrentBalance = current.CurrentBalance
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	if err := s.repo.UpdateAccount(ctx, a); err != nil {
		return core.Account{}, err
	}
	return s.repo.GetAccount(ctx, a.ID)
}

// Delete removes an account that has no transaction history. Accounts
// with history should be deactivated instead, so the ledger stays whole.
func (s *AccountService) Delete(ctx context.Context, id int64) error {
	count, err := s.repo.CountAccountTransactions(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("account %d has %d transactions: %w", id, count, core.ErrAccountHasHistory)
	}

	if err := s.repo.DeleteAccount(ctx, id); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Account deleted", log.FieldAccountID, id)
	return nil
}

// Reconcile re-derives the cached balance from the account's full
// ledger inside one unit of work, so the sum and the overwrite see the
// same rows. The report carries any drift that was corrected.
func (s *AccountService) Reconcile(ctx context.Context, accountID int64) (core.ReconcileReport, error) {
	var report core.ReconcileReport
	err := s.repo.RunInTransaction(ctx, func(store storage.Store) error {
		var err error
		report, err = s.ledger.Reconcile(ctx, store, accountID)
		return err
	})
	if err != nil {
		return core.ReconcileReport{}, err
	}

	slog.InfoContext(ctx, "Account reconciled",
		log.FieldAccountID, accountID,
		log.FieldBalance, report.Recomputed.String(),
		log.FieldDelta, report.Delta.String())
	return report, nil
}
