package storage

import (
	"context"
	"database/sql"
	"fmt"

	"finanzas/internal/core"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// the same query surface runs standalone or inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries implements the typed query surface over a DBTX.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// TransactionFilter narrows ListTransactions. Zero values mean "any".
type TransactionFilter struct {
	UserID     int64
	AccountID  int64
	CategoryID int64
	Type       core.TransactionType
	From       core.Date
	To         core.Date
	Recurrent  *bool
	Limit      int
	Offset     int
}

// Store is the persistence surface the services consume. *Queries is the
// canonical implementation; tests substitute fakes.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)

	// Accounts
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	ListAccounts(ctx context.Context, userID int64) ([]core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) error
	UpdateAccountBalance(ctx context.Context, id int64, balance core.Money) error
	DeleteAccount(ctx context.Context, id int64) error
	CountAccountTransactions(ctx context.Context, accountID int64) (int64, error)
	SumAccountFlows(ctx context.Context, accountID int64) (income, expenses core.Money, err error)

	// Transactions
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	ListActiveTemplates(ctx context.Context) ([]core.Transaction, error)
	LatestChildDate(ctx context.Context, parentID int64) (core.Date, error)
	GetChildByDate(ctx context.Context, parentID int64, date core.Date) (core.Transaction, error)
	SetRecurrenceState(ctx context.Context, id int64, state core.RecurrenceState) error
	RecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error)

	// Categories
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	CountCategoryTransactions(ctx context.Context, categoryID int64) (int64, error)

	// Budgets
	CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	GetBudget(ctx context.Context, id int64) (core.Budget, error)
	ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, id int64) error

	// Savings goals
	CreateGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error)
	GetGoal(ctx context.Context, id int64) (core.SavingsGoal, error)
	ListGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error)
	UpdateGoal(ctx context.Context, g core.SavingsGoal) error
	DeleteGoal(ctx context.Context, id int64) error
	AddContribution(ctx context.Context, c core.GoalContribution) (core.GoalContribution, error)
	ListContributions(ctx context.Context, goalID int64) ([]core.GoalContribution, error)

	// Aggregates
	SumFlowsInRange(ctx context.Context, userID int64, from, to core.Date) (income, expenses core.Money, err error)
	SumCategoryExpensesInRange(ctx context.Context, userID, categoryID int64, from, to core.Date) (core.Money, error)
	ExpensesByCategory(ctx context.Context, userID int64, from, to core.Date) ([]core.CategoryAmount, error)
	MonthlyFlows(ctx context.Context, userID int64, from core.Date) ([]core.MonthFlow, error)
}

var _ Store = (*Queries)(nil)

type scanner interface {
	Scan(dest ...any) error
}

func scanMoney(s string) (core.Money, error) {
	m, err := core.ParseMoney(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("parse stored amount %q: %w", s, err)
	}
	return m, nil
}

func scanDate(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return d, nil
}

// nullDate binds an optional date: zero dates become NULL.
func nullDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

// nullID binds an optional reference: zero IDs become NULL.
func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
