package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// fakeRepo is an in-memory Repository. RunInTransaction snapshots all
// state and restores it when the callback fails, so rollback behavior
// is observable in tests.
type fakeRepo struct {
	users         map[int64]core.User
	accounts      map[int64]core.Account
	transactions  map[int64]core.Transaction
	categories    map[int64]core.Category
	budgets       map[int64]core.Budget
	goals         map[int64]core.SavingsGoal
	contributions map[int64]core.GoalContribution
	nextID        int64

	// failCreateTransaction makes the next CreateTransaction fail once.
	failCreateTransaction error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:         make(map[int64]core.User),
		accounts:      make(map[int64]core.Account),
		transactions:  make(map[int64]core.Transaction),
		categories:    make(map[int64]core.Category),
		budgets:       make(map[int64]core.Budget),
		goals:         make(map[int64]core.SavingsGoal),
		contributions: make(map[int64]core.GoalContribution),
	}
}

var _ Repository = (*fakeRepo)(nil)

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (f *fakeRepo) RunInTransaction(_ context.Context, fn func(storage.Store) error) error {
	users := copyMap(f.users)
	accounts := copyMap(f.accounts)
	transactions := copyMap(f.transactions)
	categories := copyMap(f.categories)
	budgets := copyMap(f.budgets)
	goals := copyMap(f.goals)
	contributions := copyMap(f.contributions)
	nextID := f.nextID

	if err := fn(f); err != nil {
		f.users = users
		f.accounts = accounts
		f.transactions = transactions
		f.categories = categories
		f.budgets = budgets
		f.goals = goals
		f.contributions = contributions
		f.nextID = nextID
		return err
	}
	return nil
}

func (f *fakeRepo) CreateUser(_ context.Context, u core.User) (core.User, error) {
	u.ID = f.id()
	u.CreatedAt = time.Now()
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeRepo) GetUser(_ context.Context, id int64) (core.User, error) {
	u, ok := f.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	return u, nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user %s: %w", email, core.ErrNotFound)
}

func (f *fakeRepo) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	a.ID = f.id()
	f.accounts[a.ID] = a
	return a, nil
}

func (f *fakeRepo) GetAccount(_ context.Context, id int64) (core.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	return a, nil
}

func (f *fakeRepo) ListAccounts(_ context.Context, userID int64) ([]core.Account, error) {
	var out []core.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) UpdateAccount(_ context.Context, a core.Account) error {
	current, ok := f.accounts[a.ID]
	if !ok {
		return fmt.Errorf("account %d: %w", a.ID, core.ErrNotFound)
	}
	a.InitialBalance = current.InitialBalance
	a.CurrentBalance = current.CurrentBalance
	f.accounts[a.ID] = a
	return nil
}

func (f *fakeRepo) UpdateAccountBalance(_ context.Context, id int64, balance core.Money) error {
	a, ok := f.accounts[id]
	if !ok {
		return fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	a.CurrentBalance = balance
	f.accounts[id] = a
	return nil
}

func (f *fakeRepo) DeleteAccount(_ context.Context, id int64) error {
	if _, ok := f.accounts[id]; !ok {
		return fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	delete(f.accounts, id)
	return nil
}

func (f *fakeRepo) CountAccountTransactions(_ context.Context, accountID int64) (int64, error) {
	var n int64
	for _, t := range f.transactions {
		if t.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) SumAccountFlows(_ context.Context, accountID int64) (core.Money, core.Money, error) {
	income, expenses := core.MoneyZero(), core.MoneyZero()
	for _, t := range f.transactions {
		if t.AccountID != accountID {
			continue
		}
		if t.Type == core.Income {
			income = income.Add(t.Amount)
		} else {
			expenses = expenses.Add(t.Amount)
		}
	}
	return income, expenses, nil
}

func (f *fakeRepo) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if f.failCreateTransaction != nil {
		err := f.failCreateTransaction
		f.failCreateTransaction = nil
		return core.Transaction{}, err
	}
	t.ID = f.id()
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.State == "" || !t.Recurrent {
		t.State = core.RecurrenceActive
	}
	f.transactions[t.ID] = t
	return t, nil
}

func (f *fakeRepo) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	t, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (f *fakeRepo) UpdateTransaction(_ context.Context, t core.Transaction) error {
	current, ok := f.transactions[t.ID]
	if !ok {
		return fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	t.CreatedAt = current.CreatedAt
	t.UpdatedAt = time.Now()
	f.transactions[t.ID] = t
	return nil
}

func (f *fakeRepo) DeleteTransaction(_ context.Context, id int64) error {
	if _, ok := f.transactions[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	delete(f.transactions, id)
	for cid, c := range f.transactions {
		if c.ParentID == id {
			c.ParentID = 0
			f.transactions[cid] = c
		}
	}
	return nil
}

func (f *fakeRepo) ListTransactions(_ context.Context, filter storage.TransactionFilter) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range f.transactions {
		if filter.UserID != 0 && t.UserID != filter.UserID {
			continue
		}
		if filter.AccountID != 0 && t.AccountID != filter.AccountID {
			continue
		}
		if filter.CategoryID != 0 && t.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if !filter.From.IsZero() && t.Date.Before(filter.From.Time) {
			continue
		}
		if !filter.To.IsZero() && t.Date.After(filter.To.Time) {
			continue
		}
		if filter.Recurrent != nil && t.Recurrent != *filter.Recurrent {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeRepo) ListActiveTemplates(_ context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range f.transactions {
		if t.Recurrent && t.State == core.RecurrenceActive {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) LatestChildDate(_ context.Context, parentID int64) (core.Date, error) {
	var latest core.Date
	for _, t := range f.transactions {
		if t.ParentID == parentID && (latest.IsZero() || t.Date.After(latest.Time)) {
			latest = t.Date
		}
	}
	return latest, nil
}

func (f *fakeRepo) GetChildByDate(_ context.Context, parentID int64, date core.Date) (core.Transaction, error) {
	for _, t := range f.transactions {
		if t.ParentID == parentID && t.Date.Equal(date.Time) {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("child of template %d on %s: %w", parentID, date, core.ErrNotFound)
}

func (f *fakeRepo) SetRecurrenceState(_ context.Context, id int64, state core.RecurrenceState) error {
	t, ok := f.transactions[id]
	if !ok {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	t.State = state
	f.transactions[id] = t
	return nil
}

func (f *fakeRepo) RecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	return f.ListTransactions(ctx, storage.TransactionFilter{UserID: userID, Limit: limit})
}

func (f *fakeRepo) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	c.ID = f.id()
	f.categories[c.ID] = c
	return c, nil
}

func (f *fakeRepo) GetCategory(_ context.Context, id int64) (core.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (f *fakeRepo) ListCategories(_ context.Context, userID int64) ([]core.Category, error) {
	var out []core.Category
	for _, c := range f.categories {
		if c.UserID == 0 || c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) DeleteCategory(_ context.Context, id int64) error {
	if _, ok := f.categories[id]; !ok {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	delete(f.categories, id)
	return nil
}

func (f *fakeRepo) CountCategoryTransactions(_ context.Context, categoryID int64) (int64, error) {
	var n int64
	for _, t := range f.transactions {
		if t.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	b.ID = f.id()
	f.budgets[b.ID] = b
	return b, nil
}

func (f *fakeRepo) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	b, ok := f.budgets[id]
	if !ok {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	return b, nil
}

func (f *fakeRepo) ListBudgets(_ context.Context, userID int64) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range f.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) UpdateBudget(_ context.Context, b core.Budget) error {
	if _, ok := f.budgets[b.ID]; !ok {
		return fmt.Errorf("budget %d: %w", b.ID, core.ErrNotFound)
	}
	f.budgets[b.ID] = b
	return nil
}

func (f *fakeRepo) DeleteBudget(_ context.Context, id int64) error {
	if _, ok := f.budgets[id]; !ok {
		return fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	delete(f.budgets, id)
	return nil
}

func (f *fakeRepo) CreateGoal(_ context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	g.ID = f.id()
	f.goals[g.ID] = g
	return g, nil
}

func (f *fakeRepo) GetGoal(_ context.Context, id int64) (core.SavingsGoal, error) {
	g, ok := f.goals[id]
	if !ok {
		return core.SavingsGoal{}, fmt.Errorf("goal %d: %w", id, core.ErrNotFound)
	}
	return g, nil
}

func (f *fakeRepo) ListGoals(_ context.Context, userID int64) ([]core.SavingsGoal, error) {
	var out []core.SavingsGoal
	for _, g := range f.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) UpdateGoal(_ context.Context, g core.SavingsGoal) error {
	if _, ok := f.goals[g.ID]; !ok {
		return fmt.Errorf("goal %d: %w", g.ID, core.ErrNotFound)
	}
	f.goals[g.ID] = g
	return nil
}

func (f *fakeRepo) DeleteGoal(_ context.Context, id int64) error {
	if _, ok := f.goals[id]; !ok {
		return fmt.Errorf("goal %d: %w", id, core.ErrNotFound)
	}
	delete(f.goals, id)
	return nil
}

func (f *fakeRepo) AddContribution(_ context.Context, c core.GoalContribution) (core.GoalContribution, error) {
	c.ID = f.id()
	c.CreatedAt = time.Now()
	f.contributions[c.ID] = c
	return c, nil
}

func (f *fakeRepo) ListContributions(_ context.Context, goalID int64) ([]core.GoalContribution, error) {
	var out []core.GoalContribution
	for _, c := range f.contributions {
		if c.GoalID == goalID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) SumFlowsInRange(_ context.Context, userID int64, from, to core.Date) (core.Money, core.Money, error) {
	income, expenses := core.MoneyZero(), core.MoneyZero()
	for _, t := range f.transactions {
		if t.UserID != userID || t.Date.Before(from.Time) || t.Date.After(to.Time) {
			continue
		}
		if t.Type == core.Income {
			income = income.Add(t.Amount)
		} else {
			expenses = expenses.Add(t.Amount)
		}
	}
	return income, expenses, nil
}

func (f *fakeRepo) SumCategoryExpensesInRange(_ context.Context, userID, categoryID int64, from, to core.Date) (core.Money, error) {
	total := core.MoneyZero()
	for _, t := range f.transactions {
		if t.UserID != userID || t.CategoryID != categoryID || t.Type != core.Expense {
			continue
		}
		if t.Date.Before(from.Time) || t.Date.After(to.Time) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

func (f *fakeRepo) ExpensesByCategory(_ context.Context, userID int64, from, to core.Date) ([]core.CategoryAmount, error) {
	totals := make(map[int64]core.Money)
	for _, t := range f.transactions {
		if t.UserID != userID || t.Type != core.Expense {
			continue
		}
		if t.Date.Before(from.Time) || t.Date.After(to.Time) {
			continue
		}
		sum, ok := totals[t.CategoryID]
		if !ok {
			sum = core.MoneyZero()
		}
		totals[t.CategoryID] = sum.Add(t.Amount)
	}

	var out []core.CategoryAmount
	for id, amount := range totals {
		name := ""
		if c, ok := f.categories[id]; ok {
			name = c.Name
		}
		out = append(out, core.CategoryAmount{CategoryID: id, Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount.Cmp(out[j].Amount) > 0 })
	return out, nil
}

func (f *fakeRepo) MonthlyFlows(_ context.Context, userID int64, from core.Date) ([]core.MonthFlow, error) {
	type key struct{ year, month int }
	flows := make(map[key]*core.MonthFlow)
	for _, t := range f.transactions {
		if t.UserID != userID || t.Date.Before(from.Time) {
			continue
		}
		k := key{t.Date.Year(), t.Date.Month()}
		flow, ok := flows[k]
		if !ok {
			flow = &core.MonthFlow{
				Year:     k.year,
				Month:    k.month,
				Income:   core.MoneyZero(),
				Expenses: core.MoneyZero(),
			}
			flows[k] = flow
		}
		if t.Type == core.Income {
			flow.Income = flow.Income.Add(t.Amount)
		} else {
			flow.Expenses = flow.Expenses.Add(t.Amount)
		}
	}

	var out []core.MonthFlow
	for _, flow := range flows {
		out = append(out, *flow)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

// date parses a YYYY-MM-DD literal; test data is always well-formed.
func date(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// money parses a decimal literal; test data is always well-formed.
func money(s string) core.Money {
	return core.MustMoney(s)
}

func seedAccount(f *fakeRepo, typ core.AccountType, balance string) core.Account {
	a, _ := f.CreateAccount(context.Background(), core.Account{
		UserID:         1,
		Name:           "Cuenta principal",
		Type:           typ,
		InitialBalance: money(balance),
		CurrentBalance: money(balance),
		Currency:       "MXN",
		Active:         true,
	})
	return a
}

func seedCategory(f *fakeRepo, kind core.TransactionType) core.Category {
	name := "Comida"
	if kind == core.Income {
		name = "Salario"
	}
	c, _ := f.CreateCategory(context.Background(), core.Category{
		UserID: 1,
		Name:   name,
		Kind:   kind,
	})
	return c
}
