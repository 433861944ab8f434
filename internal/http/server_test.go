package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/storage"
)

type fakeAccounts struct {
	accounts map[int64]core.Account
	nextID   int64
}

func (f *fakeAccounts) Create(ctx context.Context, a core.Account) (core.Account, error) {
	f.nextID++
	a.ID = f.nextID
	a.CurrentBalance = a.InitialBalance
	f.accounts[a.ID] = a
	return a, nil
}

func (f *fakeAccounts) Get(ctx context.Context, id int64) (core.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return core.Account{}, core.ErrNotFound
	}
	return a, nil
}

func (f *fakeAccounts) List(ctx context.Context, userID int64) ([]core.Account, error) {
	var out []core.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAccounts) Update(ctx context.Context, a core.Account) (core.Account, error) {
	if _, ok := f.accounts[a.ID]; !ok {
		return core.Account{}, core.ErrNotFound
	}
	f.accounts[a.ID] = a
	return a, nil
}

func (f *fakeAccounts) Delete(ctx context.Context, id int64) error {
	if _, ok := f.accounts[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.accounts, id)
	return nil
}

func (f *fakeAccounts) Reconcile(ctx context.Context, accountID int64) (core.ReconcileReport, error) {
	a, ok := f.accounts[accountID]
	if !ok {
		return core.ReconcileReport{}, core.ErrNotFound
	}
	return core.ReconcileReport{
		AccountID:  accountID,
		Previous:   a.CurrentBalance,
		Recomputed: a.CurrentBalance,
		Delta:      core.MoneyZero(),
	}, nil
}

type fakeTransactions struct {
	transactions map[int64]core.Transaction
	createErr    error
	nextID       int64
}

func (f *fakeTransactions) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if f.createErr != nil {
		return core.Transaction{}, f.createErr
	}
	f.nextID++
	t.ID = f.nextID
	f.transactions[t.ID] = t
	return t, nil
}

func (f *fakeTransactions) Get(ctx context.Context, id int64) (core.Transaction, error) {
	t, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (f *fakeTransactions) List(ctx context.Context, filter storage.TransactionFilter) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range f.transactions {
		if t.UserID != filter.UserID {
			continue
		}
		if filter.AccountID != 0 && t.AccountID != filter.AccountID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTransactions) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if _, ok := f.transactions[t.ID]; !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	f.transactions[t.ID] = t
	return t, nil
}

func (f *fakeTransactions) Delete(ctx context.Context, id int64) error {
	if _, ok := f.transactions[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.transactions, id)
	return nil
}

type fakeRecurrence struct {
	next core.Date
	err  error
}

func (f *fakeRecurrence) NextForTemplate(ctx context.Context, templateID int64) (core.Date, error) {
	return f.next, f.err
}

type fakeCategories struct {
	categories map[int64]core.Category
}

func (f *fakeCategories) Create(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = int64(len(f.categories) + 1)
	f.categories[c.ID] = c
	return c, nil
}

func (f *fakeCategories) Get(ctx context.Context, id int64) (core.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (f *fakeCategories) List(ctx context.Context, userID int64) ([]core.Category, error) {
	var out []core.Category
	for _, c := range f.categories {
		if c.UserID == 0 || c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCategories) Delete(ctx context.Context, id int64) error {
	delete(f.categories, id)
	return nil
}

type fakeDashboard struct {
	summary       core.DashboardSummary
	invalidations int
}

func (f *fakeDashboard) Summary(ctx context.Context, userID int64, today core.Date) (core.DashboardSummary, error) {
	return f.summary, nil
}

func (f *fakeDashboard) Invalidate(userID int64) { f.invalidations++ }

func (f *fakeDashboard) CacheStats() cache.Stats { return cache.Stats{} }

func newTestServer(t *testing.T) (*Server, *fakeAccounts, *fakeTransactions, *fakeCategories, *fakeDashboard) {
	t.Helper()
	accounts := &fakeAccounts{accounts: map[int64]core.Account{}}
	transactions := &fakeTransactions{transactions: map[int64]core.Transaction{}}
	categories := &fakeCategories{categories: map[int64]core.Category{}}
	dashboard := &fakeDashboard{}
	srv := New(Config{Addr: ":0", RequestsPerMinute: 10_000}, Services{
		Accounts:     accounts,
		Transactions: transactions,
		Recurrence:   &fakeRecurrence{next: core.NewDate(2026, 3, 1)},
		Categories:   categories,
		Dashboard:    dashboard,
	})
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv, accounts, transactions, categories, dashboard
}

func doRequest(srv *Server, method, path, userID string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(headerUserID, userID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %v, want ok", resp["status"])
	}
}

func TestMissingUserHeader(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/accounts", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateAccount(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{
			name:       "valid bank account",
			body:       map[string]any{"name": "Checking", "type": "bank", "initial_balance": "150.00", "currency": "EUR"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "empty name",
			body:       map[string]any{"name": "", "type": "bank", "initial_balance": "0", "currency": "EUR"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown account type",
			body:       map[string]any{"name": "X", "type": "piggy_bank", "initial_balance": "0", "currency": "EUR"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad currency",
			body:       map[string]any{"name": "X", "type": "cash", "initial_balance": "0", "currency": "EURO"},
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPost, "/api/accounts", "1", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestAccountOwnership(t *testing.T) {
	srv, accounts, _, _, _ := newTestServer(t)
	accounts.accounts[7] = core.Account{ID: 7, UserID: 2, Name: "Other", Type: core.AccountBank, Currency: "EUR", Active: true}

	// A foreign account reads as absent, not forbidden.
	rec := doRequest(srv, http.MethodGet, "/api/accounts/7", "1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign account status = %d, want 404", rec.Code)
	}

	rec = doRequest(srv, http.MethodGet, "/api/accounts/7", "2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner status = %d, want 200", rec.Code)
	}
}

func TestCreateTransactionInsufficientFunds(t *testing.T) {
	srv, _, transactions, _, _ := newTestServer(t)
	transactions.createErr = &core.InsufficientFundsError{
		AccountID: 1,
		Balance:   core.MustMoney("10.00"),
		Requested: core.MustMoney("25.00"),
	}

	body := map[string]any{
		"account_id": 1, "category_id": 2, "type": "expense",
		"amount": "25.00", "description": "groceries", "date": "2026-02-10",
	}
	rec := doRequest(srv, http.MethodPost, "/api/transactions", "1", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Details["balance"] != "10.00" {
		t.Errorf("details.balance = %v, want 10.00", resp.Details["balance"])
	}
}

func TestCreateTransactionInvalidatesDashboard(t *testing.T) {
	srv, _, _, _, dashboard := newTestServer(t)

	body := map[string]any{
		"account_id": 1, "category_id": 2, "type": "income",
		"amount": "100.00", "description": "salary", "date": "2026-02-01",
	}
	rec := doRequest(srv, http.MethodPost, "/api/transactions", "1", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	if dashboard.invalidations != 1 {
		t.Errorf("invalidations = %d, want 1", dashboard.invalidations)
	}
}

func TestNextOccurrence(t *testing.T) {
	srv, _, transactions, _, _ := newTestServer(t)
	transactions.transactions[3] = core.Transaction{
		ID: 3, UserID: 1, AccountID: 1, CategoryID: 2,
		Type: core.Expense, Recurrent: true, Frequency: core.Monthly,
		Date: core.NewDate(2026, 1, 31), State: core.RecurrenceActive,
	}

	rec := doRequest(srv, http.MethodGet, "/api/transactions/3/next-occurrence", "1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["next_occurrence"] != "2026-03-01" {
		t.Errorf("next_occurrence = %v, want 2026-03-01", resp["next_occurrence"])
	}
}

func TestDeletePredefinedCategory(t *testing.T) {
	srv, _, _, categories, _ := newTestServer(t)
	categories.categories[1] = core.Category{ID: 1, UserID: 0, Name: "Groceries", Kind: core.Expense}

	rec := doRequest(srv, http.MethodDelete, "/api/categories/1", "1", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (body %s)", rec.Code, rec.Body.String())
	}
	if _, ok := categories.categories[1]; !ok {
		t.Error("predefined category was deleted")
	}
}

func TestUnknownBodyFieldRejected(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	body := map[string]any{"name": "Cash", "type": "cash", "initial_balance": "0", "currency": "EUR", "bogus": true}
	rec := doRequest(srv, http.MethodPost, "/api/accounts", "1", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
