package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"finanzas/internal/core"
)

const accountColumns = `id, user_id, name, type, initial_balance, current_balance, currency, active, created_at, updated_at`

const transactionColumns = `id, user_id, account_id, category_id, type, amount, description, tx_date, tx_time, recurrent, frequency, end_date, parent_id, recurrence_state, tags, receipt_url, created_at, updated_at`

func (q *Queries) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.CreatedAt = time.Now().UTC()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO users (email, name, active, created_at) VALUES (?, ?, ?, ?)`,
		u.Email, u.Name, boolToInt(u.Active), u.CreatedAt)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}
	return u, nil
}

func (q *Queries) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, email, name, active, created_at FROM users WHERE id = ?`, id)
	return scanUser(row, fmt.Sprintf("user %d", id))
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, email, name, active, created_at FROM users WHERE email = ?`, email)
	return scanUser(row, fmt.Sprintf("user %s", email))
}

func scanUser(sc scanner, ref string) (core.User, error) {
	var (
		u      core.User
		active int64
	)
	err := sc.Scan(&u.ID, &u.Email, &u.Name, &active, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("%s: %w", ref, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan %s: %w", ref, err)
	}
	u.Active = active == 1
	return u, nil
}

func (q *Queries) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id, name, type, initial_balance, current_balance, currency, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Name, string(a.Type), a.InitialBalance.String(), a.CurrentBalance.String(),
		a.Currency, boolToInt(a.Active), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("account insert id: %w", err)
	}
	return a, nil
}

func (q *Queries) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return a, nil
}

func (q *Queries) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (q *Queries) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, type = ?, currency = ?, active = ?, updated_at = ? WHERE id = ?`,
		a.Name, string(a.Type), a.Currency, boolToInt(a.Active), time.Now().UTC(), a.ID)
	if err != nil {
		return fmt.Errorf("update account %d: %w", a.ID, err)
	}
	return requireRow(res, fmt.Sprintf("account %d", a.ID))
}

func (q *Queries) UpdateAccountBalance(ctx context.Context, id int64, balance core.Money) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET current_balance = ?, updated_at = ? WHERE id = ?`,
		balance.String(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update account %d balance: %w", id, err)
	}
	return requireRow(res, fmt.Sprintf("account %d", id))
}

func (q *Queries) DeleteAccount(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	return requireRow(res, fmt.Sprintf("account %d", id))
}

func (q *Queries) CountAccountTransactions(ctx context.Context, accountID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = ?`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count account %d transactions: %w", accountID, err)
	}
	return n, nil
}

// SumAccountFlows totals the account's ledger by direction. Amounts are
// summed as decimals in Go; SQLite SUM over text would go through floats.
func (q *Queries) SumAccountFlows(ctx context.Context, accountID int64) (core.Money, core.Money, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT type, amount FROM transactions WHERE account_id = ?`, accountID)
	if err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("sum account %d flows: %w", accountID, err)
	}
	defer rows.Close()

	income, expenses := core.MoneyZero(), core.MoneyZero()
	for rows.Next() {
		var typ, amount string
		if err := rows.Scan(&typ, &amount); err != nil {
			return core.Money{}, core.Money{}, fmt.Errorf("scan flow: %w", err)
		}
		m, err := scanMoney(amount)
		if err != nil {
			return core.Money{}, core.Money{}, err
		}
		if core.TransactionType(typ) == core.Income {
			income = income.Add(m)
		} else {
			expenses = expenses.Add(m)
		}
	}
	return income, expenses, rows.Err()
}

func scanAccount(sc scanner) (core.Account, error) {
	var (
		a                core.Account
		typ              string
		initial, current string
		active           int64
	)
	if err := sc.Scan(&a.ID, &a.UserID, &a.Name, &typ, &initial, &current, &a.Currency, &active, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return core.Account{}, err
	}
	a.Type = core.AccountType(typ)
	a.Active = active == 1

	var err error
	if a.InitialBalance, err = scanMoney(initial); err != nil {
		return core.Account{}, err
	}
	if a.CurrentBalance, err = scanMoney(current); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.State == "" || !t.Recurrent {
		t.State = core.RecurrenceActive
	}

	var frequency any
	if t.Frequency != "" {
		frequency = string(t.Frequency)
	}

	res, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, account_id, category_id, type, amount, description, tx_date, tx_time, recurrent, frequency, end_date, parent_id, recurrence_state, tags, receipt_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.AccountID, t.CategoryID, string(t.Type), t.Amount.String(), t.Description,
		t.Date.String(), t.Time, boolToInt(t.Recurrent), frequency, nullDate(t.EndDate),
		nullID(t.ParentID), string(t.State), t.Tags, t.ReceiptURL, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}
	return t, nil
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	var frequency any
	if t.Frequency != "" {
		frequency = string(t.Frequency)
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET account_id = ?, category_id = ?, type = ?, amount = ?, description = ?, tx_date = ?, tx_time = ?, recurrent = ?, frequency = ?, end_date = ?, tags = ?, receipt_url = ?, updated_at = ?
		 WHERE id = ?`,
		t.AccountID, t.CategoryID, string(t.Type), t.Amount.String(), t.Description, t.Date.String(), t.Time,
		boolToInt(t.Recurrent), frequency, nullDate(t.EndDate), t.Tags, t.ReceiptURL,
		time.Now().UTC(), t.ID)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	return requireRow(res, fmt.Sprintf("transaction %d", t.ID))
}

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return requireRow(res, fmt.Sprintf("transaction %d", id))
}

func (q *Queries) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.AccountID != 0 {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.CategoryID != 0 {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if !f.From.IsZero() {
		where = append(where, "tx_date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "tx_date <= ?")
		args = append(args, f.To.String())
	}
	if f.Recurrent != nil {
		where = append(where, "recurrent = ?")
		args = append(args, boolToInt(*f.Recurrent))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY tx_date DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListActiveTemplates returns every recurring template still eligible for
// expansion.
func (q *Queries) ListActiveTemplates(ctx context.Context) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE recurrent = 1 AND recurrence_state = ? ORDER BY id`,
		string(core.RecurrenceActive))
	if err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// LatestChildDate returns the most recent occurrence date materialized
// from the template, or the zero date when no child exists yet.
func (q *Queries) LatestChildDate(ctx context.Context, parentID int64) (core.Date, error) {
	var latest sql.NullString
	err := q.db.QueryRowContext(ctx,
		`SELECT MAX(tx_date) FROM transactions WHERE parent_id = ?`, parentID).Scan(&latest)
	if err != nil {
		return core.Date{}, fmt.Errorf("latest child date for template %d: %w", parentID, err)
	}
	if !latest.Valid {
		return core.Date{}, nil
	}
	return scanDate(latest.String)
}

func (q *Queries) GetChildByDate(ctx context.Context, parentID int64, date core.Date) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE parent_id = ? AND tx_date = ?`,
		parentID, date.String())
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("child of template %d on %s: %w", parentID, date, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get child of template %d: %w", parentID, err)
	}
	return t, nil
}

func (q *Queries) SetRecurrenceState(ctx context.Context, id int64, state core.RecurrenceState) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET recurrence_state = ?, updated_at = ? WHERE id = ?`,
		string(state), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set recurrence state on %d: %w", id, err)
	}
	return requireRow(res, fmt.Sprintf("transaction %d", id))
}

func (q *Queries) RecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = ?
		 ORDER BY tx_date DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(sc scanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		typ       string
		amount    string
		txDate    string
		recurrent int64
		frequency sql.NullString
		endDate   sql.NullString
		parentID  sql.NullInt64
		state     string
	)
	err := sc.Scan(&t.ID, &t.UserID, &t.AccountID, &t.CategoryID, &typ, &amount, &t.Description,
		&txDate, &t.Time, &recurrent, &frequency, &endDate, &parentID, &state, &t.Tags,
		&t.ReceiptURL, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return core.Transaction{}, err
	}

	t.Type = core.TransactionType(typ)
	t.Recurrent = recurrent == 1
	t.State = core.RecurrenceState(state)
	if frequency.Valid {
		t.Frequency = core.Frequency(frequency.String)
	}
	if parentID.Valid {
		t.ParentID = parentID.Int64
	}

	if t.Amount, err = scanMoney(amount); err != nil {
		return core.Transaction{}, err
	}
	if t.Date, err = scanDate(txDate); err != nil {
		return core.Transaction{}, err
	}
	if endDate.Valid {
		if t.EndDate, err = scanDate(endDate.String); err != nil {
			return core.Transaction{}, err
		}
	}
	return t, nil
}

// requireRow converts a zero-row update/delete into a not-found error.
func requireRow(res sql.Result, ref string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", ref, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", ref, core.ErrNotFound)
	}
	return nil
}
