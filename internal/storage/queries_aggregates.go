package storage

import (
	"context"
	"fmt"
	"sort"

	"finanzas/internal/core"
)

// SumFlowsInRange totals income and expenses for a user between two
// dates, both inclusive.
func (q *Queries) SumFlowsInRange(ctx context.Context, userID int64, from, to core.Date) (core.Money, core.Money, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT type, amount FROM transactions
		 WHERE user_id = ? AND tx_date >= ? AND tx_date <= ?`,
		userID, from.String(), to.String())
	if err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("sum flows in range: %w", err)
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

func (q *Queries) SumCategoryExpensesInRange(ctx context.Context, userID, categoryID int64, from, to core.Date) (core.Money, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT amount FROM transactions
		 WHERE user_id = ? AND category_id = ? AND type = ? AND tx_date >= ? AND tx_date <= ?`,
		userID, categoryID, string(core.Expense), from.String(), to.String())
	if err != nil {
		return core.Money{}, fmt.Errorf("sum category expenses: %w", err)
	}
	defer rows.Close()

	total := core.MoneyZero()
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return core.Money{}, fmt.Errorf("scan expense: %w", err)
		}
		m, err := scanMoney(amount)
		if err != nil {
			return core.Money{}, err
		}
		total = total.Add(m)
	}
	return total, rows.Err()
}

// ExpensesByCategory breaks the user's spending in a range down per
// category, largest first.
func (q *Queries) ExpensesByCategory(ctx context.Context, userID int64, from, to core.Date) ([]core.CategoryAmount, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT c.id, c.name, t.amount
		 FROM transactions t JOIN categories c ON c.id = t.category_id
		 WHERE t.user_id = ? AND t.type = ? AND t.tx_date >= ? AND t.tx_date <= ?`,
		userID, string(core.Expense), from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("expenses by category: %w", err)
	}
	defer rows.Close()

	totals := make(map[int64]*core.CategoryAmount)
	for rows.Next() {
		var (
			id     int64
			name   string
			amount string
		)
		if err := rows.Scan(&id, &name, &amount); err != nil {
			return nil, fmt.Errorf("scan category expense: %w", err)
		}
		m, err := scanMoney(amount)
		if err != nil {
			return nil, err
		}
		entry, ok := totals[id]
		if !ok {
			entry = &core.CategoryAmount{CategoryID: id, Name: name, Amount: core.MoneyZero()}
			totals[id] = entry
		}
		entry.Amount = entry.Amount.Add(m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]core.CategoryAmount, 0, len(totals))
	for _, entry := range totals {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// MonthlyFlows returns per-month income and expense totals from the
// given date onward, oldest month first.
func (q *Queries) MonthlyFlows(ctx context.Context, userID int64, from core.Date) ([]core.MonthFlow, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT substr(tx_date, 1, 7), type, amount FROM transactions
		 WHERE user_id = ? AND tx_date >= ?`,
		userID, from.String())
	if err != nil {
		return nil, fmt.Errorf("monthly flows: %w", err)
	}
	defer rows.Close()

	flows := make(map[string]*core.MonthFlow)
	var keys []string
	for rows.Next() {
		var month, typ, amount string
		if err := rows.Scan(&month, &typ, &amount); err != nil {
			return nil, fmt.Errorf("scan monthly flow: %w", err)
		}
		m, err := scanMoney(amount)
		if err != nil {
			return nil, err
		}
		flow, ok := flows[month]
		if !ok {
			d, err := scanDate(month + "-01")
			if err != nil {
				return nil, err
			}
			flow = &core.MonthFlow{
				Year:     d.Year(),
				Month:    int(d.Month()),
				Income:   core.MoneyZero(),
				Expenses: core.MoneyZero(),
			}
			flows[month] = flow
			keys = append(keys, month)
		}
		if core.TransactionType(typ) == core.Income {
			flow.Income = flow.Income.Add(m)
		} else {
			flow.Expenses = flow.Expenses.Add(m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Strings(keys)
	out := make([]core.MonthFlow, 0, len(keys))
	for _, k := range keys {
		out = append(out, *flows[k])
	}
	return out, nil
}
