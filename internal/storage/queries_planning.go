package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finanzas/internal/core"
)

const budgetColumns = `id, user_id, category_id, limit_amount, period, start_date, end_date, alerts_active, alert_threshold, active, created_at, updated_at`

const goalColumns = `id, user_id, name, description, target_amount, current_amount, target_date, completed, created_at, updated_at`

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, kind, icon, color) VALUES (?, ?, ?, ?, ?)`,
		nullID(c.UserID), c.Name, string(c.Kind), c.Icon, c.Color)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category insert id: %w", err)
	}
	return c, nil
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, kind, icon, color FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

// ListCategories returns the predefined set plus the user's own, income
// first so pickers group naturally.
func (q *Queries) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, user_id, name, kind, icon, color FROM categories
		 WHERE user_id IS NULL OR user_id = ? ORDER BY kind, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return requireRow(res, fmt.Sprintf("category %d", id))
}

func (q *Queries) CountCategoryTransactions(ctx context.Context, categoryID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE category_id = ?`, categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count category %d transactions: %w", categoryID, err)
	}
	return n, nil
}

func scanCategory(sc scanner) (core.Category, error) {
	var (
		c      core.Category
		userID sql.NullInt64
		kind   string
	)
	if err := sc.Scan(&c.ID, &userID, &c.Name, &kind, &c.Icon, &c.Color); err != nil {
		return core.Category{}, err
	}
	if userID.Valid {
		c.UserID = userID.Int64
	}
	c.Kind = core.TransactionType(kind)
	return c, nil
}

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, category_id, limit_amount, period, start_date, end_date, alerts_active, alert_threshold, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.CategoryID, b.LimitAmount.String(), string(b.Period), b.StartDate.String(),
		nullDate(b.EndDate), boolToInt(b.AlertsActive), b.AlertThreshold, boolToInt(b.Active),
		b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget insert id: %w", err)
	}
	return b, nil
}

func (q *Queries) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, err)
	}
	return b, nil
}

func (q *Queries) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (q *Queries) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE budgets SET category_id = ?, limit_amount = ?, period = ?, start_date = ?, end_date = ?, alerts_active = ?, alert_threshold = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		b.CategoryID, b.LimitAmount.String(), string(b.Period), b.StartDate.String(),
		nullDate(b.EndDate), boolToInt(b.AlertsActive), b.AlertThreshold, boolToInt(b.Active),
		time.Now().UTC(), b.ID)
	if err != nil {
		return fmt.Errorf("update budget %d: %w", b.ID, err)
	}
	return requireRow(res, fmt.Sprintf("budget %d", b.ID))
}

func (q *Queries) DeleteBudget(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	return requireRow(res, fmt.Sprintf("budget %d", id))
}

func scanBudget(sc scanner) (core.Budget, error) {
	var (
		b            core.Budget
		limit        string
		period       string
		startDate    string
		endDate      sql.NullString
		alertsActive int64
		active       int64
	)
	err := sc.Scan(&b.ID, &b.UserID, &b.CategoryID, &limit, &period, &startDate, &endDate,
		&alertsActive, &b.AlertThreshold, &active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return core.Budget{}, err
	}

	b.Period = core.BudgetPeriod(period)
	b.AlertsActive = alertsActive == 1
	b.Active = active == 1

	if b.LimitAmount, err = scanMoney(limit); err != nil {
		return core.Budget{}, err
	}
	if b.StartDate, err = scanDate(startDate); err != nil {
		return core.Budget{}, err
	}
	if endDate.Valid {
		if b.EndDate, err = scanDate(endDate.String); err != nil {
			return core.Budget{}, err
		}
	}
	return b, nil
}

func (q *Queries) CreateGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO savings_goals (user_id, name, description, target_amount, current_amount, target_date, completed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.Name, g.Description, g.TargetAmount.String(), g.CurrentAmount.String(),
		nullDate(g.TargetDate), boolToInt(g.Completed), g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("insert goal: %w", err)
	}
	g.ID, err = res.LastInsertId()
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("goal insert id: %w", err)
	}
	return g, nil
}

func (q *Queries) GetGoal(ctx context.Context, id int64) (core.SavingsGoal, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM savings_goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, fmt.Errorf("goal %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get goal %d: %w", id, err)
	}
	return g, nil
}

func (q *Queries) ListGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM savings_goals WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.SavingsGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (q *Queries) UpdateGoal(ctx context.Context, g core.SavingsGoal) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE savings_goals SET name = ?, description = ?, target_amount = ?, current_amount = ?, target_date = ?, completed = ?, updated_at = ?
		 WHERE id = ?`,
		g.Name, g.Description, g.TargetAmount.String(), g.CurrentAmount.String(),
		nullDate(g.TargetDate), boolToInt(g.Completed), time.Now().UTC(), g.ID)
	if err != nil {
		return fmt.Errorf("update goal %d: %w", g.ID, err)
	}
	return requireRow(res, fmt.Sprintf("goal %d", g.ID))
}

func (q *Queries) DeleteGoal(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM savings_goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal %d: %w", id, err)
	}
	return requireRow(res, fmt.Sprintf("goal %d", id))
}

func (q *Queries) AddContribution(ctx context.Context, c core.GoalContribution) (core.GoalContribution, error) {
	c.CreatedAt = time.Now().UTC()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO goal_contributions (goal_id, amount, note, contribution_date, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.GoalID, c.Amount.String(), c.Note, c.Date.String(), c.CreatedAt)
	if err != nil {
		return core.GoalContribution{}, fmt.Errorf("insert contribution: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.GoalContribution{}, fmt.Errorf("contribution insert id: %w", err)
	}
	return c, nil
}

func (q *Queries) ListContributions(ctx context.Context, goalID int64) ([]core.GoalContribution, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, goal_id, amount, note, contribution_date, created_at FROM goal_contributions
		 WHERE goal_id = ? ORDER BY contribution_date DESC, id DESC`, goalID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []core.GoalContribution
	for rows.Next() {
		var (
			c      core.GoalContribution
			amount string
			date   string
		)
		if err := rows.Scan(&c.ID, &c.GoalID, &amount, &c.Note, &date, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		if c.Amount, err = scanMoney(amount); err != nil {
			return nil, err
		}
		if c.Date, err = scanDate(date); err != nil {
			return nil, err
		}
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}

func scanGoal(sc scanner) (core.SavingsGoal, error) {
	var (
		g          core.SavingsGoal
		target     string
		current    string
		targetDate sql.NullString
		completed  int64
	)
	err := sc.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &target, &current, &targetDate,
		&completed, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return core.SavingsGoal{}, err
	}

	g.Completed = completed == 1

	if g.TargetAmount, err = scanMoney(target); err != nil {
		return core.SavingsGoal{}, err
	}
	if g.CurrentAmount, err = scanMoney(current); err != nil {
		return core.SavingsGoal{}, err
	}
	if targetDate.Valid {
		if g.TargetDate, err = scanDate(targetDate.String); err != nil {
			return core.SavingsGoal{}, err
		}
	}
	return g, nil
}
