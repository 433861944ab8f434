package services

import (
	"context"
	"fmt"
	"log/slog"

	"finanzas/internal/core"
	"finanzas/internal/log"
)

// BudgetService manages spending caps and derives their live status.
type BudgetService struct {
	repo Repository
}

func NewBudgetService(repo Repository) *BudgetService {
	return &BudgetService{repo: repo}
}

func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	category, err := s.repo.GetCategory(ctx, b.CategoryID)
	if err != nil {
		return core.Budget{}, err
	}
	if category.Kind != core.Expense {
		return core.Budget{}, fmt.Errorf("budgets cap expense categories, %q is %s: %w",
			category.Name, category.Kind, core.ErrCategoryKindMismatch)
	}

	created, err := s.repo.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget created",
		log.FieldBudgetID, created.ID,
		log.FieldCategoryID, created.CategoryID,
		log.FieldAmount, created.LimitAmount.String(),
		"period", string(created.Period))
	return created, nil
}

func (s *BudgetService) Get(ctx context.Context, id int64) (core.Budget, error) {
	return s.repo.GetBudget(ctx, id)
}

func (s *BudgetService) List(ctx context.Context, userID int64) ([]core.Budget, error) {
	return s.repo.ListBudgets(ctx, userID)
}

func (s *BudgetService) Update(ctx context.Context, b core.Budget) (core.Budget, error) {
	current, err := s.repo.GetBudget(ctx, b.ID)
	if err != nil {
		return core.Budget{}, err
	}
	b.UserID = current.UserID

	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.repo.UpdateBudget(ctx, b); err != nil {
		return core.Budget{}, err
	}
	return s.repo.GetBudget(ctx, b.ID)
}

func (s *BudgetService) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteBudget(ctx, id)
}

// Status reports every budget of the user with the spending accumulated
// in its current period window.
func (s *BudgetService) Status(ctx context.Context, userID int64, today core.Date) ([]core.BudgetUsage, error) {
	budgets, err := s.repo.ListBudgets(ctx, userID)
	if err != nil {
		return nil, err
	}

	usages := make([]core.BudgetUsage, 0, len(budgets))
	for _, b := range budgets {
		from, to := currentWindow(b, today)
		spent, err := s.repo.SumCategoryExpensesInRange(ctx, b.UserID, b.CategoryID, from, to)
		if err != nil {
			return nil, fmt.Errorf("sum spending for budget %d: %w", b.ID, err)
		}

		category, err := s.repo.GetCategory(ctx, b.CategoryID)
		if err != nil {
			return nil, err
		}

		usages = append(usages, core.BudgetUsage{
			Budget:       b,
			CategoryName: category.Name,
			Spent:        spent,
			Percent:      b.PercentUsed(spent),
			Status:       b.Status(spent, today),
		})
	}
	return usages, nil
}

// currentWindow returns the budget period containing today, anchored at
// the budget's start date. Monthly and yearly windows step with the
// same clamped-date advancement recurring templates use, so a budget
// anchored on the 31st rolls over cleanly through short months.
func currentWindow(b core.Budget, today core.Date) (core.Date, core.Date) {
	advancer := advancerForPeriod(b.Period)

	from := b.StartDate
	for !today.Before(from.Time) {
		next := advancer.Next(b.StartDate, from)
		if next.After(today.Time) {
			break
		}
		from = next
	}
	to := advancer.Next(b.StartDate, from).AddDays(-1)
	return from, to
}

func advancerForPeriod(p core.BudgetPeriod) OccurrenceAdvancer {
	switch p {
	case core.BudgetWeekly:
		return WeeklyAdvancer{}
	case core.BudgetYearly:
		return YearlyAdvancer{}
	default:
		return MonthlyAdvancer{}
	}
}
