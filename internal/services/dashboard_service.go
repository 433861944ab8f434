package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/log"
)

const (
	dashboardCacheSize = 256
	dashboardGoalLimit = 5
)

// DashboardService assembles the per-user overview: month flows, total
// balance, recent movements, category breakdown, budget status, goals,
// and the monthly trend. Summaries are cached per user; mutation
// handlers invalidate so the view follows the ledger.
type DashboardService struct {
	repo      Repository
	budgets   *BudgetService
	summaries *cache.LRUCache[core.DashboardSummary]
}

func NewDashboardService(repo Repository, budgets *BudgetService, cacheTTL time.Duration) *DashboardService {
	return &DashboardService{
		repo:      repo,
		budgets:   budgets,
		summaries: cache.NewLRUCache[core.DashboardSummary](dashboardCacheSize, cacheTTL),
	}
}

func (s *DashboardService) Summary(ctx context.Context, userID int64, today core.Date) (core.DashboardSummary, error) {
	key := s.cacheKey(userID)
	if data, found := s.summaries.Get(key); found {
		slog.DebugContext(ctx, "Dashboard cache hit", log.FieldUserID, userID)
		return data, nil
	}

	summary, err := s.build(ctx, userID, today)
	if err != nil {
		return core.DashboardSummary{}, err
	}

	s.summaries.Set(key, summary)
	return summary, nil
}

// Invalidate drops the user's cached summary after a ledger mutation.
func (s *DashboardService) Invalidate(userID int64) {
	s.summaries.Delete(s.cacheKey(userID))
}

// CacheStats exposes hit/miss counters for the health endpoint.
func (s *DashboardService) CacheStats() cache.Stats {
	return s.summaries.Stats()
}

// Cache exposes the summary cache so the lifecycle manager can sweep
// expired entries for inactive users.
func (s *DashboardService) Cache() cache.Cleaner {
	return s.summaries
}

func (s *DashboardService) cacheKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func (s *DashboardService) build(ctx context.Context, userID int64, today core.Date) (core.DashboardSummary, error) {
	monthStart := core.NewDate(today.Year(), today.Month(), 1)
	monthEnd := core.NewDate(today.Year(), today.Month()+1, 0)

	income, expenses, err := s.repo.SumFlowsInRange(ctx, userID, monthStart, monthEnd)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("sum month flows: %w", err)
	}

	accounts, err := s.repo.ListAccounts(ctx, userID)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("list accounts: %w", err)
	}
	total := core.MoneyZero()
	for _, a := range accounts {
		if a.Active {
			total = total.Add(a.CurrentBalance)
		}
	}

	recent, err := s.repo.RecentTransactions(ctx, userID, 10)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("recent transactions: %w", err)
	}

	byCategory, err := s.repo.ExpensesByCategory(ctx, userID, monthStart, monthEnd)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("expenses by category: %w", err)
	}

	usages, err := s.budgets.Status(ctx, userID, today)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("budget status: %w", err)
	}

	goals, err := s.repo.ListGoals(ctx, userID)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("list goals: %w", err)
	}
	if len(goals) > dashboardGoalLimit {
		goals = goals[:dashboardGoalLimit]
	}

	// Six months of history including the current one.
	trendFrom := core.NewDate(today.Year(), today.Month()-5, 1)
	trend, err := s.repo.MonthlyFlows(ctx, userID, trendFrom)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("monthly flows: %w", err)
	}

	return core.DashboardSummary{
		MonthIncome:   income,
		MonthExpenses: expenses,
		MonthNet:      income.Sub(expenses),
		TotalBalance:  total,
		Accounts:      accounts,
		Recent:        recent,
		ByCategory:    byCategory,
		Budgets:       usages,
		Goals:         goals,
		Trend:         trend,
	}, nil
}
