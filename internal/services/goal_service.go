package services

import (
	"context"
	"fmt"
	"log/slog"

	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/storage"
)

// GoalService manages savings goals and their contribution history.
type GoalService struct {
	repo Repository
}

func NewGoalService(repo Repository) *GoalService {
	return &GoalService{repo: repo}
}

func (s *GoalService) Create(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	if g.CurrentAmount.IsNegative() {
		return core.SavingsGoal{}, core.ErrInvalidAmount
	}
	g.Completed = g.Reached()

	created, err := s.repo.CreateGoal(ctx, g)
	if err != nil {
		return core.SavingsGoal{}, err
	}

	slog.InfoContext(ctx, "Savings goal created",
		log.FieldGoalID, created.ID,
		log.FieldUserID, created.UserID,
		"name", created.Name,
		"target", created.TargetAmount.String())
	return created, nil
}

func (s *GoalService) Get(ctx context.Context, id int64) (core.SavingsGoal, error) {
	return s.repo.GetGoal(ctx, id)
}

func (s *GoalService) List(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	return s.repo.ListGoals(ctx, userID)
}

func (s *GoalService) Update(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	current, err := s.repo.GetGoal(ctx, g.ID)
	if err != nil {
		return core.SavingsGoal{}, err
	}

	// The accumulated amount only moves through contributions.
	g.UserID = current.UserID
	g.CurrentAmount = current.CurrentAmount

	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	g.Completed = g.Reached()

	if err := s.repo.UpdateGoal(ctx, g); err != nil {
		return core.SavingsGoal{}, err
	}
	return s.repo.GetGoal(ctx, g.ID)
}

func (s *GoalService) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteGoal(ctx, id)
}

// Contribute records a deposit into (or, with a negative amount, a
// withdrawal from) a goal and moves the accumulated total in the same
// unit of work. Withdrawing more than the goal holds is rejected.
func (s *GoalService) Contribute(ctx context.Context, c core.GoalContribution) (core.SavingsGoal, error) {
	if c.Amount.IsZero() {
		return core.SavingsGoal{}, core.ErrInvalidAmount
	}
	if err := c.Date.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}

	var updated core.SavingsGoal
	err := s.repo.RunInTransaction(ctx, func(store storage.Store) error {
		goal, err := store.GetGoal(ctx, c.GoalID)
		if err != nil {
			return err
		}

		total := goal.CurrentAmount.Add(c.Amount)
		if total.IsNegative() {
			return fmt.Errorf("withdrawal exceeds saved amount %s: %w",
				goal.CurrentAmount, core.ErrInvalidAmount)
		}

		if _, err := store.AddContribution(ctx, c); err != nil {
			return err
		}

		goal.CurrentAmount = total
		goal.Completed = goal.Reached()
		if err := store.UpdateGoal(ctx, goal); err != nil {
			return err
		}
		updated = goal
		return nil
	})
	if err != nil {
		return core.SavingsGoal{}, err
	}

	slog.InfoContext(ctx, "Goal contribution recorded",
		log.FieldGoalID, c.GoalID,
		log.FieldAmount, c.Amount.String(),
		"total", updated.CurrentAmount.String(),
		"completed", updated.Completed)
	return updated, nil
}

func (s *GoalService) Contributions(ctx context.Context, goalID int64) ([]core.GoalContribution, error) {
	return s.repo.ListContributions(ctx, goalID)
}
