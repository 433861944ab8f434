package core

import (
	"errors"
	"strings"
	"time"
)

const (
	BudgetWeekly  BudgetPeriod = "weekly"
	BudgetMonthly BudgetPeriod = "monthly"
	BudgetYearly  BudgetPeriod = "yearly"
)

const (
	BudgetNormal   BudgetStatus = "normal"
	BudgetAlert    BudgetStatus = "alert"
	BudgetExceeded BudgetStatus = "exceeded"
	BudgetInactive BudgetStatus = "inactive"
)

type (
	BudgetPeriod string
	BudgetStatus string

	// Category classifies transactions. Rows without an owning user are
	// predefined and shared by everyone.
	Category struct {
		ID     int64
		UserID int64 // 0 means predefined
		Name   string
		Kind   TransactionType
		Icon   string
		Color  string
	}

	// Budget caps expense spending on one category over a rolling period.
	Budget struct {
		ID             int64
		UserID         int64
		CategoryID     int64
		LimitAmount    Money
		Period         BudgetPeriod
		StartDate      Date
		EndDate        Date // zero means open-ended
		AlertsActive   bool
		AlertThreshold int // percent of the limit that triggers an alert
		Active         bool
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	SavingsGoal struct {
		ID            int64
		UserID        int64
		Name          string
		Description   string
		TargetAmount  Money
		CurrentAmount Money
		TargetDate    Date // zero means no deadline
		Completed     bool
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	GoalContribution struct {
		ID        int64
		GoalID    int64
		Amount    Money // negative for withdrawals
		Note      string
		Date      Date
		CreatedAt time.Time
	}
)

func (c Category) Predefined() bool {
	return c.UserID == 0
}

func (c Category) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	if len(c.Name) > 50 {
		return errors.New("name too long (max 50 characters)")
	}
	return c.Kind.Validate()
}

func (p BudgetPeriod) Validate() error {
	switch p {
	case BudgetWeekly, BudgetMonthly, BudgetYearly:
		return nil
	default:
		return errors.New("invalid budget period")
	}
}

// Days returns the length of the period window starting at from.
func (p BudgetPeriod) Days(from Date) int {
	switch p {
	case BudgetWeekly:
		return 7
	case BudgetYearly:
		return int(from.AddDate(1, 0, 0).Sub(from.Time).Hours() / 24)
	default:
		return int(from.AddDate(0, 1, 0).Sub(from.Time).Hours() / 24)
	}
}

func (b Budget) Validate() error {
	if err := b.LimitAmount.Validate(); err != nil {
		return err
	}
	if err := b.Period.Validate(); err != nil {
		return err
	}
	if err := b.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if !b.EndDate.IsZero() && b.EndDate.Before(b.StartDate.Time) {
		return errors.New("end date must not precede start date")
	}
	if b.CategoryID == 0 {
		return ErrMissingCategory
	}
	if b.AlertThreshold < 1 || b.AlertThreshold > 100 {
		return errors.New("alert threshold must be between 1 and 100")
	}
	return nil
}

// InWindow reports whether the budget applies on the given day.
func (b Budget) InWindow(today Date) bool {
	if !b.Active {
		return false
	}
	if today.Before(b.StartDate.Time) {
		return false
	}
	if !b.EndDate.IsZero() && today.After(b.EndDate.Time) {
		return false
	}
	return true
}

// PercentUsed returns spent as a percentage of the limit.
func (b Budget) PercentUsed(spent Money) float64 {
	if !b.LimitAmount.IsPositive() {
		return 0
	}
	return spent.Float64() / b.LimitAmount.Float64() * 100
}

// Status derives the budget state from the amount spent in the current
// period. Inactive wins over every other state.
func (b Budget) Status(spent Money, today Date) BudgetStatus {
	if !b.InWindow(today) {
		return BudgetInactive
	}
	if spent.Cmp(b.LimitAmount) >= 0 {
		return BudgetExceeded
	}
	if b.AlertsActive && b.PercentUsed(spent) >= float64(b.AlertThreshold) {
		return BudgetAlert
	}
	return BudgetNormal
}

func (g SavingsGoal) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if len(g.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	return g.TargetAmount.Validate()
}

// Progress returns completion as a percentage, capped at 100.
func (g SavingsGoal) Progress() float64 {
	if !g.TargetAmount.IsPositive() {
		return 0
	}
	p := g.CurrentAmount.Float64() / g.TargetAmount.Float64() * 100
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}

// Reached reports whether the current amount meets the target.
func (g SavingsGoal) Reached() bool {
	return g.CurrentAmount.Cmp(g.TargetAmount) >= 0
}
