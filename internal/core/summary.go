package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	CategoryID int64
	Name       string
	Amount     Money
}

// MonthFlow is the income/expense pair for one calendar month, used for
// trend charts.
type MonthFlow struct {
	Year     int
	Month    int // 1-12
	Income   Money
	Expenses Money
}

// BudgetUsage pairs a budget with its spending for the current period.
type BudgetUsage struct {
	Budget       Budget
	CategoryName string
	Spent        Money
	Percent      float64
	Status       BudgetStatus
}

// DashboardSummary is the aggregated per-user view served by the
// dashboard endpoint.
type DashboardSummary struct {
	MonthIncome   Money
	MonthExpenses Money
	MonthNet      Money
	TotalBalance  Money
	Accounts      []Account
	Recent        []Transaction
	ByCategory    []CategoryAmount
	Budgets       []BudgetUsage
	Goals         []SavingsGoal
	Trend         []MonthFlow
}

// ReconcileReport is the drift report returned by the ledger
// synchronizer's reconcile operation.
type ReconcileReport struct {
	AccountID  int64
	Previous   Money
	Recomputed Money
	Delta      Money // recomputed minus previous; zero means no drift
}

// ExpansionReport summarizes one recurrence scan.
type ExpansionReport struct {
	Scanned  int
	Expanded int
	Ended    int
	Failed   int
	Invalid  []InvalidTemplate
}

// InvalidTemplate records a template the expander refused to process.
type InvalidTemplate struct {
	TemplateID int64
	Reason     string
}
