package http

import (
	"net/http"
	"time"

	"finanzas/internal/core"
)

type dashboardResponse struct {
	MonthIncome   string                 `json:"month_income"`
	MonthExpenses string                 `json:"month_expenses"`
	MonthNet      string                 `json:"month_net"`
	TotalBalance  string                 `json:"total_balance"`
	Accounts      []accountResponse      `json:"accounts"`
	Recent        []transactionResponse  `json:"recent_transactions"`
	ByCategory    []categoryAmountDTO    `json:"expenses_by_category"`
	Budgets       []budgetStatusResponse `json:"budgets"`
	Goals         []goalResponse         `json:"goals"`
	Trend         []monthFlowDTO         `json:"trend"`
}

type categoryAmountDTO struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	Amount     string `json:"amount"`
}

type monthFlowDTO struct {
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	today, ok := optionalDate(w, r, "date", r.URL.Query().Get("date"))
	if !ok {
		return
	}
	if today.IsZero() {
		today = core.DateOf(time.Now())
	}

	summary, err := s.svc.Dashboard.Summary(r.Context(), userID, today)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := dashboardResponse{
		MonthIncome:   summary.MonthIncome.String(),
		MonthExpenses: summary.MonthExpenses.String(),
		MonthNet:      summary.MonthNet.String(),
		TotalBalance:  summary.TotalBalance.String(),
		Accounts:      make([]accountResponse, 0, len(summary.Accounts)),
		Recent:        make([]transactionResponse, 0, len(summary.Recent)),
		ByCategory:    make([]categoryAmountDTO, 0, len(summary.ByCategory)),
		Budgets:       make([]budgetStatusResponse, 0, len(summary.Budgets)),
		Goals:         make([]goalResponse, 0, len(summary.Goals)),
		Trend:         make([]monthFlowDTO, 0, len(summary.Trend)),
	}
	for _, a := range summary.Accounts {
		resp.Accounts = append(resp.Accounts, toAccountResponse(a))
	}
	for _, t := range summary.Recent {
		resp.Recent = append(resp.Recent, toTransactionResponse(t))
	}
	for _, c := range summary.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryAmountDTO{
			CategoryID: c.CategoryID,
			Name:       c.Name,
			Amount:     c.Amount.String(),
		})
	}
	for _, u := range summary.Budgets {
		resp.Budgets = append(resp.Budgets, budgetStatusResponse{
			Budget:       toBudgetResponse(u.Budget),
			CategoryName: u.CategoryName,
			Spent:        u.Spent.String(),
			Percent:      u.Percent,
			Status:       string(u.Status),
		})
	}
	for _, g := range summary.Goals {
		resp.Goals = append(resp.Goals, toGoalResponse(g))
	}
	for _, f := range summary.Trend {
		resp.Trend = append(resp.Trend, monthFlowDTO{
			Year:     f.Year,
			Month:    f.Month,
			Income:   f.Income.String(),
			Expenses: f.Expenses.String(),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}
