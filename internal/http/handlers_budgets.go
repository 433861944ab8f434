package http

import (
	"net/http"
	"time"

	"finanzas/internal/core"
)

type budgetRequest struct {
	CategoryID     int64  `json:"category_id"`
	LimitAmount    string `json:"limit_amount"`
	Period         string `json:"period"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date,omitempty"`
	AlertsActive   bool   `json:"alerts_active"`
	AlertThreshold int    `json:"alert_threshold"`
	Active         *bool  `json:"active,omitempty"`
}

type budgetResponse struct {
	ID             int64  `json:"id"`
	CategoryID     int64  `json:"category_id"`
	LimitAmount    string `json:"limit_amount"`
	Period         string `json:"period"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date,omitempty"`
	AlertsActive   bool   `json:"alerts_active"`
	AlertThreshold int    `json:"alert_threshold"`
	Active         bool   `json:"active"`
	CreatedAt      string `json:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

type budgetStatusResponse struct {
	Budget       budgetResponse `json:"budget"`
	CategoryName string         `json:"category_name"`
	Spent        string         `json:"spent"`
	Percent      float64        `json:"percent"`
	Status       string         `json:"status"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	resp := budgetResponse{
		ID:             b.ID,
		CategoryID:     b.CategoryID,
		LimitAmount:    b.LimitAmount.String(),
		Period:         string(b.Period),
		StartDate:      b.StartDate.String(),
		AlertsActive:   b.AlertsActive,
		AlertThreshold: b.AlertThreshold,
		Active:         b.Active,
		CreatedAt:      formatTime(b.CreatedAt),
		UpdatedAt:      formatTime(b.UpdatedAt),
	}
	if !b.EndDate.IsZero() {
		resp.EndDate = b.EndDate.String()
	}
	return resp
}

func parseBudget(w http.ResponseWriter, r *http.Request, req budgetRequest, userID int64) (core.Budget, bool) {
	limit, err := core.ParseMoney(req.LimitAmount)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid limit_amount: "+err.Error())
		return core.Budget{}, false
	}
	start, ok := optionalDate(w, r, "start_date", req.StartDate)
	if !ok {
		return core.Budget{}, false
	}
	end, ok := optionalDate(w, r, "end_date", req.EndDate)
	if !ok {
		return core.Budget{}, false
	}

	b := core.Budget{
		UserID:         userID,
		CategoryID:     req.CategoryID,
		LimitAmount:    limit,
		Period:         core.BudgetPeriod(req.Period),
		StartDate:      start,
		EndDate:        end,
		AlertsActive:   req.AlertsActive,
		AlertThreshold: req.AlertThreshold,
		Active:         true,
	}
	if req.Active != nil {
		b.Active = *req.Active
	}
	if b.AlertThreshold == 0 {
		b.AlertThreshold = 80
	}

	if err := b.Validate(); err != nil {
		respondDomainError(w, r, err)
		return core.Budget{}, false
	}
	return b, true
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	var req budgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	b, ok := parseBudget(w, r, req, userID)
	if !ok {
		return
	}

	created, err := s.svc.Budgets.Create(r.Context(), b)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toBudgetResponse(created))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	budgets, err := s.svc.Budgets.List(r.Context(), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	respondJSON(w, http.StatusOK, out)
}

// handleBudgetStatus reports each active budget's spending against its
// limit for the period containing the given day (default today).
func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
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

	usages, err := s.svc.Budgets.Status(r.Context(), userID, today)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]budgetStatusResponse, 0, len(usages))
	for _, u := range usages {
		out = append(out, budgetStatusResponse{
			Budget:       toBudgetResponse(u.Budget),
			CategoryName: u.CategoryName,
			Spent:        u.Spent.String(),
			Percent:      u.Percent,
			Status:       string(u.Status),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, ok := s.ownedBudget(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toBudgetResponse(b))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	current, ok := s.ownedBudget(w, r)
	if !ok {
		return
	}

	var req budgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	b, ok := parseBudget(w, r, req, current.UserID)
	if !ok {
		return
	}
	b.ID = current.ID

	updated, err := s.svc.Budgets.Update(r.Context(), b)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toBudgetResponse(updated))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	b, ok := s.ownedBudget(w, r)
	if !ok {
		return
	}
	if err := s.svc.Budgets.Delete(r.Context(), b.ID); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) ownedBudget(w http.ResponseWriter, r *http.Request) (core.Budget, bool) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return core.Budget{}, false
	}
	id, ok := pathID(w, r)
	if !ok {
		return core.Budget{}, false
	}

	b, err := s.svc.Budgets.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return core.Budget{}, false
	}
	if b.UserID != userID {
		respondError(w, r, http.StatusNotFound, "not found")
		return core.Budget{}, false
	}
	return b, true
}
