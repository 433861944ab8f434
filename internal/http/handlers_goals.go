package http

import (
	"net/http"
	"time"

	"finanzas/internal/core"
)

type goalRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	TargetAmount string `json:"target_amount"`
	TargetDate   string `json:"target_date,omitempty"`
}

type goalResponse struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	TargetAmount  string  `json:"target_amount"`
	CurrentAmount string  `json:"current_amount"`
	TargetDate    string  `json:"target_date,omitempty"`
	Progress      float64 `json:"progress"`
	Completed     bool    `json:"completed"`
	CreatedAt     string  `json:"created_at,omitempty"`
	UpdatedAt     string  `json:"updated_at,omitempty"`
}

type contributionRequest struct {
	Amount string `json:"amount"`
	Note   string `json:"note,omitempty"`
	Date   string `json:"date,omitempty"`
}

type contributionResponse struct {
	ID        int64  `json:"id"`
	GoalID    int64  `json:"goal_id"`
	Amount    string `json:"amount"`
	Note      string `json:"note,omitempty"`
	Date      string `json:"date"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toGoalResponse(g core.SavingsGoal) goalResponse {
	resp := goalResponse{
		ID:            g.ID,
		Name:          g.Name,
		Description:   g.Description,
		TargetAmount:  g.TargetAmount.String(),
		CurrentAmount: g.CurrentAmount.String(),
		Progress:      g.Progress(),
		Completed:     g.Completed,
		CreatedAt:     formatTime(g.CreatedAt),
		UpdatedAt:     formatTime(g.UpdatedAt),
	}
	if !g.TargetDate.IsZero() {
		resp.TargetDate = g.TargetDate.String()
	}
	return resp
}

func toContributionResponse(c core.GoalContribution) contributionResponse {
	return contributionResponse{
		ID:        c.ID,
		GoalID:    c.GoalID,
		Amount:    c.Amount.String(),
		Note:      c.Note,
		Date:      c.Date.String(),
		CreatedAt: formatTime(c.CreatedAt),
	}
}

func parseGoal(w http.ResponseWriter, r *http.Request, req goalRequest, userID int64) (core.SavingsGoal, bool) {
	target, err := core.ParseMoney(req.TargetAmount)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid target_amount: "+err.Error())
		return core.SavingsGoal{}, false
	}
	targetDate, ok := optionalDate(w, r, "target_date", req.TargetDate)
	if !ok {
		return core.SavingsGoal{}, false
	}

	g := core.SavingsGoal{
		UserID:       userID,
		Name:         req.Name,
		Description:  req.Description,
		TargetAmount: target,
		TargetDate:   targetDate,
	}
	if err := g.Validate(); err != nil {
		respondDomainError(w, r, err)
		return core.SavingsGoal{}, false
	}
	return g, true
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	var req goalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	g, ok := parseGoal(w, r, req, userID)
	if !ok {
		return
	}

	created, err := s.svc.Goals.Create(r.Context(), g)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toGoalResponse(created))
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	goals, err := s.svc.Goals.List(r.Context(), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	g, ok := s.ownedGoal(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toGoalResponse(g))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	current, ok := s.ownedGoal(w, r)
	if !ok {
		return
	}

	var req goalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	g, ok := parseGoal(w, r, req, current.UserID)
	if !ok {
		return
	}
	g.ID = current.ID

	updated, err := s.svc.Goals.Update(r.Context(), g)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toGoalResponse(updated))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	g, ok := s.ownedGoal(w, r)
	if !ok {
		return
	}
	if err := s.svc.Goals.Delete(r.Context(), g.ID); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// handleContribute records a deposit toward the goal; a negative amount
// is a withdrawal.
func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	g, ok := s.ownedGoal(w, r)
	if !ok {
		return
	}

	var req contributionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid amount: "+err.Error())
		return
	}
	date, ok := optionalDate(w, r, "date", req.Date)
	if !ok {
		return
	}
	if date.IsZero() {
		date = core.DateOf(time.Now())
	}

	updated, err := s.svc.Goals.Contribute(r.Context(), core.GoalContribution{
		GoalID: g.ID,
		Amount: amount,
		Note:   req.Note,
		Date:   date,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toGoalResponse(updated))
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	g, ok := s.ownedGoal(w, r)
	if !ok {
		return
	}

	contributions, err := s.svc.Goals.Contributions(r.Context(), g.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]contributionResponse, 0, len(contributions))
	for _, c := range contributions {
		out = append(out, toContributionResponse(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) ownedGoal(w http.ResponseWriter, r *http.Request) (core.SavingsGoal, bool) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return core.SavingsGoal{}, false
	}
	id, ok := pathID(w, r)
	if !ok {
		return core.SavingsGoal{}, false
	}

	g, err := s.svc.Goals.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return core.SavingsGoal{}, false
	}
	if g.UserID != userID {
		respondError(w, r, http.StatusNotFound, "not found")
		return core.SavingsGoal{}, false
	}
	return g, true
}
