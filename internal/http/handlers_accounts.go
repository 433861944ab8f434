package http

import (
	"net/http"
	"time"

	"finanzas/internal/core"
)

type accountRequest struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	InitialBalance string `json:"initial_balance"`
	Currency       string `json:"currency"`
	Active         *bool  `json:"active,omitempty"`
}

type accountResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	InitialBalance string `json:"initial_balance"`
	CurrentBalance string `json:"current_balance"`
	Currency       string `json:"currency"`
	Active         bool   `json:"active"`
	CreatedAt      string `json:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:             a.ID,
		Name:           a.Name,
		Type:           string(a.Type),
		InitialBalance: a.InitialBalance.String(),
		CurrentBalance: a.CurrentBalance.String(),
		Currency:       a.Currency,
		Active:         a.Active,
		CreatedAt:      formatTime(a.CreatedAt),
		UpdatedAt:      formatTime(a.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	var req accountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	initial := core.MoneyZero()
	if req.InitialBalance != "" {
		var err error
		initial, err = core.ParseMoney(req.InitialBalance)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid initial_balance: "+err.Error())
			return
		}
	}

	account := core.Account{
		UserID:         userID,
		Name:           req.Name,
		Type:           core.AccountType(req.Type),
		InitialBalance: initial,
		Currency:       req.Currency,
	}
	if err := account.Validate(); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.svc.Accounts.Create(r.Context(), account)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.svc.Dashboard.Invalidate(userID)
	respondJSON(w, http.StatusCreated, toAccountResponse(created))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	accounts, err := s.svc.Accounts.List(r.Context(), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := s.ownedAccount(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := s.ownedAccount(w, r)
	if !ok {
		return
	}

	var req accountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Name != "" {
		account.Name = req.Name
	}
	if req.Type != "" {
		account.Type = core.AccountType(req.Type)
	}
	if req.Currency != "" {
		account.Currency = req.Currency
	}
	if req.Active != nil {
		account.Active = *req.Active
	}
	if err := account.Validate(); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.svc.Accounts.Update(r.Context(), account)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.svc.Dashboard.Invalidate(account.UserID)
	respondJSON(w, http.StatusOK, toAccountResponse(updated))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := s.ownedAccount(w, r)
	if !ok {
		return
	}

	if err := s.svc.Accounts.Delete(r.Context(), account.ID); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.svc.Dashboard.Invalidate(account.UserID)
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleReconcileAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := s.ownedAccount(w, r)
	if !ok {
		return
	}

	report, err := s.svc.Accounts.Reconcile(r.Context(), account.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.svc.Dashboard.Invalidate(account.UserID)
	respondJSON(w, http.StatusOK, map[string]any{
		"account_id": report.AccountID,
		"previous":   report.Previous.String(),
		"recomputed": report.Recomputed.String(),
		"delta":      report.Delta.String(),
	})
}

// ownedAccount loads the {id} account and verifies it belongs to the
// requesting user. Foreign accounts read as not found.
func (s *Server) ownedAccount(w http.ResponseWriter, r *http.Request) (core.Account, bool) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return core.Account{}, false
	}
	id, ok := pathID(w, r)
	if !ok {
		return core.Account{}, false
	}

	account, err := s.svc.Accounts.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return core.Account{}, false
	}
	if account.UserID != userID {
		respondError(w, r, http.StatusNotFound, "not found")
		return core.Account{}, false
	}
	return account, true
}
