package http

import (
	"net/http"
	"strconv"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

type transactionRequest struct {
	AccountID   int64  `json:"account_id"`
	CategoryID  int64  `json:"category_id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	Recurrent   bool   `json:"recurrent,omitempty"`
	Frequency   string `json:"frequency,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Tags        string `json:"tags,omitempty"`
	ReceiptURL  string `json:"receipt_url,omitempty"`
}

type transactionResponse struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"account_id"`
	CategoryID  int64  `json:"category_id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	Recurrent   bool   `json:"recurrent"`
	Frequency   string `json:"frequency,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	ParentID    int64  `json:"parent_id,omitempty"`
	State       string `json:"recurrence_state,omitempty"`
	Tags        string `json:"tags,omitempty"`
	ReceiptURL  string `json:"receipt_url,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          t.ID,
		AccountID:   t.AccountID,
		CategoryID:  t.CategoryID,
		Type:        string(t.Type),
		Amount:      t.Amount.String(),
		Description: t.Description,
		Date:        t.Date.String(),
		Time:        t.Time,
		Recurrent:   t.Recurrent,
		Frequency:   string(t.Frequency),
		ParentID:    t.ParentID,
		Tags:        t.Tags,
		ReceiptURL:  t.ReceiptURL,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
	if !t.EndDate.IsZero() {
		resp.EndDate = t.EndDate.String()
	}
	if t.Recurrent {
		resp.State = string(t.State)
	}
	return resp
}

// parseTransaction converts a request body into a core transaction.
func parseTransaction(w http.ResponseWriter, r *http.Request, req transactionRequest, userID int64) (core.Transaction, bool) {
	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid amount: "+err.Error())
		return core.Transaction{}, false
	}
	date, ok := optionalDate(w, r, "date", req.Date)
	if !ok {
		return core.Transaction{}, false
	}
	endDate, ok := optionalDate(w, r, "end_date", req.EndDate)
	if !ok {
		return core.Transaction{}, false
	}

	t := core.Transaction{
		UserID:      userID,
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Type:        core.TransactionType(req.Type),
		Amount:      amount,
		Description: req.Description,
		Date:        date,
		Time:        req.Time,
		Recurrent:   req.Recurrent,
		Frequency:   core.Frequency(req.Frequency),
		EndDate:     endDate,
	}
	if t.Recurrent {
		t.State = core.RecurrenceActive
	}
	t.Tags = req.Tags
	t.ReceiptURL = req.ReceiptURL

	if err := t.Validate(); err != nil {
		respondDomainError(w, r, err)
		return core.Transaction{}, false
	}
	return t, true
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, ok := parseTransaction(w, r, req, userID)
	if !ok {
		return
	}

	created, err := s.svc.Transactions.Create(r.Context(), t)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.svc.Dashboard.Invalidate(userID)
	respondJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := storage.TransactionFilter{UserID: userID}
	filter.AccountID = queryInt64(q.Get("account_id"))
	filter.CategoryID = queryInt64(q.Get("category_id"))
	filter.Type = core.TransactionType(q.Get("type"))
	filter.Limit = int(queryInt64(q.Get("limit")))
	filter.Offset = int(queryInt64(q.Get("offset")))

	if filter.Type != "" {
		if err := filter.Type.Validate(); err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid type filter")
			return
		}
	}

	from, ok := optionalDate(w, r, "from", q.Get("from"))
	if !ok {
		return
	}
	to, ok := optionalDate(w, r, "to", q.Get("to"))
	if !ok {
		return
	}
	filter.From = from
	filter.To = to

	if v := q.Get("recurrent"); v != "" {
		recurrent := v == "true" || v == "1"
		filter.Recurrent = &recurrent
	}

	transactions, err := s.svc.Transactions.List(r.Context(), filter)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, toTransactionResponse(t))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, ok := s.ownedTransaction(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	current, ok := s.ownedTransaction(w, r)
	if !ok {
		return
	}

	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, ok := parseTransaction(w, r, req, current.UserID)
	if !ok {
		return
	}
	t.ID = current.ID

	updated, err := s.svc.Transactions.Update(r.Context(), t)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.svc.Dashboard.Invalidate(current.UserID)
	respondJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	t, ok := s.ownedTransaction(w, r)
	if !ok {
		return
	}

	if err := s.svc.Transactions.Delete(r.Context(), t.ID); err != nil {
		respondDomainError(w, r, err)
		return
	}

	s.svc.Dashboard.Invalidate(t.UserID)
	respondJSON(w, http.StatusNoContent, nil)
}

// handleNextOccurrence previews the next due date of a recurring
// template, for "next charge on ..." UI hints.
func (s *Server) handleNextOccurrence(w http.ResponseWriter, r *http.Request) {
	t, ok := s.ownedTransaction(w, r)
	if !ok {
		return
	}

	next, err := s.svc.Recurrence.NextForTemplate(r.Context(), t.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"template_id":     t.ID,
		"next_occurrence": next.String(),
	})
}

func (s *Server) ownedTransaction(w http.ResponseWriter, r *http.Request) (core.Transaction, bool) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return core.Transaction{}, false
	}
	id, ok := pathID(w, r)
	if !ok {
		return core.Transaction{}, false
	}

	t, err := s.svc.Transactions.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return core.Transaction{}, false
	}
	if t.UserID != userID {
		respondError(w, r, http.StatusNotFound, "not found")
		return core.Transaction{}, false
	}
	return t, true
}

func queryInt64(raw string) int64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
