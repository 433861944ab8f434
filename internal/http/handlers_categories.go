package http

import (
	"net/http"

	"finanzas/internal/core"
)

type categoryRequest struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

type categoryResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Icon       string `json:"icon,omitempty"`
	Color      string `json:"color,omitempty"`
	Predefined bool   `json:"predefined"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:         c.ID,
		Name:       c.Name,
		Kind:       string(c.Kind),
		Icon:       c.Icon,
		Color:      c.Color,
		Predefined: c.Predefined(),
	}
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c := core.Category{
		UserID: userID,
		Name:   req.Name,
		Kind:   core.TransactionType(req.Kind),
		Icon:   req.Icon,
		Color:  req.Color,
	}
	if err := c.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	created, err := s.svc.Categories.Create(r.Context(), c)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCategoryResponse(created))
}

// handleListCategories returns the predefined categories plus the
// caller's own.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	categories, err := s.svc.Categories.List(r.Context(), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryResponse(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	c, err := s.svc.Categories.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if c.Predefined() {
		respondDomainError(w, r, core.ErrCategoryPredefined)
		return
	}
	if c.UserID != userID {
		respondError(w, r, http.StatusNotFound, "not found")
		return
	}

	if err := s.svc.Categories.Delete(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
