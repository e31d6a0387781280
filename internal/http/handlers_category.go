package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"finanzen/internal/log"
	"finanzen/internal/services"
)

// handleListCategories returns the category tree, or the flat list ordered
// by full path when flat=true.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParams(r)
	flat := q.Bool("flat", false)
	if err := q.Err(); err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpList)
		return
	}

	list := s.svc.Categories.Tree
	if flat {
		list = s.svc.Categories.Flat
	}
	categories, err := list(r.Context())
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpList)
		return
	}
	NewJSONResponse().JSON(categories).Write(w)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpRead)
		return
	}
	c, err := s.svc.Categories.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpRead)
		return
	}
	NewJSONResponse().JSON(c).Write(w)
}

type categoryRequest struct {
	Name          string           `json:"name"`
	ParentID      *int64           `json:"parent_id"`
	Color         string           `json:"color"`
	Icon          string           `json:"icon"`
	BudgetMonthly *decimal.Decimal `json:"budget_monthly"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpCreate)
		return
	}
	c, err := s.svc.Categories.Create(r.Context(), services.CategoryInput{
		Name:          sanitizeInput(req.Name),
		ParentID:      req.ParentID,
		Color:         sanitizeInput(req.Color),
		Icon:          sanitizeInput(req.Icon),
		BudgetMonthly: req.BudgetMonthly,
	})
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpCreate)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(c).Write(w)
}

type categoryPatchRequest struct {
	Name          *string          `json:"name"`
	ParentID      *int64           `json:"parent_id"`
	Color         *string          `json:"color"`
	Icon          *string          `json:"icon"`
	BudgetMonthly *decimal.Decimal `json:"budget_monthly"`
}

// handlePatchCategory updates a category. An explicit null parent_id moves
// it to the top level; a null budget_monthly removes the budget.
func (s *Server) handlePatchCategory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}
	var req categoryPatchRequest
	fields, err := DecodeJSONFields(w, r, &req)
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}

	patch := services.CategoryPatch{
		Name:          sanitizePtr(req.Name),
		ParentID:      req.ParentID,
		Color:         sanitizePtr(req.Color),
		Icon:          sanitizePtr(req.Icon),
		BudgetMonthly: req.BudgetMonthly,
		ClearBudget:   isNull(fields, "budget_monthly"),
	}
	if isNull(fields, "parent_id") {
		top := int64(0)
		patch.ParentID = &top
	}

	c, err := s.svc.Categories.Update(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}
	NewJSONResponse().JSON(c).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpDelete)
		return
	}
	q := NewQueryParams(r)
	moveTo := q.Int64Ptr("move_to_category_id")
	if err := q.Err(); err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpDelete)
		return
	}

	if err := s.svc.Categories.Delete(r.Context(), id, moveTo); err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpDelete)
		return
	}
	NewJSONResponse().Message("Kategorie gelöscht").Write(w)
}

func (s *Server) handleInitDefaultCategories(w http.ResponseWriter, r *http.Request) {
	count, created, err := s.svc.Categories.InitDefaults(r.Context())
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpCreate)
		return
	}
	if !created {
		NewJSONResponse().Message("Kategorien existieren bereits", "count", count).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Message("Standardkategorien erstellt", "count", count).Write(w)
}
