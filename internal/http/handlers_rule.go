package http

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"finanzen/internal/core"
	"finanzen/internal/log"
	"finanzen/internal/services"
)

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.svc.Categorization.ListRules(r.Context())
	if err != nil {
		s.writeError(w, r, err, log.ComponentCategorization, log.OpList)
		return
	}
	if rules == nil {
		rules = []core.Rule{}
	}
	NewJSONResponse().JSON(rules).Write(w)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentCategorization, log.OpRead)
		return
	}
	rule, err := s.svc.Categorization.GetRule(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, log.ComponentCategorization, log.OpRead)
		return
	}
	NewJSONResponse().JSON(rule).Write(w)
}

type ruleRequest struct {
	Name                 string           `json:"name"`
	Priority             int              `json:"priority"`
	MatchCounterpartName string           `json:"match_counterpart_name"`
	MatchCounterpartIBAN string           `json:"match_counterpart_iban"`
	MatchPurpose         string           `json:"match_purpose"`
	MatchBookingType     string           `json:"match_booking_type"`
	MatchAmountMin       *decimal.Decimal `json:"match_amount_min"`
	MatchAmountMax       *decimal.Decimal `json:"match_amount_max"`
	AssignCategoryID     int64            `json:"assign_category_id"`
	AssignShared         bool             `json:"assign_shared"`
	IsActive             *bool            `json:"is_active"`
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, log.ComponentCategorization, log.OpCreate)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	rule, err := s.svc.Categorization.CreateRule(r.Context(), core.Rule{
		Name:                 sanitizeInput(req.Name),
		Priority:             req.Priority,
		MatchCounterpartName: sanitizeInput(req.MatchCounterpartName),
		MatchCounterpartIBAN: sanitizeInput(req.MatchCounterpartIBAN),
		MatchPurpose:         sanitizeInput(req.MatchPurpose),
		MatchBookingType:     sanitizeInput(req.MatchBookingType),
		MatchAmountMin:       req.MatchAmountMin,
		MatchAmountMax:       req.MatchAmountMax,
		AssignCategoryID:     req.AssignCategoryID,
		AssignShared:         req.AssignShared,
		IsActive:             active,
	})
	if err != nil {
		s.writeError(w, r, err, log.ComponentCategorization, log.OpCreate)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(rule).Write(w)
}

type rulePatchRequest struct {
	Name                 *string          `json:"name"`
	Priority             *int             `json:"priority"`
	MatchCounterpartName *string          `json:"match_counterpart_name"`
	MatchCounterpartIBAN *string          `json:"match_counterpart_iban"`
	MatchPurpose         *string          `json:"match_purpose"`
	MatchBookingType     *string          `json:"match_booking_type"`
	MatchAmountMin       *decimal.Decimal `json:"match_amount_min"`
	MatchAmountMax       *decimal.Decimal `json:"match_amount_max"`
	AssignCategoryID     *int64           `json:"assign_category_id"`
	AssignShared         *bool            `json:"assign_shared"`
	IsActive             *bool            `json:"is_active"`
}

// handlePatchRule updates a rule. An empty match string or a null amount
// bound removes that criterion.
func (s *Server) handlePatchRule(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentCategorization, log.OpUpdate)
		return
	}
	var req rulePatchRequest
	fields, err := DecodeJSONFields(w, r, &req)
	if err != nil {
		s.writeError(w, r, err, log.ComponentCategorization, log.OpUpdate)
		return
	}

	rule, err := s.svc.Categorization.UpdateRule(r.Context(), id, services.RulePatch{
		Name:                 sanitizePtr(req.Name),
		Priority:             req.Priority,
		MatchCounterpartName: sanitizePtr(req.MatchCounterpartName),
		MatchCounterpartIBAN: sanitizePtr(req.MatchCounterpartIBAN),
		MatchPurpose:         sanitizePtr(req.MatchPurpose),
		MatchBookingType:     sanitizePtr(req.MatchBookingType),
		MatchAmountMin:       req.MatchAmountMin,
		MatchAmountMax:       req.MatchAmountMax,
		ClearAmountMin:       isNull(fields, "match_amount_min"),
		ClearAmountMax:       isNull(fields, "match_amount_max"),
		AssignCategoryID:     req.AssignCategoryID,
		AssignShared:         req.AssignShared,
		IsActive:             req.IsActive,
	})
	if err != nil {
		s.writeError(w, r, err, log.ComponentCategorization, log.OpUpdate)
		return
	}
	NewJSONResponse().JSON(rule).Write(w)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentCategorization, log.OpDelete)
		return
	}
	if err := s.svc.Categorization.DeleteRule(r.Context(), id); err != nil {
		s.writeError(w, r, err, log.ComponentCategorization, log.OpDelete)
		return
	}
	NewJSONResponse().Message("Regel gelöscht").Write(w)
}

// handleApplyRules runs the active rules over all uncategorized transactions.
func (s *Server) handleApplyRules(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Categorization.ApplyToAllUncategorized(r.Context())
	if err != nil {
		s.writeError(w, r, err, log.ComponentCategorization, log.OpApply)
		return
	}
	s.recordCategorized(n)
	NewJSONResponse().Message(fmt.Sprintf("%d Transaktionen kategorisiert", n), "categorized_count", n).Write(w)
}

// handleRuleFromTransaction drafts a rule from a transaction. The category
// and match type come from the query string.
func (s *Server) handleRuleFromTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentCategorization, log.OpCreate)
		return
	}
	q := NewQueryParams(r)
	categoryID := q.Int64Ptr("category_id")
	matchType := q.String("match_type")
	if err := q.Err(); err != nil {
		s.writeError(w, r, err, log.ComponentCategorization, log.OpCreate)
		return
	}
	if categoryID == nil {
		s.writeError(w, r, core.Invalid("category_id", "is required"), log.ComponentCategorization, log.OpCreate)
		return
	}

	rule, err := s.svc.Categorization.CreateRuleFromTransaction(r.Context(), id, *categoryID, matchType)
	if err != nil {
		s.writeError(w, r, err, log.ComponentCategorization, log.OpCreate)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(rule).Write(w)
}
