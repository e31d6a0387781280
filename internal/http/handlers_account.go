package http

import (
	"net/http"

	"finanzen/internal/log"
	"finanzen/internal/services"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParams(r)
	includeInactive := q.Bool("include_inactive", false)
	profileID := q.Int64Ptr("profile_id")
	if err := q.Err(); err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpList)
		return
	}
	accounts, err := s.svc.Accounts.List(r.Context(), includeInactive, profileID)
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpList)
		return
	}
	NewJSONResponse().JSON(accounts).Write(w)
}

func (s *Server) handleAccountsSummary(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParams(r)
	profileID := q.Int64Ptr("profile_id")
	if err := q.Err(); err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpRead)
		return
	}
	overview, err := s.svc.Accounts.Summary(r.Context(), profileID)
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpRead)
		return
	}
	NewJSONResponse().JSON(overview).Write(w)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpRead)
		return
	}
	detail, err := s.svc.Accounts.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpRead)
		return
	}
	NewJSONResponse().JSON(detail).Write(w)
}

type accountPatchRequest struct {
	Name      *string `json:"name"`
	IsActive  *bool   `json:"is_active"`
	ProfileID *int64  `json:"profile_id"`
}

// handlePatchAccount renames, (de)activates or reassigns an account. A null
// profile_id unassigns it.
func (s *Server) handlePatchAccount(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}
	var req accountPatchRequest
	fields, err := DecodeJSONFields(w, r, &req)
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}
	patch := services.AccountPatch{
		Name:      sanitizePtr(req.Name),
		IsActive:  req.IsActive,
		ProfileID: req.ProfileID,
	}
	if isNull(fields, "profile_id") {
		none := int64(0)
		patch.ProfileID = &none
	}

	acc, err := s.svc.Accounts.Patch(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}
	NewJSONResponse().JSON(acc).Write(w)
}
