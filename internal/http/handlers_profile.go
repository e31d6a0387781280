package http

import (
	"net/http"

	"finanzen/internal/log"
	"finanzen/internal/services"
)

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.svc.Profiles.List(r.Context())
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpList)
		return
	}
	NewJSONResponse().JSON(profiles).Write(w)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpRead)
		return
	}
	p, err := s.svc.Profiles.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpRead)
		return
	}
	NewJSONResponse().JSON(p).Write(w)
}

type profileRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpCreate)
		return
	}
	p, err := s.svc.Profiles.Create(r.Context(), sanitizeInput(req.Name), sanitizeInput(req.Color))
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpCreate)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(p).Write(w)
}

type profilePatchRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

func (s *Server) handlePatchProfile(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}
	var req profilePatchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}
	p, err := s.svc.Profiles.Update(r.Context(), id, services.ProfilePatch{
		Name:  sanitizePtr(req.Name),
		Color: sanitizePtr(req.Color),
	})
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpUpdate)
		return
	}
	NewJSONResponse().JSON(p).Write(w)
}

// handleDeleteProfile removes a profile; its accounts become unassigned.
func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpDelete)
		return
	}
	if err := s.svc.Profiles.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err, log.ComponentHTTP, log.OpDelete)
		return
	}
	NewJSONResponse().Message("Profil gelöscht").Write(w)
}
