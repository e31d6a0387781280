package http

import (
	"net/http"

	"finanzen/internal/log"
	"finanzen/internal/services"
)

func (s *Server) handleStatsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Stats.Dashboard(r.Context())
	if err != nil {
		s.writeError(w, r, err, log.ComponentStats, log.OpRead)
		return
	}
	NewJSONResponse().JSON(summary).Write(w)
}

func (s *Server) handleStatsByCategory(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParams(r)
	period := q.OneOf("period", "month", "week", "month", "quarter", "year", "custom")
	start, end := q.Date("start_date"), q.Date("end_date")
	if err := q.Err(); err != nil {
		s.writeError(w, r, err, log.ComponentStats, log.OpRead)
		return
	}

	stats, err := s.svc.Stats.ByCategory(r.Context(), services.Period(period), start, end)
	if err != nil {
		s.writeError(w, r, err, log.ComponentStats, log.OpRead)
		return
	}
	NewJSONResponse().JSON(stats).Write(w)
}

func (s *Server) handleStatsOverTime(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParams(r)
	period := q.OneOf("period", "year", "month", "quarter", "year", "custom")
	groupBy := q.OneOf("group_by", "month", "day", "week", "month")
	start, end := q.Date("start_date"), q.Date("end_date")
	if err := q.Err(); err != nil {
		s.writeError(w, r, err, log.ComponentStats, log.OpRead)
		return
	}

	stats, err := s.svc.Stats.OverTime(r.Context(), services.Period(period), services.GroupBy(groupBy), start, end)
	if err != nil {
		s.writeError(w, r, err, log.ComponentStats, log.OpRead)
		return
	}
	NewJSONResponse().JSON(stats).Write(w)
}
