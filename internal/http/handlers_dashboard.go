package http

import (
	"net/http"

	"finboard/internal/core"
	"finboard/internal/log"
)

const defaultUpcomingDays = 7

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner, err := resolveOwner(r.Context(), q.Get("userId"))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	dates, err := ParseDateRange(q)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}

	dash, err := s.svc.Dashboard.Dashboard(r.Context(), owner, dates)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(dash).Write(w)
}

func (s *Server) handleUpcomingPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner, err := resolveOwner(r.Context(), q.Get("userId"))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	days, err := ParseQueryInt(q, "days", defaultUpcomingDays)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	if days < 0 || days > 31 {
		s.fail(w, r, log.OpRead, core.ValidationErrors{{Param: "days", Msg: "Days must be between 0 and 31"}})
		return
	}

	upcoming, err := s.svc.Dashboard.UpcomingPayments(r.Context(), owner, days)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	if upcoming == nil {
		upcoming = []core.UpcomingPayment{}
	}
	NewJSONResponse().Data(upcoming).Write(w)
}
