package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/storage"
)

// expenseKind selects between the full expense book and the savings view
// over it. Both share handlers; only the service calls differ.
type expenseKind int

const (
	expenseKindAll expenseKind = iota
	expenseKindSavings
)

func (k expenseKind) noun() string {
	if k == expenseKindSavings {
		return "Saving"
	}
	return "Expense"
}

func (s *Server) expenseRoutes(r *mux.Router, kind expenseKind) {
	r.HandleFunc("", s.handleListExpenses(kind)).Methods(http.MethodGet)
	r.HandleFunc("/view/{id}", s.handleGetExpense(kind)).Methods(http.MethodGet)
	r.HandleFunc("/store", s.handleCreateExpense(kind)).Methods(http.MethodPost)
	r.HandleFunc("/update/{id}", s.handleUpdateExpense(kind)).Methods(http.MethodPut)
	r.HandleFunc("/delete/{id}", s.handleDeleteExpense(kind)).Methods(http.MethodDelete)
}

func (s *Server) getExpense(ctx context.Context, kind expenseKind, owner, id string) (core.Expense, error) {
	if kind == expenseKindSavings {
		return s.svc.Expenses.GetSaving(ctx, owner, id)
	}
	return s.svc.Expenses.Get(ctx, owner, id)
}

func (s *Server) handleListExpenses(kind expenseKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		owner, err := resolveOwner(r.Context(), q.Get("userId"), q.Get("createdBy"))
		if err != nil {
			s.fail(w, r, log.OpList, err)
			return
		}
		dates, err := ParseDateRange(q)
		if err != nil {
			s.fail(w, r, log.OpList, err)
			return
		}
		category, err := ParseQueryInt(q, "category", 0)
		if err != nil {
			s.fail(w, r, log.OpList, err)
			return
		}

		filter := storage.ExpenseFilter{OwnerID: owner, Category: core.ExpenseCategory(category), Range: dates}
		var page core.Page[core.Expense]
		if kind == expenseKindSavings {
			page, err = s.svc.Expenses.ListSavings(r.Context(), filter, ParsePageRequest(q))
		} else {
			page, err = s.svc.Expenses.List(r.Context(), filter, ParsePageRequest(q))
		}
		if err != nil {
			s.fail(w, r, log.OpList, err)
			return
		}
		PageResponse(page).Write(w)
	}
}

func (s *Server) handleGetExpense(kind expenseKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := resolveOwner(r.Context(), r.URL.Query().Get("userId"))
		if err != nil {
			s.fail(w, r, log.OpRead, err)
			return
		}
		e, err := s.getExpense(r.Context(), kind, owner, mux.Vars(r)["id"])
		if err != nil {
			s.fail(w, r, log.OpRead, err)
			return
		}
		NewJSONResponse().Data(e).Write(w)
	}
}

func applyExpenseFields(p *RequestBodyParser, e *core.Expense) {
	if p.Has("name") {
		e.Name = p.Get("name")
	}
	if p.Has("amount") {
		e.Amount = p.Amount("amount")
	}
	if p.Has("category") {
		e.Category = core.ExpenseCategory(p.Int("category"))
	}
	if p.Has("savingMethod") {
		e.SavingMethod = core.SavingMethod(p.Int("savingMethod"))
	}
	if p.Has("paidOn") {
		e.PaidOn = p.Date("paidOn")
	}
	if p.Has("remarks") {
		e.Remarks = p.Get("remarks")
	}
	if p.IsJSON() && p.Has("attachment") {
		e.Attachment = p.Get("attachment")
	}
}

func (s *Server) handleCreateExpense(kind expenseKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := NewRequestBodyParser(r)
		if err := p.Parse(); err != nil {
			s.fail(w, r, log.OpCreate, err)
			return
		}
		owner, err := resolveOwner(r.Context(), p.Get("createdBy"), p.Get("userId"))
		if err != nil {
			s.fail(w, r, log.OpCreate, err)
			return
		}

		e := core.Expense{CreatedBy: owner, PaidOn: core.Today()}
		applyExpenseFields(p, &e)
		if err := p.Err(); err != nil {
			s.fail(w, r, log.OpCreate, err)
			return
		}
		uploaded, err := s.singleAttachment(p, "attachment")
		if err != nil {
			s.fail(w, r, log.OpCreate, err)
			return
		}
		if uploaded != "" {
			e.Attachment = uploaded
		}

		var created core.Expense
		if kind == expenseKindSavings {
			created, err = s.svc.Expenses.CreateSaving(r.Context(), e)
		} else {
			created, err = s.svc.Expenses.Create(r.Context(), e)
		}
		if err != nil {
			s.uploads.Remove(uploaded)
			s.fail(w, r, log.OpCreate, err)
			return
		}
		NewJSONResponse().
			Status(http.StatusCreated).
			Data(created).
			Message(kind.noun() + " created").
			Write(w)
	}
}

func (s *Server) handleUpdateExpense(kind expenseKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := NewRequestBodyParser(r)
		if err := p.Parse(); err != nil {
			s.fail(w, r, log.OpUpdate, err)
			return
		}
		owner, err := resolveOwner(r.Context(), p.Get("createdBy"), p.Get("userId"))
		if err != nil {
			s.fail(w, r, log.OpUpdate, err)
			return
		}

		e, err := s.getExpense(r.Context(), kind, owner, mux.Vars(r)["id"])
		if err != nil {
			s.fail(w, r, log.OpUpdate, err)
			return
		}
		previous := e.Attachment
		applyExpenseFields(p, &e)
		if err := p.Err(); err != nil {
			s.fail(w, r, log.OpUpdate, err)
			return
		}
		uploaded, err := s.singleAttachment(p, "attachment")
		if err != nil {
			s.fail(w, r, log.OpUpdate, err)
			return
		}
		if uploaded != "" {
			e.Attachment = uploaded
		}

		var updated core.Expense
		if kind == expenseKindSavings {
			updated, err = s.svc.Expenses.UpdateSaving(r.Context(), e)
		} else {
			updated, err = s.svc.Expenses.Update(r.Context(), e)
		}
		if err != nil {
			s.uploads.Remove(uploaded)
			s.fail(w, r, log.OpUpdate, err)
			return
		}
		if uploaded != "" && previous != "" {
			s.uploads.Remove(previous)
		}
		NewJSONResponse().Data(updated).Message(kind.noun() + " updated").Write(w)
	}
}

func (s *Server) handleDeleteExpense(kind expenseKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := resolveOwner(r.Context(), r.URL.Query().Get("userId"))
		if err != nil {
			s.fail(w, r, log.OpDelete, err)
			return
		}
		id := mux.Vars(r)["id"]
		e, err := s.getExpense(r.Context(), kind, owner, id)
		if err != nil {
			s.fail(w, r, log.OpDelete, err)
			return
		}
		if kind == expenseKindSavings {
			err = s.svc.Expenses.DeleteSaving(r.Context(), owner, id)
		} else {
			err = s.svc.Expenses.Delete(r.Context(), owner, id)
		}
		if err != nil {
			s.fail(w, r, log.OpDelete, err)
			return
		}
		s.uploads.Remove(e.Attachment)
		NewJSONResponse().Message(kind.noun() + " deleted").Write(w)
	}
}
