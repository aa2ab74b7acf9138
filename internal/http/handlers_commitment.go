package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/storage"
)

func (s *Server) handleListCommitments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner, err := resolveOwner(r.Context(), q.Get("createdBy"), q.Get("userId"))
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}

	status, err := ParseQueryInt(q, "status", 0)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	payType, err := ParseQueryInt(q, "payType", 0)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}

	filter := storage.CommitmentFilter{
		OwnerID: owner,
		Status:  core.Status(status),
		PayType: core.PayType(payType),
	}
	page, err := s.svc.Commitments.List(r.Context(), filter, ParsePageRequest(q))
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	PageResponse(page).Write(w)
}

func (s *Server) handleGetCommitment(w http.ResponseWriter, r *http.Request) {
	owner, err := resolveOwner(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	c, err := s.svc.Commitments.Get(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(c).Write(w)
}

// applyCommitmentFields copies the fields present in the body onto c.
func applyCommitmentFields(p *RequestBodyParser, c *core.Commitment) {
	if p.Has("payFor") {
		c.PayFor = p.Get("payFor")
	}
	if p.Has("totalEmi") {
		c.TotalEmi = p.Int("totalEmi")
	}
	if p.Has("emiAmount") {
		c.EmiAmount = p.Amount("emiAmount")
	}
	if p.Has("payType") {
		c.PayType = core.PayType(p.Int("payType"))
	}
	if p.Has("category") {
		c.Category = core.CommitmentCategory(p.Int("category"))
	}
	if p.Has("dueDate") {
		c.DueDate = p.Int("dueDate")
	}
	if p.Has("remarks") {
		c.Remarks = p.Get("remarks")
	}
	if p.Has("status") {
		c.Status = core.Status(p.Int("status"))
	}
	if p.IsJSON() && p.Has("attachment") {
		c.Attachments = p.Strings("attachment")
	}
}

func (s *Server) handleCreateCommitment(w http.ResponseWriter, r *http.Request) {
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

	c := core.Commitment{CreatedBy: owner}
	applyCommitmentFields(p, &c)
	if err := p.Err(); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}

	uploaded, err := s.uploads.SaveAll("attachment", p.Files("attachment"))
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	c.Attachments = append(c.Attachments, uploaded...)

	created, err := s.svc.Commitments.Create(r.Context(), c)
	if err != nil {
		s.uploads.Remove(uploaded...)
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Data(created).
		Message("Commitment created").
		Write(w)
}

func (s *Server) handleUpdateCommitment(w http.ResponseWriter, r *http.Request) {
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

	c, err := s.svc.Commitments.Get(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	applyCommitmentFields(p, &c)
	if err := p.Err(); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}

	uploaded, err := s.uploads.SaveAll("attachment", p.Files("attachment"))
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	c.Attachments = append(c.Attachments, uploaded...)

	updated, err := s.svc.Commitments.Update(r.Context(), c)
	if err != nil {
		s.uploads.Remove(uploaded...)
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(updated).Message("Commitment updated").Write(w)
}

// handleDeleteCommitment requires the owner id in the body or query and
// rejects ids other than the caller's.
func (s *Server) handleDeleteCommitment(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	requested := p.Get("userId")
	if requested == "" {
		requested = r.URL.Query().Get("userId")
	}
	if requested == "" {
		s.fail(w, r, log.OpDelete, core.ValidationErrors{{Param: "userId", Msg: "User id is required"}})
		return
	}
	owner, err := resolveOwner(r.Context(), requested)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}

	id := mux.Vars(r)["id"]
	c, err := s.svc.Commitments.Get(r.Context(), owner, id)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	if err := s.svc.Commitments.Delete(r.Context(), owner, id); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	s.uploads.Remove(c.Attachments...)
	NewJSONResponse().Message("Commitment deleted").Write(w)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner, err := resolveOwner(r.Context(), q.Get("userId"))
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	page, err := s.svc.Commitments.ListHistory(r.Context(), owner, mux.Vars(r)["commitmentId"], ParsePageRequest(q))
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	PageResponse(page).Write(w)
}

func applyPaymentFields(p *RequestBodyParser, h *core.HistoryEntry) {
	if p.Has("amount") {
		h.Amount = p.Amount("amount")
	}
	if p.Has("currentEmi") {
		h.CurrentEmi = p.Int("currentEmi")
	}
	if p.Has("paidDate") {
		h.PaidDate = p.Date("paidDate")
	}
	if p.Has("remarks") {
		h.Remarks = p.Get("remarks")
	}
	if p.IsJSON() && p.Has("attachment") {
		h.Attachment = p.Get("attachment")
	}
}

// singleAttachment stores at most one uploaded file for param.
func (s *Server) singleAttachment(p *RequestBodyParser, param string) (string, error) {
	files := p.Files(param)
	if len(files) == 0 {
		return "", nil
	}
	if len(files) > 1 {
		return "", core.ValidationErrors{{Param: param, Msg: "Only one attachment is allowed"}}
	}
	urls, err := s.uploads.SaveAll(param, files)
	if err != nil {
		return "", err
	}
	return urls[0], nil
}

func (s *Server) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, log.OpPay, err)
		return
	}
	owner, err := resolveOwner(r.Context(), p.Get("createdBy"), p.Get("userId"))
	if err != nil {
		s.fail(w, r, log.OpPay, err)
		return
	}

	h := core.HistoryEntry{
		CommitmentID: p.Get("commitmentId"),
		CreatedBy:    owner,
		PaidDate:     core.Today(),
	}
	applyPaymentFields(p, &h)
	if err := p.Err(); err != nil {
		s.fail(w, r, log.OpPay, err)
		return
	}
	// The commitment must belong to the caller before anything is stored.
	if h.CommitmentID != "" {
		if _, err := s.svc.Commitments.Get(r.Context(), owner, h.CommitmentID); err != nil {
			s.fail(w, r, log.OpPay, err)
			return
		}
	}

	uploaded, err := s.singleAttachment(p, "attachment")
	if err != nil {
		s.fail(w, r, log.OpPay, err)
		return
	}
	if uploaded != "" {
		h.Attachment = uploaded
	}

	entry, err := s.svc.Commitments.AddPayment(r.Context(), h)
	if err != nil {
		s.uploads.Remove(uploaded)
		s.fail(w, r, log.OpPay, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Data(entry).
		Message("Payment recorded").
		Write(w)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	owner, err := resolveOwner(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	entry, err := s.svc.Commitments.GetPayment(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(entry).Write(w)
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
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

	h, err := s.svc.Commitments.GetPayment(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	previous := h.Attachment
	applyPaymentFields(p, &h)
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
		h.Attachment = uploaded
	}

	updated, err := s.svc.Commitments.UpdatePayment(r.Context(), h)
	if err != nil {
		s.uploads.Remove(uploaded)
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	if uploaded != "" && previous != "" {
		s.uploads.Remove(previous)
	}
	NewJSONResponse().Data(updated).Message("Payment updated").Write(w)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	owner, err := resolveOwner(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	id := mux.Vars(r)["id"]
	entry, err := s.svc.Commitments.GetPayment(r.Context(), owner, id)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	if err := s.svc.Commitments.DeletePayment(r.Context(), owner, id); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	s.uploads.Remove(entry.Attachment)
	NewJSONResponse().Message("Payment deleted").Write(w)
}
