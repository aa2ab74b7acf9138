package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/services"
)

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	owner, err := resolveOwner(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	notes, err := s.svc.Notes.List(r.Context(), owner)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	if notes == nil {
		notes = []core.Note{}
	}
	NewJSONResponse().Data(notes).Write(w)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
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

	n := core.Note{Text: p.Get("text"), Color: p.Get("color"), CreatedBy: owner}
	uploaded, err := s.singleAttachment(p, "attachment")
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	n.Attachment = uploaded

	created, err := s.svc.Notes.Create(r.Context(), n)
	if err != nil {
		s.uploads.Remove(uploaded)
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(created).Message("Note created").Write(w)
}

// handleUpdateNote applies a partial update: only text and color fields
// present in the body change.
func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
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

	var patch services.NotePatch
	if p.Has("text") {
		text := p.Get("text")
		patch.Text = &text
	}
	if p.Has("color") {
		color := p.Get("color")
		patch.Color = &color
	}
	updated, err := s.svc.Notes.Patch(r.Context(), owner, mux.Vars(r)["id"], patch)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(updated).Message("Note updated").Write(w)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	owner, err := resolveOwner(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	if err := s.svc.Notes.Delete(r.Context(), owner, mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Message("Note deleted").Write(w)
}
