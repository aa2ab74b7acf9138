package services

import (
	"context"
	"fmt"
	"strings"

	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/storage"
)

// NotePatch carries the fields of a partial note update; nil means unchanged.
type NotePatch struct {
	Text  *string
	Color *string
}

type NoteService struct {
	store  storage.NoteStore
	logger *log.Logger
}

func NewNoteService(store storage.NoteStore, logger *log.Logger) *NoteService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &NoteService{store: store, logger: logger.WithComponent(log.ComponentNote)}
}

func (s *NoteService) List(ctx context.Context, ownerID string) ([]core.Note, error) {
	if ownerID == "" {
		return nil, core.ValidationErrors{{Param: "userId", Msg: "Owner is required"}}
	}
	return s.store.ListNotes(ctx, ownerID)
}

func (s *NoteService) Create(ctx context.Context, n core.Note) (core.Note, error) {
	n.Text = strings.TrimSpace(n.Text)
	if n.Color == "" {
		n.Color = core.NoteColors[0]
	}
	n.ID = ""
	if err := n.Validate(); err != nil {
		return core.Note{}, err
	}
	created, err := s.store.CreateNote(ctx, n)
	if err != nil {
		return core.Note{}, fmt.Errorf("create note: %w", err)
	}
	s.logger.DebugContext(ctx, "Note created", log.FieldOwnerID, created.CreatedBy, "note_id", created.ID)
	return created, nil
}

func (s *NoteService) Patch(ctx context.Context, ownerID, id string, patch NotePatch) (core.Note, error) {
	n, err := s.store.GetNote(ctx, ownerID, id)
	if err != nil {
		return core.Note{}, err
	}
	if patch.Text != nil {
		n.Text = strings.TrimSpace(*patch.Text)
	}
	if patch.Color != nil {
		n.Color = *patch.Color
	}
	if err := n.Validate(); err != nil {
		return core.Note{}, err
	}
	return s.store.UpdateNote(ctx, n)
}

func (s *NoteService) Delete(ctx context.Context, ownerID, id string) error {
	return s.store.DeleteNote(ctx, ownerID, id)
}
