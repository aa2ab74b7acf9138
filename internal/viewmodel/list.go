package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"finboard/internal/core"
)

// ErrNotEditing is returned by SaveEdit when no row is being edited or a
// different row is.
var ErrNotEditing = errors.New("row is not being edited")

// ListConfig wires a ListView to its backend.
type ListConfig[T, R, F any] struct {
	// Fetch loads one page for the filter.
	Fetch func(ctx context.Context, filter F, page core.PageRequest) (core.Page[T], error)
	// Map turns a record into a row numbered no.
	Map func(item T, no int) R
	// ID returns the record id.
	ID func(item T) string
	// Delete removes a record. Nil disables deletes.
	Delete func(ctx context.Context, id string) error
	// Save stores an edited record and returns the server's copy. Nil
	// disables edits.
	Save func(ctx context.Context, item T) (T, error)
	// Confirm approves deletes. Nil approves everything.
	Confirm Confirmer
	// Noun names the record in confirmation prompts.
	Noun string
}

// ListView is the state of one paginated table: page, filter, rows, totals
// and the row being edited.
type ListView[T, R, F any] struct {
	cfg ListConfig[T, R, F]
	seq Sequencer

	mu      sync.RWMutex
	page    core.PageRequest
	filter  F
	items   []T
	rows    []R
	info    core.PageInfo
	editing string
	loaded  bool
	err     error
}

func NewListView[T, R, F any](cfg ListConfig[T, R, F], filter F) *ListView[T, R, F] {
	if cfg.Noun == "" {
		cfg.Noun = "record"
	}
	return &ListView[T, R, F]{
		cfg:    cfg,
		page:   core.NewPageRequest(1, core.DefaultPageSize),
		filter: filter,
	}
}

// Load fetches the current page. A response overtaken by a newer fetch is
// dropped silently.
func (v *ListView[T, R, F]) Load(ctx context.Context) error {
	// The ticket is issued under the same lock that reads page and filter,
	// so the newest ticket always fetches the newest state.
	v.mu.Lock()
	page, filter := v.page, v.filter
	fetchCtx, ticket := v.seq.Start(ctx)
	v.mu.Unlock()

	result, err := v.cfg.Fetch(fetchCtx, filter, page)

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.seq.IsLatest(ticket) {
		return nil
	}
	v.seq.Done(ticket)
	if err != nil {
		v.err = err
		return err
	}
	v.err = nil
	v.loaded = true
	v.items = append([]T(nil), result.Items...)
	v.info = result.Info
	v.renumber()
	return nil
}

// SetPage moves to page n and refetches.
func (v *ListView[T, R, F]) SetPage(ctx context.Context, n int) error {
	v.mu.Lock()
	v.page = core.NewPageRequest(n, v.page.Limit)
	v.editing = ""
	v.mu.Unlock()
	return v.Load(ctx)
}

// SetPageSize changes the page size, returns to page 1 and refetches.
func (v *ListView[T, R, F]) SetPageSize(ctx context.Context, size int) error {
	v.mu.Lock()
	v.page = core.NewPageRequest(1, size)
	v.editing = ""
	v.mu.Unlock()
	return v.Load(ctx)
}

// SetFilter replaces the filter, returns to page 1 and refetches.
func (v *ListView[T, R, F]) SetFilter(ctx context.Context, filter F) error {
	v.mu.Lock()
	v.filter = filter
	v.page = core.NewPageRequest(1, v.page.Limit)
	v.editing = ""
	v.mu.Unlock()
	return v.Load(ctx)
}

// Delete asks for confirmation and removes the record. A declined prompt
// does nothing and returns nil. On failure the rows are unchanged. Removing
// the only row of a later page moves to the last remaining page.
func (v *ListView[T, R, F]) Delete(ctx context.Context, id string) error {
	if v.cfg.Delete == nil {
		return errors.New("delete is not supported for this list")
	}
	if _, ok := v.indexOf(id); !ok {
		return fmt.Errorf("%s %s: %w", v.cfg.Noun, id, core.ErrNotFound)
	}

	if v.cfg.Confirm != nil {
		ok, err := v.cfg.Confirm.Confirm(ctx, fmt.Sprintf("Delete this %s?", v.cfg.Noun))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	if err := v.cfg.Delete(ctx, id); err != nil {
		return err
	}

	v.mu.Lock()
	i, ok := v.indexOfLocked(id)
	if !ok {
		v.mu.Unlock()
		return nil
	}
	v.items = append(v.items[:i], v.items[i+1:]...)
	if v.info.TotalItems > 0 {
		v.info.TotalItems--
	}
	v.info.TotalPages = core.PagesFor(v.info.TotalItems, v.page.Limit)
	if v.editing == id {
		v.editing = ""
	}
	v.renumber()

	// An emptied page past the first steps back to the new last page.
	if len(v.items) > 0 || v.page.Page <= 1 {
		v.mu.Unlock()
		return nil
	}
	v.page = core.NewPageRequest(max(1, v.info.TotalPages), v.page.Limit)
	v.mu.Unlock()
	return v.Load(ctx)
}

// BeginEdit marks a row as being edited.
func (v *ListView[T, R, F]) BeginEdit(id string) error {
	if v.cfg.Save == nil {
		return errors.New("edit is not supported for this list")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.indexOfLocked(id); !ok {
		return fmt.Errorf("%s %s: %w", v.cfg.Noun, id, core.ErrNotFound)
	}
	v.editing = id
	return nil
}

// CancelEdit leaves edit mode without saving.
func (v *ListView[T, R, F]) CancelEdit() {
	v.mu.Lock()
	v.editing = ""
	v.mu.Unlock()
}

// SaveEdit sends the edited record to the server and replaces the row with
// the server's response. The row stays in edit mode when saving fails.
func (v *ListView[T, R, F]) SaveEdit(ctx context.Context, item T) error {
	id := v.cfg.ID(item)
	v.mu.RLock()
	editing := v.editing
	v.mu.RUnlock()
	if editing == "" || editing != id {
		return ErrNotEditing
	}

	saved, err := v.cfg.Save(ctx, item)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if i, ok := v.indexOfLocked(id); ok {
		v.items[i] = saved
		v.renumber()
	}
	if v.editing == id {
		v.editing = ""
	}
	return nil
}

// Close cancels any fetch in flight.
func (v *ListView[T, R, F]) Close() {
	v.seq.Stop()
}

// Rows returns a copy of the visible rows.
func (v *ListView[T, R, F]) Rows() []R {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]R(nil), v.rows...)
}

// Items returns a copy of the records behind the rows.
func (v *ListView[T, R, F]) Items() []T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]T(nil), v.items...)
}

func (v *ListView[T, R, F]) Info() core.PageInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.info
}

func (v *ListView[T, R, F]) Page() core.PageRequest {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.page
}

func (v *ListView[T, R, F]) Filter() F {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.filter
}

// Editing returns the id of the row in edit mode, or "".
func (v *ListView[T, R, F]) Editing() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.editing
}

// Err is the error of the last applied fetch.
func (v *ListView[T, R, F]) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.err
}

// Loaded reports whether a fetch has succeeded.
func (v *ListView[T, R, F]) Loaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

func (v *ListView[T, R, F]) indexOf(id string) (int, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.indexOfLocked(id)
}

func (v *ListView[T, R, F]) indexOfLocked(id string) (int, bool) {
	for i, item := range v.items {
		if v.cfg.ID(item) == id {
			return i, true
		}
	}
	return 0, false
}

func (v *ListView[T, R, F]) renumber() {
	v.rows = make([]R, len(v.items))
	for i, item := range v.items {
		v.rows[i] = v.cfg.Map(item, v.page.RowNumber(i))
	}
}
