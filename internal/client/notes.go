package client

import (
	"context"
	"net/http"
	"net/url"

	"finboard/internal/core"
)

func (c *Client) ListNotes(ctx context.Context, ownerID string) ([]core.Note, error) {
	env, err := c.do(ctx, http.MethodGet, "/admin/notes", ownerQuery(ownerID), nil)
	if err != nil {
		return nil, err
	}
	notes := []core.Note{}
	return notes, env.decodeData(&notes)
}

// CreateNote adds a note. An empty color picks the default.
func (c *Client) CreateNote(ctx context.Context, text, color string) (core.Note, error) {
	body := map[string]string{"text": text}
	if color != "" {
		body["color"] = color
	}
	env, err := c.do(ctx, http.MethodPost, "/admin/notes/store", nil, body)
	if err != nil {
		return core.Note{}, err
	}
	var out core.Note
	return out, env.decodeData(&out)
}

// NotePatch changes only the fields that are set.
type NotePatch struct {
	Text  *string `json:"text,omitempty"`
	Color *string `json:"color,omitempty"`
}

func (c *Client) PatchNote(ctx context.Context, id string, patch NotePatch) (core.Note, error) {
	env, err := c.do(ctx, http.MethodPatch, "/admin/notes/update/"+url.PathEscape(id), nil, patch)
	if err != nil {
		return core.Note{}, err
	}
	var out core.Note
	return out, env.decodeData(&out)
}

func (c *Client) DeleteNote(ctx context.Context, id, ownerID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/admin/notes/delete/"+url.PathEscape(id), ownerQuery(ownerID), nil)
	return err
}
