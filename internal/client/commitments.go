package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"finboard/internal/core"
)

// CommitmentInput is the editable part of a commitment.
type CommitmentInput struct {
	PayFor      string                  `json:"payFor"`
	TotalEmi    int                     `json:"totalEmi"`
	EmiAmount   core.Decimal            `json:"emiAmount"`
	PayType     core.PayType            `json:"payType"`
	Category    core.CommitmentCategory `json:"category"`
	DueDate     int                     `json:"dueDate"`
	Remarks     string                  `json:"remarks"`
	Attachments []string                `json:"attachment,omitempty"`
	Status      core.Status             `json:"status,omitempty"`
	CreatedBy   string                  `json:"createdBy,omitempty"`
}

// CommitmentInputFrom copies the editable fields of c.
func CommitmentInputFrom(c core.Commitment) CommitmentInput {
	return CommitmentInput{
		PayFor:      c.PayFor,
		TotalEmi:    c.TotalEmi,
		EmiAmount:   c.EmiAmount,
		PayType:     c.PayType,
		Category:    c.Category,
		DueDate:     c.DueDate,
		Remarks:     c.Remarks,
		Attachments: c.Attachments,
		Status:      c.Status,
		CreatedBy:   c.CreatedBy,
	}
}

// CommitmentQuery filters the commitment list. Zero values mean no filter.
type CommitmentQuery struct {
	OwnerID string
	Status  core.Status
	PayType core.PayType
	Page    core.PageRequest
}

func (c *Client) ListCommitments(ctx context.Context, q CommitmentQuery) (core.Page[core.Commitment], error) {
	query := url.Values{}
	if q.OwnerID != "" {
		query.Set("createdBy", q.OwnerID)
	}
	if q.Status != 0 {
		query.Set("status", strconv.Itoa(int(q.Status)))
	}
	if q.PayType != 0 {
		query.Set("payType", strconv.Itoa(int(q.PayType)))
	}
	env, err := c.do(ctx, http.MethodGet, "/admin/commitments", pageQuery(query, q.Page), nil)
	if err != nil {
		return core.Page[core.Commitment]{}, err
	}
	return decodePage[core.Commitment](env, q.Page)
}

func (c *Client) GetCommitment(ctx context.Context, id string) (core.Commitment, error) {
	env, err := c.do(ctx, http.MethodGet, "/admin/commitments/view/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return core.Commitment{}, err
	}
	var out core.Commitment
	return out, env.decodeData(&out)
}

func (c *Client) CreateCommitment(ctx context.Context, in CommitmentInput) (core.Commitment, error) {
	env, err := c.do(ctx, http.MethodPost, "/admin/commitments/store", nil, in)
	if err != nil {
		return core.Commitment{}, err
	}
	var out core.Commitment
	return out, env.decodeData(&out)
}

func (c *Client) UpdateCommitment(ctx context.Context, id string, in CommitmentInput) (core.Commitment, error) {
	env, err := c.do(ctx, http.MethodPut, "/admin/commitments/update/"+url.PathEscape(id), nil, in)
	if err != nil {
		return core.Commitment{}, err
	}
	var out core.Commitment
	return out, env.decodeData(&out)
}

// DeleteCommitment removes a commitment and its history. The server needs
// the caller's id alongside the record id.
func (c *Client) DeleteCommitment(ctx context.Context, id, ownerID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/admin/commitments/delete/"+url.PathEscape(id), nil, map[string]string{"userId": ownerID})
	return err
}

// PaymentInput records or edits one installment. A zero CurrentEmi lets
// the server assign the next installment; a nil PaidDate means today.
type PaymentInput struct {
	CommitmentID string       `json:"commitmentId,omitempty"`
	Amount       core.Decimal `json:"amount"`
	CurrentEmi   int          `json:"currentEmi,omitempty"`
	PaidDate     *core.Date   `json:"paidDate,omitempty"`
	Remarks      string       `json:"remarks,omitempty"`
	Attachment   string       `json:"attachment,omitempty"`
}

// PaymentInputFrom copies the editable fields of h.
func PaymentInputFrom(h core.HistoryEntry) PaymentInput {
	in := PaymentInput{
		CommitmentID: h.CommitmentID,
		Amount:       h.Amount,
		CurrentEmi:   h.CurrentEmi,
		Remarks:      h.Remarks,
		Attachment:   h.Attachment,
	}
	if !h.PaidDate.IsZero() {
		d := h.PaidDate
		in.PaidDate = &d
	}
	return in
}

func (c *Client) ListHistory(ctx context.Context, commitmentID string, page core.PageRequest) (core.Page[core.HistoryEntry], error) {
	env, err := c.do(ctx, http.MethodGet, "/admin/commitments/history/"+url.PathEscape(commitmentID), pageQuery(nil, page), nil)
	if err != nil {
		return core.Page[core.HistoryEntry]{}, err
	}
	return decodePage[core.HistoryEntry](env, page)
}

func (c *Client) AddPayment(ctx context.Context, in PaymentInput) (core.HistoryEntry, error) {
	env, err := c.do(ctx, http.MethodPost, "/admin/commitments/history/store", nil, in)
	if err != nil {
		return core.HistoryEntry{}, err
	}
	var out core.HistoryEntry
	return out, env.decodeData(&out)
}

func (c *Client) GetPayment(ctx context.Context, id string) (core.HistoryEntry, error) {
	env, err := c.do(ctx, http.MethodGet, "/admin/commitments/history/edit/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return core.HistoryEntry{}, err
	}
	var out core.HistoryEntry
	return out, env.decodeData(&out)
}

func (c *Client) UpdatePayment(ctx context.Context, id string, in PaymentInput) (core.HistoryEntry, error) {
	env, err := c.do(ctx, http.MethodPut, "/admin/commitments/history/update/"+url.PathEscape(id), nil, in)
	if err != nil {
		return core.HistoryEntry{}, err
	}
	var out core.HistoryEntry
	return out, env.decodeData(&out)
}

func (c *Client) DeletePayment(ctx context.Context, id, ownerID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/admin/commitments/history/delete/"+url.PathEscape(id), ownerQuery(ownerID), nil)
	return err
}
