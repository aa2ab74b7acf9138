package client

import (
	"context"
	"net/http"
	"strconv"

	"finboard/internal/core"
)

func (c *Client) Dashboard(ctx context.Context, ownerID string, r core.DateRange) (core.Dashboard, error) {
	q := ownerQuery(ownerID)
	if q == nil {
		q = make(map[string][]string)
	}
	env, err := c.do(ctx, http.MethodGet, "/admin/dashboard/index", rangeQuery(q, r), nil)
	if err != nil {
		return core.Dashboard{}, err
	}
	var out core.Dashboard
	return out, env.decodeData(&out)
}

// UpcomingPayments lists installments due within days (0..31).
func (c *Client) UpcomingPayments(ctx context.Context, ownerID string, days int) ([]core.UpcomingPayment, error) {
	q := ownerQuery(ownerID)
	if q == nil {
		q = make(map[string][]string)
	}
	q.Set("days", strconv.Itoa(days))
	env, err := c.do(ctx, http.MethodGet, "/admin/dashboard/upcoming-payments", q, nil)
	if err != nil {
		return nil, err
	}
	out := []core.UpcomingPayment{}
	return out, env.decodeData(&out)
}
