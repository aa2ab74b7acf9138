package core

import "testing"

func TestRowNumber(t *testing.T) {
	for _, size := range PageSizes {
		for page := 1; page <= 4; page++ {
			req := NewPageRequest(page, size)
			for i := 0; i < size; i++ {
				want := (page-1)*size + i + 1
				if got := req.RowNumber(i); got != want {
					t.Fatalf("page=%d size=%d i=%d: got %d, want %d", page, size, i, got, want)
				}
			}
		}
	}
}

func TestPageRequestNormalize(t *testing.T) {
	cases := []struct {
		in   PageRequest
		want PageRequest
	}{
		{PageRequest{Page: 0, Limit: 20}, PageRequest{Page: 1, Limit: 20}},
		{PageRequest{Page: -3, Limit: 50}, PageRequest{Page: 1, Limit: 50}},
		{PageRequest{Page: 2, Limit: 15}, PageRequest{Page: 2, Limit: 10}},
		{PageRequest{Page: 3, Limit: 0}, PageRequest{Page: 3, Limit: 10}},
	}
	for _, tc := range cases {
		if got := tc.in.Normalize(); got != tc.want {
			t.Fatalf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
	if off := NewPageRequest(3, 20).Offset(); off != 40 {
		t.Fatalf("offset = %d, want 40", off)
	}
}

func TestResolveTotals(t *testing.T) {
	items, pages := 23, 3

	got := ResolveTotals(nil, &pages, 10)
	if got.TotalItems != 30 || got.TotalPages != 3 || !got.Approximate {
		t.Fatalf("pages only: %+v", got)
	}
	got = ResolveTotals(&items, nil, 10)
	if got.TotalItems != 23 || got.TotalPages != 3 || got.Approximate {
		t.Fatalf("items only: %+v", got)
	}
	got = ResolveTotals(&items, &pages, 20)
	if got.TotalItems != 23 || got.TotalPages != 3 {
		t.Fatalf("both: %+v", got)
	}
	if got := ResolveTotals(nil, nil, 10); got != (PageInfo{}) {
		t.Fatalf("neither: %+v", got)
	}
}

func TestPaginate(t *testing.T) {
	all := make([]int, 23)
	for i := range all {
		all[i] = i
	}
	p := Paginate(all, NewPageRequest(3, 10))
	if len(p.Items) != 3 || p.Items[0] != 20 || p.Info.TotalItems != 23 || p.Info.TotalPages != 3 {
		t.Fatalf("unexpected page %+v", p)
	}
	p = Paginate(all, NewPageRequest(9, 10))
	if len(p.Items) != 0 || p.Items == nil {
		t.Fatalf("page past the end must be empty, got %+v", p.Items)
	}
}
