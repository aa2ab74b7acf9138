package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"finboard/internal/cache"
	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/storage/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testAPI struct {
	t      *testing.T
	srv    *httptest.Server
	server *Server
	auth   *services.AuthService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithLimit(t, 1000)
}

func newTestAPIWithLimit(t *testing.T, perMinute int) *testAPI {
	t.Helper()
	store := memory.New()
	logger := log.New(log.Config{Output: io.Discard})

	dashboard := services.NewDashboardService(store, cache.NewLRUCache[core.Dashboard](50, time.Minute), logger)
	auth := services.NewAuthService(store, testSecret, time.Hour, logger)
	svc := Services{
		Auth:        auth,
		Commitments: services.NewCommitmentService(store, nil, dashboard, logger),
		Expenses:    services.NewExpenseService(store, nil, dashboard, logger),
		Notes:       services.NewNoteService(store, logger),
		Dashboard:   dashboard,
	}

	server, err := NewServer(Options{
		UploadDir:          t.TempDir(),
		RateLimitPerMinute: perMinute,
		Logger:             logger,
		Ready:              store.Ping,
	}, svc)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	srv := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		srv.Close()
		_ = server.Shutdown(context.Background())
	})
	return &testAPI{t: t, srv: srv, server: server, auth: auth}
}

// register creates a user and returns its id and token.
func (a *testAPI) register(email string) (string, string) {
	a.t.Helper()
	res, env := a.do(http.MethodPost, "/admin/register", "", map[string]any{
		"name": "Test User", "email": email, "password": "s3cret-pass",
	})
	if res.StatusCode != http.StatusCreated {
		a.t.Fatalf("register status = %d, body %+v", res.StatusCode, env)
	}
	res, env = a.do(http.MethodPost, "/admin/login", "", map[string]any{"email": email, "password": "s3cret-pass"})
	if res.StatusCode != http.StatusOK || env.Token == "" {
		a.t.Fatalf("login status = %d, body %+v", res.StatusCode, env)
	}
	return env.UserID, env.Token
}

type rawEnvelope struct {
	envelope
	Data json.RawMessage `json:"data"`
}

func (a *testAPI) do(method, path, token string, body any) (*http.Response, rawEnvelope) {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			a.t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, r)
	if err != nil {
		a.t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.send(req)
}

func (a *testAPI) send(req *http.Request) (*http.Response, rawEnvelope) {
	a.t.Helper()
	res, err := a.srv.Client().Do(req)
	if err != nil {
		a.t.Fatal(err)
	}
	defer res.Body.Close()
	var env rawEnvelope
	raw, _ := io.ReadAll(res.Body)
	if len(raw) > 0 && strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &env); err != nil {
			a.t.Fatalf("decode %q: %v", raw, err)
		}
	}
	return res, env
}

func TestHealthAndReady(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		res, env := api.do(http.MethodGet, path, "", nil)
		if res.StatusCode != http.StatusOK || env.Status != "success" {
			t.Errorf("%s: status = %d, envelope %+v", path, res.StatusCode, env.envelope)
		}
		if res.Header.Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s: security headers missing", path)
		}
		if res.Header.Get("X-Request-ID") == "" {
			t.Errorf("%s: request id missing", path)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "no token", token: ""},
		{name: "garbage token", token: "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, env := api.do(http.MethodGet, "/admin/commitments", tt.token, nil)
			if res.StatusCode != http.StatusUnauthorized || env.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, envelope code %d", res.StatusCode, env.Code)
			}
		})
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	api := newTestAPI(t)
	api.register("a@example.com")

	res, env := api.do(http.MethodPost, "/admin/login", "", map[string]any{"email": "a@example.com", "password": "wrong-password"})
	if res.StatusCode != http.StatusUnauthorized || env.Token != "" {
		t.Errorf("status = %d, token %q", res.StatusCode, env.Token)
	}

	res, env = api.do(http.MethodPost, "/admin/login", "", map[string]any{})
	if res.StatusCode != http.StatusBadRequest || len(env.Errors) != 2 {
		t.Errorf("empty login: status = %d, errors %+v", res.StatusCode, env.Errors)
	}
}

func TestOwnerMismatchIsForbidden(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.register("a@example.com")
	otherID, _ := api.register("b@example.com")

	res, _ := api.do(http.MethodGet, "/admin/commitments?createdBy="+otherID, token, nil)
	if res.StatusCode != http.StatusForbidden {
		t.Errorf("list for other owner: status = %d, want 403", res.StatusCode)
	}
	res, _ = api.do(http.MethodGet, "/admin/dashboard/index?userId="+otherID, token, nil)
	if res.StatusCode != http.StatusForbidden {
		t.Errorf("dashboard for other owner: status = %d, want 403", res.StatusCode)
	}
}

func TestCommitmentLedgerEndToEnd(t *testing.T) {
	api := newTestAPI(t)
	userID, token := api.register("owner@example.com")

	res, env := api.do(http.MethodPost, "/admin/commitments/store", token, map[string]any{
		"payFor": "Car loan", "totalEmi": 12, "emiAmount": 1000,
		"payType": 1, "category": 1, "dueDate": 5, "createdBy": userID,
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, envelope %+v", res.StatusCode, env.envelope)
	}
	var created core.Commitment
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 2; i++ {
		res, env = api.do(http.MethodPost, "/admin/commitments/history/store", token, map[string]any{
			"commitmentId": created.ID, "amount": "1000", "currentEmi": i, "paidDate": "2024-03-05",
		})
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("payment %d status = %d, envelope %+v", i, res.StatusCode, env.envelope)
		}
	}

	// Out of order installment is a field error.
	res, env = api.do(http.MethodPost, "/admin/commitments/history/store", token, map[string]any{
		"commitmentId": created.ID, "amount": "1000", "currentEmi": 2, "paidDate": "2024-04-05",
	})
	if res.StatusCode != http.StatusBadRequest || len(env.Errors) == 0 || env.Errors[0].Param != "currentEmi" {
		t.Errorf("duplicate installment: status = %d, errors %+v", res.StatusCode, env.Errors)
	}

	res, env = api.do(http.MethodGet, "/admin/commitments?createdBy="+userID+"&page=1&limit=10", token, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", res.StatusCode)
	}
	var rows []core.Commitment
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || env.TotalItems == nil || *env.TotalItems != 1 {
		t.Fatalf("list rows = %d, totalItems %v", len(rows), env.TotalItems)
	}
	got := rows[0]
	if got.Paid == nil || *got.Paid != 2 || got.Pending != 10 || got.Status != core.StatusOngoing {
		t.Errorf("ledger = paid %v pending %d status %d, want 2/10/Ongoing", got.Paid, got.Pending, got.Status)
	}
	if !got.PaidAmount.Equal(core.MustDecimal("2000")) || !got.BalanceAmount.Equal(core.MustDecimal("10000")) {
		t.Errorf("amounts = %s paid, %s balance", got.PaidAmount, got.BalanceAmount)
	}

	res, env = api.do(http.MethodGet, "/admin/commitments/history/"+created.ID+"?page=1&limit=10", token, nil)
	if res.StatusCode != http.StatusOK || env.TotalItems == nil || *env.TotalItems != 2 {
		t.Errorf("history: status = %d, totalItems %v", res.StatusCode, env.TotalItems)
	}

	// Delete needs the caller's id.
	res, _ = api.do(http.MethodDelete, "/admin/commitments/delete/"+created.ID, token, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("delete without userId: status = %d, want 400", res.StatusCode)
	}
	res, _ = api.do(http.MethodDelete, "/admin/commitments/delete/"+created.ID, token, map[string]any{"userId": userID})
	if res.StatusCode != http.StatusOK {
		t.Errorf("delete: status = %d", res.StatusCode)
	}
	res, _ = api.do(http.MethodGet, "/admin/commitments/view/"+created.ID, token, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("view after delete: status = %d, want 404", res.StatusCode)
	}
}

func TestCommitmentValidationErrors(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.register("owner@example.com")

	res, env := api.do(http.MethodPost, "/admin/commitments/store", token, map[string]any{
		"payFor": "", "totalEmi": 0, "payType": 1, "category": 1, "dueDate": 40,
	})
	if res.StatusCode != http.StatusBadRequest || env.Status != "error" || env.Code != 400 {
		t.Fatalf("status = %d, envelope %+v", res.StatusCode, env.envelope)
	}
	params := map[string]bool{}
	for _, fe := range env.Errors {
		params[fe.Param] = true
	}
	for _, want := range []string{"payFor", "totalEmi", "dueDate"} {
		if !params[want] {
			t.Errorf("missing error for %s in %+v", want, env.Errors)
		}
	}
}

func TestCommitmentMultipartAttachment(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.register("owner@example.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{"payFor": "Laptop", "totalEmi": "1", "emiAmount": "55,000", "payType": "1", "category": "2", "dueDate": "10"} {
		_ = mw.WriteField(k, v)
	}
	fw, _ := mw.CreateFormFile("attachment", "invoice.pdf")
	_, _ = fw.Write([]byte("%PDF-1.4"))
	_ = mw.Close()

	req, _ := http.NewRequest(http.MethodPost, api.srv.URL+"/admin/commitments/store", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	res, env := api.send(req)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, envelope %+v", res.StatusCode, env.envelope)
	}

	var c core.Commitment
	_ = json.Unmarshal(env.Data, &c)
	if len(c.Attachments) != 1 || !strings.HasPrefix(c.Attachments[0], UploadURLPrefix) {
		t.Fatalf("attachments = %v", c.Attachments)
	}
	if !c.EmiAmount.Equal(core.MustDecimal("55000")) {
		t.Errorf("emiAmount = %s", c.EmiAmount)
	}

	name := strings.TrimPrefix(c.Attachments[0], UploadURLPrefix)
	if _, err := os.Stat(filepath.Join(api.server.uploads.Dir(), name)); err != nil {
		t.Errorf("uploaded file missing: %v", err)
	}

	res, _ = api.send(mustRequest(t, http.MethodGet, api.srv.URL+c.Attachments[0]))
	if res.StatusCode != http.StatusOK {
		t.Errorf("serving upload: status = %d", res.StatusCode)
	}
	res, _ = api.send(mustRequest(t, http.MethodGet, api.srv.URL+UploadURLPrefix))
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("upload dir listing: status = %d, want 404", res.StatusCode)
	}
}

func mustRequest(t *testing.T, method, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestExpensesAndSavings(t *testing.T) {
	api := newTestAPI(t)
	userID, token := api.register("owner@example.com")

	res, env := api.do(http.MethodPost, "/admin/expenses/store", token, map[string]any{
		"name": "Groceries", "amount": "1250.50", "category": 1, "paidOn": "2024-03-02",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expense create: status = %d, envelope %+v", res.StatusCode, env.envelope)
	}
	var groceries core.Expense
	_ = json.Unmarshal(env.Data, &groceries)

	res, env = api.do(http.MethodPost, "/admin/house-savings/store", token, map[string]any{
		"name": "RD deposit", "amount": 5000, "savingMethod": 1, "paidOn": "2024-03-03",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("saving create: status = %d, envelope %+v", res.StatusCode, env.envelope)
	}
	var saving core.Expense
	_ = json.Unmarshal(env.Data, &saving)
	if saving.Category != core.ExpenseSavings {
		t.Errorf("saving category = %d, want Savings", saving.Category)
	}

	res, env = api.do(http.MethodGet, "/admin/house-savings?userId="+userID, token, nil)
	if res.StatusCode != http.StatusOK || env.TotalItems == nil || *env.TotalItems != 1 {
		t.Errorf("savings list: status = %d, totalItems %v", res.StatusCode, env.TotalItems)
	}
	res, env = api.do(http.MethodGet, "/admin/expenses?userId="+userID+"&startDate=2024-03-01&endDate=2024-03-02", token, nil)
	if res.StatusCode != http.StatusOK || env.TotalItems == nil || *env.TotalItems != 1 {
		t.Errorf("expense range: status = %d, totalItems %v", res.StatusCode, env.TotalItems)
	}

	// A plain expense is not reachable through the savings view.
	res, _ = api.do(http.MethodGet, "/admin/house-savings/view/"+groceries.ID, token, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("expense through savings view: status = %d, want 404", res.StatusCode)
	}

	res, env = api.do(http.MethodPut, "/admin/expenses/update/"+groceries.ID, token, map[string]any{"amount": "1300"})
	var updated core.Expense
	_ = json.Unmarshal(env.Data, &updated)
	if res.StatusCode != http.StatusOK || !updated.Amount.Equal(core.MustDecimal("1300")) || updated.Name != "Groceries" {
		t.Errorf("partial update: status = %d, expense %+v", res.StatusCode, updated)
	}

	res, env = api.do(http.MethodGet, "/admin/dashboard/index?userId="+userID, token, nil)
	var dash core.Dashboard
	_ = json.Unmarshal(env.Data, &dash)
	if res.StatusCode != http.StatusOK || !dash.TotalSavings.Equal(core.MustDecimal("5000")) {
		t.Errorf("dashboard: status = %d, savings %s", res.StatusCode, dash.TotalSavings)
	}

	res, _ = api.do(http.MethodDelete, "/admin/house-savings/delete/"+saving.ID, token, nil)
	if res.StatusCode != http.StatusOK {
		t.Errorf("saving delete: status = %d", res.StatusCode)
	}
	res, env = api.do(http.MethodGet, "/admin/dashboard/index?userId="+userID, token, nil)
	_ = json.Unmarshal(env.Data, &dash)
	if !dash.TotalSavings.IsZero() {
		t.Errorf("dashboard after delete should be invalidated, savings %s", dash.TotalSavings)
	}
}

func TestNotesPartialUpdate(t *testing.T) {
	api := newTestAPI(t)
	userID, token := api.register("owner@example.com")

	res, env := api.do(http.MethodPost, "/admin/notes/store", token, map[string]any{"text": "Renew insurance"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d, envelope %+v", res.StatusCode, env.envelope)
	}
	var note core.Note
	_ = json.Unmarshal(env.Data, &note)
	if note.Color != core.NoteColors[0] {
		t.Errorf("default color = %q", note.Color)
	}

	res, env = api.do(http.MethodPut, "/admin/notes/update/"+note.ID, token, map[string]any{"color": "#006A67"})
	var patched core.Note
	_ = json.Unmarshal(env.Data, &patched)
	if res.StatusCode != http.StatusOK || patched.Text != "Renew insurance" || patched.Color != "#006A67" {
		t.Errorf("patch: status = %d, note %+v", res.StatusCode, patched)
	}

	res, env = api.do(http.MethodPut, "/admin/notes/update/"+note.ID, token, map[string]any{"color": "#000000"})
	if res.StatusCode != http.StatusBadRequest || env.Errors[0].Param != "color" {
		t.Errorf("bad color: status = %d, errors %+v", res.StatusCode, env.Errors)
	}

	res, env = api.do(http.MethodGet, "/admin/notes?userId="+userID, token, nil)
	var notes []core.Note
	_ = json.Unmarshal(env.Data, &notes)
	if res.StatusCode != http.StatusOK || len(notes) != 1 {
		t.Errorf("list: status = %d, notes %d", res.StatusCode, len(notes))
	}

	res, _ = api.do(http.MethodDelete, "/admin/notes/delete/"+note.ID, token, nil)
	if res.StatusCode != http.StatusOK {
		t.Errorf("delete: status = %d", res.StatusCode)
	}
}

func TestUpcomingPaymentsValidation(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.register("owner@example.com")

	res, env := api.do(http.MethodGet, "/admin/dashboard/upcoming-payments?days=90", token, nil)
	if res.StatusCode != http.StatusBadRequest || env.Errors[0].Param != "days" {
		t.Errorf("status = %d, errors %+v", res.StatusCode, env.Errors)
	}
	res, env = api.do(http.MethodGet, "/admin/dashboard/upcoming-payments?days=7", token, nil)
	if res.StatusCode != http.StatusOK || string(env.Data) != "[]" {
		t.Errorf("status = %d, data %s", res.StatusCode, env.Data)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	api := newTestAPI(t)

	res, env := api.do(http.MethodGet, "/admin/nope", "", nil)
	if res.StatusCode != http.StatusNotFound || env.Status != "error" {
		t.Errorf("unknown route: status = %d, envelope %+v", res.StatusCode, env.envelope)
	}
	res, _ = api.do(http.MethodGet, "/admin/login", "", nil)
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("wrong method: status = %d, want 405", res.StatusCode)
	}
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	api := newTestAPIWithLimit(t, 2)

	creds := map[string]any{"email": "x@example.com", "password": "whatever-pass"}
	for i := 0; i < 2; i++ {
		res, _ := api.do(http.MethodPost, "/admin/login", "", creds)
		if res.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i+1, res.StatusCode)
		}
	}
	res, env := api.do(http.MethodPost, "/admin/login", "", creds)
	if res.StatusCode != http.StatusTooManyRequests || env.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, envelope %+v", res.StatusCode, env.envelope)
	}
	if res.Header.Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}

	// Reads are never limited.
	res, _ = api.do(http.MethodGet, "/admin/commitments", "", nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("read after limit: status = %d, want 401", res.StatusCode)
	}
}
