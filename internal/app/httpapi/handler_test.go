package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	app "github.com/egov-platform/citizen-services/internal/app"
	"github.com/egov-platform/citizen-services/internal/app/auth"
	"github.com/egov-platform/citizen-services/internal/app/domain/catalog"
	"github.com/egov-platform/citizen-services/internal/app/domain/fine"
	"github.com/egov-platform/citizen-services/internal/app/domain/request"
	"github.com/egov-platform/citizen-services/internal/app/storage/memory"
	"github.com/egov-platform/citizen-services/internal/middleware"
)

type testEnv struct {
	handler http.Handler
	store   *memory.Store
	service catalog.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	agency, err := store.CreateAgency(ctx, catalog.Agency{Name: "Interior Ministry"})
	if err != nil {
		t.Fatalf("CreateAgency: %v", err)
	}
	svc, err := store.CreateService(ctx, catalog.Service{AgencyID: agency.ID, Name: "Passport Renewal", Fee: 50})
	if err != nil {
		t.Fatalf("CreateService: %v", err)
	}

	tokens := auth.NewManager("test-secret", 15*time.Minute, 24*time.Hour, auth.NewMemoryRevocations())
	application := app.New(app.Stores{
		Users:        store,
		Catalog:      store,
		Requests:     store,
		Appointments: store,
		Instruments:  store,
		Fines:        store,
		Documents:    store,
	}, tokens, app.Options{})

	authMW := middleware.NewAuthMiddleware(tokens, nil, []string{
		"/users/signup", "/users/login", "/users/token/refresh", "/health", "/metrics",
	})
	return &testEnv{
		handler: authMW.Handler(NewHandler(application, "")),
		store:   store,
		service: svc,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func (e *testEnv) signup(t *testing.T, username string) tokenResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/users/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "hunter22",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup %s: status = %d, body %s", username, rec.Code, rec.Body.String())
	}
	var resp tokenResponse
	decodeBody(t, rec, &resp)
	return resp
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/service-requests", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["error"] == "" {
		t.Fatalf("expected error message in body, got %s", rec.Body.String())
	}
}

func TestSignupLoginAndRequestLifecycle(t *testing.T) {
	env := newTestEnv(t)
	creds := env.signup(t, "alice")

	// login works with the same credentials
	rec := env.do(t, http.MethodPost, "/users/login", "", map[string]string{
		"username": "alice", "password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/service-requests", creds.Access, map[string]interface{}{
		"service_id": env.service.ID,
		"payload":    map[string]interface{}{"note": "urgent"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create request: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created request.ServiceRequest
	decodeBody(t, rec, &created)
	if created.Status != request.StatusApproved {
		t.Fatalf("status = %s, want APPROVED for passport service", created.Status)
	}
	if created.IsPaid {
		t.Fatal("new request should not be paid")
	}

	// paying requires an instrument
	rec = env.do(t, http.MethodPost, "/service-requests/"+created.ID+"/pay", creds.Access, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("pay without instrument: status = %d, want 404", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/bank-account", creds.Access, map[string]interface{}{
		"iban": "DE89370400440532013000", "infinite_balance": true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create instrument: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/service-requests/"+created.ID+"/pay", creds.Access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pay: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var paid request.ServiceRequest
	decodeBody(t, rec, &paid)
	if !paid.IsPaid {
		t.Fatal("request not marked paid")
	}

	rec = env.do(t, http.MethodDelete, "/service-requests/"+created.ID, creds.Access, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/service-requests/"+created.ID, creds.Access, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status = %d, want 404", rec.Code)
	}
}

func TestForeignRequestIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")

	rec := env.do(t, http.MethodPost, "/service-requests", alice.Access, map[string]interface{}{
		"service_id": env.service.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}
	var created request.ServiceRequest
	decodeBody(t, rec, &created)

	rec = env.do(t, http.MethodGet, "/service-requests/"+created.ID, bob.Access, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign get: status = %d, want 404", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/service-requests/"+created.ID, bob.Access, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete: status = %d, want 404", rec.Code)
	}
}

func TestInstrumentConflictAndReplace(t *testing.T) {
	env := newTestEnv(t)
	creds := env.signup(t, "alice")

	body := map[string]interface{}{"iban": "DE89370400440532013000"}
	if rec := env.do(t, http.MethodPost, "/bank-account", creds.Access, body); rec.Code != http.StatusCreated {
		t.Fatalf("first create: status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/bank-account", creds.Access, body); rec.Code != http.StatusConflict {
		t.Fatalf("second create: status = %d, want 409", rec.Code)
	}

	body["replace"] = true
	body["iban"] = "DE02120300000000202051"
	rec := env.do(t, http.MethodPost, "/bank-account", creds.Access, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("replace: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var inst map[string]interface{}
	decodeBody(t, rec, &inst)
	if inst["iban"] != "DE02120300000000202051" {
		t.Fatalf("iban after replace = %v", inst["iban"])
	}
}

func TestPayFinesResponseShape(t *testing.T) {
	env := newTestEnv(t)
	creds := env.signup(t, "alice")

	issued := time.Now().UTC().Add(-24 * time.Hour)
	for i := 0; i < 2; i++ {
		_, err := env.store.CreateFine(context.Background(), fine.TrafficFine{
			FineNumber:    fmt.Sprintf("TF-%d", i),
			UserID:        creds.User.ID,
			Amount:        40,
			ViolationType: "Speeding",
			IssuedAt:      &issued,
			Status:        fine.StatusPending,
		})
		if err != nil {
			t.Fatalf("CreateFine: %v", err)
		}
	}

	rec := env.do(t, http.MethodPost, "/fines/pay", creds.Access, map[string]interface{}{"pay_all": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("pay fines: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Message string             `json:"message"`
		Updated int                `json:"updated"`
		Fines   []fine.TrafficFine `json:"fines"`
	}
	decodeBody(t, rec, &resp)
	if resp.Updated != 2 || resp.Message != "2 fine(s) paid" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.Fines) != 0 {
		t.Fatalf("remaining fines = %d, want 0", len(resp.Fines))
	}

	// both fines produced ledger entries
	rec = env.do(t, http.MethodGet, "/service-requests", creds.Access, nil)
	var ledger []request.ServiceRequest
	decodeBody(t, rec, &ledger)
	if len(ledger) != 2 {
		t.Fatalf("ledger entries = %d, want 2", len(ledger))
	}
	for _, entry := range ledger {
		if entry.Status != request.StatusApproved || !entry.IsPaid {
			t.Fatalf("ledger entry %+v, want APPROVED and paid", entry)
		}
	}
}

func TestRefreshEndpoint(t *testing.T) {
	env := newTestEnv(t)
	creds := env.signup(t, "alice")

	rec := env.do(t, http.MethodGet, "/users/token/refresh", creds.Refresh, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp tokenResponse
	decodeBody(t, rec, &resp)
	if resp.Access == "" || resp.Refresh == "" {
		t.Fatal("refresh returned empty pair")
	}

	// an access token is not accepted as a refresh credential
	rec = env.do(t, http.MethodGet, "/users/token/refresh", creds.Access, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh with access token: status = %d, want 401", rec.Code)
	}
}

func TestTrailingSlashTolerated(t *testing.T) {
	env := newTestEnv(t)
	creds := env.signup(t, "alice")

	for _, path := range []string{"/agencies", "/agencies/"} {
		rec := env.do(t, http.MethodGet, path, creds.Access, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", path, rec.Code)
		}
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	env := newTestEnv(t)
	creds := env.signup(t, "alice")

	rec := env.do(t, http.MethodGet, "/no-such-route", creds.Access, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAuditTrailRecordsAuthenticatedRequests(t *testing.T) {
	log := newAuditLog(2, nil)
	handler := log.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	// anonymous requests are not recorded
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/documents", nil))
	if got := len(log.recent()); got != 0 {
		t.Fatalf("entries after anonymous request = %d, want 0", got)
	}

	for _, path := range []string{"/a", "/b", "/c"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req = req.WithContext(middleware.WithUserID(req.Context(), "user-1"))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	entries := log.recent()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want trail capped at 2", len(entries))
	}
	if entries[0].Path != "/b" || entries[1].Path != "/c" {
		t.Fatalf("trail kept %s, %s; want oldest evicted", entries[0].Path, entries[1].Path)
	}
	last := entries[1]
	if last.User != "user-1" || last.Method != http.MethodPost || last.Status != http.StatusCreated {
		t.Fatalf("unexpected entry %+v", last)
	}
}
