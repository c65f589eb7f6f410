package handlers_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/gatepass/auth"
	"github.com/diewo77/gatepass/internal/authz"
	"github.com/diewo77/gatepass/internal/clock"
	"github.com/diewo77/gatepass/internal/db"
	"github.com/diewo77/gatepass/internal/gatepass"
	"github.com/diewo77/gatepass/internal/handlers"
	"github.com/diewo77/gatepass/internal/identity"
	"github.com/diewo77/gatepass/internal/models"
	"github.com/diewo77/gatepass/internal/store/gormstore"
)

type testApp struct {
	srv   *httptest.Server
	clock *clock.FakeClock
	demo  *db.Demo
	gdb   *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	gdb, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(gdb, false); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := db.Seed(gdb, nil); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	demo, err := db.SeedDemo(gdb, start)
	if err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}

	clk := clock.Fake(start)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := gatepass.NewService(gormstore.New(gdb), clk, gatepass.DefaultMinBuffer)
	svc.SetLogger(quiet)
	callers := identity.NewResolver(gdb, authz.NewDBProfileResolver(gdb))

	mux := http.NewServeMux()
	h := handlers.NewGatePassHandler(svc, callers, quiet)
	h.Register(mux, func(next http.Handler) http.Handler {
		return auth.Middleware(auth.RequireAuth(next))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testApp{srv: srv, clock: clk, demo: demo, gdb: gdb}
}

func (a *testApp) do(t *testing.T, method, path string, as uint, body string) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if as != 0 {
		req.Header.Set("Authorization", "Bearer "+auth.Token(as))
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp, out
}

func (a *testApp) permPath(suffix string) string {
	return "/v1/permissions/" + strconv.FormatUint(uint64(a.demo.Permission.ID), 10) + "/" + suffix
}

func verifyBody(secret string) string {
	b, _ := json.Marshal(map[string]string{"secret": secret})
	return string(b)
}

func TestGatePass_FullCycle(t *testing.T) {
	app := newTestApp(t)
	emp, guard := app.demo.Employee.ID, app.demo.Guard.ID

	resp, body := app.do(t, http.MethodPost, app.permPath("gate-out"), emp, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("issue gate-out status = %d, body %v", resp.StatusCode, body)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q", cc)
	}
	if body["direction"] != string(models.DirectionOut) {
		t.Errorf("direction = %v", body["direction"])
	}
	outSecret, _ := body["secret"].(string)

	resp, body = app.do(t, http.MethodPost, "/v1/gate-passes/verify", guard, verifyBody(outSecret))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify gate-out status = %d, body %v", resp.StatusCode, body)
	}
	if body["verified_by"] != float64(guard) {
		t.Errorf("verified_by = %v, want %d", body["verified_by"], guard)
	}

	resp, body = app.do(t, http.MethodPost, app.permPath("gate-in"), emp, "")
	if resp.StatusCode != http.StatusBadRequest || body["error"] != string(gatepass.KindTooEarly) {
		t.Fatalf("early gate-in = %d %v", resp.StatusCode, body)
	}
	details, _ := body["details"].(map[string]any)
	if details["wait_minutes"] != float64(5) {
		t.Errorf("wait_minutes = %v, want 5", details["wait_minutes"])
	}

	app.clock.Advance(6 * time.Minute)
	resp, body = app.do(t, http.MethodPost, app.permPath("gate-in"), emp, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("issue gate-in status = %d, body %v", resp.StatusCode, body)
	}
	inSecret, _ := body["secret"].(string)

	resp, body = app.do(t, http.MethodPost, "/v1/gate-passes/verify", guard, verifyBody(inSecret))
	if resp.StatusCode != http.StatusOK || body["direction"] != string(models.DirectionIn) {
		t.Fatalf("verify gate-in = %d %v", resp.StatusCode, body)
	}

	resp, body = app.do(t, http.MethodGet, app.permPath("gate-pass"), emp, "")
	if resp.StatusCode != http.StatusOK || body["completed"] != true {
		t.Fatalf("status = %d %v", resp.StatusCode, body)
	}

	// replaying either secret is rejected
	resp, body = app.do(t, http.MethodPost, "/v1/gate-passes/verify", guard, verifyBody(outSecret))
	if resp.StatusCode != http.StatusBadRequest || body["error"] != string(gatepass.KindAlreadyVerified) {
		t.Errorf("replay = %d %v", resp.StatusCode, body)
	}
}

func TestGatePass_Errors(t *testing.T) {
	app := newTestApp(t)
	emp, colleague, guard := app.demo.Employee.ID, app.demo.Colleague.ID, app.demo.Guard.ID

	tests := []struct {
		name   string
		method string
		path   string
		as     uint
		body   string
		status int
		code   string
	}{
		{"no credentials", http.MethodPost, app.permPath("gate-out"), 0, "", http.StatusUnauthorized, "unauthorized"},
		{"not owner", http.MethodPost, app.permPath("gate-out"), colleague, "", http.StatusForbidden, string(gatepass.KindNotOwner)},
		{"guard cannot issue", http.MethodPost, app.permPath("gate-out"), guard, "", http.StatusForbidden, string(gatepass.KindNotOwner)},
		{"missing permission", http.MethodPost, "/v1/permissions/9999/gate-out", emp, "", http.StatusNotFound, string(gatepass.KindNotFound)},
		{"bad id", http.MethodPost, "/v1/permissions/abc/gate-out", emp, "", http.StatusBadRequest, "validation"},
		{"zero id", http.MethodPost, "/v1/permissions/0/gate-out", emp, "", http.StatusBadRequest, "validation"},
		{"gate-in before exit", http.MethodPost, app.permPath("gate-in"), emp, "", http.StatusConflict, string(gatepass.KindInvalidState)},
		{"employee cannot verify", http.MethodPost, "/v1/gate-passes/verify", emp, verifyBody("x"), http.StatusForbidden, string(gatepass.KindNotVerifier)},
		{"unknown secret", http.MethodPost, "/v1/gate-passes/verify", guard, verifyBody(strings.Repeat("a", 43)), http.StatusNotFound, string(gatepass.KindUnknownToken)},
		{"malformed secret", http.MethodPost, "/v1/gate-passes/verify", guard, verifyBody("not a secret"), http.StatusNotFound, string(gatepass.KindUnknownToken)},
		{"empty secret", http.MethodPost, "/v1/gate-passes/verify", guard, verifyBody(""), http.StatusBadRequest, "validation"},
		{"bad json", http.MethodPost, "/v1/gate-passes/verify", guard, "{", http.StatusBadRequest, "invalid_json"},
		{"unknown field", http.MethodPost, "/v1/gate-passes/verify", guard, `{"secret":"a","x":1}`, http.StatusBadRequest, "invalid_json"},
		{"colleague cannot view", http.MethodGet, app.permPath("gate-pass"), colleague, "", http.StatusForbidden, string(gatepass.KindNotOwner)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := app.do(t, tt.method, tt.path, tt.as, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d (body %v)", resp.StatusCode, tt.status, body)
			}
			if body["error"] != tt.code {
				t.Errorf("error = %v, want %s", body["error"], tt.code)
			}
		})
	}
}

func TestGatePass_DeletedAccountIsUnauthorized(t *testing.T) {
	app := newTestApp(t)
	if err := app.gdb.Unscoped().Delete(&models.Account{}, app.demo.Employee.ID).Error; err != nil {
		t.Fatalf("delete account: %v", err)
	}
	resp, body := app.do(t, http.MethodPost, app.permPath("gate-out"), app.demo.Employee.ID, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 (body %v)", resp.StatusCode, body)
	}
}
