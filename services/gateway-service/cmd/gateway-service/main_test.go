package main

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agendly/agendly/libs/auth"
)

var testSecret = []byte("gateway-test-secret")

func signedToken(t *testing.T, sub, role string) string {
	t.Helper()
	token, err := auth.SignHS256(auth.Claims{
		Sub:  sub,
		Role: role,
		Name: "Pat",
		Iat:  time.Now().Unix(),
		Exp:  time.Now().Add(time.Hour).Unix(),
	}, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

// echoBackend captures the identity headers the gateway forwards.
type echoBackend struct {
	lastUserID string
	lastRole   string
	lastName   string
}

func (b *echoBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.lastUserID = r.Header.Get("X-User-Id")
	b.lastRole = r.Header.Get("X-Role")
	b.lastName = r.Header.Get("X-User-Name")
	w.WriteHeader(http.StatusOK)
}

func newTestGateway(t *testing.T) (*httptest.Server, *echoBackend) {
	t.Helper()
	backend := &echoBackend{}
	g := &gateway{
		identity: backend,
		booking:  backend,
		secret:   testSecret,
		logger:   slog.New(slog.DiscardHandler),
	}
	mux := http.NewServeMux()
	g.routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, backend
}

func get(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	srv, _ := newTestGateway(t)
	resp := get(t, srv.URL+"/api/v1/appointments", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRequireAuthRejectsBadToken(t *testing.T) {
	srv, _ := newTestGateway(t)
	resp := get(t, srv.URL+"/api/v1/appointments", "not.a.token")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRequireAuthForwardsVerifiedIdentity(t *testing.T) {
	srv, backend := newTestGateway(t)

	resp := get(t, srv.URL+"/api/v1/appointments?date=2026-03-15", signedToken(t, "user-1", "client"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if backend.lastUserID != "user-1" || backend.lastRole != "client" || backend.lastName != "Pat" {
		t.Fatalf("forwarded identity = (%s, %s, %s)", backend.lastUserID, backend.lastRole, backend.lastName)
	}
}

func TestRequireAuthStripsSpoofedHeaders(t *testing.T) {
	srv, backend := newTestGateway(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/appointments?date=2026-03-15", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "real-user", "client"))
	req.Header.Set("X-User-Id", "spoofed-admin")
	req.Header.Set("X-Role", "professional")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if backend.lastUserID != "real-user" || backend.lastRole != "client" {
		t.Fatalf("spoofed headers passed through: (%s, %s)", backend.lastUserID, backend.lastRole)
	}
}

func TestRequireRoleGatesReports(t *testing.T) {
	srv, _ := newTestGateway(t)

	resp := get(t, srv.URL+"/api/v1/reports/summary", signedToken(t, "c1", "client"))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("client status = %d, want 403", resp.StatusCode)
	}
	resp = get(t, srv.URL+"/api/v1/reports/summary", signedToken(t, "p1", "professional"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("professional status = %d, want 200", resp.StatusCode)
	}
}

func TestRequireRoleGatesClients(t *testing.T) {
	srv, _ := newTestGateway(t)

	resp := get(t, srv.URL+"/api/v1/clients", signedToken(t, "c1", "client"))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("client status = %d, want 403", resp.StatusCode)
	}
}

func TestAuthRoutesArePublic(t *testing.T) {
	srv, _ := newTestGateway(t)

	resp := get(t, srv.URL+"/api/v1/auth/login", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login proxy status = %d, want 200 from backend", resp.StatusCode)
	}
}

func TestAuthMeRequiresToken(t *testing.T) {
	srv, _ := newTestGateway(t)

	resp := get(t, srv.URL+"/api/v1/auth/me", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}
