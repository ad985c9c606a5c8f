package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/agendly/agendly/services/identity-service/internal/model"
	"github.com/agendly/agendly/services/identity-service/internal/storage"
)

type fakeProfiles struct {
	byID      map[string]model.ClientProfile
	accounts  *fakeAccounts
	insertErr error
}

func newFakeProfiles(accounts *fakeAccounts) *fakeProfiles {
	return &fakeProfiles{byID: map[string]model.ClientProfile{}, accounts: accounts}
}

func (f *fakeProfiles) join(p model.ClientProfile) model.ClientProfile {
	if a, ok := f.accounts.byID[p.AccountID]; ok {
		p.Name = a.Name
		p.Email = a.Email
	}
	return p
}

func (f *fakeProfiles) Insert(_ context.Context, p model.ClientProfile) (model.ClientProfile, error) {
	if f.insertErr != nil {
		return model.ClientProfile{}, f.insertErr
	}
	p.CreatedAt = time.Now()
	f.byID[p.ID] = p
	return p, nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (model.ClientProfile, error) {
	p, ok := f.byID[id]
	if !ok {
		return model.ClientProfile{}, storage.ErrNotFound
	}
	return f.join(p), nil
}

func (f *fakeProfiles) ListForProfessional(_ context.Context, professionalID string) ([]model.ClientProfile, error) {
	var out []model.ClientProfile
	for _, p := range f.byID {
		if p.ProfessionalID == professionalID {
			out = append(out, f.join(p))
		}
	}
	return out, nil
}

func (f *fakeProfiles) Update(_ context.Context, p model.ClientProfile) (model.ClientProfile, error) {
	if _, ok := f.byID[p.ID]; !ok {
		return model.ClientProfile{}, storage.ErrNotFound
	}
	f.byID[p.ID] = p
	return f.join(p), nil
}

func (f *fakeProfiles) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func newClientsServer(t *testing.T) (*httptest.Server, *fakeAccounts, *fakeProfiles) {
	t.Helper()
	accounts := newFakeAccounts()
	profiles := newFakeProfiles(accounts)
	mux := http.NewServeMux()
	NewClientsHandler(accounts, profiles, newFakeSessions(), slog.New(slog.DiscardHandler)).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, accounts, profiles
}

func doAs(t *testing.T, method, url, userID, role, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", userID)
	req.Header.Set("X-Role", role)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateClientProvisionsAccountAndProfile(t *testing.T) {
	srv, accounts, profiles := newClientsServer(t)
	proID := uuid.NewString()

	resp := doAs(t, http.MethodPost, srv.URL+"/api/v1/clients", proID, "professional",
		`{"email":"casey@example.com","password":"secret1","name":"Casey","phone":"555-0101","notes":"prefers mornings"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var created struct {
		Data model.ClientProfile `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.Data.Name != "Casey" || created.Data.Email != "casey@example.com" {
		t.Fatalf("profile = %+v", created.Data)
	}
	acct, ok := accounts.byID[created.Data.AccountID]
	if !ok {
		t.Fatal("no account provisioned")
	}
	if acct.Role != model.RoleClient {
		t.Fatalf("account role = %s", acct.Role)
	}
	if len(profiles.byID) != 1 {
		t.Fatalf("profiles = %d, want 1", len(profiles.byID))
	}
}

func TestCreateClientRollsBackAccountOnProfileFailure(t *testing.T) {
	srv, accounts, profiles := newClientsServer(t)
	profiles.insertErr = errors.New("profile table unavailable")

	resp := doAs(t, http.MethodPost, srv.URL+"/api/v1/clients", uuid.NewString(), "professional",
		`{"email":"casey@example.com","password":"secret1","name":"Casey"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if len(accounts.byID) != 0 {
		t.Fatal("orphaned account left behind after profile insert failure")
	}
	if len(accounts.deleted) != 1 {
		t.Fatalf("compensating deletes = %d, want 1", len(accounts.deleted))
	}
}

func TestClientsForbiddenForClients(t *testing.T) {
	srv, _, _ := newClientsServer(t)

	resp := doAs(t, http.MethodGet, srv.URL+"/api/v1/clients", uuid.NewString(), "client", "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestClientRosterScopedToOwner(t *testing.T) {
	srv, _, _ := newClientsServer(t)
	proA, proB := uuid.NewString(), uuid.NewString()

	resp := doAs(t, http.MethodPost, srv.URL+"/api/v1/clients", proA, "professional",
		`{"email":"casey@example.com","password":"secret1","name":"Casey"}`)
	var created struct {
		Data model.ClientProfile `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}

	// The other professional's roster neither lists nor reads it.
	resp = doAs(t, http.MethodGet, srv.URL+"/api/v1/clients", proB, "professional", "")
	var listed struct {
		Data []model.ClientProfile `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatal(err)
	}
	if len(listed.Data) != 0 {
		t.Fatalf("foreign roster sees %d clients", len(listed.Data))
	}
	resp = doAs(t, http.MethodGet, srv.URL+"/api/v1/clients/"+created.Data.ID, proB, "professional", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign read status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteClientRemovesAccount(t *testing.T) {
	srv, accounts, profiles := newClientsServer(t)
	proID := uuid.NewString()

	resp := doAs(t, http.MethodPost, srv.URL+"/api/v1/clients", proID, "professional",
		`{"email":"casey@example.com","password":"secret1","name":"Casey"}`)
	var created struct {
		Data model.ClientProfile `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}

	resp = doAs(t, http.MethodDelete, srv.URL+"/api/v1/clients/"+created.Data.ID, proID, "professional", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if len(profiles.byID) != 0 {
		t.Fatal("profile survived delete")
	}
	if len(accounts.byID) != 0 {
		t.Fatal("account survived delete")
	}
}
