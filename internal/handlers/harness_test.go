package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/studyshare/backend/internal/accounts"
	"github.com/studyshare/backend/internal/auth"
	"github.com/studyshare/backend/internal/friends"
	"github.com/studyshare/backend/internal/mail"
	"github.com/studyshare/backend/internal/materials"
	"github.com/studyshare/backend/internal/repositories"
	"github.com/studyshare/backend/internal/storage"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type memoryObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memoryObjectStore) Save(_ context.Context, name, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[name] = data
	return "https://files.example.com/" + name, nil
}

func (s *memoryObjectStore) Remove(_ context.Context, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, strings.TrimPrefix(location, "https://files.example.com/"))
	return nil
}

type testApp struct {
	t        *testing.T
	mux      *http.ServeMux
	store    *repositories.MemoryStore
	sessions *auth.Manager
	mailer   *recordingMailer
	objects  *memoryObjectStore
	accounts *accounts.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	store := repositories.NewMemoryStore()
	sessions := auth.NewManager(time.Hour, auth.NewInMemorySessionStore())
	mailer := &recordingMailer{}
	objects := &memoryObjectStore{}
	accountService := accounts.NewService(store, sessions, mailer, accounts.Config{
		AdminEmail: "admin@example.com",
		VerifyURL:  "http://localhost:8080/api/v1/auth/verify",
	})

	mux := http.NewServeMux()
	RegisterRoutes(mux, Dependencies{
		Accounts:       accountService,
		Sessions:       sessions,
		Friends:        friends.NewService(store, store),
		Materials:      materials.NewService(store, store, store.MaterialRepository(), storage.NewUploader(objects, 1024, "materials")),
		MaxUploadBytes: 1024,
	})

	return &testApp{
		t:        t,
		mux:      mux,
		store:    store,
		sessions: sessions,
		mailer:   mailer,
		objects:  objects,
		accounts: accountService,
	}
}

func (a *testApp) do(req *http.Request, sessionID string) *httptest.ResponseRecorder {
	a.t.Helper()
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: sessionID})
	}
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) doJSON(method, path string, payload any, sessionID string) *httptest.ResponseRecorder {
	a.t.Helper()
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			a.t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, sessionID)
}

// verifiedUser registers, verifies and logs in a user, returning its id and session.
func (a *testApp) verifiedUser(username string) (string, string) {
	a.t.Helper()
	ctx := context.Background()
	email := username + "@example.com"

	result, err := a.accounts.Register(ctx, accounts.RegisterInput{Username: username, Email: email, Password: "password123"})
	if err != nil {
		a.t.Fatalf("register %s: %v", username, err)
	}
	if _, err := a.accounts.Verify(ctx, result.User.VerificationToken); err != nil {
		a.t.Fatalf("verify %s: %v", username, err)
	}
	login, err := a.accounts.Login(ctx, email, "password123")
	if err != nil {
		a.t.Fatalf("login %s: %v", username, err)
	}
	return result.User.ID, login.Session.ID
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rec, status)
	resp := decodeBody[errorResponse](t, rec)
	if resp.Code != code {
		t.Fatalf("expected error code %q got %q (%s)", code, resp.Code, resp.Error)
	}
}
