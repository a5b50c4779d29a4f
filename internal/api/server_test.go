package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/dayboardhq/dayboard/internal/auth"
	"github.com/dayboardhq/dayboard/internal/session"
	"github.com/dayboardhq/dayboard/internal/store"
	"github.com/dayboardhq/dayboard/internal/todo"
)

// fakeCredentials is an in-memory auth.CredentialSource.
type fakeCredentials struct {
	mu        sync.Mutex
	snapshots map[string]*auth.CredentialSnapshot
}

func newFakeCredentials() *fakeCredentials {
	return &fakeCredentials{snapshots: make(map[string]*auth.CredentialSnapshot)}
}

func (f *fakeCredentials) put(s *auth.CredentialSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[s.UserID] = s
}

func (f *fakeCredentials) has(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.snapshots[userID]
	return ok
}

func (f *fakeCredentials) Credential(_ context.Context, userID string) (*auth.CredentialSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshots[userID]
	if !ok {
		return nil, auth.ErrCredentialNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeCredentials) RefreshTokenOf(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshots[userID]
	if !ok {
		return "", auth.ErrCredentialNotFound
	}
	return s.RefreshToken, nil
}

func (f *fakeCredentials) SaveTokens(_ context.Context, snapshot *auth.CredentialSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.snapshots[snapshot.UserID]; !ok {
		return auth.ErrCredentialNotFound
	}
	copied := *snapshot
	f.snapshots[snapshot.UserID] = &copied
	return nil
}

func (f *fakeCredentials) RemoveCredential(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.snapshots[userID]; !ok {
		return auth.ErrCredentialNotFound
	}
	delete(f.snapshots, userID)
	return nil
}

// fakeUsers is an in-memory UserDirectory.
type fakeUsers struct {
	mu      sync.Mutex
	users   map[string]*store.User
	touched int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*store.User)}
}

func (f *fakeUsers) put(u *store.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

func (f *fakeUsers) CreateOrLink(_ context.Context, input store.CreateOrLinkInput) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Google != nil && u.Google.GoogleID == input.GoogleID {
			u.Email = input.Email
			u.Name = input.Name
			return u, nil
		}
	}
	u := &store.User{
		ID:    fmt.Sprintf("user-%d", len(f.users)+1),
		Email: input.Email,
		Name:  input.Name,
		Google: &store.GoogleCredential{
			GoogleID:    input.GoogleID,
			ConnectedAt: time.Now(),
		},
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsers) FindByID(_ context.Context, userID string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Touch(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched++
	return nil
}

// fakeTodos is an in-memory TodoStore.
type fakeTodos struct {
	mu    sync.Mutex
	next  int
	todos map[string]*todo.Todo
}

func newFakeTodos() *fakeTodos {
	return &fakeTodos{todos: make(map[string]*todo.Todo)}
}

func (f *fakeTodos) List(_ context.Context, userID string) ([]todo.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []todo.Todo{}
	for _, item := range f.todos {
		if item.UserID == userID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeTodos) Create(_ context.Context, userID string, input todo.Input) (*todo.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	item := &todo.Todo{
		ID:     fmt.Sprintf("todo-%d", f.next),
		UserID: userID,
		Title:  input.Title,
		Notes:  input.Notes,
	}
	f.todos[item.ID] = item
	return item, nil
}

func (f *fakeTodos) Get(_ context.Context, userID, todoID string) (*todo.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.todos[todoID]
	if !ok || item.UserID != userID {
		return nil, todo.ErrNotFound
	}
	return item, nil
}

func (f *fakeTodos) Update(_ context.Context, userID, todoID string, input todo.Input) (*todo.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.todos[todoID]
	if !ok || item.UserID != userID {
		return nil, todo.ErrNotFound
	}
	if input.Title != "" {
		item.Title = input.Title
	}
	return item, nil
}

func (f *fakeTodos) Toggle(_ context.Context, userID, todoID string) (*todo.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.todos[todoID]
	if !ok || item.UserID != userID {
		return nil, todo.ErrNotFound
	}
	item.Done = !item.Done
	return item, nil
}

func (f *fakeTodos) Delete(_ context.Context, userID, todoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.todos[todoID]
	if !ok || item.UserID != userID {
		return todo.ErrNotFound
	}
	delete(f.todos, todoID)
	return nil
}

// fixture bundles a test server with its fakes.
type fixture struct {
	server   *Server
	creds    *fakeCredentials
	users    *fakeUsers
	todos    *fakeTodos
	sessions *session.Manager
	google   *httptest.Server
}

var testSessionSecret = []byte("0123456789abcdef0123456789abcdef")

// newFixture builds a server whose provider clients and userinfo fetches
// talk to googleHandler, with everything else faked in memory.
func newFixture(t *testing.T, googleHandler http.Handler) *fixture {
	t.Helper()

	if googleHandler == nil {
		googleHandler = http.NotFoundHandler()
	}
	googleSrv := httptest.NewServer(googleHandler)
	t.Cleanup(googleSrv.Close)

	conf := &oauth2.Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURL:  googleSrv.URL + "/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   googleSrv.URL + "/o/oauth2/auth",
			TokenURL:  googleSrv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{"openid"},
	}

	creds := newFakeCredentials()
	opts := []option.ClientOption{option.WithEndpoint(googleSrv.URL)}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	manager, err := auth.NewManager(context.Background(), auth.ManagerConfig{
		Store:         creds,
		OAuth:         conf,
		ClientOptions: opts,
		Logger:        logger,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	sessions, err := session.NewManager(testSessionSecret, time.Hour, false)
	if err != nil {
		t.Fatalf("session.NewManager failed: %v", err)
	}

	users := newFakeUsers()
	todos := newFakeTodos()

	server, err := NewServer(Config{
		FrontendURL:   "http://dash.test/app",
		Auth:          manager,
		Users:         users,
		Todos:         todos,
		Sessions:      sessions,
		OAuth:         conf,
		ClientOptions: opts,
		Logger:        logger,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	return &fixture{
		server:   server,
		creds:    creds,
		users:    users,
		todos:    todos,
		sessions: sessions,
		google:   googleSrv,
	}
}

// connect stores a fresh credential and a user record for userID.
func (f *fixture) connect(userID string) {
	f.creds.put(&auth.CredentialSnapshot{
		UserID:       userID,
		AccessToken:  "at-" + userID,
		RefreshToken: "rt-" + userID,
		Expiry:       time.Now().Add(time.Hour),
		Scopes:       []string{"openid"},
	})
	f.users.put(&store.User{
		ID:    userID,
		Email: userID + "@example.com",
		Name:  "Test User",
		Google: &store.GoogleCredential{
			GoogleID:    "g-" + userID,
			ConnectedAt: time.Now(),
		},
	})
}

// sessionCookie issues a signed session cookie for the user.
func (f *fixture) sessionCookie(t *testing.T, userID string) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	if err := f.sessions.Issue(rec, userID, userID+"@example.com"); err != nil {
		t.Fatalf("session issue failed: %v", err)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

// do runs one request through the router.
func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

// authedRequest builds a request carrying a valid session for userID.
func (f *fixture) authedRequest(t *testing.T, userID, method, target string, body io.Reader) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.AddCookie(f.sessionCookie(t, userID))
	return req
}

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not an error envelope: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestNewServerValidation(t *testing.T) {
	if _, err := NewServer(Config{}); err == nil {
		t.Fatal("Expected an error for an empty config")
	}
}

func TestRoutesRegistered(t *testing.T) {
	f := newFixture(t, nil)

	// A sample across all route groups; a 404 or 405 here means the
	// route table lost an entry.
	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/healthz"},
		{http.MethodGet, "/readyz"},
		{http.MethodGet, "/auth/google/login"},
		{http.MethodGet, "/auth/google/callback"},
		{http.MethodPost, "/auth/logout"},
		{http.MethodPost, "/auth/disconnect"},
		{http.MethodGet, "/api/me"},
		{http.MethodGet, "/api/gmail/messages"},
		{http.MethodPost, "/api/gmail/messages/send"},
		{http.MethodGet, "/api/calendar/events"},
		{http.MethodPost, "/api/calendar/events"},
		{http.MethodPatch, "/api/calendar/events/ev-1"},
		{http.MethodDelete, "/api/calendar/events/ev-1"},
		{http.MethodGet, "/api/tasks/lists"},
		{http.MethodPost, "/api/tasks/lists"},
		{http.MethodGet, "/api/tasks/lists/l1/tasks"},
		{http.MethodPost, "/api/tasks/lists/l1/tasks"},
		{http.MethodPatch, "/api/tasks/lists/l1/tasks/t1"},
		{http.MethodDelete, "/api/tasks/lists/l1/tasks/t1"},
		{http.MethodPost, "/api/tasks/lists/l1/tasks/t1/toggle"},
		{http.MethodPost, "/api/tasks/lists/l1/tasks/t1/move"},
		{http.MethodPost, "/api/tasks/lists/l1/clear"},
		{http.MethodGet, "/api/todos"},
		{http.MethodPost, "/api/todos"},
		{http.MethodGet, "/api/todos/td-1"},
		{http.MethodPatch, "/api/todos/td-1"},
		{http.MethodDelete, "/api/todos/td-1"},
		{http.MethodPost, "/api/todos/td-1/toggle"},
	}

	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, nil)
		rec := f.do(t, req)
		// Routed handlers always answer with JSON; the mux fallbacks for
		// unknown paths and method mismatches answer in plain text.
		if rec.Code == http.StatusNotFound {
			var envelope ErrorResponse
			if json.Unmarshal(rec.Body.Bytes(), &envelope) != nil {
				t.Errorf("%s %s is not routed", p.method, p.path)
			}
		}
		if rec.Code == http.StatusMethodNotAllowed {
			t.Errorf("%s %s hit a method mismatch", p.method, p.path)
		}
	}
}
