package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/scribe/internal/auth"
	"github.com/prn-tf/scribe/internal/cache/memory"
	"github.com/prn-tf/scribe/internal/config"
	"github.com/prn-tf/scribe/internal/metrics"
	"github.com/prn-tf/scribe/internal/repository/factory"
	"github.com/prn-tf/scribe/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testServer struct {
	t       *testing.T
	handler http.Handler
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	store, err := factory.New(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, zerolog.Nop()).Open(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrator.Migrate(ctx))

	cache := memory.NewCache(time.Minute)
	t.Cleanup(func() { _ = cache.Close() })

	m := metrics.New()
	tokens := auth.NewTokenManager(testSecret, time.Hour, "scribe-test")
	users := service.NewUserService(store.Repos.User, tokens, bcrypt.MinCost, m, zerolog.Nop())
	blogs := service.NewBlogService(store.Repos.Blog, cache, service.DefaultBlogConfig(), m, zerolog.Nop())

	router := NewRouter(RouterConfig{
		UserHandler:   NewUserHandler(users, zerolog.Nop()),
		BlogHandler:   NewBlogHandler(blogs, zerolog.Nop()),
		TokenVerifier: tokens,
		Metrics:       m,
		Health:        store.Database,
		MaxBodySize:   1 << 20,
		Logger:        zerolog.Nop(),
	})

	return &testServer{t: t, handler: router.Handler(), metrics: m}
}

// do sends a request. body may be nil, a string (sent raw) or any JSON value.
func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

// register signs up and logs in, returning the token and user id.
func (s *testServer) register(email string) (string, string) {
	s.t.Helper()

	rec := s.do(http.MethodPost, "/api/users/signup", "", map[string]any{
		"firstname": "A", "lastname": "B", "emailAddress": email, "password": "pw",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/users/login", "", map[string]any{
		"emailAddress": email, "password": "pw",
	})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(s.t, rec)
	user := body["user"].(map[string]any)
	return body["token"].(string), user["id"].(string)
}

func (s *testServer) createBlog(token, title string) string {
	s.t.Helper()

	rec := s.do(http.MethodPost, "/api/blog/create", token, map[string]any{
		"title": title, "body": "0123456789 some words", "description": "d", "tags": "go",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody(s.t, rec)["blog"].(map[string]any)["id"].(string)
}

func (s *testServer) getBlog(token, id string) map[string]any {
	s.t.Helper()
	rec := s.do(http.MethodGet, "/api/blog/blogId/"+id, token, nil)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody(s.t, rec)["blog"].(map[string]any)
}

func (s *testServer) publish(token, id string) {
	s.t.Helper()
	rec := s.do(http.MethodPatch, "/api/blog/publish/"+id, token, nil)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestEndToEnd(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/users/signup", "", map[string]any{
		"firstname": "A", "lastname": "B", "emailAddress": "a@b.com", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, MessageUserCreated, body["message"])
	assert.Equal(t, false, body["error"])
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(http.MethodPost, "/api/users/login", "", map[string]any{
		"emailAddress": "a@b.com", "password": "pw",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decodeBody(t, rec)
	token := body["token"].(string)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, body["expires_at"])

	rec = s.do(http.MethodPost, "/api/blog/create", token, map[string]any{
		"title": "T", "body": "0123456789",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	blog := decodeBody(t, rec)["blog"].(map[string]any)
	assert.Equal(t, "draft", blog["state"])
	assert.Equal(t, "1 min read", blog["reading_time"])
	id := blog["id"].(string)

	rec = s.do(http.MethodPatch, "/api/blog/publish/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decodeBody(t, rec)
	assert.Equal(t, MessageBlogPublished, body["message"])
	assert.Equal(t, "publish", body["blog"].(map[string]any)["state"])

	rec = s.do(http.MethodGet, "/api/blog", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decodeBody(t, rec)
	assert.EqualValues(t, 1, body["total"])
	blogs := body["blogs"].([]any)
	require.Len(t, blogs, 1)
	assert.Equal(t, id, blogs[0].(map[string]any)["id"])
	assert.Equal(t, "a@b.com", blogs[0].(map[string]any)["author"].(map[string]any)["emailAddress"])
}

func TestSignup_Errors(t *testing.T) {
	s := newTestServer(t)
	s.register("taken@example.com")

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "empty body",
			body:       nil,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    MessageFieldsRequired,
		},
		{
			name:       "missing password",
			body:       map[string]any{"firstname": "A", "lastname": "B", "emailAddress": "x@example.com"},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    MessageFieldsRequired,
		},
		{
			name:       "blank firstname",
			body:       map[string]any{"firstname": "  ", "lastname": "B", "emailAddress": "x@example.com", "password": "pw"},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    MessageFieldsRequired,
		},
		{
			name:       "wrong type",
			body:       map[string]any{"firstname": 42, "lastname": "B", "emailAddress": "x@example.com", "password": "pw"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    MessageInvalidDetails,
		},
		{
			name:       "malformed json",
			body:       `{"firstname":`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    MessageInvalidDetails,
		},
		{
			name:       "invalid email",
			body:       map[string]any{"firstname": "A", "lastname": "B", "emailAddress": "not-an-email", "password": "pw"},
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    MessageValidationFailed,
		},
		{
			name:       "duplicate email",
			body:       map[string]any{"firstname": "A", "lastname": "B", "emailAddress": "Taken@Example.com", "password": "pw"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "User already exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/users/signup", "", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			body := decodeBody(t, rec)
			assert.Equal(t, tt.wantMsg, body["message"])
			assert.Equal(t, true, body["error"])
			assert.EqualValues(t, tt.wantStatus, body["status"])
		})
	}
}

func TestSignup_InvalidEmailReportsField(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/users/signup", "", map[string]any{
		"firstname": "A", "lastname": "B", "emailAddress": "nope", "password": "pw",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	errs := decodeBody(t, rec)["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "emailAddress", errs[0].(map[string]any)["field"])
	assert.Equal(t, "Enter a valid email", errs[0].(map[string]any)["message"])
}

func TestLogin_Errors(t *testing.T) {
	s := newTestServer(t)
	s.register("ada@example.com")

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"missing fields", map[string]any{"emailAddress": "ada@example.com"}, http.StatusUnauthorized},
		{"wrong password", map[string]any{"emailAddress": "ada@example.com", "password": "nope"}, http.StatusBadRequest},
		{"unknown email", map[string]any{"emailAddress": "bob@example.com", "password": "pw"}, http.StatusBadRequest},
		{"wrong type", map[string]any{"emailAddress": "ada@example.com", "password": 1}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/users/login", "", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.NotContains(t, decodeBody(t, rec), "token")
		})
	}
}

func TestLogin_EmailIsCaseInsensitive(t *testing.T) {
	s := newTestServer(t)
	s.register("ada@example.com")

	rec := s.do(http.MethodPost, "/api/users/login", "", map[string]any{
		"emailAddress": "ADA@example.com", "password": "pw",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAuthGate(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{"no header", "", auth.MessageUnauthorized},
		{"wrong scheme", "Token abc", auth.MessageUnauthorized},
		{"bearer without token", "Bearer", auth.MessageUnauthorized},
		{"garbage token", "Bearer not-a-jwt", auth.MessageInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/blog/create",
				strings.NewReader(`{"title":"T","body":"0123456789"}`))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.wantMsg, decodeBody(t, rec)["message"])
		})
	}
}

func TestCreateBlog_Errors(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register("ada@example.com")
	id := s.createBlog(token, "Existing")

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantMsg    string
	}{
		{"missing title", map[string]any{"body": "0123456789"}, http.StatusBadRequest, MessageFieldsRequired},
		{"missing body", map[string]any{"title": "T"}, http.StatusBadRequest, MessageFieldsRequired},
		{"short body", map[string]any{"title": "T", "body": "short"}, http.StatusUnprocessableEntity, MessageValidationFailed},
		{"wrong type", map[string]any{"title": []string{"T"}, "body": "0123456789"}, http.StatusBadRequest, MessageInvalidDetails},
		{"duplicate title", map[string]any{"title": "Existing", "body": "0123456789"}, http.StatusBadRequest, "Title already exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/blog/create", token, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantMsg, decodeBody(t, rec)["message"])
		})
	}

	blog := s.getBlog(token, id)
	assert.Equal(t, "Existing", blog["title"])
	assert.Equal(t, "0123456789 some words", blog["body"])
	assert.Equal(t, "d", blog["description"])
}

func TestPublish(t *testing.T) {
	s := newTestServer(t)
	ada, _ := s.register("ada@example.com")
	bob, _ := s.register("bob@example.com")
	id := s.createBlog(ada, "Ada's post")

	rec := s.do(http.MethodPatch, "/api/blog/publish/"+id, bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	s.publish(ada, id)

	rec = s.do(http.MethodPatch, "/api/blog/publish/"+id, ada, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Blog already published", decodeBody(t, rec)["message"])

	rec = s.do(http.MethodPatch, "/api/blog/publish/6f1d3c1e-8a5b-4c8e-9d4e-1f2a3b4c5d6e", ada, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPatch, "/api/blog/publish/not-a-uuid", ada, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetBlog_Visibility(t *testing.T) {
	s := newTestServer(t)
	ada, _ := s.register("ada@example.com")
	bob, _ := s.register("bob@example.com")
	id := s.createBlog(ada, "Draft")

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/blog/blogId/"+id, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/blog/blogId/"+id, bob, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/blog/blogId/"+id, ada, nil).Code)

	s.publish(ada, id)

	rec := s.do(http.MethodGet, "/api/blog/blogId/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "publish", decodeBody(t, rec)["blog"].(map[string]any)["state"])
}

func TestListByAuthor(t *testing.T) {
	s := newTestServer(t)
	ada, adaID := s.register("ada@example.com")
	bob, _ := s.register("bob@example.com")

	s.publish(ada, s.createBlog(ada, "One"))
	s.createBlog(ada, "Two")

	tests := []struct {
		name       string
		token      string
		query      string
		wantStatus int
		wantTotal  float64
	}{
		{"author sees drafts", ada, "", http.StatusOK, 2},
		{"author filters drafts", ada, "?state=draft", http.StatusOK, 1},
		{"other user sees published", bob, "", http.StatusOK, 1},
		{"other user asking for drafts", bob, "?state=draft", http.StatusOK, 0},
		{"bad state", ada, "?state=archived", http.StatusUnprocessableEntity, 0},
		{"bad page", ada, "?page=abc", http.StatusBadRequest, 0},
		{"bad limit", ada, "?limit=ten", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, "/api/blog/"+adaID+tt.query, tt.token, nil)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantTotal, decodeBody(t, rec)["total"])
			}
		})
	}

	t.Run("invalid user id", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/blog/not-a-uuid", ada, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid user ID format", decodeBody(t, rec)["message"])
	})

	t.Run("requires auth", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/blog/"+adaID, "", nil).Code)
	})
}

func TestListPublished_Pagination(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register("ada@example.com")

	for i := range 12 {
		s.publish(token, s.createBlog(token, fmt.Sprintf("Post %02d", i)))
	}
	s.createBlog(token, "Unpublished")

	rec := s.do(http.MethodGet, "/api/blog?page=2&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 12, body["total"])
	assert.EqualValues(t, 2, body["page"])
	assert.EqualValues(t, 5, body["limit"])
	assert.Len(t, body["blogs"], 5)

	rec = s.do(http.MethodGet, "/api/blog?page=3&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["blogs"], 2)

	rec = s.do(http.MethodGet, "/api/blog?limit=1000", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 100, decodeBody(t, rec)["limit"])

	t.Run("anonymous drafts are empty", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/blog?state=draft", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.EqualValues(t, 0, body["total"])
		assert.Equal(t, []any{}, body["blogs"])
	})

	t.Run("authors see their own drafts", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/blog?state=draft", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, decodeBody(t, rec)["total"])
	})

	t.Run("bad state", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/blog?state=nope", "", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestUpdateAndDelete(t *testing.T) {
	s := newTestServer(t)
	ada, _ := s.register("ada@example.com")
	bob, _ := s.register("bob@example.com")
	id := s.createBlog(ada, "Original")
	s.createBlog(ada, "Taken")

	rec := s.do(http.MethodPut, "/api/blog/"+id, bob, map[string]any{"title": "Hijacked", "body": "overwritten by bob"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	blog := s.getBlog(ada, id)
	assert.Equal(t, "Original", blog["title"])
	assert.Equal(t, "0123456789 some words", blog["body"])
	assert.Equal(t, "go", blog["tags"])

	rec = s.do(http.MethodPut, "/api/blog/"+id, ada, map[string]any{"title": "Taken"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/api/blog/"+id, ada, map[string]any{"body": "tiny"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodPut, "/api/blog/"+id, ada, map[string]any{"title": "Renamed", "tags": "go,web"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	blog = decodeBody(t, rec)["blog"].(map[string]any)
	assert.Equal(t, "Renamed", blog["title"])
	assert.Equal(t, "go,web", blog["tags"])
	assert.Equal(t, "draft", blog["state"])

	rec = s.do(http.MethodDelete, "/api/blog/"+id, bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	blog = s.getBlog(ada, id)
	assert.Equal(t, "Renamed", blog["title"])
	assert.Equal(t, "go,web", blog["tags"])

	rec = s.do(http.MethodDelete, "/api/blog/"+id, ada, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MessageBlogDeleted, decodeBody(t, rec)["message"])

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/blog/blogId/"+id, ada, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/blog/"+id, ada, nil).Code)
}

type failingHealth struct{}

func (failingHealth) Health(context.Context) error { return errors.New("database is down") }

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	down := NewRouter(RouterConfig{Health: failingHealth{}, Logger: zerolog.Nop()}).Handler()
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["error"])
}

func TestRequestMetricsUseRoutePattern(t *testing.T) {
	s := newTestServer(t)
	s.register("ada@example.com")

	families, err := s.metrics.Registry().Gather()
	require.NoError(t, err)

	var routes []string
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), "http_requests_total") {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "route" {
					routes = append(routes, lp.GetValue())
				}
			}
		}
	}
	assert.Contains(t, routes, "/api/users/signup")
	assert.Contains(t, routes, "/api/users/login")
}
