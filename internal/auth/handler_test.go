package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nummix/backoffice/internal/shared"
	_ "github.com/nummix/backoffice/testing"
)

type memoryRepo struct {
	mu    sync.Mutex
	users map[string]User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[string]User{}}
}

func (m *memoryRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &user, nil
}

func (m *memoryRepo) CreateUser(_ context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return ErrEmailTaken
	}
	m.users[user.Email] = user
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(newMemoryRepo(), shared.NewSessionStore(client, time.Hour))
	svc.WithHashCost(bcrypt.MinCost)
	return NewHandler(nil, svc), mr
}

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.MountRoutes(r)
	r.With(h.Middleware).Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		owner, _ := shared.OwnerFromContext(r.Context())
		_, _ = w.Write([]byte(owner.String()))
	})
	return r
}

func do(router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRegisterLoginLogout(t *testing.T) {
	h, _ := newTestHandler(t)
	router := newRouter(h)

	rr := do(router, http.MethodPost, "/auth/register", `{"email":"Owner@Example.com","password":"s3cretpass"}`, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var registered struct {
		ID    uuid.UUID `json:"id"`
		Email string    `json:"email"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &registered))
	assert.Equal(t, "owner@example.com", registered.Email)

	rr = do(router, http.MethodPost, "/auth/register", `{"email":"owner@example.com","password":"another1"}`, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(router, http.MethodPost, "/auth/login", `{"email":"owner@example.com","password":"s3cretpass"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	rr = do(router, http.MethodGet, "/whoami", "", login.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, registered.ID.String(), rr.Body.String())

	rr = do(router, http.MethodPost, "/auth/logout", "", login.Token)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(router, http.MethodGet, "/whoami", "", login.Token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h, _ := newTestHandler(t)
	router := newRouter(h)
	rr := do(router, http.MethodPost, "/auth/register", `{"email":"a@example.com","password":"password1"}`, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(router, http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"wrongpass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = do(router, http.MethodPost, "/auth/login", `{"email":"nobody@example.com","password":"password1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = do(router, http.MethodPost, "/auth/login", `{"email":"not-an-email","password":"password1"}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMiddlewareRequiresBearerToken(t *testing.T) {
	h, mr := newTestHandler(t)
	router := newRouter(h)

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/whoami", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/whoami", "", "forged").Code)
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/auth/logout", "", "").Code)

	rr := do(router, http.MethodPost, "/auth/register", `{"email":"b@example.com","password":"password1"}`, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = do(router, http.MethodPost, "/auth/login", `{"email":"b@example.com","password":"password1"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &login))

	mr.FastForward(2 * time.Hour)
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/whoami", "", login.Token).Code)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(req))
	req.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, BearerToken(req))
	req.Header.Set("Authorization", "bearer tok-1")
	assert.Equal(t, "tok-1", BearerToken(req))
}
