package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/salonpos/salonpos/internal/auth"
	"github.com/salonpos/salonpos/internal/shared"
	_ "github.com/salonpos/salonpos/testing"
)

type stubRepo struct {
	users  map[string]*auth.User
	nextID int64
}

func newStubRepo(t *testing.T) *stubRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia123"), bcrypt.MinCost)
	require.NoError(t, err)
	return &stubRepo{
		nextID: 3,
		users: map[string]*auth.User{
			"owner":  {ID: 1, Username: "owner", PasswordHash: string(hash), Role: shared.RoleAdmin, IsActive: true},
			"former": {ID: 2, Username: "former", PasswordHash: string(hash), Role: shared.RoleStaff, IsActive: false},
		},
	}
}

func (s *stubRepo) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	u, ok := s.users[strings.ToLower(username)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubRepo) FindByID(_ context.Context, id int64) (*auth.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) CreateUser(_ context.Context, user auth.User) (int64, error) {
	if _, ok := s.users[strings.ToLower(user.Username)]; ok {
		return 0, shared.ErrDuplicate
	}
	user.ID = s.nextID
	s.nextID++
	s.users[strings.ToLower(user.Username)] = &user
	return user.ID, nil
}

func newService(t *testing.T, repo auth.Repository) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(repo, "test-secret", time.Hour)
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := auth.NewService(newStubRepo(t), "", time.Hour)
	require.ErrorIs(t, err, auth.ErrSecretRequired)
}

func TestAuthenticate(t *testing.T) {
	svc := newService(t, newStubRepo(t))
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "owner", "rahasia123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)

	_, err = svc.Authenticate(ctx, "owner", "wrong-password")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "ghost", "rahasia123")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "former", "rahasia123")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newService(t, newStubRepo(t))
	token, err := svc.Login(context.Background(), "owner", "rahasia123")
	require.NoError(t, err)
	assert.Equal(t, shared.RoleAdmin, token.User.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, time.Minute)

	actor, err := svc.ParseToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, shared.Actor{UserID: 1, Username: "owner", Role: shared.RoleAdmin}, actor)
}

func TestParseTokenRejects(t *testing.T) {
	svc := newService(t, newStubRepo(t))
	other, err := auth.NewService(newStubRepo(t), "another-secret", time.Hour)
	require.NoError(t, err)
	foreign, err := other.IssueToken(auth.User{ID: 1, Username: "owner", Role: shared.RoleAdmin})
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Username: "owner",
		Role:     shared.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "salonpos",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredRaw, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": foreign.Token,
		"expired":      expiredRaw,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ParseToken(raw)
			require.ErrorIs(t, err, shared.ErrUnauthorized)
		})
	}
}

func TestCreateUser(t *testing.T) {
	repo := newStubRepo(t)
	svc := newService(t, repo)
	ctx := context.Background()

	id, err := svc.CreateUser(ctx, " kasir ", "kasir12345", "staff")
	require.NoError(t, err)
	created := repo.users["kasir"]
	require.NotNil(t, created)
	assert.Equal(t, id, created.ID)
	assert.Equal(t, shared.RoleStaff, created.Role)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("kasir12345")))

	_, err = svc.CreateUser(ctx, "kasir", "kasir12345", "staff")
	require.ErrorIs(t, err, shared.ErrDuplicate)
	_, err = svc.CreateUser(ctx, "short", "123", "staff")
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.CreateUser(ctx, "boss", "boss123456", "owner")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestLoginHandler(t *testing.T) {
	svc := newService(t, newStubRepo(t))
	handler := auth.NewHandler(nil, svc)
	router := chi.NewRouter()
	router.Route("/auth", handler.MountRoutes)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"owner","password":"rahasia123"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Token string        `json:"token"`
		User  auth.UserView `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, "owner", body.User.Username)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"owner","password":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"owner"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMiddleware(t *testing.T) {
	svc := newService(t, newStubRepo(t))
	handler := auth.NewHandler(nil, svc)
	var seen shared.Actor
	protected := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Authorization", "Bearer junk")
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := svc.IssueToken(auth.User{ID: 7, Username: "kasir", Role: shared.RoleStaff})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Authorization", "Bearer "+token.Token)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(7), seen.UserID)
	assert.Equal(t, shared.RoleStaff, seen.Role)
}
