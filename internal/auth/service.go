package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/salonpos/salonpos/internal/shared"
)

const issuer = "salonpos"

// ErrSecretRequired is returned when the service is built without a signing key.
var ErrSecretRequired = errors.New("auth: jwt secret required")

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, secret string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{repo: repo, secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a signed token.
func (s *Service) Login(ctx context.Context, username, password string) (Token, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return Token{}, err
	}
	return s.IssueToken(*user)
}

// IssueToken signs an HS256 token carrying the user's role.
func (s *Service) IssueToken(user User) (Token, error) {
	now := s.now().UTC()
	expires := now.Add(s.ttl)
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Token: signed, ExpiresAt: expires, User: user.View()}, nil
}

// ParseToken verifies a bearer token and returns the actor it names.
func (s *Service) ParseToken(raw string) (shared.Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return shared.Actor{}, shared.ErrUnauthorized
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return shared.Actor{}, shared.ErrUnauthorized
	}
	return shared.Actor{UserID: id, Username: claims.Username, Role: strings.ToUpper(claims.Role)}, nil
}

// CreateUser hashes the password and stores a new active account.
func (s *Service) CreateUser(ctx context.Context, username, password, role string) (int64, error) {
	username = strings.TrimSpace(username)
	role = strings.ToUpper(strings.TrimSpace(role))
	if username == "" {
		return 0, shared.NewValidationError("username", "is required")
	}
	if len(password) < 8 {
		return 0, shared.NewValidationError("password", "must be at least 8 characters")
	}
	if role != shared.RoleAdmin && role != shared.RoleStaff {
		return 0, shared.NewValidationError("role", "must be ADMIN or STAFF")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	return s.repo.CreateUser(ctx, User{Username: username, PasswordHash: string(hash), Role: role, IsActive: true})
}
