package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mcoot/draftroom/internal/dependencies/clock"
	"github.com/mcoot/draftroom/internal/model"
)

// Errors
var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authentication required")
)

// TokenCookie is the cookie browsers may carry the identity token in
const TokenCookie = "draftroom_token"

// Claims are the identity claims issued by the account system
type Claims struct {
	Name          string   `json:"name"`
	Discriminator string   `json:"discriminator,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Config holds configuration for the auth service
type Config struct {
	// Secret is the shared HMAC key used to verify identity tokens
	Secret string
	// TokenDuration is the lifetime of tokens minted by IssueToken
	TokenDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Secret:        "change-me",
		TokenDuration: 24 * time.Hour,
	}
}

// Service resolves connection identities from signed tokens
type Service struct {
	secret        []byte
	tokenDuration time.Duration
	clock         clock.Clock
}

// New creates a new auth Service
func New(clock clock.Clock, cfg Config) *Service {
	if cfg.TokenDuration == 0 {
		cfg.TokenDuration = DefaultConfig().TokenDuration
	}
	return &Service{
		secret:        []byte(cfg.Secret),
		tokenDuration: cfg.TokenDuration,
		clock:         clock,
	}
}

// ValidateToken verifies an HS256 token and returns the identity it carries
func (s *Service) ValidateToken(tokenString string) (model.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return model.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if strings.HasPrefix(claims.Subject, model.AnonymousPrefix) {
		return model.Identity{}, fmt.Errorf("%w: reserved subject", ErrInvalidToken)
	}

	name := claims.Name
	if name == "" {
		name = claims.Subject
	}
	return model.Identity{
		User: model.DraftUser{
			ID:            model.UserID(claims.Subject),
			DisplayName:   name,
			Discriminator: claims.Discriminator,
		},
		Roles: claims.Roles,
	}, nil
}

// IssueToken mints a token for user. Used by tooling and tests; production
// tokens come from the account system with the same secret.
func (s *Service) IssueToken(user model.DraftUser, roles []string) (string, error) {
	now := s.clock.Now()
	claims := Claims{
		Name:          user.DisplayName,
		Discriminator: user.Discriminator,
		Roles:         roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenDuration)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Anonymous returns the transient identity for an unauthenticated connection.
// It is stable for the connection's lifetime only.
func Anonymous(connectionID string) model.Identity {
	short := connectionID
	if len(short) > 4 {
		short = short[:4]
	}
	return model.Identity{
		User: model.DraftUser{
			ID:          model.UserID(model.AnonymousPrefix + connectionID),
			DisplayName: "Guest-" + short,
		},
	}
}

// NewConnectionID returns a fresh connection id
func NewConnectionID() string {
	return uuid.NewString()
}

// ResolveRequest returns the identity presented by r. Without a token it
// returns ErrMissingToken; an unverifiable token returns ErrInvalidToken.
func (s *Service) ResolveRequest(r *http.Request) (model.Identity, error) {
	token := ExtractToken(r)
	if token == "" {
		return model.Identity{}, ErrMissingToken
	}
	return s.ValidateToken(token)
}

// ResolveConnection returns the identity for a realtime connection, falling back
// to an anonymous identity keyed by connectionID when no token is presented.
func (s *Service) ResolveConnection(r *http.Request, connectionID string) (model.Identity, error) {
	identity, err := s.ResolveRequest(r)
	if errors.Is(err, ErrMissingToken) {
		return Anonymous(connectionID), nil
	}
	return identity, err
}

// ExtractToken extracts the identity token from the request
func ExtractToken(r *http.Request) string {
	// Check Authorization header first
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Fall back to cookie
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}

	// Browsers cannot set headers on websocket upgrades
	return r.URL.Query().Get("token")
}
