package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"discovery/internal/model"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrNotAdmin     = errors.New("admin access required")

	ErrNoSigningSecret = errors.New("no token signing secret configured")
)

// AuthService resolves identities and decides admin access
type AuthService struct {
	jwtSecret    []byte
	trustHeaders bool
	adminDomains []string
}

// NewAuthService creates a new auth service. adminDomains are matched case-insensitively.
func NewAuthService(secret string, trustHeaders bool, adminDomains []string) *AuthService {
	domains := make([]string, 0, len(adminDomains))
	for _, d := range adminDomains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d != "" {
			domains = append(domains, d)
		}
	}
	return &AuthService{
		jwtSecret:    []byte(secret),
		trustHeaders: trustHeaders,
		adminDomains: domains,
	}
}

// TrustHeaders reports whether gateway identity headers are accepted
func (s *AuthService) TrustHeaders() bool {
	return s.trustHeaders
}

// TokensEnabled reports whether bearer tokens can be verified. Without a
// secret only gateway headers identify callers.
func (s *AuthService) TokensEnabled() bool {
	return len(s.jwtSecret) > 0
}

// IssueToken signs an identity token
func (s *AuthService) IssueToken(id model.Identity, ttl time.Duration) (string, error) {
	if !s.TokensEnabled() {
		return "", ErrNoSigningSecret
	}
	now := time.Now()
	claims := &model.IdentityClaims{
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  id.UserID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates an identity JWT and returns the identity it carries
func (s *AuthService) ValidateToken(tokenString string) (*model.Identity, error) {
	if !s.TokensEnabled() {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &model.IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.IdentityClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return ResolveIdentity(claims.Subject, claims.Email, claims.Name)
}

// ResolveIdentity builds an identity from already-trusted values
func ResolveIdentity(userID, email, name string) (*model.Identity, error) {
	userID = strings.TrimSpace(userID)
	email = strings.TrimSpace(email)
	if userID == "" || email == "" {
		return nil, ErrMissingIdentity
	}
	return &model.Identity{UserID: userID, Email: email, Name: strings.TrimSpace(name)}, nil
}

// IsAdmin reports whether the email's domain is on the admin allow-list
func (s *AuthService) IsAdmin(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range s.adminDomains {
		if domain == d {
			return true
		}
	}
	return false
}
