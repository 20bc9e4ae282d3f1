package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/user-management/internal"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// Payload is what a token says about its bearer.
type Payload struct {
	Sub      string `json:"sub"`
	Username string `json:"username"`
}

// Claims represents JWT token claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the two token kinds. A token issued as
// one kind never verifies as the other.
type TokenService interface {
	IssueAccessToken(p Payload) (string, error)
	IssueRefreshToken(p Payload) (string, error)
	VerifyAccessToken(token string) (Payload, error)
	VerifyRefreshToken(token string) (Payload, error)
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	Issuer             string

	now func() time.Time
}

// NewJWTTokenGenerator creates a new JWT token generator
func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
		now:                time.Now,
	}
}

// WithClock returns a copy of the generator that reads time from now.
func (j *JWTTokenGenerator) WithClock(now func() time.Time) *JWTTokenGenerator {
	cp := *j
	cp.now = now
	return &cp
}

func (j *JWTTokenGenerator) IssueAccessToken(p Payload) (string, error) {
	return j.issue(TokenAccess, p, j.AccessTokenSecret, j.AccessTokenTTL)
}

func (j *JWTTokenGenerator) IssueRefreshToken(p Payload) (string, error) {
	return j.issue(TokenRefresh, p, j.RefreshTokenSecret, j.RefreshTokenTTL)
}

func (j *JWTTokenGenerator) VerifyAccessToken(token string) (Payload, error) {
	return j.verify(token, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) VerifyRefreshToken(token string) (Payload, error) {
	return j.verify(token, j.RefreshTokenSecret)
}

// IssuePair issues a fresh access and refresh token for p.
func IssuePair(tokens TokenService, p Payload) (AuthTokens, error) {
	access, err := tokens.IssueAccessToken(p)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue access token", err)
	}
	refresh, err := tokens.IssueRefreshToken(p)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue refresh token", err)
	}
	return AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (j *JWTTokenGenerator) issue(kind TokenKind, p Payload, secret []byte, ttl time.Duration) (string, error) {
	if p.Sub == "" {
		return "", errors.New("token subject is required")
	}
	issuedAt := j.clock()
	claims := &Claims{
		Username: p.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.Sub,
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	tokensIssued.WithLabelValues(string(kind)).Inc()
	return tokenString, nil
}

func (j *JWTTokenGenerator) verify(tokenString string, secret []byte) (Payload, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.clock),
	}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Payload{}, internal.ErrTokenExpired.WithCause(err)
		}
		return Payload{}, internal.ErrInvalidToken.WithCause(err)
	}
	if claims.Subject == "" {
		return Payload{}, internal.ErrInvalidToken.WithMessage("Token has no subject")
	}

	return Payload{Sub: claims.Subject, Username: claims.Username}, nil
}

func (j *JWTTokenGenerator) clock() time.Time {
	if j.now == nil {
		return time.Now()
	}
	return j.now()
}
