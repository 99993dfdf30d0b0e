package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/newsroom-labs/cms-service/internal/domain"
)

// Token verification failures.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenRevoked   = errors.New("token revoked")
)

const (
	defaultTTL = 60 * time.Minute
	maxLeeway  = 60 * time.Second
)

// Claims describes JWT payload.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// IssuedToken is a freshly signed session token.
type IssuedToken struct {
	Token     string
	ID        string
	UserID    string
	ExpiresAt time.Time
	ExpiresIn int
}

// TokenManager handles issuing, validating and revoking JWT session tokens.
type TokenManager struct {
	secret   []byte
	ttl      time.Duration
	leeway   time.Duration
	denylist Denylist
	now      func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithLeeway sets the clock skew tolerated on expiry. Values above one minute are capped.
func WithLeeway(leeway time.Duration) TokenOption {
	return func(tm *TokenManager) {
		if leeway < 0 {
			leeway = 0
		}
		if leeway > maxLeeway {
			leeway = maxLeeway
		}
		tm.leeway = leeway
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		tm.now = now
	}
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration, denylist Denylist, opts ...TokenOption) *TokenManager {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if denylist == nil {
		denylist = NewMemoryDenylist()
	}
	tm := &TokenManager{
		secret:   []byte(secret),
		ttl:      ttl,
		denylist: denylist,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// TTL returns the lifetime of issued tokens.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Denylist exposes the revocation store for housekeeping.
func (tm *TokenManager) Denylist() Denylist {
	return tm.denylist
}

// Issue builds and signs a JWT for the user.
func (tm *TokenManager) Issue(userID string, role domain.Role) (IssuedToken, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{
		Token:     tokenString,
		ID:        claims.ID,
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt.Time,
		ExpiresIn: int(tm.ttl / time.Second),
	}, nil
}

// Verify validates signature, expiry and revocation and returns the caller identity.
func (tm *TokenManager) Verify(ctx context.Context, tokenStr string) (domain.Identity, error) {
	claims, err := tm.parse(tokenStr, true)
	if err != nil {
		return domain.Identity{}, err
	}

	revoked, err := tm.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("denylist lookup: %w", err)
	}
	if revoked {
		return domain.Identity{}, ErrTokenRevoked
	}
	return identityFromClaims(claims), nil
}

// Invalidate revokes the token until it would have expired anyway.
// Tokens that are already expired or revoked are accepted silently.
func (tm *TokenManager) Invalidate(ctx context.Context, tokenStr string) error {
	claims, err := tm.parse(tokenStr, false)
	if err != nil {
		return err
	}
	expiresAt := claims.ExpiresAt.Time
	if !expiresAt.Add(tm.leeway).After(tm.now()) {
		return nil
	}
	if _, err := tm.denylist.Revoke(ctx, claims.ID, expiresAt.Add(tm.leeway)); err != nil {
		return fmt.Errorf("denylist revoke: %w", err)
	}
	return nil
}

// Refresh exchanges an active token for a new one, revoking the old token.
// Only the caller that wins the revocation receives a new token.
func (tm *TokenManager) Refresh(ctx context.Context, tokenStr string) (IssuedToken, error) {
	identity, err := tm.Verify(ctx, tokenStr)
	if err != nil {
		return IssuedToken{}, err
	}

	added, err := tm.denylist.Revoke(ctx, identity.TokenID, identity.ExpiresAt.Add(tm.leeway))
	if err != nil {
		return IssuedToken{}, fmt.Errorf("denylist revoke: %w", err)
	}
	if !added {
		return IssuedToken{}, ErrTokenRevoked
	}
	return tm.Issue(identity.UserID, identity.Role)
}

func (tm *TokenManager) parse(tokenStr string, validateClaims bool) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrTokenMalformed
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
	}
	if validateClaims {
		opts = append(opts, jwt.WithLeeway(tm.leeway), jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return nil, classifyParseError(err)
	}
	if !parsed.Valid || claims.ID == "" || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}

func identityFromClaims(claims *Claims) domain.Identity {
	return domain.Identity{
		UserID:    claims.Subject,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
}

// IsTokenError reports whether err is one of the verification failures.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked)
}
