package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/newsroom-labs/cms-service/internal/domain"
	apperrors "github.com/newsroom-labs/cms-service/pkg/util"
)

const principalKey = "auth_principal"

// UnauthorizedMessage is the single message used for every rejected token.
const UnauthorizedMessage = "Session expired or invalid token. Please log in again."

// Verifier checks session tokens.
type Verifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

// Principal represents the authenticated caller.
type Principal struct {
	Identity domain.Identity
	Token    string
}

// AuthMiddleware validates bearer tokens and attaches the caller identity.
type AuthMiddleware struct {
	tokens Verifier
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens Verifier) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return unauthorized(c, nil)
	}

	identity, err := m.tokens.Verify(c.UserContext(), token)
	if err != nil {
		if IsTokenError(err) {
			return unauthorized(c, err)
		}
		return apperrors.NewInternalError(err)
	}

	c.Locals(principalKey, &Principal{Identity: identity, Token: token})
	return c.Next()
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

func unauthorized(c *fiber.Ctx, cause error) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="api"`)
	if cause == nil {
		return apperrors.NewUnauthorized(UnauthorizedMessage)
	}
	return apperrors.NewUnauthorizedCause(UnauthorizedMessage, cause)
}
