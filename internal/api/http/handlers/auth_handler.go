package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/newsroom-labs/cms-service/internal/api/dto"
	"github.com/newsroom-labs/cms-service/internal/auth"
	"github.com/newsroom-labs/cms-service/internal/service"
	apperrors "github.com/newsroom-labs/cms-service/pkg/util"
)

// AuthHandler exposes registration, login and session endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:                 req.Name,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
		Role:                 req.Role,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully.",
		"user":    dto.NewRegisteredUser(user),
	})
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.auth.Login(c.UserContext(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Login successful",
		"data": fiber.Map{
			"user":          dto.NewUserResponse(result.User),
			"authorization": dto.NewAuthorizationResponse(result.Token),
		},
	})
}

// RefreshToken handles POST /refresh-token. The old token must still be active.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="api"`)
		return apperrors.NewUnauthorized(auth.UnauthorizedMessage)
	}

	issued, err := h.auth.Refresh(c.UserContext(), token)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeUnauthorized) {
			c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="api"`)
		}
		return err
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Token refreshed successfully",
		"data": fiber.Map{
			"authorization": dto.NewAuthorizationResponse(*issued),
		},
	})
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized(auth.UnauthorizedMessage)
	}
	if err := h.auth.Logout(c.UserContext(), principal.Token); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Successfully logged out",
	})
}

// CurrentUser handles GET /user.
func (h *AuthHandler) CurrentUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized(auth.UnauthorizedMessage)
	}
	user, err := h.auth.CurrentUser(c.UserContext(), principal.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status": "success",
		"data": fiber.Map{
			"user": dto.NewUserResponse(user),
		},
	})
}
