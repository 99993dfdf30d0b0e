package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/newsroom-labs/cms-service/internal/auth"
	"github.com/newsroom-labs/cms-service/internal/domain"
	"github.com/newsroom-labs/cms-service/internal/events"
	"github.com/newsroom-labs/cms-service/internal/repository"
	"github.com/newsroom-labs/cms-service/internal/validation"
	apperrors "github.com/newsroom-labs/cms-service/pkg/util"
)

// MsgEmailTaken is returned when registration hits an existing account.
const MsgEmailTaken = "This email is already taken."

var registerMessages = validation.Messages{
	"name.required":     "The name field is required.",
	"email.required":    "The email field is required.",
	"email.email":       "The email must be a valid email address.",
	"password.required": "The password field is required.",
	"password.min":      "The password must be at least 8 characters.",
}

const msgRoleInvalid = `The role must be either "user" or "admin".`

var loginMessages = validation.Messages{
	"email.required":    "Email is required",
	"email.email":       "Please provide a valid email address",
	"password.required": "Password is required",
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation"`
	Role                 string `json:"role"`
}

// LoginInput carries credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	User  *domain.User
	Token auth.IssuedToken
}

// AuthService coordinates registration, login and session flows.
type AuthService struct {
	users      repository.UserRepository
	hasher     *auth.PasswordHasher
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AuthDependencies encapsulates requirements for auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Hasher     *auth.PasswordHasher
	Tokens     *auth.TokenManager
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	return &AuthService{
		users:      deps.UserRepo,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Register creates a new account. The email's uniqueness is decided by the store.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (user *domain.User, err error) {
	ctx, span := startSpan(ctx, "AuthService.Register")
	defer func() { endSpan(span, err) }()

	errs, err := validation.Struct(in, registerMessages)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if in.Password != "" && in.Password != in.PasswordConfirmation {
		errs.Add("password", "The password confirmation does not match.")
	}
	role := domain.RoleUser
	if in.Role != "" {
		role = domain.Role(in.Role)
		if !role.Valid() {
			errs.Add("role", msgRoleInvalid)
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			var tooLong validation.FieldErrors
			tooLong.Add("password", "The password may not be greater than 72 bytes.")
			return nil, tooLong.Err()
		}
		return nil, apperrors.NewInternalError(err)
	}

	user = &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			var taken validation.FieldErrors
			taken.Add("email", MsgEmailTaken)
			return nil, apperrors.NewConflict(MsgEmailTaken, taken.Details())
		}
		return nil, apperrors.NewInternalError(err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	s.publish(ctx, events.New(events.EventUserRegistered, user.ID, events.UserRegisteredPayload{Role: user.Role}))
	return user, nil
}

// Login checks credentials and issues a session token. Unknown emails and
// wrong passwords produce the same error after the same amount of hashing work.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (result *LoginResult, err error) {
	ctx, span := startSpan(ctx, "AuthService.Login")
	defer func() { endSpan(span, err) }()

	errs, err := validation.Struct(in, loginMessages)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.hasher.VerifyDummy(in.Password)
		s.publish(ctx, events.New(events.EventLoginFailed, "", events.LoginFailedPayload{Reason: "invalid_credentials"}))
		return nil, apperrors.NewInvalidCredentials()
	case err != nil:
		return nil, apperrors.NewInternalError(err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.publish(ctx, events.New(events.EventLoginFailed, "", events.LoginFailedPayload{Reason: "invalid_credentials"}))
		return nil, apperrors.NewInvalidCredentials()
	}

	issued, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	s.publish(ctx, events.New(events.EventUserLoggedIn, user.ID, events.SessionPayload{
		TokenID:   issued.ID,
		ExpiresAt: issued.ExpiresAt,
	}))
	return &LoginResult{User: user, Token: issued}, nil
}

// CurrentUser resolves the account behind a session token.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (user *domain.User, err error) {
	ctx, span := startSpan(ctx, "AuthService.CurrentUser")
	defer func() { endSpan(span, err) }()

	identity, err := s.tokens.Verify(ctx, token)
	if err != nil {
		return nil, tokenError(err)
	}

	user, err = s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("user not found for token", zap.String("user_id", identity.UserID))
			return nil, apperrors.NewNotFound("User", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// Logout revokes the session token. Repeating it is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) (err error) {
	ctx, span := startSpan(ctx, "AuthService.Logout")
	defer func() { endSpan(span, err) }()

	identity, verifyErr := s.tokens.Verify(ctx, token)
	if err := s.tokens.Invalidate(ctx, token); err != nil {
		return tokenError(err)
	}
	if verifyErr == nil {
		s.publish(ctx, events.New(events.EventUserLoggedOut, identity.UserID, events.SessionPayload{
			TokenID:   identity.TokenID,
			ExpiresAt: identity.ExpiresAt,
		}))
	}
	return nil
}

// Refresh trades an active token for a new one and revokes the old token.
func (s *AuthService) Refresh(ctx context.Context, token string) (issued *auth.IssuedToken, err error) {
	ctx, span := startSpan(ctx, "AuthService.Refresh")
	defer func() { endSpan(span, err) }()

	fresh, err := s.tokens.Refresh(ctx, token)
	if err != nil {
		return nil, tokenError(err)
	}

	s.publish(ctx, events.New(events.EventTokenRefreshed, fresh.UserID, events.SessionPayload{
		TokenID:   fresh.ID,
		ExpiresAt: fresh.ExpiresAt,
	}))
	return &fresh, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}

func tokenError(err error) error {
	if auth.IsTokenError(err) {
		return apperrors.NewUnauthorizedCause(auth.UnauthorizedMessage, err)
	}
	return apperrors.NewInternalError(err)
}
