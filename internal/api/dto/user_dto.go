package dto

import (
	"github.com/newsroom-labs/cms-service/internal/auth"
	"github.com/newsroom-labs/cms-service/internal/domain"
)

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "bearer"

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Role                 string `json:"role"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisteredUser is the public view returned by registration.
type RegisteredUser struct {
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// UserResponse is the public view of an account. The password hash is never included.
type UserResponse struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// AuthorizationResponse describes an issued session token.
type AuthorizationResponse struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	ExpiresIn int    `json:"expires_in"`
}

// NewRegisteredUser builds the registration view.
func NewRegisteredUser(user *domain.User) RegisteredUser {
	return RegisteredUser{Name: user.Name, Email: user.Email, Role: user.Role}
}

// NewUserResponse builds the public user view.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}
}

// NewAuthorizationResponse wraps an issued token.
func NewAuthorizationResponse(token auth.IssuedToken) AuthorizationResponse {
	return AuthorizationResponse{Token: token.Token, Type: TokenTypeBearer, ExpiresIn: token.ExpiresIn}
}
