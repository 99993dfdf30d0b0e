package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/newsroom-labs/cms-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered  EventType = "user.registered"
	EventUserLoggedIn    EventType = "user.logged_in"
	EventUserLoggedOut   EventType = "user.logged_out"
	EventLoginFailed     EventType = "login.failed"
	EventTokenRefreshed  EventType = "token.refreshed"
	EventCategoryCreated EventType = "category.created"
)

// AllEventTypes lists every event type, in declaration order.
var AllEventTypes = []EventType{
	EventUserRegistered,
	EventUserLoggedIn,
	EventUserLoggedOut,
	EventLoginFailed,
	EventTokenRefreshed,
	EventCategoryCreated,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, userID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Role domain.Role `json:"role"`
}

// SessionPayload is attached to login, logout and refresh events.
type SessionPayload struct {
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginFailedPayload payload. The attempted email is not recorded.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// CategoryCreatedPayload payload.
type CategoryCreatedPayload struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name"`
	ParentID   *string `json:"parent_id,omitempty"`
}
