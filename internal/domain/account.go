package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
	StatusDeleted  = "DELETED"

	RoleUser  = "user"
	RoleAdmin = "admin"
)

func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusInactive || s == StatusDeleted
}

// AccountSummary is the part of an account that may leave the service.
type AccountSummary struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	DisplayName string    `json:"display_name"`
}

type AccountProfile struct {
	AccountSummary
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Identity is what the identity middleware attaches to an accepted request.
type Identity struct {
	AccountID uuid.UUID
	Username  string
	Role      string
	Epoch     int64
}
