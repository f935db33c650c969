package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/user_auth/internal/domain"
)

type Account struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey"          json:"id"`
	Username           string     `gorm:"uniqueIndex;size:64;not null"  json:"username"`
	DisplayName        string     `gorm:"size:128;not null;default:''"  json:"display_name"`
	Role               string     `gorm:"size:16;not null;default:user" json:"role"`
	PasswordHash       string     `gorm:"not null"                      json:"-"`
	Status             string     `gorm:"size:16;not null;index"        json:"status"`
	RefreshFingerprint *string    `gorm:"size:64"                       json:"-"`
	RefreshEpoch       int64      `gorm:"not null;default:0"            json:"-"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = domain.StatusActive
	}
	if a.Role == "" {
		a.Role = domain.RoleUser
	}
	return nil
}

func (a *Account) Summary() domain.AccountSummary {
	return domain.AccountSummary{
		ID:          a.ID,
		Username:    a.Username,
		Role:        a.Role,
		DisplayName: a.DisplayName,
	}
}

func (a *Account) Profile() domain.AccountProfile {
	return domain.AccountProfile{
		AccountSummary: a.Summary(),
		Status:         a.Status,
		LastLoginAt:    a.LastLoginAt,
		CreatedAt:      a.CreatedAt,
	}
}
