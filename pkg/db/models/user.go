package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/adityamehra-dev/orderbook-backend/pkg/enums"
)

// User represents the canonical identity entity. Every user belongs to
// exactly one org, which scopes all of their ledger data.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string         `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Name         string         `gorm:"column:name;not null"`
	Org          string         `gorm:"column:org;type:text;not null;index"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null;default:'member'"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
