package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// Config represents the global configuration for the deployment
// This is a singleton model (only one row should exist)
type Config struct {
	BaseModel
	JWTSecret string `json:"-" gorm:"type:varchar(64);not null"` // Auto-generated on first setup (64 hex chars)
}

// User represents a platform account
type User struct {
	BaseModel
	Email        string    `json:"email" gorm:"unique;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Name         string    `json:"name"`
	Role         string    `json:"role" gorm:"not null;default:user"`           // admin, user
	CurrentView  string    `json:"current_view" gorm:"not null;default:user"`   // admin, user (admins only)
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Activity kinds
const (
	ActivityLogin        = "login"
	ActivityLoginFailed  = "login_failed"
	ActivityLogout       = "logout"
	ActivityAccessDenied = "access_denied"
	ActivityViewSwitched = "view_switched"
)

// Activity is one entry of the user activity log shown to admins
type Activity struct {
	BaseModel
	UserID string `json:"user_id" gorm:"index"`
	Email  string `json:"email"`
	Kind   string `json:"kind" gorm:"not null;index"`
	Path   string `json:"path"`
	Detail string `json:"detail"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&User{}, &Config{}, &Activity{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
