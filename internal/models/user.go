package models

import (
	"time"

	"github.com/google/uuid"
)

// User is created on anonymous registration or first OAuth login.
// Token is the full opaque token the client holds; it doubles as a
// lookup key, so it is unique alongside the id. Users are never deleted
// by this system.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Token     string    `gorm:"not null;uniqueIndex" json:"token"`
	Email     string    `gorm:"size:255;index" json:"email,omitempty"`
	Name      string    `gorm:"size:255" json:"name,omitempty"`
	Avatar    string    `gorm:"size:1024" json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
