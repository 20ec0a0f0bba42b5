package models

import (
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	FirstName    string    `gorm:"type:varchar(150);not null;default:''" json:"first_name"`
	LastName     string    `gorm:"type:varchar(150);not null;default:''" json:"last_name"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"` // Never expose password hash in JSON
	Role         Role      `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Avatar       string    `gorm:"type:varchar(255)" json:"avatar"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsStaff reports whether the user may use admin endpoints.
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin
}

// Subscription is a directed follow edge: Subscriber follows Author.
type Subscription struct {
	ID           uint      `gorm:"primaryKey"`
	AuthorID     uint      `gorm:"not null;uniqueIndex:idx_subscription_pair;index"`
	SubscriberID uint      `gorm:"not null;uniqueIndex:idx_subscription_pair;index"`
	CreatedAt    time.Time

	Author     User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Subscriber User `gorm:"foreignKey:SubscriberID;constraint:OnDelete:CASCADE"`
}
