// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account in the Glimpse application.
// ExternalID is the opaque principal issued by the identity provider;
// it is unique and immutable once set. Rows are created only by the
// explicit provisioning step, never implicitly on read.
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ExternalID  string         `gorm:"uniqueIndex;not null" json:"-"`
	Username    string         `gorm:"unique;not null" json:"username"`
	DisplayName string         `json:"display_name"`
	Avatar      string         `json:"avatar,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Posts       []Post         `gorm:"foreignKey:UserID" json:"posts,omitempty"`
}

// UserStats holds the aggregate counters for a profile view.
// Computed at read time from the relations, never stored.
type UserStats struct {
	PostsCount     int64 `json:"posts_count"`
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
}

// Profile is the user profile read model: the user row, its computed
// stats, and the is_following flag relative to the requesting viewer.
type Profile struct {
	User        *User     `json:"user"`
	Stats       UserStats `json:"stats"`
	IsFollowing bool      `json:"is_following"`
}
