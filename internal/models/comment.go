// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxCommentLen is the maximum comment length in characters after trimming.
const MaxCommentLen = 1000

// Comment represents a comment on a post in the Glimpse application.
type Comment struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Content string `gorm:"not null" json:"content"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	PostID  uint   `gorm:"not null;index" json:"post_id"`
	User    User   `gorm:"foreignKey:UserID" json:"author"`
	Post    Post   `gorm:"foreignKey:PostID" json:"-"`
	// LikesCount is not persisted; computed at query time
	LikesCount int64 `gorm:"->" json:"likes_count"`
	// Liked indicates whether the current requesting user liked this comment (computed)
	Liked     bool           `gorm:"->" json:"is_liked"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CommentPage is an offset-paginated slice of a post's comments.
type CommentPage struct {
	Comments   []*Comment `json:"comments"`
	HasMore    bool       `json:"has_more"`
	NextOffset *int       `json:"next_offset,omitempty"`
}
