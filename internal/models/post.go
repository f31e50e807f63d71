// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxCaptionLen is the maximum caption length in characters.
const MaxCaptionLen = 2200

// Post represents an image post in the Glimpse application.
type Post struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Caption      string `gorm:"type:text" json:"caption"`
	ImageKey     string `gorm:"not null" json:"-"`
	ThumbKey     string `json:"-"`
	ThumbJPEGKey string `json:"-"`
	ImageURL     string `gorm:"-" json:"image_url"`
	ThumbURL     string `gorm:"-" json:"thumb_url,omitempty"`
	ThumbJPEGURL string `gorm:"-" json:"thumb_jpeg_url,omitempty"`
	UserID       uint   `gorm:"not null;index" json:"user_id"`
	User         User   `gorm:"foreignKey:UserID" json:"author"`
	// LikesCount is not persisted; computed at query time
	LikesCount int64 `gorm:"->" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int64 `gorm:"->" json:"comments_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked     bool           `gorm:"->" json:"is_liked"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// FeedPage is an offset-paginated slice of the feed.
// NextOffset is only set when HasMore is true.
type FeedPage struct {
	Posts      []*Post `json:"posts"`
	HasMore    bool    `json:"has_more"`
	NextOffset *int    `json:"next_offset,omitempty"`
}
