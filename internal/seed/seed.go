// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"math/rand"
	"strings"
	"time"

	"glimpse/internal/models"
	"glimpse/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	// MaxDays spreads post timestamps over the past N days.
	MaxDays int
}

// Seeder builds domain entities and persists them to the database.
// A non-nil blob store receives a generated placeholder image per post
// so media URLs resolve; without one, posts keep orphan keys.
type Seeder struct {
	db    *gorm.DB
	blobs storage.BlobStore
	rng   *rand.Rand
}

// NewSeeder creates a new Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB, blobs storage.BlobStore) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:    db,
		blobs: blobs,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed populates the database with a social mesh: users, posts, likes,
// comments and follow edges.
func (s *Seeder) Seed(ctx context.Context, opts Options) error {
	log.Printf("seeding %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	users, err := s.createUsers(opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("created %d users", len(users))

	posts, err := s.createPosts(ctx, users, opts.NumPosts, opts.MaxDays)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("created %d posts", len(posts))

	if err := s.createEngagement(users, posts); err != nil {
		return fmt.Errorf("failed to create engagement: %w", err)
	}

	log.Println("seeding complete")
	return nil
}

// ClearAll removes all seeded rows. Edge tables go first so foreign
// references never dangle mid-clean.
func (s *Seeder) ClearAll() error {
	tables := []interface{}{
		&models.CommentLike{},
		&models.Like{},
		&models.Follow{},
		&models.Comment{},
		&models.Post{},
		&models.User{},
	}
	for _, table := range tables {
		if err := s.db.Unscoped().Where("1 = 1").Delete(table).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) createUsers(n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		username := fmt.Sprintf("%s%d", strings.ToLower(gofakeit.Username()), i)
		user := &models.User{
			ExternalID:  "seed|" + uuid.New().String(),
			Username:    username,
			DisplayName: gofakeit.Name(),
			Avatar:      fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		}
		if err := s.db.Create(user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) createPosts(ctx context.Context, users []*models.User, n, maxDays int) ([]*models.Post, error) {
	if maxDays <= 0 {
		maxDays = 90
	}

	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := users[s.rng.Intn(len(users))]
		key := fmt.Sprintf("posts/%s.png", uuid.New().String())

		if s.blobs != nil {
			if err := s.blobs.Put(ctx, key, s.placeholderPNG(), "image/png"); err != nil {
				return nil, err
			}
		}

		// realistic created_at spread
		age := time.Duration(s.rng.Intn(maxDays*24*60)) * time.Minute
		post := &models.Post{
			Caption:   gofakeit.Sentence(s.rng.Intn(12) + 3),
			ImageKey:  key,
			UserID:    author.ID,
			CreatedAt: time.Now().Add(-age),
		}
		if err := s.db.Create(post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// createEngagement sprinkles likes, comments and follows across the mesh.
func (s *Seeder) createEngagement(users []*models.User, posts []*models.Post) error {
	for _, post := range posts {
		for _, user := range users {
			if user.ID == post.UserID {
				continue
			}
			if s.rng.Float64() < 0.3 {
				like := &models.Like{UserID: user.ID, PostID: post.ID}
				if err := s.db.Create(like).Error; err != nil {
					return err
				}
			}
			if s.rng.Float64() < 0.15 {
				comment := &models.Comment{
					Content: gofakeit.Sentence(s.rng.Intn(10) + 2),
					UserID:  user.ID,
					PostID:  post.ID,
				}
				if err := s.db.Create(comment).Error; err != nil {
					return err
				}
			}
		}
	}

	for _, follower := range users {
		for _, followee := range users {
			if follower.ID == followee.ID {
				continue
			}
			if s.rng.Float64() < 0.2 {
				follow := &models.Follow{FollowerID: follower.ID, FolloweeID: followee.ID}
				if err := s.db.Create(follow).Error; err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// placeholderPNG renders a small solid-color image so local media URLs
// resolve to something visible.
func (s *Seeder) placeholderPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	c := color.RGBA{
		R: uint8(s.rng.Intn(256)),
		G: uint8(s.rng.Intn(256)),
		B: uint8(s.rng.Intn(256)),
		A: 255,
	}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
