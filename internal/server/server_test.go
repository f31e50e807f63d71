package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"glimpse/internal/cache"
	"glimpse/internal/config"
	"glimpse/internal/database"
	"glimpse/internal/middleware"
	"glimpse/internal/models"
	"glimpse/internal/repository"
	"glimpse/internal/service"
	"glimpse/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	srv *Server
}

// newTestEnv wires a full server against sqlite and local blob storage.
// Prometheus middleware is left out: the default registry is global and
// re-registering per test would panic.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret:        testJWTSecret,
		Env:              "test",
		ImageMaxUploadMB: 5,
		StorageBackend:   "local",
		StorageLocalDir:  t.TempDir(),
		MediaBaseURL:     "http://localhost:8080/media",
	}
	middleware.InitMiddleware(cfg)
	cache.SetClient(nil)

	blobs, err := storage.NewLocalStore(cfg.StorageLocalDir, cfg.MediaBaseURL)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)

	srv := &Server{
		config: cfg,
		db:     db,
		blobs:  blobs,
	}
	srv.identityService = service.NewIdentityService(userRepo)
	srv.postService = service.NewPostService(postRepo, blobs, cfg.ImageMaxUploadMB)
	srv.commentService = service.NewCommentService(commentRepo, postRepo)
	srv.followService = service.NewFollowService(followRepo, userRepo)
	srv.userService = service.NewUserService(userRepo, followRepo)

	app := fiber.New(fiber.Config{BodyLimit: 10 * 1024 * 1024})
	srv.SetupRoutes(app)

	return &testEnv{app: app, db: db, srv: srv}
}

func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{ExternalID: "ext-" + username, Username: username}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createPost(t *testing.T, userID uint, caption string) *models.Post {
	t.Helper()
	post := &models.Post{Caption: caption, ImageKey: "posts/" + caption + ".jpg", UserID: userID}
	require.NoError(t, e.db.Create(post).Error)
	return post
}

func tokenFor(t *testing.T, externalID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": externalID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) request(t *testing.T, method, path string, body io.Reader, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body models.ErrorResponse
	decodeJSON(t, resp, &body)
	return body.Code
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

// multipartImage builds a post-upload request body with a valid PNG.
func multipartImage(t *testing.T, caption string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("caption", caption))
	part, err := w.CreateFormFile("image", "upload.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(part, image.NewRGBA(image.Rect(0, 0, 32, 32))))
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}
