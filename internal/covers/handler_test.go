package covers

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellcms/inkwell/internal/blogs"
	"github.com/inkwellcms/inkwell/internal/posts"
	"github.com/inkwellcms/inkwell/internal/users"
)

type testSessions struct {
	tokens map[string]int
}

func (s *testSessions) GetUserID(_ context.Context, token string) (int, error) {
	userID, ok := s.tokens[token]
	if !ok {
		return 0, errors.New("no session")
	}
	return userID, nil
}

type testPageCache struct {
	purges int
}

func (c *testPageCache) PurgePages() {
	c.purges++
}

type coversHandlerSuite struct {
	storage   *Storage
	postsRepo *posts.TestRepo
	pages     *testPageCache
	router    *mux.Router

	author    *users.User
	otherUser *users.User
}

func setupCoversHandlerTest(t *testing.T) *coversHandlerSuite {
	t.Helper()
	ctx := context.Background()

	storage, err := NewStorage(t.TempDir())
	require.NoError(t, err)

	s := &coversHandlerSuite{
		storage:   storage,
		postsRepo: posts.NewTestRepo(),
		pages:     &testPageCache{},
	}

	usersRepo := users.NewTestRepo()
	s.author = &users.User{Username: "mila"}
	s.otherUser = &users.User{Username: "bojan"}
	for _, u := range []*users.User{s.author, s.otherUser} {
		require.NoError(t, usersRepo.Add(ctx, u))
	}

	blogsRepo := blogs.NewTestRepo()
	require.NoError(t, blogsRepo.Add(ctx, &blogs.Blog{UserID: s.author.ID, Title: "mila's blog"}))
	require.NoError(t, blogsRepo.Add(ctx, &blogs.Blog{UserID: s.otherUser.ID, Title: "bojan's blog"}))

	sessions := &testSessions{tokens: map[string]int{
		"author-token": s.author.ID,
		"other-token":  s.otherUser.ID,
	}}

	s.router = mux.NewRouter()
	NewHandler(storage, s.postsRepo, blogsRepo, usersRepo, sessions, s.pages).SetupRoutes(s.router)
	return s
}

func (s *coversHandlerSuite) addPost(t *testing.T, published bool) *posts.Post {
	t.Helper()

	post := &posts.Post{
		BlogID:  1,
		Title:   "a post with a cover",
		Content: "<p>content</p>",
	}
	require.NoError(t, s.postsRepo.Add(context.Background(), post))
	if published {
		require.NoError(t, s.postsRepo.Publish(context.Background(), post.ID))
	}
	return post
}

func coverUploadRequest(t *testing.T, target, filename, token string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("cover", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest("POST", target, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("X-INKWELL-TOKEN", token)
	}
	return req
}

func TestHandler_uploadAndServe(t *testing.T) {
	s := setupCoversHandlerTest(t)
	post := s.addPost(t, true)

	imageBytes := []byte("fake image bytes")
	req := coverUploadRequest(t, "/posts/1/cover", "sunset.jpg", "author-token", imageBytes)

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "uploaded:1", rr.Body.String())
	assert.Equal(t, 1, s.pages.purges)

	stored, err := s.postsRepo.Get(context.Background(), post.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasCover())

	req, err = http.NewRequest("GET", "/blog/covers/1", nil)
	require.NoError(t, err)
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, imageBytes, rr.Body.Bytes())
}

func TestHandler_upload_postNotFound(t *testing.T) {
	s := setupCoversHandlerTest(t)

	req := coverUploadRequest(t, "/posts/42/cover", "sunset.jpg", "author-token", []byte("x"))
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_upload_ownership(t *testing.T) {
	s := setupCoversHandlerTest(t)
	post := s.addPost(t, true)

	// bojan cannot put a cover on mila's post
	req := coverUploadRequest(t, "/posts/1/cover", "sunset.jpg", "other-token", []byte("x"))
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "not your post")

	req = coverUploadRequest(t, "/posts/1/cover", "sunset.jpg", "", []byte("x"))
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	stored, err := s.postsRepo.Get(context.Background(), post.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasCover())
}

func TestHandler_upload_unsupportedType(t *testing.T) {
	s := setupCoversHandlerTest(t)
	s.addPost(t, true)

	req := coverUploadRequest(t, "/posts/1/cover", "malware.exe", "author-token", []byte("x"))
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_serve_draftStaysHidden(t *testing.T) {
	s := setupCoversHandlerTest(t)
	s.addPost(t, false)

	req := coverUploadRequest(t, "/posts/1/cover", "sunset.jpg", "author-token", []byte("x"))
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	// cover is stored, but the post is a draft
	req, err := http.NewRequest("GET", "/blog/covers/1", nil)
	require.NoError(t, err)
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_serve_noCover(t *testing.T) {
	s := setupCoversHandlerTest(t)
	s.addPost(t, true)

	req, err := http.NewRequest("GET", "/blog/covers/1", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
