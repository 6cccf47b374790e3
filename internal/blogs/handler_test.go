package blogs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSessions struct {
	tokens map[string]int
}

func (s *testSessions) GetUserID(_ context.Context, token string) (int, error) {
	userID, ok := s.tokens[token]
	if !ok {
		return 0, errors.New("session not found")
	}
	return userID, nil
}

type testAdmins struct {
	admins map[int]bool
}

func (a *testAdmins) IsAdmin(_ context.Context, userID int) (bool, error) {
	return a.admins[userID], nil
}

type testPageCache struct {
	purges int
}

func (c *testPageCache) PurgePages() {
	c.purges++
}

type blogsHandlerSuite struct {
	repo   *TestRepo
	pages  *testPageCache
	router *mux.Router
}

func setupBlogsHandlerTest(t *testing.T) *blogsHandlerSuite {
	t.Helper()

	s := &blogsHandlerSuite{
		repo:  NewTestRepo(),
		pages: &testPageCache{},
	}

	sessions := &testSessions{
		tokens: map[string]int{
			"mila-token":  1,
			"bojan-token": 2,
			"admin-token": 3,
		},
	}
	admins := &testAdmins{admins: map[int]bool{3: true}}

	handler := NewHandler(s.repo, sessions, admins, s.pages)
	require.NotNil(t, handler)

	s.router = mux.NewRouter()
	handler.SetupRoutes(s.router)
	return s
}

func (s *blogsHandlerSuite) do(t *testing.T, method, target, token string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var bodyReader *strings.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	} else {
		bodyReader = strings.NewReader("")
	}

	req, err := http.NewRequest(method, target, bodyReader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("X-INKWELL-TOKEN", token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func TestHandler_getMine(t *testing.T) {
	s := setupBlogsHandlerTest(t)
	require.NoError(t, s.repo.Add(context.Background(), &Blog{
		UserID: 1,
		Title:  "mila's blog",
		Bio:    "Personal blog of mila",
	}))

	rr := s.do(t, "GET", "/blogs/mine", "mila-token", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var blog Blog
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &blog))
	assert.Equal(t, "mila's blog", blog.Title)
	assert.Equal(t, 1, blog.UserID)
}

func TestHandler_getMine_noSession(t *testing.T) {
	s := setupBlogsHandlerTest(t)

	rr := s.do(t, "GET", "/blogs/mine", "bogus-token", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_getMine_noBlog(t *testing.T) {
	s := setupBlogsHandlerTest(t)

	rr := s.do(t, "GET", "/blogs/mine", "mila-token", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_updateMine(t *testing.T) {
	s := setupBlogsHandlerTest(t)
	blog := &Blog{
		UserID: 1,
		Title:  "mila's blog",
	}
	require.NoError(t, s.repo.Add(context.Background(), blog))

	rr := s.do(t, "PUT", "/blogs/mine", "mila-token",
		`{"title":"thoughts & notes","bio":"writing about everything"}`,
	)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "updated:1", rr.Body.String())

	updated, err := s.repo.Get(context.Background(), blog.ID)
	require.NoError(t, err)
	assert.Equal(t, "thoughts & notes", updated.Title)
	assert.Equal(t, "writing about everything", updated.Bio)
}

func TestHandler_updateMine_emptyTitle(t *testing.T) {
	s := setupBlogsHandlerTest(t)
	require.NoError(t, s.repo.Add(context.Background(), &Blog{
		UserID: 1,
		Title:  "mila's blog",
	}))

	rr := s.do(t, "PUT", "/blogs/mine", "mila-token", `{"title":"","bio":"no title"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_all_adminOnly(t *testing.T) {
	s := setupBlogsHandlerTest(t)
	ctx := context.Background()

	require.NoError(t, s.repo.Add(ctx, &Blog{UserID: 1, Title: "blog one"}))
	require.NoError(t, s.repo.Add(ctx, &Blog{UserID: 2, Title: "blog two"}))

	rr := s.do(t, "GET", "/blogs/all", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, "GET", "/blogs/all", "mila-token", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, "GET", "/blogs/all", "admin-token", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var all []*Blog
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &all))
	assert.Len(t, all, 2)
}

func TestHandler_delete(t *testing.T) {
	s := setupBlogsHandlerTest(t)
	blog := &Blog{UserID: 1, Title: "mila's blog"}
	require.NoError(t, s.repo.Add(context.Background(), blog))

	rr := s.do(t, "DELETE", "/blogs/1", "mila-token", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "deleted:1", rr.Body.String())
	assert.Empty(t, s.repo.Blogs)
	assert.Equal(t, 1, s.pages.purges)

	rr = s.do(t, "DELETE", "/blogs/1", "mila-token", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, "DELETE", "/blogs/nan", "mila-token", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_delete_ownership(t *testing.T) {
	s := setupBlogsHandlerTest(t)
	blog := &Blog{UserID: 1, Title: "mila's blog"}
	require.NoError(t, s.repo.Add(context.Background(), blog))

	// not yours, hands off
	rr := s.do(t, "DELETE", "/blogs/1", "bojan-token", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "not your blog")
	assert.Len(t, s.repo.Blogs, 1)

	rr = s.do(t, "DELETE", "/blogs/1", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Len(t, s.repo.Blogs, 1)

	// admins can clean up anyone's blog
	rr = s.do(t, "DELETE", "/blogs/1", "admin-token", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, s.repo.Blogs)
}

func TestHandler_routes(t *testing.T) {
	s := setupBlogsHandlerTest(t)

	for _, tc := range []struct {
		name   string
		method string
		path   string
	}{
		{name: "my-blog", method: "GET", path: "/blogs/mine"},
		{name: "update-my-blog", method: "PUT", path: "/blogs/mine"},
		{name: "all-blogs", method: "GET", path: "/blogs/all"},
		{name: "delete-blog", method: "DELETE", path: "/blogs/12"},
	} {
		req, err := http.NewRequest(tc.method, tc.path, nil)
		require.NoError(t, err)

		var match mux.RouteMatch
		require.True(t, s.router.Match(req, &match), "no route for %s %s", tc.method, tc.path)
		assert.Equal(t, tc.name, match.Route.GetName())
	}
}
