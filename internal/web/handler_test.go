package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellcms/inkwell/internal/posts"
	"github.com/inkwellcms/inkwell/internal/telemetry/metrics"
)

func setupWebHandlerTest(t *testing.T) (*posts.TestRepo, *Handler, *mux.Router) {
	t.Helper()

	repo := posts.NewTestRepo()
	handler, err := NewHandler(repo, metrics.NewTestManager())
	require.NoError(t, err)

	r := mux.NewRouter()
	handler.SetupRoutes(r)
	return repo, handler, r
}

func addWebPost(t *testing.T, repo *posts.TestRepo, title string, published bool, publishedAt time.Time) *posts.Post {
	t.Helper()

	post := &posts.Post{
		BlogID:  1,
		Title:   title,
		Content: fmt.Sprintf("%s content", title),
	}
	require.NoError(t, repo.Add(context.Background(), post))
	if published {
		post.Published = true
		post.PublishedAt = &publishedAt
	}
	return post
}

func TestHandler_list(t *testing.T) {
	repo, _, r := setupWebHandlerTest(t)
	now := time.Now()

	addWebPost(t, repo, "First Steps", true, now)
	addWebPost(t, repo, "Second Thoughts", true, now.Add(-time.Hour))
	addWebPost(t, repo, "Hidden Draft", false, time.Time{})

	req := httptest.NewRequest("GET", "/blog/", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")

	body := rr.Body.String()
	assert.Contains(t, body, "First Steps")
	assert.Contains(t, body, "Second Thoughts")
	assert.Contains(t, body, `href="/blog/first-steps/"`)
	assert.NotContains(t, body, "Hidden Draft")
}

func TestHandler_list_empty(t *testing.T) {
	_, _, r := setupWebHandlerTest(t)

	req := httptest.NewRequest("GET", "/blog/", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Nothing published yet")
}

func TestHandler_list_paging(t *testing.T) {
	repo, _, r := setupWebHandlerTest(t)
	now := time.Now()

	for i := 0; i < 7; i++ {
		addWebPost(t, repo, fmt.Sprintf("Post Number %d", i), true, now.Add(time.Duration(i)*time.Minute))
	}

	req := httptest.NewRequest("GET", "/blog/?page=2", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "page 2 of 2")
	assert.Contains(t, body, "Post Number 0")
	assert.NotContains(t, body, "Post Number 6")
}

func TestHandler_post(t *testing.T) {
	repo, _, r := setupWebHandlerTest(t)

	post := addWebPost(t, repo, "Hello World", true, time.Now())

	req := httptest.NewRequest("GET", fmt.Sprintf("/blog/%s/", post.Slug), nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Hello World")
	assert.Contains(t, body, "Hello World content")
}

func TestHandler_post_notFound(t *testing.T) {
	repo, _, r := setupWebHandlerTest(t)

	draft := addWebPost(t, repo, "Still Cooking", false, time.Time{})

	// a draft page looks just like a missing one
	for _, slug := range []string{draft.Slug, "no-such-post"} {
		req := httptest.NewRequest("GET", fmt.Sprintf("/blog/%s/", slug), nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code, slug)
	}
}

func TestHandler_post_purgedAfterUnpublish(t *testing.T) {
	repo, handler, r := setupWebHandlerTest(t)

	post := addWebPost(t, repo, "Cached Post", true, time.Now())
	postPath := fmt.Sprintf("/blog/%s/", post.Slug)

	req := httptest.NewRequest("GET", postPath, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	// unpublishing purges the page cache, so the post page stops
	// being served right away instead of lingering until expiry
	require.NoError(t, repo.Unpublish(context.Background(), post.ID))
	handler.PurgePages()

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", postPath, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/blog/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "Cached Post")
}

func TestHandler_post_richContent(t *testing.T) {
	repo, _, r := setupWebHandlerTest(t)

	post := addWebPost(t, repo, "Rich Post", true, time.Now())
	post.Content = `<p>hello <strong>there</strong></p><script>alert("nope")</script>`

	req := httptest.NewRequest("GET", fmt.Sprintf("/blog/%s/", post.Slug), nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	// author markup renders as HTML, scripts get stripped
	assert.Contains(t, body, "<p>hello <strong>there</strong></p>")
	assert.NotContains(t, body, "<script>")
	assert.NotContains(t, body, "&lt;p&gt;")
}
