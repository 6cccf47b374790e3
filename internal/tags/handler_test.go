package tags

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupTagsHandlerTest(t *testing.T) (*TestRepo, *mux.Router) {
	t.Helper()

	repo := NewTestRepo()
	handler := NewHandler(repo)
	require.NotNil(t, handler)

	r := mux.NewRouter()
	handler.SetupRoutes(r)
	return repo, r
}

func TestHandler_handleAll(t *testing.T) {
	repo, r := setupTagsHandlerTest(t)
	ctx := context.Background()

	for _, name := range []string{"golang", "essays", "notes"} {
		_, err := repo.Add(ctx, name)
		require.NoError(t, err)
	}

	req, err := http.NewRequest("GET", "/tags", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var allTags []*Tag
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &allTags))
	require.Len(t, allTags, 3)
	// sorted by name
	assert.Equal(t, "essays", allTags[0].Name)
	assert.Equal(t, "golang", allTags[1].Name)
	assert.Equal(t, "notes", allTags[2].Name)
}

func TestHandler_handleNew(t *testing.T) {
	repo, r := setupTagsHandlerTest(t)

	form := url.Values{}
	form.Set("name", "golang")
	req, err := http.NewRequest("POST", "/tags", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "added:1", rr.Body.String())
	require.Len(t, repo.Tags, 1)

	// same name again - conflict
	req, err = http.NewRequest("POST", "/tags", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
	require.Len(t, repo.Tags, 1)
}

func TestHandler_handleNew_emptyName(t *testing.T) {
	repo, r := setupTagsHandlerTest(t)

	req, err := http.NewRequest("POST", "/tags", strings.NewReader(`{"name":""}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, repo.Tags)
}

func TestHandler_handleRename(t *testing.T) {
	repo, r := setupTagsHandlerTest(t)

	tag, err := repo.Add(context.Background(), "golnag")
	require.NoError(t, err)

	req, err := http.NewRequest("PUT", "/tags/1", strings.NewReader(`{"name":"golang"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "updated:1", rr.Body.String())
	assert.Equal(t, "golang", tag.Name)
}

func TestHandler_handleRename_notFound(t *testing.T) {
	_, r := setupTagsHandlerTest(t)

	req, err := http.NewRequest("PUT", "/tags/42", strings.NewReader(`{"name":"golang"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_handleDelete(t *testing.T) {
	repo, r := setupTagsHandlerTest(t)

	_, err := repo.Add(context.Background(), "golang")
	require.NoError(t, err)

	req, err := http.NewRequest("DELETE", "/tags/1", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "deleted:1", rr.Body.String())
	assert.Empty(t, repo.Tags)

	// gone already
	req, err = http.NewRequest("DELETE", "/tags/1", nil)
	require.NoError(t, err)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_repoErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := NewMocktagsRepo(ctrl)

	r := mux.NewRouter()
	NewHandler(mockRepo).SetupRoutes(r)

	mockRepo.EXPECT().
		All(gomock.Any()).
		Return(nil, errors.New("connection refused"))
	mockRepo.EXPECT().
		Add(gomock.Any(), "stories").
		Return(nil, errors.New("connection refused"))
	mockRepo.EXPECT().
		Delete(gomock.Any(), 3).
		Return(errors.New("connection refused"))

	req, err := http.NewRequest("GET", "/tags", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	req, err = http.NewRequest("POST", "/tags", strings.NewReader(`{"name":"stories"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	req, err = http.NewRequest("DELETE", "/tags/3", nil)
	require.NoError(t, err)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
