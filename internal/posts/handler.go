package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/inkwellcms/inkwell/internal/blogs"
	"github.com/inkwellcms/inkwell/internal/telemetry/metrics"
	"github.com/inkwellcms/inkwell/internal/users"
	"github.com/inkwellcms/inkwell/pkg"
)

const defaultPageSize = 5

type postsRepo interface {
	Add(ctx context.Context, post *Post) error
	Update(ctx context.Context, id int, title, content, excerpt string) error
	Delete(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*Post, error)
	GetBySlug(ctx context.Context, slug string) (*Post, error)
	PublishedPage(ctx context.Context, page, size int) ([]*Post, error)
	PublishedCount(ctx context.Context) (int, error)
	PublishedByTag(ctx context.Context, tag string, page, size int) ([]*Post, error)
	PublishedByTagCount(ctx context.Context, tag string) (int, error)
	AllPage(ctx context.Context, page, size int) ([]*Post, error)
	Count(ctx context.Context) (int, error)
	Publish(ctx context.Context, id int) error
	Unpublish(ctx context.Context, id int) error
	SetTags(ctx context.Context, postID int, tagNames []string) error
	SetCoverPath(ctx context.Context, postID int, coverPath string) error
}

var _ postsRepo = (*Repo)(nil)
var _ postsRepo = (*TestRepo)(nil)

type blogsResolver interface {
	Add(ctx context.Context, blog *blogs.Blog) error
	GetByUserID(ctx context.Context, userID int) (*blogs.Blog, error)
}

type usersGetter interface {
	Get(ctx context.Context, id int) (*users.User, error)
}

type sessionResolver interface {
	GetUserID(ctx context.Context, token string) (int, error)
}

// pageCache drops rendered public pages after post changes, so the
// HTML surface never keeps serving stale (or unpublished) content
type pageCache interface {
	PurgePages()
}

type PostsResponse struct {
	Posts []*Post `json:"posts"`
	Total int     `json:"total"`
}

type newPostRequest struct {
	Title     string   `json:"title"`
	Slug      string   `json:"slug"`
	Content   string   `json:"content"`
	Excerpt   string   `json:"excerpt"`
	Published bool     `json:"published"`
	Tags      []string `json:"tags"`
}

type updatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Excerpt string `json:"excerpt"`
}

type setTagsRequest struct {
	Tags []string `json:"tags"`
}

type Handler struct {
	repo      postsRepo
	blogsRepo blogsResolver
	usersRepo usersGetter
	sessions  sessionResolver
	pages     pageCache
	metrics   *metrics.Manager
}

func NewHandler(
	repo postsRepo,
	blogsRepo blogsResolver,
	usersRepo usersGetter,
	sessions sessionResolver,
	pages pageCache,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:      repo,
		blogsRepo: blogsRepo,
		usersRepo: usersRepo,
		sessions:  sessions,
		pages:     pages,
		metrics:   metricsManager,
	}
}

func (handler *Handler) purgePages() {
	if handler.pages != nil {
		handler.pages.PurgePages()
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	// public, read-only surface
	router.HandleFunc("/blog/posts", handler.handlePublishedPage).Methods("GET", "OPTIONS").Name("published-posts")
	router.HandleFunc("/blog/posts/slug/{slug}", handler.handleGetBySlug).Methods("GET", "OPTIONS").Name("post-by-slug")
	router.HandleFunc("/blog/posts/tag/{tag}", handler.handlePublishedByTag).Methods("GET", "OPTIONS").Name("posts-by-tag")

	// author / admin surface, behind the auth middleware
	router.HandleFunc("/posts", handler.handleNew).Methods("POST", "OPTIONS").Name("new-post")
	router.HandleFunc("/posts/all", handler.handleAllPage).Methods("GET", "OPTIONS").Name("all-posts")
	router.HandleFunc("/posts/{id}", handler.handleGet).Methods("GET", "OPTIONS").Name("get-post")
	router.HandleFunc("/posts/{id}", handler.handleUpdate).Methods("PUT", "OPTIONS").Name("update-post")
	router.HandleFunc("/posts/{id}", handler.handleDelete).Methods("DELETE", "OPTIONS").Name("delete-post")
	router.HandleFunc("/posts/{id}/publish", handler.handlePublish).Methods("POST", "OPTIONS").Name("publish-post")
	router.HandleFunc("/posts/{id}/unpublish", handler.handleUnpublish).Methods("POST", "OPTIONS").Name("unpublish-post")
	router.HandleFunc("/posts/{id}/tags", handler.handleSetTags).Methods("PUT", "OPTIONS").Name("set-post-tags")
}

func pageAndSize(r *http.Request) (page, size int) {
	page, size = 1, defaultPageSize
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if sizeStr := r.URL.Query().Get("size"); sizeStr != "" {
		if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 {
			size = s
		}
	}
	return page, size
}

func (handler *Handler) writePostsPage(w http.ResponseWriter, posts []*Post, total int) {
	if posts == nil {
		posts = []*Post{}
	}

	postsRespJson, err := json.Marshal(PostsResponse{
		Posts: posts,
		Total: total,
	})
	if err != nil {
		log.Errorf("marshal posts error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, postsRespJson)
}

func (handler *Handler) handlePublishedPage(w http.ResponseWriter, r *http.Request) {
	handler.metrics.CounterPublicPageViews.WithLabelValues("posts-list").Inc()

	page, size := pageAndSize(r)

	posts, err := handler.repo.PublishedPage(r.Context(), page, size)
	if err != nil {
		log.Errorf("get published posts error: %s", err)
		http.Error(w, "failed to get posts", http.StatusInternalServerError)
		return
	}

	total, err := handler.repo.PublishedCount(r.Context())
	if err != nil {
		log.Errorf("get published posts count error: %s", err)
		http.Error(w, "failed to get posts", http.StatusInternalServerError)
		return
	}

	handler.writePostsPage(w, posts, total)
}

func (handler *Handler) handleGetBySlug(w http.ResponseWriter, r *http.Request) {
	handler.metrics.CounterPublicPageViews.WithLabelValues("post-detail").Inc()

	slug := mux.Vars(r)["slug"]
	if slug == "" {
		http.Error(w, "error, slug empty", http.StatusBadRequest)
		return
	}

	post, err := handler.repo.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		log.Errorf("get post by slug [%s]: %s", slug, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	postJson, err := json.Marshal(post)
	if err != nil {
		log.Errorf("marshal post error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, postJson)
}

func (handler *Handler) handlePublishedByTag(w http.ResponseWriter, r *http.Request) {
	handler.metrics.CounterPublicPageViews.WithLabelValues("posts-by-tag").Inc()

	tag := mux.Vars(r)["tag"]
	if tag == "" {
		http.Error(w, "error, tag empty", http.StatusBadRequest)
		return
	}

	page, size := pageAndSize(r)

	posts, err := handler.repo.PublishedByTag(r.Context(), tag, page, size)
	if err != nil {
		log.Errorf("get posts by tag [%s] error: %s", tag, err)
		http.Error(w, "failed to get posts", http.StatusInternalServerError)
		return
	}

	total, err := handler.repo.PublishedByTagCount(r.Context(), tag)
	if err != nil {
		log.Errorf("get posts by tag [%s] count error: %s", tag, err)
		http.Error(w, "failed to get posts", http.StatusInternalServerError)
		return
	}

	handler.writePostsPage(w, posts, total)
}

// currentUser resolves the session token to a user, or writes 401
func (handler *Handler) currentUser(w http.ResponseWriter, r *http.Request) *users.User {
	userID, err := handler.sessions.GetUserID(r.Context(), r.Header.Get("X-INKWELL-TOKEN"))
	if err != nil {
		log.Errorf("posts handler, resolve session: %s", err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return nil
	}

	user, err := handler.usersRepo.Get(r.Context(), userID)
	if err != nil {
		log.Errorf("posts handler, get user %d: %s", userID, err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return nil
	}

	return user
}

// canTouchPost checks that the post belongs to the user's blog, or
// that the user is an admin; writes 403 otherwise
func (handler *Handler) canTouchPost(w http.ResponseWriter, r *http.Request, user *users.User, post *Post) bool {
	if user.IsAdmin {
		return true
	}

	blog, err := handler.blogsRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		log.Errorf("posts handler, get blog for user %d: %s", user.ID, err)
		http.Error(w, "not your post", http.StatusForbidden)
		return false
	}
	if blog.ID != post.BlogID {
		http.Error(w, "not your post", http.StatusForbidden)
		return false
	}

	return true
}

func (handler *Handler) getPostForChange(w http.ResponseWriter, r *http.Request) *Post {
	user := handler.currentUser(w, r)
	if user == nil {
		return nil
	}

	id, ok := postID(w, r)
	if !ok {
		return nil
	}

	post, err := handler.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return nil
		}
		log.Errorf("get post %d: %s", id, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil
	}

	if !handler.canTouchPost(w, r, user, post) {
		return nil
	}

	return post
}

func (handler *Handler) handleNew(w http.ResponseWriter, r *http.Request) {
	user := handler.currentUser(w, r)
	if user == nil {
		return
	}

	var newPostReq newPostRequest
	if err := json.NewDecoder(r.Body).Decode(&newPostReq); err != nil {
		log.Errorf("new post, unmarshal json params: %s", err)
		http.Error(w, "add post failed", http.StatusBadRequest)
		return
	}

	if newPostReq.Title == "" {
		http.Error(w, "error, title empty", http.StatusBadRequest)
		return
	}
	if newPostReq.Content == "" {
		http.Error(w, "error, content empty", http.StatusBadRequest)
		return
	}

	blog, err := handler.blogsRepo.GetByUserID(r.Context(), user.ID)
	if errors.Is(err, blogs.ErrBlogNotFound) {
		// should have been created on registration, restore it
		blog = &blogs.Blog{
			UserID: user.ID,
			Title:  fmt.Sprintf("%s's blog", user.Username),
		}
		err = handler.blogsRepo.Add(r.Context(), blog)
	}
	if err != nil {
		log.Errorf("new post, get blog for user %d: %s", user.ID, err)
		http.Error(w, "add post failed", http.StatusInternalServerError)
		return
	}

	post := &Post{
		BlogID:  blog.ID,
		Title:   newPostReq.Title,
		Slug:    newPostReq.Slug,
		Content: newPostReq.Content,
		Excerpt: newPostReq.Excerpt,
	}

	if err := handler.repo.Add(r.Context(), post); err != nil {
		switch {
		case errors.Is(err, ErrSlugTaken):
			http.Error(w, "error, slug already taken", http.StatusConflict)
		case errors.Is(err, ErrPostTitleOrContentEmpty):
			http.Error(w, "error, title or content empty", http.StatusBadRequest)
		default:
			log.Errorf("add new post failed: %s", err)
			http.Error(w, "add new post failed", http.StatusInternalServerError)
		}
		return
	}

	handler.metrics.CounterPostsCreated.Inc()

	if len(newPostReq.Tags) > 0 {
		if err := handler.repo.SetTags(r.Context(), post.ID, newPostReq.Tags); err != nil {
			log.Errorf("new post %d, set tags: %s", post.ID, err)
			http.Error(w, "add new post failed", http.StatusInternalServerError)
			return
		}
		post.Tags = newPostReq.Tags
	}

	if newPostReq.Published {
		if err := handler.repo.Publish(r.Context(), post.ID); err != nil {
			log.Errorf("new post %d, publish: %s", post.ID, err)
			http.Error(w, "add new post failed", http.StatusInternalServerError)
			return
		}
		handler.metrics.CounterPostsPublished.Inc()
		post.Published = true
	}

	handler.purgePages()
	log.Tracef("new post %d: [%s] added to blog %d", post.ID, post.Slug, post.BlogID)

	postJson, err := json.Marshal(post)
	if err != nil {
		log.Errorf("marshal post error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, postJson, http.StatusCreated)
}

func (handler *Handler) handleAllPage(w http.ResponseWriter, r *http.Request) {
	if handler.currentUser(w, r) == nil {
		return
	}

	page, size := pageAndSize(r)

	posts, err := handler.repo.AllPage(r.Context(), page, size)
	if err != nil {
		log.Errorf("get all posts error: %s", err)
		http.Error(w, "failed to get posts", http.StatusInternalServerError)
		return
	}

	total, err := handler.repo.Count(r.Context())
	if err != nil {
		log.Errorf("get posts count error: %s", err)
		http.Error(w, "failed to get posts", http.StatusInternalServerError)
		return
	}

	handler.writePostsPage(w, posts, total)
}

func (handler *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	post, err := handler.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		log.Errorf("get post %d: %s", id, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	postJson, err := json.Marshal(post)
	if err != nil {
		log.Errorf("marshal post error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, postJson)
}

func (handler *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	post := handler.getPostForChange(w, r)
	if post == nil {
		return
	}

	var updateReq updatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		log.Errorf("update post, unmarshal json params: %s", err)
		http.Error(w, "update post failed", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(r.Context(), post.ID, updateReq.Title, updateReq.Content, updateReq.Excerpt); err != nil {
		switch {
		case errors.Is(err, ErrPostTitleOrContentEmpty):
			http.Error(w, "error, title or content empty", http.StatusBadRequest)
		case errors.Is(err, ErrPostNotFound):
			http.Error(w, "post not found", http.StatusNotFound)
		default:
			log.Errorf("update post %d failed: %s", post.ID, err)
			http.Error(w, "update post failed", http.StatusInternalServerError)
		}
		return
	}

	handler.purgePages()
	pkg.WriteTextResponseOK(w, fmt.Sprintf("updated:%d", post.ID))
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	post := handler.getPostForChange(w, r)
	if post == nil {
		return
	}

	if err := handler.repo.Delete(r.Context(), post.ID); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete post %d: %s", post.ID, err)
		http.Error(w, "error, post not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	handler.purgePages()
	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%d", post.ID))
}

func (handler *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	post := handler.getPostForChange(w, r)
	if post == nil {
		return
	}

	if err := handler.repo.Publish(r.Context(), post.ID); err != nil {
		log.Errorf("publish post %d: %s", post.ID, err)
		http.Error(w, "publish post failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterPostsPublished.Inc()

	handler.purgePages()
	pkg.WriteTextResponseOK(w, fmt.Sprintf("published:%d", post.ID))
}

func (handler *Handler) handleUnpublish(w http.ResponseWriter, r *http.Request) {
	post := handler.getPostForChange(w, r)
	if post == nil {
		return
	}

	if err := handler.repo.Unpublish(r.Context(), post.ID); err != nil {
		log.Errorf("unpublish post %d: %s", post.ID, err)
		http.Error(w, "unpublish post failed", http.StatusInternalServerError)
		return
	}

	handler.purgePages()
	pkg.WriteTextResponseOK(w, fmt.Sprintf("unpublished:%d", post.ID))
}

func (handler *Handler) handleSetTags(w http.ResponseWriter, r *http.Request) {
	post := handler.getPostForChange(w, r)
	if post == nil {
		return
	}

	var tagsReq setTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&tagsReq); err != nil {
		log.Errorf("set post tags, unmarshal json params: %s", err)
		http.Error(w, "set post tags failed", http.StatusBadRequest)
		return
	}

	if err := handler.repo.SetTags(r.Context(), post.ID, tagsReq.Tags); err != nil {
		log.Errorf("set tags for post %d: %s", post.ID, err)
		http.Error(w, "set post tags failed", http.StatusInternalServerError)
		return
	}

	handler.purgePages()
	pkg.WriteTextResponseOK(w, fmt.Sprintf("updated:%d", post.ID))
}

func postID(w http.ResponseWriter, r *http.Request) (int, bool) {
	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
