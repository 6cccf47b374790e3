package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/coocood/freecache"
	"github.com/gorilla/mux"
	"github.com/microcosm-cc/bluemonday"
	log "github.com/sirupsen/logrus"

	"github.com/inkwellcms/inkwell/internal/posts"
	"github.com/inkwellcms/inkwell/internal/telemetry/metrics"
	"github.com/inkwellcms/inkwell/pkg"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	pageSize        = 5
	pageCacheExpire = 60 // seconds
)

type webPosts interface {
	PublishedPage(ctx context.Context, page, size int) ([]*posts.Post, error)
	PublishedCount(ctx context.Context) (int, error)
	GetBySlug(ctx context.Context, slug string) (*posts.Post, error)
}

type listPageData struct {
	Posts      []*posts.Post
	Page       int
	TotalPages int
	PrevPage   int
	NextPage   int
}

type postPageData struct {
	Post *posts.Post
	// sanitized post body, safe to render unescaped
	Content template.HTML
}

// Handler serves the rendered, public side of the blog. Pages are
// cached for a short while to keep repeated anonymous hits off
// the database; content changes must go through PurgePages.
type Handler struct {
	repo      webPosts
	templates *template.Template
	cache     *freecache.Cache
	sanitizer *bluemonday.Policy
	metrics   *metrics.Manager
}

func NewHandler(repo webPosts, metricsManager *metrics.Manager) (*Handler, error) {
	templates, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	megabyte := 1024 * 1024
	cacheSize := 10 * megabyte

	return &Handler{
		repo:      repo,
		templates: templates,
		cache:     freecache.NewCache(cacheSize),
		sanitizer: bluemonday.UGCPolicy(),
		metrics:   metricsManager,
	}, nil
}

// PurgePages drops all cached pages. Called by the admin handlers
// whenever posts change, so unpublished content stops being served
// right away instead of lingering until the cache entry expires.
func (handler *Handler) PurgePages() {
	handler.cache.Clear()
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/blog", handler.handleList).Methods("GET").Name("blog-home")
	router.HandleFunc("/blog/", handler.handleList).Methods("GET").Name("blog-list")
	router.HandleFunc("/blog/{slug}/", handler.handlePost).Methods("GET").Name("blog-post-page")
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	handler.metrics.CounterPublicPageViews.WithLabelValues("html-list").Inc()

	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	cacheKey := []byte(fmt.Sprintf("list-page-%d", page))
	if cached, err := handler.cache.Get(cacheKey); err == nil {
		log.Tracef("serving blog list page %d from cache", page)
		pkg.WriteResponseBytesOK(w, pkg.ContentType.HTML, cached)
		return
	}

	postsPage, err := handler.repo.PublishedPage(r.Context(), page, pageSize)
	if err != nil {
		log.Errorf("render blog list, get posts: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	total, err := handler.repo.PublishedCount(r.Context())
	if err != nil {
		log.Errorf("render blog list, get posts count: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	data := listPageData{
		Posts:      postsPage,
		Page:       page,
		TotalPages: totalPages,
	}
	if page > 1 {
		data.PrevPage = page - 1
	}
	if page < totalPages {
		data.NextPage = page + 1
	}

	handler.render(w, "list.html", cacheKey, data)
}

func (handler *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	handler.metrics.CounterPublicPageViews.WithLabelValues("html-post").Inc()

	slug := mux.Vars(r)["slug"]

	cacheKey := []byte("post-" + slug)
	if cached, err := handler.cache.Get(cacheKey); err == nil {
		log.Tracef("serving blog post [%s] from cache", slug)
		pkg.WriteResponseBytesOK(w, pkg.ContentType.HTML, cached)
		return
	}

	post, err := handler.repo.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, posts.ErrPostNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Errorf("render blog post [%s]: %s", slug, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.render(w, "post.html", cacheKey, postPageData{
		Post:    post,
		Content: template.HTML(handler.sanitizer.Sanitize(post.Content)),
	})
}

func (handler *Handler) render(w http.ResponseWriter, templateName string, cacheKey []byte, data any) {
	var buf bytes.Buffer
	if err := handler.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		log.Errorf("execute template %s: %s", templateName, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := handler.cache.Set(cacheKey, buf.Bytes(), pageCacheExpire); err != nil {
		log.Errorf("cache page [%s]: %s", cacheKey, err)
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.HTML, buf.Bytes())
}
