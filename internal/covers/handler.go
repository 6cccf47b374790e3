package covers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/inkwellcms/inkwell/internal/blogs"
	"github.com/inkwellcms/inkwell/internal/posts"
	"github.com/inkwellcms/inkwell/internal/telemetry/tracing"
	"github.com/inkwellcms/inkwell/internal/users"
	"github.com/inkwellcms/inkwell/pkg"
)

const maxUploadedCoverSize = 10 << 20 // 10 MB

type coverPosts interface {
	Get(ctx context.Context, id int) (*posts.Post, error)
	SetCoverPath(ctx context.Context, postID int, coverPath string) error
}

type blogsResolver interface {
	GetByUserID(ctx context.Context, userID int) (*blogs.Blog, error)
}

type usersGetter interface {
	Get(ctx context.Context, id int) (*users.User, error)
}

type sessionResolver interface {
	GetUserID(ctx context.Context, token string) (int, error)
}

// pageCache drops rendered public pages after a cover changes
type pageCache interface {
	PurgePages()
}

type Handler struct {
	storage   *Storage
	postsRepo coverPosts
	blogsRepo blogsResolver
	usersRepo usersGetter
	sessions  sessionResolver
	pages     pageCache
}

func NewHandler(
	storage *Storage,
	postsRepo coverPosts,
	blogsRepo blogsResolver,
	usersRepo usersGetter,
	sessions sessionResolver,
	pages pageCache,
) *Handler {
	return &Handler{
		storage:   storage,
		postsRepo: postsRepo,
		blogsRepo: blogsRepo,
		usersRepo: usersRepo,
		sessions:  sessions,
		pages:     pages,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	// upload sits on the authenticated surface, serving is public
	router.HandleFunc("/posts/{id}/cover", handler.handleUpload).Methods("POST", "OPTIONS").Name("upload-cover")
	router.HandleFunc("/blog/covers/{id}", handler.handleServe).Methods("GET", "OPTIONS").Name("post-cover")
}

// canTouchPost checks that the post belongs to the user's blog, or
// that the user is an admin; writes 403 otherwise
func (handler *Handler) canTouchPost(w http.ResponseWriter, r *http.Request, user *users.User, post *posts.Post) bool {
	if user.IsAdmin {
		return true
	}

	blog, err := handler.blogsRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		log.Errorf("covers handler, get blog for user %d: %s", user.ID, err)
		http.Error(w, "not your post", http.StatusForbidden)
		return false
	}
	if blog.ID != post.BlogID {
		http.Error(w, "not your post", http.StatusForbidden)
		return false
	}

	return true
}

func (handler *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "coversHandler.upload")
	defer span.End()

	userID, err := handler.sessions.GetUserID(ctx, r.Header.Get("X-INKWELL-TOKEN"))
	if err != nil {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}
	user, err := handler.usersRepo.Get(ctx, userID)
	if err != nil {
		log.Errorf("upload cover, get user %d: %s", userID, err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, post ID invalid", http.StatusBadRequest)
		return
	}

	post, err := handler.postsRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, posts.ErrPostNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		log.Errorf("upload cover, get post %d: %s", id, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if !handler.canTouchPost(w, r, user, post) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadedCoverSize); err != nil {
		log.Errorf("upload cover, parse multipart form: %s", err)
		http.Error(w, "internal error or file too big", http.StatusInternalServerError)
		return
	}

	files := r.MultipartForm.File["cover"]
	if len(files) == 0 {
		http.Error(w, "error, cover file missing", http.StatusBadRequest)
		return
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("upload cover for post %d: %s", id, err)
		http.Error(w, "failed to upload cover", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Errorf("failed to close cover file [%s]: %s", fileHeader.Filename, err)
		}
	}()

	coverPath, err := handler.storage.Save(ctx, post.ID, fileHeader.Filename, file)
	if err != nil {
		log.Errorf("save cover for post %d: %s", id, err)
		http.Error(w, "failed to upload cover", http.StatusBadRequest)
		return
	}

	if err := handler.postsRepo.SetCoverPath(ctx, post.ID, coverPath); err != nil {
		log.Errorf("set cover path for post %d: %s", id, err)
		http.Error(w, "failed to upload cover", http.StatusInternalServerError)
		return
	}

	if handler.pages != nil {
		handler.pages.PurgePages()
	}

	log.Tracef("cover for post %d: [%s] uploaded", post.ID, fileHeader.Filename)

	pkg.WriteResponse(w, pkg.ContentType.Text, fmt.Sprintf("uploaded:%d", post.ID), http.StatusCreated)
}

func (handler *Handler) handleServe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "coversHandler.serve")
	defer span.End()

	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, post ID invalid", http.StatusBadRequest)
		return
	}

	post, err := handler.postsRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, posts.ErrPostNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Errorf("serve cover, get post %d: %s", id, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// drafts and their covers stay invisible
	if !post.Published || !post.HasCover() {
		http.NotFound(w, r)
		return
	}

	file, err := handler.storage.Open(post.CoverPath)
	if err != nil {
		if errors.Is(err, ErrCoverNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Errorf("open cover [%s]: %s", post.CoverPath, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	http.ServeContent(w, r, filepath.Base(post.CoverPath), post.UpdatedAt, file)
}
