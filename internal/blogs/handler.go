package blogs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/inkwellcms/inkwell/pkg"
)

type blogsRepo interface {
	Add(ctx context.Context, blog *Blog) error
	Update(ctx context.Context, id int, title, bio string) error
	Delete(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*Blog, error)
	GetByUserID(ctx context.Context, userID int) (*Blog, error)
	All(ctx context.Context) ([]*Blog, error)
}

type sessionResolver interface {
	GetUserID(ctx context.Context, token string) (int, error)
}

// adminChecker answers whether a user is an administrator. Kept as a
// primitive interface since the users package depends on this one.
type adminChecker interface {
	IsAdmin(ctx context.Context, userID int) (bool, error)
}

// pageCache drops rendered public pages; deleting a blog cascades
// away its posts, so the cached HTML has to go with them
type pageCache interface {
	PurgePages()
}

type updateBlogRequest struct {
	Title string `json:"title"`
	Bio   string `json:"bio"`
}

type Handler struct {
	repo     blogsRepo
	sessions sessionResolver
	admins   adminChecker
	pages    pageCache
}

func NewHandler(repo blogsRepo, sessions sessionResolver, admins adminChecker, pages pageCache) *Handler {
	return &Handler{
		repo:     repo,
		sessions: sessions,
		admins:   admins,
		pages:    pages,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/blogs/mine", handler.handleGetMine).Methods("GET", "OPTIONS").Name("my-blog")
	router.HandleFunc("/blogs/mine", handler.handleUpdateMine).Methods("PUT", "OPTIONS").Name("update-my-blog")
	router.HandleFunc("/blogs/all", handler.handleAll).Methods("GET", "OPTIONS").Name("all-blogs")
	router.HandleFunc("/blogs/{id}", handler.handleDelete).Methods("DELETE", "OPTIONS").Name("delete-blog")
}

// currentUserID resolves the session token, or writes 401
func (handler *Handler) currentUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, err := handler.sessions.GetUserID(r.Context(), r.Header.Get("X-INKWELL-TOKEN"))
	if err != nil {
		log.Errorf("blogs handler, resolve session: %s", err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}

func (handler *Handler) isAdmin(r *http.Request, userID int) bool {
	isAdmin, err := handler.admins.IsAdmin(r.Context(), userID)
	if err != nil {
		log.Errorf("blogs handler, admin check for user %d: %s", userID, err)
		return false
	}
	return isAdmin
}

func (handler *Handler) currentUserBlog(w http.ResponseWriter, r *http.Request) *Blog {
	userID, ok := handler.currentUserID(w, r)
	if !ok {
		return nil
	}

	blog, err := handler.repo.GetByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrBlogNotFound) {
			http.Error(w, "blog not found", http.StatusNotFound)
			return nil
		}
		log.Errorf("get blog for user %d: %s", userID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil
	}

	return blog
}

func (handler *Handler) handleGetMine(w http.ResponseWriter, r *http.Request) {
	blog := handler.currentUserBlog(w, r)
	if blog == nil {
		return
	}

	blogJson, err := json.Marshal(blog)
	if err != nil {
		log.Errorf("marshal blog error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, blogJson)
}

func (handler *Handler) handleUpdateMine(w http.ResponseWriter, r *http.Request) {
	blog := handler.currentUserBlog(w, r)
	if blog == nil {
		return
	}

	var updateReq updateBlogRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
			log.Errorf("update blog, unmarshal json params: %s", err)
			http.Error(w, "update blog failed", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("update blog failed, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusInternalServerError)
			return
		}
		updateReq = updateBlogRequest{
			Title: r.Form.Get("title"),
			Bio:   r.Form.Get("bio"),
		}
	}

	if updateReq.Title == "" {
		http.Error(w, "error, title empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(r.Context(), blog.ID, updateReq.Title, updateReq.Bio); err != nil {
		log.Errorf("update blog %d failed: %s", blog.ID, err)
		http.Error(w, "update blog failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("updated:%d", blog.ID))
}

// handleAll lists every blog, for admins only
func (handler *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := handler.currentUserID(w, r)
	if !ok {
		return
	}
	if !handler.isAdmin(r, userID) {
		http.Error(w, "no can do", http.StatusForbidden)
		return
	}

	allBlogs, err := handler.repo.All(r.Context())
	if err != nil {
		log.Errorf("get all blogs error: %s", err)
		http.Error(w, "get all blogs error", http.StatusInternalServerError)
		return
	}

	if len(allBlogs) == 0 {
		allBlogs = []*Blog{}
	}

	allBlogsJson, err := json.Marshal(allBlogs)
	if err != nil {
		log.Errorf("marshal all blogs error: %s", err)
		http.Error(w, "marshal all blogs error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, allBlogsJson)
}

// handleDelete removes a blog and, through the cascade, all its posts.
// Only the owner or an admin may do that.
func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := handler.currentUserID(w, r)
	if !ok {
		return
	}

	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	blog, err := handler.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBlogNotFound) {
			http.Error(w, "blog not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete blog, get blog %d: %s", id, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if blog.UserID != userID && !handler.isAdmin(r, userID) {
		http.Error(w, "not your blog", http.StatusForbidden)
		return
	}

	if err := handler.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrBlogNotFound) {
			http.Error(w, "blog not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete blog %d: %s", id, err)
		http.Error(w, "error, blog not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	if handler.pages != nil {
		handler.pages.PurgePages()
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%d", id))
}
