package tags

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

//go:generate mockgen -source=$GOFILE -destination=tags_mocks_test.go -package=tags
type tagsRepo interface {
	Add(ctx context.Context, name string) (*Tag, error)
	Rename(ctx context.Context, id int, name string) error
	Delete(ctx context.Context, id int) error
	All(ctx context.Context) ([]*Tag, error)
}

var _ tagsRepo = (*Repo)(nil)
var _ tagsRepo = (*TestRepo)(nil)

type tagRequest struct {
	Name string `json:"name"`
}

type Handler struct {
	repo tagsRepo
}

func NewHandler(repo tagsRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/tags", handler.handleAll).Methods("GET", "OPTIONS").Name("all-tags")
	router.HandleFunc("/tags", handler.handleNew).Methods("POST", "OPTIONS").Name("new-tag")
	router.HandleFunc("/tags/{id}", handler.handleRename).Methods("PUT", "OPTIONS").Name("rename-tag")
	router.HandleFunc("/tags/{id}", handler.handleDelete).Methods("DELETE", "OPTIONS").Name("delete-tag")
}

func (handler *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	allTags, err := handler.repo.All(r.Context())
	if err != nil {
		log.Errorf("get all tags error: %s", err)
		http.Error(w, "get all tags error", http.StatusInternalServerError)
		return
	}

	if len(allTags) == 0 {
		allTags = []*Tag{}
	}

	allTagsJson, err := json.Marshal(allTags)
	if err != nil {
		log.Errorf("marshal all tags error: %s", err)
		http.Error(w, "marshal all tags error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, allTagsJson)
}

func (handler *Handler) handleNew(w http.ResponseWriter, r *http.Request) {
	tagReq, ok := tagRequestFrom(w, r)
	if !ok {
		return
	}

	tag, err := handler.repo.Add(r.Context(), tagReq.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrTagNameEmpty):
			http.Error(w, "error, tag name empty", http.StatusBadRequest)
		case errors.Is(err, ErrTagExists):
			http.Error(w, "error, tag already exists", http.StatusConflict)
		default:
			log.Errorf("add new tag failed: %s", err)
			http.Error(w, "add new tag failed", http.StatusInternalServerError)
		}
		return
	}

	log.Tracef("new tag %d: [%s] added", tag.ID, tag.Name)

	pkg.WriteResponse(
		w,
		pkg.ContentType.Text,
		fmt.Sprintf("added:%d", tag.ID),
		http.StatusCreated,
	)
}

func (handler *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	id, ok := tagID(w, r)
	if !ok {
		return
	}
	tagReq, ok := tagRequestFrom(w, r)
	if !ok {
		return
	}

	if err := handler.repo.Rename(r.Context(), id, tagReq.Name); err != nil {
		switch {
		case errors.Is(err, ErrTagNameEmpty):
			http.Error(w, "error, tag name empty", http.StatusBadRequest)
		case errors.Is(err, ErrTagNotFound):
			http.Error(w, "tag not found", http.StatusNotFound)
		case errors.Is(err, ErrTagExists):
			http.Error(w, "error, tag already exists", http.StatusConflict)
		default:
			log.Errorf("rename tag %d failed: %s", id, err)
			http.Error(w, "rename tag failed", http.StatusInternalServerError)
		}
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("updated:%d", id))
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := tagID(w, r)
	if !ok {
		return
	}

	if err := handler.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrTagNotFound) {
			http.Error(w, "tag not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete tag %d: %s", id, err)
		http.Error(w, "error, tag not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%d", id))
}

func tagID(w http.ResponseWriter, r *http.Request) (int, bool) {
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

func tagRequestFrom(w http.ResponseWriter, r *http.Request) (tagRequest, bool) {
	var tagReq tagRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&tagReq); err != nil {
			log.Errorf("tag request, unmarshal json params: %s", err)
			http.Error(w, "bad tag request", http.StatusBadRequest)
			return tagReq, false
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("tag request, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusInternalServerError)
			return tagReq, false
		}
		tagReq = tagRequest{
			Name: r.Form.Get("name"),
		}
	}
	return tagReq, true
}
