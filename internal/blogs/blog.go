package blogs

import (
	"errors"
	"time"
)

var (
	ErrBlogNotFound   = errors.New("blog not found")
	ErrBlogTitleEmpty = errors.New("blog title empty")
	ErrBlogExists     = errors.New("user already has a blog")
)

// Blog is the per-user container of posts. One per user, enforced with a
// unique constraint on user_id.
type Blog struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Title     string    `json:"title"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
