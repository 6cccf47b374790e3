package posts

import (
	"errors"
	"time"
)

var (
	ErrPostNotFound            = errors.New("post not found")
	ErrSlugTaken               = errors.New("post slug already taken")
	ErrPostTitleOrContentEmpty = errors.New("post title or content empty")
)

type Post struct {
	ID        int    `json:"id"`
	BlogID    int    `json:"blog_id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Content   string `json:"content"`
	Excerpt   string `json:"excerpt"`
	CoverPath string `json:"-"`
	Published bool   `json:"published"`
	// PublishedAt is set on the first publish and survives
	// unpublish / republish cycles
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Tags        []string   `json:"tags"`
}

func (p *Post) HasCover() bool {
	return p.CoverPath != ""
}
