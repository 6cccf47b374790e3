package posts

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/inkwellcms/inkwell/pkg"
)

type TestRepo struct {
	Posts  map[int]*Post
	nextID int
	mutex  sync.Mutex
}

func NewTestRepo() *TestRepo {
	return &TestRepo{
		Posts:  make(map[int]*Post),
		nextID: 1,
	}
}

func (r *TestRepo) Add(_ context.Context, post *Post) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if post.Title == "" || post.Content == "" {
		return ErrPostTitleOrContentEmpty
	}

	if post.Slug != "" {
		if r.slugTaken(post.Slug) {
			return ErrSlugTaken
		}
	} else {
		baseSlug := pkg.Slugify(post.Title)
		if baseSlug == "" {
			baseSlug = "post"
		}
		post.Slug = baseSlug
		for i := 2; r.slugTaken(post.Slug); i++ {
			post.Slug = fmt.Sprintf("%s-%d", baseSlug, i)
		}
	}

	if post.ID == 0 {
		post.ID = r.nextID
		r.nextID++
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	post.UpdatedAt = post.CreatedAt
	if post.Tags == nil {
		post.Tags = []string{}
	}

	r.Posts[post.ID] = post
	return nil
}

func (r *TestRepo) slugTaken(slug string) bool {
	for _, p := range r.Posts {
		if p.Slug == slug {
			return true
		}
	}
	return false
}

func (r *TestRepo) Update(_ context.Context, id int, title, content, excerpt string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if title == "" || content == "" {
		return ErrPostTitleOrContentEmpty
	}

	post, ok := r.Posts[id]
	if !ok {
		return ErrPostNotFound
	}
	post.Title = title
	post.Content = content
	post.Excerpt = excerpt
	post.UpdatedAt = time.Now()
	return nil
}

func (r *TestRepo) Delete(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Posts[id]; !ok {
		return ErrPostNotFound
	}
	delete(r.Posts, id)
	return nil
}

func (r *TestRepo) Get(_ context.Context, id int) (*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	post, ok := r.Posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (r *TestRepo) GetBySlug(_ context.Context, slug string) (*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, post := range r.Posts {
		if post.Slug == slug && post.Published {
			return post, nil
		}
	}
	return nil, ErrPostNotFound
}

func (r *TestRepo) PublishedPage(_ context.Context, page, size int) ([]*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return pagePosts(r.sorted(func(p *Post) bool { return p.Published }), page, size), nil
}

func (r *TestRepo) PublishedCount(_ context.Context) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	count := 0
	for _, p := range r.Posts {
		if p.Published {
			count++
		}
	}
	return count, nil
}

func (r *TestRepo) PublishedByTag(_ context.Context, tag string, page, size int) ([]*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return pagePosts(r.sorted(func(p *Post) bool {
		return p.Published && hasTag(p, tag)
	}), page, size), nil
}

func (r *TestRepo) PublishedByTagCount(_ context.Context, tag string) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	count := 0
	for _, p := range r.Posts {
		if p.Published && hasTag(p, tag) {
			count++
		}
	}
	return count, nil
}

func (r *TestRepo) AllPage(_ context.Context, page, size int) ([]*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return pagePosts(r.sorted(func(*Post) bool { return true }), page, size), nil
}

func (r *TestRepo) Count(_ context.Context) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.Posts), nil
}

func (r *TestRepo) Publish(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	post, ok := r.Posts[id]
	if !ok {
		return ErrPostNotFound
	}
	post.Published = true
	if post.PublishedAt == nil {
		now := time.Now()
		post.PublishedAt = &now
	}
	post.UpdatedAt = time.Now()
	return nil
}

func (r *TestRepo) Unpublish(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	post, ok := r.Posts[id]
	if !ok {
		return ErrPostNotFound
	}
	post.Published = false
	post.UpdatedAt = time.Now()
	return nil
}

func (r *TestRepo) SetTags(_ context.Context, postID int, tagNames []string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	post, ok := r.Posts[postID]
	if !ok {
		return ErrPostNotFound
	}

	tags := make([]string, 0, len(tagNames))
	for _, name := range tagNames {
		if name != "" {
			tags = append(tags, name)
		}
	}
	sort.Strings(tags)
	post.Tags = tags
	return nil
}

func (r *TestRepo) SetCoverPath(_ context.Context, postID int, coverPath string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	post, ok := r.Posts[postID]
	if !ok {
		return ErrPostNotFound
	}
	post.CoverPath = coverPath
	return nil
}

func (r *TestRepo) sorted(include func(*Post) bool) []*Post {
	var posts []*Post
	for _, p := range r.Posts {
		if include(p) {
			posts = append(posts, p)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		pi, pj := posts[i], posts[j]
		switch {
		case pi.PublishedAt != nil && pj.PublishedAt != nil:
			if !pi.PublishedAt.Equal(*pj.PublishedAt) {
				return pi.PublishedAt.After(*pj.PublishedAt)
			}
		case pi.PublishedAt != nil:
			return true
		case pj.PublishedAt != nil:
			return false
		}
		return pi.CreatedAt.After(pj.CreatedAt)
	})
	return posts
}

func pagePosts(posts []*Post, page, size int) []*Post {
	offset := (page - 1) * size
	if offset >= len(posts) {
		return nil
	}
	end := offset + size
	if end > len(posts) {
		end = len(posts)
	}
	return posts[offset:end]
}

func hasTag(post *Post, tag string) bool {
	for _, t := range post.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
