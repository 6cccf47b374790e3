package blogs

import (
	"context"
	"sync"
	"time"
)

var _ blogsRepo = (*TestRepo)(nil)

type TestRepo struct {
	Blogs  map[int]*Blog
	nextID int
	mutex  sync.Mutex
}

func NewTestRepo() *TestRepo {
	return &TestRepo{
		Blogs:  make(map[int]*Blog),
		nextID: 1,
	}
}

func (r *TestRepo) Add(_ context.Context, blog *Blog) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, b := range r.Blogs {
		if b.UserID == blog.UserID {
			return ErrBlogExists
		}
	}

	if blog.ID == 0 {
		blog.ID = r.nextID
		r.nextID++
	}
	if blog.CreatedAt.IsZero() {
		blog.CreatedAt = time.Now()
	}

	r.Blogs[blog.ID] = blog
	return nil
}

func (r *TestRepo) Update(_ context.Context, id int, title, bio string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	blog, ok := r.Blogs[id]
	if !ok {
		return ErrBlogNotFound
	}
	blog.Title = title
	blog.Bio = bio
	blog.UpdatedAt = time.Now()
	return nil
}

func (r *TestRepo) Delete(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Blogs[id]; !ok {
		return ErrBlogNotFound
	}
	delete(r.Blogs, id)
	return nil
}

func (r *TestRepo) Get(_ context.Context, id int) (*Blog, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	blog, ok := r.Blogs[id]
	if !ok {
		return nil, ErrBlogNotFound
	}
	return blog, nil
}

func (r *TestRepo) GetByUserID(_ context.Context, userID int) (*Blog, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, blog := range r.Blogs {
		if blog.UserID == userID {
			return blog, nil
		}
	}
	return nil, ErrBlogNotFound
}

func (r *TestRepo) All(_ context.Context) ([]*Blog, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var all []*Blog
	for id := range r.Blogs {
		all = append(all, r.Blogs[id])
	}
	return all, nil
}
