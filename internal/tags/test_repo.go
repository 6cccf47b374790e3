package tags

import (
	"context"
	"sort"
	"sync"
)

type TestRepo struct {
	Tags   map[int]*Tag
	nextID int
	mutex  sync.Mutex
}

func NewTestRepo() *TestRepo {
	return &TestRepo{
		Tags:   make(map[int]*Tag),
		nextID: 1,
	}
}

func (r *TestRepo) Add(_ context.Context, name string) (*Tag, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if name == "" {
		return nil, ErrTagNameEmpty
	}
	for _, t := range r.Tags {
		if t.Name == name {
			return nil, ErrTagExists
		}
	}

	tag := &Tag{ID: r.nextID, Name: name}
	r.nextID++
	r.Tags[tag.ID] = tag
	return tag, nil
}

func (r *TestRepo) Rename(_ context.Context, id int, name string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if name == "" {
		return ErrTagNameEmpty
	}
	tag, ok := r.Tags[id]
	if !ok {
		return ErrTagNotFound
	}
	for _, t := range r.Tags {
		if t.ID != id && t.Name == name {
			return ErrTagExists
		}
	}
	tag.Name = name
	return nil
}

func (r *TestRepo) Delete(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Tags[id]; !ok {
		return ErrTagNotFound
	}
	delete(r.Tags, id)
	return nil
}

func (r *TestRepo) All(_ context.Context) ([]*Tag, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var all []*Tag
	for id := range r.Tags {
		all = append(all, r.Tags[id])
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})
	return all, nil
}
