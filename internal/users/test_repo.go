package users

import (
	"context"
	"sync"
	"time"
)

var _ usersRepo = (*TestRepo)(nil)

type TestRepo struct {
	Users  map[int]*User
	nextID int
	mutex  sync.Mutex
}

func NewTestRepo() *TestRepo {
	return &TestRepo{
		Users:  make(map[int]*User),
		nextID: 1,
	}
}

func (r *TestRepo) Add(_ context.Context, user *User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.Users {
		if u.Username == user.Username {
			return ErrUsernameTaken
		}
	}

	if user.ID == 0 {
		user.ID = r.nextID
		r.nextID++
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	r.Users[user.ID] = user
	return nil
}

func (r *TestRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, user := range r.Users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *TestRepo) Get(_ context.Context, id int) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.Users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *TestRepo) IsAdmin(_ context.Context, id int) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.Users[id]
	if !ok {
		return false, ErrUserNotFound
	}
	return user.IsAdmin, nil
}

func (r *TestRepo) All(_ context.Context) ([]*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var all []*User
	for id := range r.Users {
		all = append(all, r.Users[id])
	}
	return all, nil
}
