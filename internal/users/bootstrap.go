package users

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/inkwellcms/inkwell/internal/blogs"
	"github.com/inkwellcms/inkwell/pkg"
)

// EnsureAdmin makes sure an administrator account exists: creates one with
// the given credentials if absent, does nothing otherwise. Ran best-effort
// on startup, so it must stay idempotent.
func EnsureAdmin(
	ctx context.Context,
	repo usersRepo,
	blogsRepo blogCreator,
	username, password string,
) error {
	if username == "" || password == "" {
		return errors.New("admin username or password empty")
	}

	if existing, err := repo.GetByUsername(ctx, username); err == nil {
		log.Debugf("admin account [%s] already present (id %d)", existing.Username, existing.ID)
		return nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("check admin account: %w", err)
	}

	passwordHash, err := pkg.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := &User{
		Username:     username,
		PasswordHash: passwordHash,
		IsAdmin:      true,
	}
	if err := repo.Add(ctx, admin); err != nil {
		// lost a race with another instance doing the same bootstrap
		if errors.Is(err, ErrUsernameTaken) {
			return nil
		}
		return fmt.Errorf("create admin account: %w", err)
	}

	if err := blogsRepo.Add(ctx, &blogs.Blog{
		UserID: admin.ID,
		Title:  fmt.Sprintf("%s's blog", admin.Username),
	}); err != nil && !errors.Is(err, blogs.ErrBlogExists) {
		return fmt.Errorf("create admin blog: %w", err)
	}

	log.Infof("admin account [%s] created (id %d)", admin.Username, admin.ID)
	return nil
}
