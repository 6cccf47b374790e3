package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellcms/inkwell/internal/blogs"
	"github.com/inkwellcms/inkwell/pkg"
)

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	repo := NewTestRepo()
	blogsRepo := blogs.NewTestRepo()

	require.NoError(t, EnsureAdmin(ctx, repo, blogsRepo, "admin", "super secret"))
	require.Len(t, repo.Users, 1)

	admin, err := repo.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.True(t, pkg.CheckPasswordHash("super secret", admin.PasswordHash))

	blog, err := blogsRepo.GetByUserID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin's blog", blog.Title)
}

func TestEnsureAdmin_idempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewTestRepo()
	blogsRepo := blogs.NewTestRepo()

	require.NoError(t, EnsureAdmin(ctx, repo, blogsRepo, "admin", "super secret"))
	adminBefore, err := repo.GetByUsername(ctx, "admin")
	require.NoError(t, err)

	// second run with different credentials leaves the account untouched
	require.NoError(t, EnsureAdmin(ctx, repo, blogsRepo, "admin", "other password"))
	require.Len(t, repo.Users, 1)

	adminAfter, err := repo.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, adminBefore.ID, adminAfter.ID)
	assert.Equal(t, adminBefore.PasswordHash, adminAfter.PasswordHash)
	assert.Len(t, blogsRepo.Blogs, 1)
}

func TestEnsureAdmin_emptyCredentials(t *testing.T) {
	ctx := context.Background()
	repo := NewTestRepo()
	blogsRepo := blogs.NewTestRepo()

	assert.Error(t, EnsureAdmin(ctx, repo, blogsRepo, "", "super secret"))
	assert.Error(t, EnsureAdmin(ctx, repo, blogsRepo, "admin", ""))
	assert.Empty(t, repo.Users)
}

func TestEnsureAdmin_blogAlreadyPresent(t *testing.T) {
	ctx := context.Background()
	repo := NewTestRepo()
	blogsRepo := blogs.NewTestRepo()

	// the admin user got wiped but their blog survived - bootstrap
	// must still succeed and reattach to the existing blog's user id
	require.NoError(t, blogsRepo.Add(ctx, &blogs.Blog{UserID: 1, Title: "leftover blog"}))

	require.NoError(t, EnsureAdmin(ctx, repo, blogsRepo, "admin", "super secret"))
	require.Len(t, repo.Users, 1)
	assert.Len(t, blogsRepo.Blogs, 1)
}
