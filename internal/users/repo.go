package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwellcms/inkwell/internal/telemetry/tracing"
	"github.com/inkwellcms/inkwell/pkg"
)

var _ usersRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, user *User) error {
	if user.Username == "" || user.PasswordHash == "" {
		return errors.New("user username or password hash empty")
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO users (username, password_hash, email, full_name, is_admin, created_at)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id;`,
		user.Username, user.PasswordHash, user.Email, user.FullName, user.IsAdmin, user.CreatedAt,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrUsernameTaken
		}
		return err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrUsernameTaken
		}
		return err
	}

	if rows.Next() {
		var id int
		if err := rows.Scan(&id); err == nil {
			user.ID = id
			return nil
		}
	}

	return errors.New("unexpected error, failed to insert user")
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*User, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.GetByUsername")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, username, password_hash, email, full_name, is_admin, created_at
			FROM users WHERE username = $1;`,
		username,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrUserNotFound
	}

	return scanUser(rows)
}

func (r *Repo) Get(ctx context.Context, id int) (*User, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.Get")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, username, password_hash, email, full_name, is_admin, created_at
			FROM users WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrUserNotFound
	}

	return scanUser(rows)
}

// IsAdmin reports whether the user has administrator rights. Used by
// handlers that cannot depend on this package's User type directly.
func (r *Repo) IsAdmin(ctx context.Context, id int) (bool, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.IsAdmin")
	defer span.End()

	var isAdmin bool
	if err := r.db.QueryRow(
		ctx,
		`SELECT is_admin FROM users WHERE id = $1;`,
		id,
	).Scan(&isAdmin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrUserNotFound
		}
		return false, err
	}
	return isAdmin, nil
}

func (r *Repo) All(ctx context.Context) ([]*User, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.All")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, username, password_hash, email, full_name, is_admin, created_at
			FROM users ORDER BY id;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	var all []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, user)
	}
	return all, nil
}

func scanUser(rows pgx.Rows) (*User, error) {
	var user User
	if err := rows.Scan(
		&user.ID, &user.Username, &user.PasswordHash,
		&user.Email, &user.FullName, &user.IsAdmin, &user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
