package blogs

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/inkwellcms/inkwell/internal/telemetry/tracing"
	"github.com/inkwellcms/inkwell/pkg"
)

var _ blogsRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, blog *Blog) error {
	if blog.Title == "" {
		return ErrBlogTitleEmpty
	}

	now := time.Now()
	if blog.CreatedAt.IsZero() {
		blog.CreatedAt = now
	}
	if blog.UpdatedAt.IsZero() {
		blog.UpdatedAt = now
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO blogs (user_id, title, bio, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5) RETURNING id;`,
		blog.UserID, blog.Title, blog.Bio, blog.CreatedAt, blog.UpdatedAt,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrBlogExists
		}
		return err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrBlogExists
		}
		return err
	}

	if rows.Next() {
		var id int
		if err := rows.Scan(&id); err == nil {
			blog.ID = id
			return nil
		}
	}

	return errors.New("unexpected error, failed to insert blog")
}

// Update changes the blog title and bio, timestamps are kept by the db
func (r *Repo) Update(ctx context.Context, id int, title, bio string) error {
	if title == "" {
		return ErrBlogTitleEmpty
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE blogs SET title = $1, bio = $2, updated_at = NOW() WHERE id = $3`,
		title, bio, id,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrBlogNotFound
	}

	return nil
}

// Delete removes the blog; its posts go with it (ON DELETE CASCADE)
func (r *Repo) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM blogs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlogNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id int) (*Blog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogsRepo.Get")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	return r.getWhere(ctx, `SELECT * FROM blogs WHERE id = $1;`, id)
}

func (r *Repo) GetByUserID(ctx context.Context, userID int) (*Blog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogsRepo.GetByUserID")
	span.SetAttributes(attribute.Int("user_id", userID))
	defer span.End()

	return r.getWhere(ctx, `SELECT * FROM blogs WHERE user_id = $1;`, userID)
}

func (r *Repo) All(ctx context.Context) ([]*Blog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogsRepo.All")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT * FROM blogs ORDER BY created_at DESC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	var all []*Blog
	for rows.Next() {
		blog, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, blog)
	}
	return all, nil
}

func (r *Repo) getWhere(ctx context.Context, query string, arg any) (*Blog, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrBlogNotFound
	}

	return scanBlog(rows)
}

func scanBlog(rows pgx.Rows) (*Blog, error) {
	var blog Blog
	if err := rows.Scan(
		&blog.ID, &blog.UserID, &blog.Title, &blog.Bio,
		&blog.CreatedAt, &blog.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &blog, nil
}
