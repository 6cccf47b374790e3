package tags

import (
	"context"
	"fmt"

	"github.com/inkwellcms/inkwell/internal/telemetry/tracing"
	"github.com/inkwellcms/inkwell/pkg"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, name string) (*Tag, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tagsRepo.Add")
	defer span.End()

	if name == "" {
		return nil, ErrTagNameEmpty
	}

	var id int
	if err := r.db.QueryRow(
		ctx,
		`INSERT INTO tags (name) VALUES ($1) RETURNING id;`,
		name,
	).Scan(&id); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrTagExists
		}
		return nil, fmt.Errorf("insert tag: %w", err)
	}

	return &Tag{ID: id, Name: name}, nil
}

func (r *Repo) Rename(ctx context.Context, id int, name string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tagsRepo.Rename")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	if name == "" {
		return ErrTagNameEmpty
	}

	tag, err := r.db.Exec(ctx, `UPDATE tags SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrTagExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTagNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tagsRepo.Delete")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTagNotFound
	}
	return nil
}

func (r *Repo) All(ctx context.Context) ([]*Tag, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tagsRepo.All")
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT id, name FROM tags ORDER BY name;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	var all []*Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		all = append(all, &t)
	}
	return all, nil
}
