package posts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/inkwellcms/inkwell/internal/telemetry/tracing"
	"github.com/inkwellcms/inkwell/pkg"
)

const postColumns = `id, blog_id, title, slug, content, excerpt, cover_path, published, published_at, created_at, updated_at`

// slugRetries bounds the auto-slug collision loop so that two racing
// inserts of the same title cannot spin forever
const slugRetries = 50

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Add inserts the post and fills in its ID, slug and created at.
// An empty slug gets generated from the title, with a numeric suffix
// on collision. An explicitly given slug that is already taken
// results in ErrSlugTaken.
func (r *Repo) Add(ctx context.Context, post *Post) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Add")
	defer span.End()

	if post.Title == "" || post.Content == "" {
		return ErrPostTitleOrContentEmpty
	}

	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	post.UpdatedAt = post.CreatedAt

	if post.Slug != "" {
		if err := r.insert(ctx, post); err != nil {
			if pkg.IsUniqueViolationError(err) {
				return ErrSlugTaken
			}
			return fmt.Errorf("insert post: %w", err)
		}
		return nil
	}

	baseSlug := pkg.Slugify(post.Title)
	if baseSlug == "" {
		baseSlug = "post"
	}

	post.Slug = baseSlug
	for i := 2; i <= slugRetries; i++ {
		err := r.insert(ctx, post)
		if err == nil {
			return nil
		}
		if !pkg.IsUniqueViolationError(err) {
			return fmt.Errorf("insert post: %w", err)
		}
		post.Slug = fmt.Sprintf("%s-%d", baseSlug, i)
	}

	return fmt.Errorf("insert post: no free slug for %q", baseSlug)
}

func (r *Repo) insert(ctx context.Context, post *Post) error {
	return r.db.QueryRow(
		ctx,
		`INSERT INTO posts (blog_id, title, slug, content, excerpt, published, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id;`,
		post.BlogID, post.Title, post.Slug, post.Content, post.Excerpt,
		post.Published, post.CreatedAt, post.UpdatedAt,
	).Scan(&post.ID)
}

func (r *Repo) Update(ctx context.Context, id int, title, content, excerpt string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Update")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	if title == "" || content == "" {
		return ErrPostTitleOrContentEmpty
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE posts SET title = $1, content = $2, excerpt = $3, updated_at = NOW() WHERE id = $4`,
		title, content, excerpt, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Delete")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id int) (*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Get")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	return r.getWhere(ctx, `WHERE id = $1`, id)
}

// GetBySlug returns the published post with the given slug. Drafts are
// not visible through here, even when the slug matches.
func (r *Repo) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.GetBySlug")
	span.SetAttributes(attribute.String("slug", slug))
	defer span.End()

	return r.getWhere(ctx, `WHERE slug = $1 AND published`, slug)
}

func (r *Repo) getWhere(ctx context.Context, where string, args ...any) (*Post, error) {
	rows, err := r.db.Query(
		ctx,
		fmt.Sprintf(`SELECT %s FROM posts %s;`, postColumns, where),
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrPostNotFound
	}

	post, err := scanPost(rows)
	if err != nil {
		return nil, err
	}
	rows.Close()

	if err := r.attachTags(ctx, []*Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// PublishedPage returns a page of published posts, newest first.
func (r *Repo) PublishedPage(ctx context.Context, page, size int) ([]*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.PublishedPage")
	span.SetAttributes(attribute.Int("page", page))
	span.SetAttributes(attribute.Int("size", size))
	defer span.End()

	return r.pageWhere(ctx, `WHERE published`, page, size)
}

func (r *Repo) PublishedCount(ctx context.Context) (int, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.PublishedCount")
	defer span.End()

	return r.countWhere(ctx, `WHERE published`)
}

// PublishedByTag returns a page of published posts carrying the
// given tag, newest first.
func (r *Repo) PublishedByTag(ctx context.Context, tag string, page, size int) ([]*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.PublishedByTag")
	span.SetAttributes(attribute.String("tag", tag))
	defer span.End()

	return r.pageWhere(
		ctx,
		`WHERE published AND id IN (
			SELECT pt.post_id FROM post_tags pt
			JOIN tags t ON t.id = pt.tag_id
			WHERE t.name = $3
		)`,
		page, size, tag,
	)
}

func (r *Repo) PublishedByTagCount(ctx context.Context, tag string) (int, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.PublishedByTagCount")
	defer span.End()

	return r.countWhere(
		ctx,
		`WHERE published AND id IN (
			SELECT pt.post_id FROM post_tags pt
			JOIN tags t ON t.id = pt.tag_id
			WHERE t.name = $1
		)`,
		tag,
	)
}

// AllPage returns a page of all posts, drafts included, for the
// admin panel.
func (r *Repo) AllPage(ctx context.Context, page, size int) ([]*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.AllPage")
	span.SetAttributes(attribute.Int("page", page))
	span.SetAttributes(attribute.Int("size", size))
	defer span.End()

	return r.pageWhere(ctx, ``, page, size)
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Count")
	defer span.End()

	return r.countWhere(ctx, ``)
}

func (r *Repo) pageWhere(ctx context.Context, where string, page, size int, extraArgs ...any) ([]*Post, error) {
	limit := size
	offset := (page - 1) * size

	args := append([]any{limit, offset}, extraArgs...)
	rows, err := r.db.Query(
		ctx,
		fmt.Sprintf(`
			SELECT %s FROM posts
			%s
			ORDER BY published_at DESC NULLS LAST, created_at DESC
			LIMIT $1
			OFFSET $2;
		`, postColumns, where),
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	posts, err := rows2posts(rows)
	if err != nil {
		return nil, err
	}
	rows.Close()

	if err := r.attachTags(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *Repo) countWhere(ctx context.Context, where string, args ...any) (int, error) {
	var count int
	if err := r.db.QueryRow(
		ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM posts %s;`, where),
		args...,
	).Scan(&count); err != nil {
		return -1, fmt.Errorf("get posts count: %w", err)
	}
	return count, nil
}

// Publish makes the post publicly visible. The first publish stamps
// published_at, later republishes keep the original timestamp.
func (r *Repo) Publish(ctx context.Context, id int) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Publish")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	tag, err := r.db.Exec(
		ctx,
		`UPDATE posts SET published = TRUE, published_at = COALESCE(published_at, NOW()), updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *Repo) Unpublish(ctx context.Context, id int) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Unpublish")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	tag, err := r.db.Exec(
		ctx,
		`UPDATE posts SET published = FALSE, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

// SetTags replaces the post's tags with the given set, creating
// missing tags on the fly.
func (r *Repo) SetTags(ctx context.Context, postID int, tagNames []string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.SetTags")
	span.SetAttributes(attribute.Int("postID", postID))
	defer span.End()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin set tags: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Errorf("set tags for post %d, rollback: %s", postID, err)
		}
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM post_tags WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("clear post tags: %w", err)
	}

	for _, name := range tagNames {
		if name == "" {
			continue
		}
		var tagID int
		if err := tx.QueryRow(
			ctx,
			`INSERT INTO tags (name) VALUES ($1)
				ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
				RETURNING id;`,
			name,
		).Scan(&tagID); err != nil {
			return fmt.Errorf("upsert tag %q: %w", name, err)
		}
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			postID, tagID,
		); err != nil {
			if pkg.IsForeignKeyViolationError(err) {
				return ErrPostNotFound
			}
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *Repo) SetCoverPath(ctx context.Context, postID int, coverPath string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.SetCoverPath")
	span.SetAttributes(attribute.Int("postID", postID))
	defer span.End()

	tag, err := r.db.Exec(
		ctx,
		`UPDATE posts SET cover_path = $1, updated_at = NOW() WHERE id = $2`,
		coverPath, postID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *Repo) attachTags(ctx context.Context, posts []*Post) error {
	if len(posts) == 0 {
		return nil
	}

	byID := make(map[int]*Post, len(posts))
	ids := make([]int, 0, len(posts))
	for _, p := range posts {
		p.Tags = []string{}
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := r.db.Query(
		ctx,
		`
			SELECT pt.post_id, t.name FROM post_tags pt
			JOIN tags t ON t.id = pt.tag_id
			WHERE pt.post_id = ANY($1)
			ORDER BY t.name;
		`,
		ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return err
	}

	for rows.Next() {
		var postID int
		var name string
		if err := rows.Scan(&postID, &name); err != nil {
			return err
		}
		if p, ok := byID[postID]; ok {
			p.Tags = append(p.Tags, name)
		}
	}
	return nil
}

func rows2posts(rows pgx.Rows) ([]*Post, error) {
	var posts []*Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func scanPost(rows pgx.Rows) (*Post, error) {
	var post Post
	var coverPath *string
	if err := rows.Scan(
		&post.ID,
		&post.BlogID,
		&post.Title,
		&post.Slug,
		&post.Content,
		&post.Excerpt,
		&coverPath,
		&post.Published,
		&post.PublishedAt,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if coverPath != nil {
		post.CoverPath = *coverPath
	}
	return &post, nil
}
