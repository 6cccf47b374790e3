package covers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/inkwellcms/inkwell/internal/telemetry/tracing"
)

var ErrCoverNotFound = errors.New("cover not found")

// Storage keeps post cover images on disk, one file per post,
// named after the post ID.
type Storage struct {
	rootPath string
}

func NewStorage(rootPath string) (*Storage, error) {
	if rootPath == "" {
		return nil, errors.New("covers root path cannot be empty")
	}
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("create covers root: %w", err)
	}
	return &Storage{
		rootPath: rootPath,
	}, nil
}

// Save stores the cover for the given post and returns its path on
// disk. A previous cover of the same post gets removed first.
func (s *Storage) Save(ctx context.Context, postID int, filename string, file io.Reader) (_ string, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "coversStorage.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		return "", fmt.Errorf("unsupported cover type: %q", ext)
	}

	if err := s.remove(postID); err != nil {
		return "", err
	}

	coverPath := filepath.Join(s.rootPath, fmt.Sprintf("%d%s", postID, ext))
	dst, err := os.Create(coverPath)
	if err != nil {
		return "", fmt.Errorf("create cover file: %w", err)
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("write cover file: %w", err)
	}

	log.Debugf("cover for post %d saved to %s", postID, coverPath)

	return coverPath, nil
}

func (s *Storage) Open(coverPath string) (*os.File, error) {
	file, err := os.Open(coverPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCoverNotFound
		}
		return nil, err
	}
	return file, nil
}

// Remove deletes the post's cover, if any.
func (s *Storage) Remove(ctx context.Context, postID int) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "coversStorage.remove")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return s.remove(postID)
}

func (s *Storage) remove(postID int) error {
	matches, err := filepath.Glob(filepath.Join(s.rootPath, fmt.Sprintf("%d.*", postID)))
	if err != nil {
		return fmt.Errorf("glob covers: %w", err)
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil {
			return fmt.Errorf("remove old cover %s: %w", match, err)
		}
	}
	return nil
}
