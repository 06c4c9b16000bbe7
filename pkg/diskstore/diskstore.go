package diskstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store writes attachments below a local directory that the API serves statically.
type Store struct {
	dir     string
	baseURL string
	logger  zerolog.Logger
	newID   func() string
}

// New prepares the upload directory. baseURL is the public prefix the directory is served under.
func New(dir, baseURL string, logger zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("upload directory must be provided")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &Store{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("component", "disk_store").Logger(),
		newID:   uuid.NewString,
	}, nil
}

// Dir returns the directory files are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Upload copies the reader into a uniquely prefixed file and returns its public URL
// together with the file name, which is the key Delete expects.
func (s *Store) Upload(ctx context.Context, name string, reader io.Reader) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	fileName := s.newID() + "-" + filepath.Base(name)
	target := filepath.Join(s.dir, fileName)

	file, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", "", fmt.Errorf("failed to create attachment: %w", err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		_ = os.Remove(target)
		return "", "", fmt.Errorf("failed to write attachment: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(target)
		return "", "", fmt.Errorf("failed to write attachment: %w", err)
	}

	s.logger.Debug().Str("file", fileName).Msg("attachment stored")
	return s.baseURL + "/uploads/" + fileName, fileName, nil
}

// Delete removes a stored file. A file that is already gone counts as deleted.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return fmt.Errorf("invalid attachment key %q", key)
	}

	if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	s.logger.Debug().Str("file", key).Msg("attachment deleted")
	return nil
}
