package fsblob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/bartventer/elearning-site/core/course"
	"github.com/bartventer/elearning-site/storage/blob"
)

type Config struct {
	BaseDir   string // where files are written
	URLPrefix string // public URL BaseDir is served from
}

// Store keeps uploaded files on the local filesystem.
type Store struct {
	baseDir   string
	urlPrefix string
}

var _ course.FileStore = (*Store)(nil) // interface compliance check

func New(conf Config) (*Store, error) {
	if conf.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(conf.BaseDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating base directory")
	}
	return &Store{baseDir: conf.BaseDir, urlPrefix: conf.URLPrefix}, nil
}

func (s *Store) path(key string) (string, error) {
	p := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if !strings.HasPrefix(p, filepath.Clean(s.baseDir)+string(os.PathSeparator)) {
		return "", errors.Errorf("invalid key %q", key)
	}
	return p, nil
}

func (s *Store) Save(ctx context.Context, filename string, r io.Reader) (course.Upload, error) {
	if err := ctx.Err(); err != nil {
		return course.Upload{}, err
	}

	contentType, body, err := blob.Sniff(r)
	if err != nil {
		return course.Upload{}, errors.Wrap(err, "reading upload")
	}

	key := blob.NewKey(filename, time.Now())
	p, err := s.path(key)
	if err != nil {
		return course.Upload{}, err
	}
	if err = os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return course.Upload{}, errors.Wrap(err, "creating directory")
	}

	f, err := os.Create(p)
	if err != nil {
		return course.Upload{}, errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return course.Upload{}, errors.Wrap(err, "writing file")
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(p)
		return course.Upload{}, errors.Wrap(err, "closing file")
	}

	return course.Upload{Key: key, URL: blob.URL(s.urlPrefix, key), ContentType: contentType}, nil
}

// Remove deletes the file stored under key. Removing a missing file is not an error.
func (s *Store) Remove(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}
