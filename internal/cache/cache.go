// Package cache stores fetched documents in a flat directory keyed by the
// SHA-256 digest of their URL.
//
// A completed entry is named <digest>. While a fetch is in flight the body is
// written to <digest>.<random>.temp in the same directory and renamed into place
// only after the whole body has been written and synced, so an entry that
// exists is always complete. Entries are never modified or removed.
//
// Two callers fetching the same key at once may both hit the network; each
// writes its own temp file and the last rename wins with identical content.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"

	ioutils "github.com/handiism/album-dl/internal/io"
	"github.com/handiism/album-dl/internal/model"
)

// Opener retrieves the body of a URL. Implementations must return an error
// for non-success responses.
type Opener interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// Cache is a content-addressed document cache rooted at a directory.
type Cache struct {
	dir    string
	opener Opener
}

// New creates a Cache in dir, creating the directory if needed.
func New(dir string, opener Opener) (*Cache, error) {
	if err := ioutils.EnsureDir(dir); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, opener: opener}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Key returns the cache key of a fetch key: the hex SHA-256 digest.
func Key(fetchKey string) string {
	sum := sha256.Sum256([]byte(fetchKey))
	return hex.EncodeToString(sum[:])
}

// Path returns where the complete entry for fetchKey lives, whether or not it exists.
func (c *Cache) Path(fetchKey string) string {
	return filepath.Join(c.dir, Key(fetchKey))
}

// Has reports whether a complete entry exists for fetchKey.
func (c *Cache) Has(fetchKey string) bool {
	info, err := os.Stat(c.Path(fetchKey))
	return err == nil && info.Mode().IsRegular()
}

// Fetch returns the path of the complete entry for url, retrieving it first
// if it is absent. A present entry is returned without network access.
//
// Failures are returned as *model.FetchError and never publish an entry.
func (c *Cache) Fetch(ctx context.Context, url string) (string, error) {
	final := c.Path(url)
	if c.Has(url) {
		return final, nil
	}

	if err := c.retrieve(ctx, url, final); err != nil {
		return "", &model.FetchError{URL: url, Err: err}
	}
	return final, nil
}

// Read is Fetch followed by reading the entry.
func (c *Cache) Read(ctx context.Context, url string) ([]byte, error) {
	path, err := c.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (c *Cache) retrieve(ctx context.Context, url, final string) error {
	body, err := c.opener.Open(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(c.dir, filepath.Base(final)+".*"+ioutils.TempSuffix)
	if err != nil {
		return err
	}

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := ioutils.Publish(tmp, final); err != nil {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return errors.Join(err, rmErr)
		}
		return err
	}
	return nil
}
