// Package imagecache keeps compiled module images in a SQLite database so
// that unchanged scripts skip the compiler on the next run.
package imagecache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/funvibe/oscript/internal/sources"
	"github.com/funvibe/oscript/internal/vm"
)

// ErrNotFound is returned by Get when no image is stored under the key.
var ErrNotFound = errors.New("image not found")

const schema = `CREATE TABLE IF NOT EXISTS images (
	key        TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	data       BLOB NOT NULL
)`

// Store is a persistent cache of module images.
type Store struct {
	db     *sql.DB
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

// Open opens or creates the cache database at path. The path ":memory:"
// gives a private in-memory cache.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating cache directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening image cache: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &Store{db: db, path: path, logger: zerolog.Nop()}, nil
}

func (s *Store) SetLogger(l zerolog.Logger) {
	s.logger = l.With().Str("component", "imagecache").Logger()
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Key derives the cache key of src compiled under fingerprint.
func Key(src *sources.SourceCode, fingerprint string) string {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(src.Name))
	h.Write([]byte{0})
	h.Write([]byte(src.Text))
	return hex.EncodeToString(h.Sum(nil))
}

// Get loads the image stored under key.
func (s *Store) Get(ctx context.Context, key string) (*vm.ModuleImage, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM images WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying image: %w", err)
	}
	img, err := vm.UnmarshalImage(data)
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", key, err)
	}
	return img, nil
}

// Put stores img under key, replacing an older entry.
func (s *Store) Put(ctx context.Context, key string, img *vm.ModuleImage) error {
	data, err := vm.MarshalImage(img)
	if err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO images (key, name, created_at, data) VALUES (?, ?, ?, ?)",
		key, img.ModuleInfo.ModuleName, time.Now().Unix(), data,
	)
	if err != nil {
		return fmt.Errorf("saving image: %w", err)
	}
	return nil
}

// Delete removes the entry stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM images WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	return nil
}

// Purge drops the entries created before t and returns how many went.
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, "DELETE FROM images WHERE created_at < ?", before.Unix())
	if err != nil {
		return 0, fmt.Errorf("purging images: %w", err)
	}
	return res.RowsAffected()
}

// Count reports the number of stored images.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM images").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting images: %w", err)
	}
	return n, nil
}

// Compile returns the cached image of src, compiling and storing it on a
// miss. A broken cache entry is recompiled; a failure to store the new
// image is logged and does not fail the compilation.
func (s *Store) Compile(ctx context.Context, fe *vm.Frontend, src *sources.SourceCode) (*vm.ModuleImage, error) {
	key := Key(src, fe.Fingerprint())

	img, err := s.Get(ctx, key)
	switch {
	case err == nil:
		s.logger.Debug().Str("module", src.Name).Str("key", key[:12]).Msg("image cache hit")
		return img, nil
	case errors.Is(err, ErrNotFound):
		s.logger.Debug().Str("module", src.Name).Str("key", key[:12]).Msg("image cache miss")
	default:
		s.logger.Warn().Err(err).Str("module", src.Name).Msg("image cache entry dropped")
	}

	img, err = fe.Compile(src)
	if err != nil {
		return nil, err
	}
	if err := s.Put(ctx, key, img); err != nil {
		s.logger.Warn().Err(err).Str("module", src.Name).Msg("image not cached")
	}
	return img, nil
}
