// Package filestore persists one YAML file per identity record in a single
// directory: <key>.yml, where key is a normalized email or demo username.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/baechuer/account-service/internal/domain"
	"github.com/baechuer/account-service/internal/logger"
)

const ext = ".yml"

// Store has no locking. Concurrent writers on the same key race and the last
// rename wins.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("filestore: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// path maps a key onto a file inside dir. Anything that could escape the
// directory, or land in a hidden file Keys would never list, is rejected.
func (s *Store) path(key string) (string, error) {
	key = domain.Normalize(key)
	switch {
	case key == "":
		return "", domain.ErrInvalidField("key", "empty")
	case strings.ContainsAny(key, "/\\\x00"):
		return "", domain.ErrInvalidField("key", "illegal character")
	case strings.HasPrefix(key, "."), strings.Contains(key, ".."):
		return "", domain.ErrInvalidField("key", "illegal sequence")
	}
	return filepath.Join(s.dir, key+ext), nil
}

// lookupPath is path for reads, updates and deletes: no record can live under an
// unusable key, so it is simply not found.
func (s *Store) lookupPath(key string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", domain.ErrUserNotFound()
	}
	return p, nil
}

func (s *Store) Get(ctx context.Context, key string) (domain.Record, error) {
	p, err := s.lookupPath(key)
	if err != nil {
		return domain.Record{}, err
	}
	return s.read(p, domain.Normalize(key))
}

func (s *Store) read(p, key string) (domain.Record, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Record{}, domain.ErrUserNotFound()
		}
		return domain.Record{}, fmt.Errorf("read %s: %w", key, err)
	}

	var rec domain.Record
	if err := yaml.Unmarshal(b, &rec); err != nil {
		return domain.Record{}, domain.ErrRecordCorrupt(key, err)
	}
	return rec, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.lookupPath(key)
	if err != nil {
		return false, nil
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
}

// FindByField reads every record file (O(n)). Unparseable files are logged
// and skipped.
func (s *Store) FindByField(ctx context.Context, field, value string) (domain.Record, error) {
	if _, ok := (domain.Record{}).Field(field); !ok {
		return domain.Record{}, domain.ErrInvalidField("field", "unsupported")
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		return domain.Record{}, err
	}
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return domain.Record{}, err
		}
		rec, err := s.read(filepath.Join(s.dir, k+ext), k)
		if err != nil {
			if domain.Is(err, "user_not_found") {
				continue // removed mid-scan
			}
			logger.WithCtx(ctx).Warn().Err(err).Str("key", k).Msg("skipping unreadable record")
			continue
		}
		v, _ := rec.Field(field)
		if strings.EqualFold(v, value) {
			return rec, nil
		}
	}
	return domain.Record{}, domain.ErrUserNotFound()
}

func (s *Store) Create(ctx context.Context, key string, rec domain.Record) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	b, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return domain.ErrRecordExists(domain.Normalize(key))
		}
		return fmt.Errorf("create %s: %w", key, err)
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(p)
		return fmt.Errorf("close %s: %w", key, err)
	}
	return nil
}

// Update replaces an existing record through a temp file and rename, so a
// reader never sees a half-written file.
func (s *Store) Update(ctx context.Context, key string, rec domain.Record) error {
	p, err := s.lookupPath(key)
	if err != nil {
		return err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrUserNotFound()
		}
		return fmt.Errorf("stat %s: %w", key, err)
	}

	b, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", key, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	p, err := s.lookupPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrUserNotFound()
		}
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys lists record keys. Temp files and foreign files are ignored.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ext))
	}
	return keys, nil
}

// Ping checks that the directory is still writable. Used by /readyz.
func (s *Store) Ping(ctx context.Context) error {
	f, err := os.CreateTemp(s.dir, ".ready-*")
	if err != nil {
		return fmt.Errorf("filestore not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
