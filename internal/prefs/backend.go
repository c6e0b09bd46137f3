package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"cointrack/internal/model"
)

// MemoryBackend keeps values for the life of the process.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: map[string]string{}}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryBackend) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// FileBackend stores all keys in one JSON document. Writes go to a temp file
// that is renamed over the original.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (f *FileBackend) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := doc[key]
	return v, ok, nil
}

func (f *FileBackend) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read()
	if err != nil {
		// A corrupt document is replaced.
		doc = map[string]string{}
	}
	doc[key] = value
	return f.write(doc)
}

func (f *FileBackend) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences file: %w", err)
	}
	doc := map[string]string{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode preferences file: %w", err)
	}
	return doc, nil
}

func (f *FileBackend) write(doc map[string]string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preferences file: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*.json")
	if err != nil {
		return fmt.Errorf("create temp preferences file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp preferences file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp preferences file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace preferences file: %w", err)
	}
	return nil
}

// RedisBackend stores each key as a plain Redis string.
type RedisBackend struct {
	rds *redis.Redis
}

func NewRedisBackend(rds *redis.Redis) *RedisBackend {
	return &RedisBackend{rds: rds}
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	ok, err := r.rds.ExistsCtx(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	v, err := r.rds.GetCtx(ctx, key)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key, value string) error {
	return r.rds.SetCtx(ctx, key, value)
}

// SQLBackend stores keys in the preferences table.
type SQLBackend struct {
	model model.PreferencesModel
}

func NewSQLBackend(conn sqlx.SqlConn) *SQLBackend {
	return &SQLBackend{model: model.NewPreferencesModel(conn)}
}

// EnsureSchema creates the preferences table when missing.
func (s *SQLBackend) EnsureSchema(ctx context.Context) error {
	return s.model.EnsureSchema(ctx)
}

func (s *SQLBackend) Get(ctx context.Context, key string) (string, bool, error) {
	row, err := s.model.FindOne(ctx, key)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return "", false, nil
	case err != nil:
		return "", false, err
	default:
		return row.Value, true, nil
	}
}

func (s *SQLBackend) Set(ctx context.Context, key, value string) error {
	return s.model.Upsert(ctx, key, value)
}
