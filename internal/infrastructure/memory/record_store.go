package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/baechuer/account-service/internal/domain"
)

// RecordStore keeps records in a map. Nothing survives a restart.
// The mutex only keeps the map memory-safe; check-then-act in the service
// stays racy exactly like the file store.
type RecordStore struct {
	mu   sync.RWMutex
	byID map[string]domain.Record
}

func NewRecordStore() *RecordStore {
	return &RecordStore{byID: make(map[string]domain.Record)}
}

func (s *RecordStore) Get(ctx context.Context, key string) (domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[domain.Normalize(key)]
	if !ok {
		return domain.Record{}, domain.ErrUserNotFound()
	}
	return rec, nil
}

func (s *RecordStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byID[domain.Normalize(key)]
	return ok, nil
}

func (s *RecordStore) FindByField(ctx context.Context, field, value string) (domain.Record, error) {
	if _, ok := (domain.Record{}).Field(field); !ok {
		return domain.Record{}, domain.ErrInvalidField("field", "unsupported")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.byID {
		v, _ := rec.Field(field)
		if strings.EqualFold(v, value) {
			return rec, nil
		}
	}
	return domain.Record{}, domain.ErrUserNotFound()
}

func (s *RecordStore) Create(ctx context.Context, key string, rec domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = domain.Normalize(key)
	if key == "" {
		return domain.ErrInvalidField("key", "empty")
	}
	if _, exists := s.byID[key]; exists {
		return domain.ErrRecordExists(key)
	}
	s.byID[key] = rec
	return nil
}

func (s *RecordStore) Update(ctx context.Context, key string, rec domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = domain.Normalize(key)
	if _, ok := s.byID[key]; !ok {
		return domain.ErrUserNotFound()
	}
	s.byID[key] = rec
	return nil
}

func (s *RecordStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = domain.Normalize(key)
	if _, ok := s.byID[key]; !ok {
		return domain.ErrUserNotFound()
	}
	delete(s.byID, key)
	return nil
}

func (s *RecordStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.byID))
	for k := range s.byID {
		keys = append(keys, k)
	}
	return keys, nil
}
