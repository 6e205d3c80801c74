package repository

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/okian/capflow/internal/domain/model"
	"github.com/okian/capflow/pkg/logger"
	"github.com/okian/capflow/pkg/metrics"
)

const defaultCapacity = 32

type contentKey struct {
	sum  uint64
	size int
}

// MemoryStore is a bounded Store. When full, the oldest dataset is evicted.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]*list.Element
	byKey    map[contentKey]string
	order    *list.List // of *Dataset, oldest at front
	capacity int

	now   func() time.Time
	newID func() string
	log   logger.Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:     make(map[string]*list.Element),
		byKey:    make(map[contentKey]string),
		order:    list.New(),
		capacity: defaultCapacity,
		now:      time.Now,
		newID:    uuid.NewString,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fingerprint hashes uploaded content for duplicate detection.
func Fingerprint(content []byte) uint64 {
	return xxhash.Sum64(content)
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, name string, content []byte, table model.Table) (Dataset, bool, error) {
	if content == nil {
		return Dataset{}, false, fmt.Errorf("%w: content is required", ErrInvalidTable)
	}
	key := contentKey{sum: Fingerprint(content), size: len(content)}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byKey[key]; ok {
		metrics.RecordDatasetDuplicate()
		return *s.byID[id].Value.(*Dataset), true, nil
	}

	for s.order.Len() >= s.capacity {
		s.evictOldest(ctx)
	}

	ds := &Dataset{
		ID:          s.newID(),
		Name:        name,
		Fingerprint: key.sum,
		Size:        key.size,
		Table:       table.Clone(),
		CreatedAt:   s.now(),
	}
	s.byID[ds.ID] = s.order.PushBack(ds)
	s.byKey[key] = ds.ID
	metrics.UpdateDatasetsStored(s.order.Len())

	s.log.Debug(ctx, "dataset stored",
		logger.String("dataset", ds.ID),
		logger.Int("events", len(ds.Table)),
	)
	return *ds, false, nil
}

// evictOldest drops the front of the order list. Callers hold s.mu.
func (s *MemoryStore) evictOldest(ctx context.Context) {
	front := s.order.Front()
	if front == nil {
		return
	}
	ds := front.Value.(*Dataset)
	s.remove(front)
	metrics.RecordDatasetEvicted()
	s.log.Info(ctx, "dataset evicted", logger.String("dataset", ds.ID))
}

func (s *MemoryStore) remove(e *list.Element) {
	ds := s.order.Remove(e).(*Dataset)
	delete(s.byID, ds.ID)
	delete(s.byKey, contentKey{sum: ds.Fingerprint, size: ds.Size})
	metrics.UpdateDatasetsStored(s.order.Len())
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[id]
	if !ok {
		return Dataset{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *e.Value.(*Dataset), nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) []Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Dataset, 0, s.order.Len())
	for e := s.order.Front(); e != nil; e = e.Next() {
		out = append(out, *e.Value.(*Dataset))
	}
	return out
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.remove(e)
	s.log.Debug(ctx, "dataset deleted", logger.String("dataset", id))
	return nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len()
}
