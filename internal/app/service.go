// Package service provides the dataset service behind the HTTP API and CLI:
// ingestion into the working set and recomputation passes over stored tables.
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/capflow/internal/adapters/repository"
	"github.com/okian/capflow/internal/domain/centrality"
	"github.com/okian/capflow/internal/domain/model"
	"github.com/okian/capflow/internal/domain/normalize"
	"github.com/okian/capflow/pkg/logger"
	"github.com/okian/capflow/pkg/metrics"
)

// DatasetInfo describes a stored dataset.
type DatasetInfo struct {
	ID            string       `json:"id"`
	Name          string       `json:"name,omitempty"`
	Events        int          `json:"events"`
	Types         []string     `json:"types"`
	Span          model.Window `json:"span"`
	MaxPairWeight int          `json:"max_pair_weight"`
	Empty         bool         `json:"empty"`
	Duplicate     bool         `json:"duplicate"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Service implements the API dependencies for the analytics system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	normalizer *normalize.Normalizer
	pipeline   *Pipeline

	// Configuration
	capacity         int
	defaultMinWeight int
	topic            string
	typeMaxLen       int
	engineOpts       []centrality.Option
	tracerProvider   trace.TracerProvider

	// State
	started   bool
	ingested  atomic.Int64
	passes    atomic.Int64
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a dataset store. By default Start creates a MemoryStore.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDatasetCapacity bounds the default store.
func WithDatasetCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithDefaultMinWeight sets the threshold used by DefaultView.
func WithDefaultMinWeight(w int) Option {
	return func(s *Service) {
		if w > 0 {
			s.defaultMinWeight = w
		}
	}
}

// WithTopic sets the raw record topic kept on ingest.
func WithTopic(topic string) Option {
	return func(s *Service) {
		if topic != "" {
			s.topic = topic
		}
	}
}

// WithTypeMaxLen caps derived event types.
func WithTypeMaxLen(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.typeMaxLen = n
		}
	}
}

// WithEigenvector tunes eigenvector power iteration.
func WithEigenvector(maxIter int, tol float64) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, centrality.WithMaxIterations(maxIter), centrality.WithTolerance(tol))
	}
}

// WithTracing records pass spans on tp instead of the global provider.
func WithTracing(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracerProvider = tp
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		capacity:         32,
		defaultMinWeight: 1,
		topic:            normalize.DefaultTopic,
		typeMaxLen:       normalize.DefaultTypeMaxLen,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting analytics service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(
			repository.WithCapacity(s.capacity),
			repository.WithLogger(s.logger.Named("repository")),
		)
	}
	s.normalizer = normalize.New(
		normalize.WithTopic(s.topic),
		normalize.WithTypeMaxLen(s.typeMaxLen),
		normalize.WithLogger(s.logger.Named("normalize")),
	)
	s.pipeline = NewPipeline(
		WithEngine(centrality.New(s.engineOpts...)),
		WithTracerProvider(s.tracerProvider),
		WithPipelineLogger(s.logger.Named("pipeline")),
	)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "analytics service started",
		logger.Int("datasetCapacity", s.capacity),
		logger.Int("defaultMinWeight", s.defaultMinWeight),
		logger.String("topic", s.topic),
	)

	return nil
}

// Stop shuts the service down. Stored datasets are kept for a later Start.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "analytics service stopped")
}

func (s *Service) components() (repository.Store, *normalize.Normalizer, *Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, nil, ErrNotStarted
	}
	return s.store, s.normalizer, s.pipeline, nil
}

// Ingest normalizes a raw JSON upload and stores it. Identical content
// returns the stored dataset with Duplicate set.
func (s *Service) Ingest(ctx context.Context, name string, data []byte) (DatasetInfo, error) {
	store, norm, p, err := s.components()
	if err != nil {
		return DatasetInfo{}, err
	}

	ctx, span := p.tracer.Start(ctx, "ingest", trace.WithAttributes(attribute.Int("bytes", len(data))))
	defer span.End()

	table, err := s.normalize(ctx, p, norm, data)
	if err != nil {
		if errors.Is(err, normalize.ErrMalformedInput) {
			metrics.RecordMalformedInput()
			metrics.RecordErrorByComponent("normalize", "malformed_input")
		}
		s.logger.Warn(ctx, "ingest rejected", logger.Error(err))
		return DatasetInfo{}, fail(span, err)
	}

	ds, dup, err := store.Put(ctx, name, data, table)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "put_failed")
		return DatasetInfo{}, fail(span, err)
	}
	if !dup {
		s.ingested.Add(1)
		metrics.RecordEventsNormalized(len(table))
	}

	info := Info(ds)
	info.Duplicate = dup
	span.SetAttributes(attribute.String("dataset.id", ds.ID), attribute.Bool("dataset.duplicate", dup))
	s.logger.Info(ctx, "dataset ingested",
		logger.String("dataset", ds.ID),
		logger.Int("events", info.Events),
		logger.Bool("duplicate", dup),
	)
	return info, nil
}

func (s *Service) normalize(ctx context.Context, p *Pipeline, norm *normalize.Normalizer, data []byte) (model.Table, error) {
	ctx, span := p.tracer.Start(ctx, metrics.StageNormalize)
	defer span.End()
	defer observe(metrics.StageNormalize, time.Now())

	table, err := norm.NormalizeJSON(ctx, data)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int("events", len(table)))
	return table, nil
}

// Info summarizes a stored dataset.
func Info(ds repository.Dataset) DatasetInfo {
	return DatasetInfo{
		ID:            ds.ID,
		Name:          ds.Name,
		Events:        len(ds.Table),
		Types:         ds.Table.Types(),
		Span:          ds.Table.Span(),
		MaxPairWeight: ds.Table.MaxPairWeight(),
		Empty:         ds.Table.Empty(),
		CreatedAt:     ds.CreatedAt,
	}
}

// List returns every stored dataset, oldest first.
func (s *Service) List(ctx context.Context) ([]DatasetInfo, error) {
	store, _, _, err := s.components()
	if err != nil {
		return nil, err
	}
	all := store.List(ctx)
	out := make([]DatasetInfo, len(all))
	for i, ds := range all {
		out[i] = Info(ds)
	}
	return out, nil
}

// Dataset returns a stored dataset.
func (s *Service) Dataset(ctx context.Context, id string) (repository.Dataset, error) {
	store, _, _, err := s.components()
	if err != nil {
		return repository.Dataset{}, err
	}
	return store.Get(ctx, id)
}

// Delete removes a dataset.
func (s *Service) Delete(ctx context.Context, id string) error {
	store, _, _, err := s.components()
	if err != nil {
		return err
	}
	return store.Delete(ctx, id)
}

// DefaultView returns the starting view of a dataset.
func (s *Service) DefaultView(ctx context.Context, id string) (model.View, error) {
	ds, err := s.Dataset(ctx, id)
	if err != nil {
		return model.View{}, err
	}
	return DefaultView(ds.Table, s.defaultMinWeight), nil
}

// Snapshot runs one full pass over a dataset.
func (s *Service) Snapshot(ctx context.Context, id string, v model.View) (Snapshot, error) {
	store, _, p, err := s.components()
	if err != nil {
		return Snapshot{}, err
	}
	ds, err := store.Get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := p.Compute(ctx, ds.Table, v)
	if err != nil {
		return Snapshot{}, err
	}
	s.passes.Add(1)
	return snap, nil
}

// ShortestPath finds the hop-minimal path between two capabilities in the
// graph built from v.
func (s *Service) ShortestPath(ctx context.Context, id string, v model.View, src, dst string) ([]string, error) {
	store, _, p, err := s.components()
	if err != nil {
		return nil, err
	}
	ds, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	g, _, err := p.Graph(ctx, ds.Table, v)
	if err != nil {
		return nil, err
	}
	path, err := centrality.ShortestPath(g, src, dst)
	if errors.Is(err, centrality.ErrNoPath) {
		metrics.RecordNoPath()
	}
	return path, err
}

// Inspect returns the metrics of one capability under v.
func (s *Service) Inspect(ctx context.Context, id string, v model.View, node string) (centrality.NodeInfo, error) {
	snap, err := s.Snapshot(ctx, id, v)
	if err != nil {
		return centrality.NodeInfo{}, err
	}
	return centrality.Inspect(snap.Graph, snap.Centrality, node)
}

// Events returns the rows of a dataset selected by v, or every row when v is nil.
func (s *Service) Events(ctx context.Context, id string, v *model.View) (model.Table, error) {
	store, _, p, err := s.components()
	if err != nil {
		return nil, err
	}
	ds, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return ds.Table, nil
	}
	sel, err := p.filter(ctx, ds.Table, *v)
	if err != nil {
		return nil, err
	}
	return sel.Events, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"datasetCapacity":  s.capacity,
		"defaultMinWeight": s.defaultMinWeight,
		"ingested":         s.ingested.Load(),
		"passes":           s.passes.Load(),
	}

	if s.started {
		count := s.store.Count(context.Background())
		stats["datasets"] = count
		stats["uptimeSeconds"] = time.Since(s.startedAt).Seconds()
		metrics.UpdateDatasetsStored(count)
	}

	return stats
}
