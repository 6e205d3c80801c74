package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/capflow/internal/domain/centrality"
	"github.com/okian/capflow/internal/domain/filter"
	"github.com/okian/capflow/internal/domain/graph"
	"github.com/okian/capflow/internal/domain/model"
	"github.com/okian/capflow/internal/domain/report"
	"github.com/okian/capflow/pkg/logger"
	"github.com/okian/capflow/pkg/metrics"
)

const tracerName = "github.com/okian/capflow/internal/app"

// Snapshot is the complete result of one pass.
type Snapshot struct {
	View        model.View        `json:"view"`
	Summary     report.Summary    `json:"summary"`
	PatternMode string            `json:"pattern_mode"`
	Nodes       []string          `json:"nodes"`
	Edges       graph.EdgeTable   `json:"edges"`
	Centrality  centrality.Map    `json:"centrality"`
	Density     float64           `json:"density"`
	Aggregates  report.Aggregates `json:"aggregates"`

	// Events are the filtered rows the graph was built from.
	Events model.Table  `json:"-"`
	Graph  *graph.Graph `json:"-"`
}

// Pipeline runs filter, build, centrality and report stages over a table.
// It holds no per-pass state and is safe for concurrent use.
type Pipeline struct {
	engine *centrality.Engine
	tracer trace.Tracer
	log    logger.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithEngine sets the centrality engine.
func WithEngine(e *centrality.Engine) PipelineOption {
	return func(p *Pipeline) {
		if e != nil {
			p.engine = e
		}
	}
}

// WithTracerProvider sets the provider pass spans are recorded on.
func WithTracerProvider(tp trace.TracerProvider) PipelineOption {
	return func(p *Pipeline) {
		if tp != nil {
			p.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithPipelineLogger sets the pipeline logger.
func WithPipelineLogger(l logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPipeline creates a Pipeline.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		engine: centrality.New(),
		tracer: otel.Tracer(tracerName),
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DefaultView selects every type over the full span of t with the cursor at
// the end, the view a fresh dashboard starts from.
func DefaultView(t model.Table, minWeight int) model.View {
	span := t.Span()
	return model.View{
		Types:     t.Types(),
		Window:    span,
		Cursor:    span.Hi,
		MinWeight: minWeight,
	}
}

// Graph runs the filter and build stages only.
func (p *Pipeline) Graph(ctx context.Context, t model.Table, v model.View) (*graph.Graph, filter.Result, error) {
	ctx, span := p.tracer.Start(ctx, "graph")
	defer span.End()

	sel, err := p.filter(ctx, t, v)
	if err != nil {
		return nil, sel, fail(span, err)
	}
	g, _, err := p.build(ctx, sel.Events, v.MinWeight)
	if err != nil {
		return nil, sel, fail(span, err)
	}
	return g, sel, nil
}

// Compute runs one full pass. It returns an error only when ctx is done;
// partial snapshots are never returned.
func (p *Pipeline) Compute(ctx context.Context, t model.Table, v model.View) (Snapshot, error) {
	ctx, span := p.tracer.Start(ctx, "pass", trace.WithAttributes(
		attribute.Int("events.total", len(t)),
		attribute.Int("view.min_weight", v.MinWeight),
		attribute.Float64("view.cursor", v.Cursor),
	))
	defer span.End()

	sel, err := p.filter(ctx, t, v)
	if err != nil {
		return Snapshot{}, fail(span, err)
	}

	g, edges, err := p.build(ctx, sel.Events, v.MinWeight)
	if err != nil {
		return Snapshot{}, fail(span, err)
	}

	m, density, err := p.measure(ctx, g)
	if err != nil {
		return Snapshot{}, fail(span, err)
	}

	agg, err := p.report(ctx, sel.Events, g, edges, m)
	if err != nil {
		return Snapshot{}, fail(span, err)
	}

	snap := Snapshot{
		View:        v,
		Summary:     report.Summarize(len(t), sel.Events, g, density, v.Cursor),
		PatternMode: sel.Matcher.Mode.String(),
		Nodes:       g.Nodes(),
		Edges:       edges,
		Centrality:  m,
		Density:     density,
		Aggregates:  agg,
		Events:      sel.Events,
		Graph:       g,
	}

	metrics.RecordPipelinePass()
	metrics.UpdateGraphSize(g.NodeCount(), g.EdgeCount())
	span.SetAttributes(
		attribute.Int("events.selected", len(sel.Events)),
		attribute.Int("graph.nodes", g.NodeCount()),
		attribute.Int("graph.edges", g.EdgeCount()),
	)
	p.log.Debug(ctx, "pass complete",
		logger.Int("events", len(sel.Events)),
		logger.Int("nodes", g.NodeCount()),
		logger.Int("edges", g.EdgeCount()),
	)
	return snap, nil
}

func (p *Pipeline) filter(ctx context.Context, t model.Table, v model.View) (filter.Result, error) {
	if err := ctx.Err(); err != nil {
		return filter.Result{}, err
	}
	_, span := p.tracer.Start(ctx, metrics.StageFilter)
	defer span.End()
	defer observe(metrics.StageFilter, time.Now())

	sel := filter.Select(t, v)
	if sel.Matcher.Fallback() {
		metrics.RecordPatternFallback()
		span.AddEvent("pattern fallback", trace.WithAttributes(attribute.String("pattern", v.Pattern)))
		p.log.Debug(ctx, "pattern is not a valid expression; matching as substring",
			logger.String("pattern", v.Pattern),
			logger.Error(sel.Matcher.CompileErr),
		)
	}
	span.SetAttributes(attribute.Int("events.selected", len(sel.Events)))
	return sel, nil
}

func (p *Pipeline) build(ctx context.Context, events model.Table, minWeight int) (*graph.Graph, graph.EdgeTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	_, span := p.tracer.Start(ctx, metrics.StageBuild)
	defer span.End()
	defer observe(metrics.StageBuild, time.Now())

	g, edges := graph.Build(events, minWeight)
	return g, edges, nil
}

func (p *Pipeline) measure(ctx context.Context, g *graph.Graph) (centrality.Map, float64, error) {
	if err := ctx.Err(); err != nil {
		return centrality.Map{}, 0, err
	}
	_, span := p.tracer.Start(ctx, metrics.StageCentrality)
	defer span.End()
	defer observe(metrics.StageCentrality, time.Now())

	m := p.engine.Compute(g)
	span.SetAttributes(
		attribute.String("eigenvector.status", string(m.EigenvectorStatus)),
		attribute.Int("eigenvector.iterations", m.EigenIterations),
	)
	if m.EigenvectorStatus.Fallback() {
		metrics.RecordEigenvectorFallback(string(m.EigenvectorStatus))
		p.log.Debug(ctx, "eigenvector centrality replaced by zeros",
			logger.String("status", string(m.EigenvectorStatus)),
		)
	}
	return m, centrality.Density(g), nil
}

func (p *Pipeline) report(ctx context.Context, events model.Table, g *graph.Graph, edges graph.EdgeTable, m centrality.Map) (report.Aggregates, error) {
	if err := ctx.Err(); err != nil {
		return report.Aggregates{}, err
	}
	_, span := p.tracer.Start(ctx, metrics.StageReport)
	defer span.End()
	defer observe(metrics.StageReport, time.Now())

	return report.Build(events, g, edges, m), nil
}

func observe(stage string, start time.Time) {
	metrics.RecordStageDuration(stage, float64(time.Since(start).Microseconds())/1000)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
