package service_test

import (
	"context"
	"errors"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	service "github.com/okian/capflow/internal/app"
	"github.com/okian/capflow/internal/domain/centrality"
	"github.com/okian/capflow/internal/domain/model"
	"github.com/okian/capflow/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func triangle(t *testing.T) model.Table {
	t.Helper()
	table, err := normalize.New().NormalizeJSON(context.Background(), triangleLog())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return table
}

func spanNames(sr *tracetest.SpanRecorder) []string {
	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	return names
}

func TestDefaultView(t *testing.T) {
	Convey("Given a normalized table", t, func() {
		table := triangle(t)
		v := service.DefaultView(table, 2)

		So(v.Types, ShouldResemble, []string{"ack", "cmd", "frame", "goal"})
		So(v.Window, ShouldResemble, model.Window{Lo: 0, Hi: 4})
		So(v.Cursor, ShouldEqual, 4)
		So(v.Pattern, ShouldBeEmpty)
		So(v.MinWeight, ShouldEqual, 2)
	})
}

func TestPipeline_Compute(t *testing.T) {
	Convey("Given a pipeline recording spans", t, func() {
		sr := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
		p := service.NewPipeline(service.WithTracerProvider(tp))
		table := triangle(t)

		Convey("When computing the default view", func() {
			snap, err := p.Compute(context.Background(), table, service.DefaultView(table, 1))

			Convey("Then the snapshot is complete", func() {
				So(err, ShouldBeNil)
				So(snap.Nodes, ShouldResemble, []string{"Base", "Camera", "NavRunner", "Planner"})
				So(snap.Summary.Edges, ShouldEqual, 4)
				So(snap.Summary.Events, ShouldEqual, 5)
				So(snap.PatternMode, ShouldEqual, "all")
				So(snap.Centrality.EigenvectorStatus, ShouldEqual, centrality.EigenConverged)
				So(snap.Density, ShouldAlmostEqual, 4.0/12.0)
				So(snap.Aggregates.TypeCounts[0].Type, ShouldEqual, "goal")
			})

			Convey("Then one span per stage is recorded under the pass", func() {
				So(spanNames(sr), ShouldResemble, []string{"filter", "build", "centrality", "report", "pass"})

				ended := sr.Ended()
				pass := ended[len(ended)-1]
				for _, s := range ended[:len(ended)-1] {
					So(s.Parent().SpanID(), ShouldEqual, pass.SpanContext().SpanID())
				}
			})
		})

		Convey("When the pattern is not a valid expression", func() {
			v := service.DefaultView(table, 1)
			v.Pattern = "nav("
			snap, err := p.Compute(context.Background(), table, v)

			Convey("Then it falls back to substring matching", func() {
				So(err, ShouldBeNil)
				So(snap.PatternMode, ShouldEqual, "substring")
				So(snap.Summary.Events, ShouldEqual, 0)
			})
		})

		Convey("When the cursor hides later events", func() {
			v := service.DefaultView(table, 1)
			v.Cursor = 2
			snap, err := p.Compute(context.Background(), table, v)

			So(err, ShouldBeNil)
			So(snap.Summary.Events, ShouldEqual, 3)
			So(snap.Summary.Cursor, ShouldEqual, 2)
			So(snap.Summary.TotalEvents, ShouldEqual, 5)
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			snap, err := p.Compute(ctx, table, service.DefaultView(table, 1))

			Convey("Then no partial snapshot is returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(snap.Graph, ShouldBeNil)
				So(snap.Nodes, ShouldBeNil)
			})
		})

		Convey("When building the graph only", func() {
			g, sel, err := p.Graph(context.Background(), table, service.DefaultView(table, 2))

			So(err, ShouldBeNil)
			So(sel.Events, ShouldHaveLength, 5)
			So(g.EdgeCount(), ShouldEqual, 1)
		})
	})
}
