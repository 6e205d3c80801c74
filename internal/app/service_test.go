package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/capflow/internal/adapters/repository"
	service "github.com/okian/capflow/internal/app"
	"github.com/okian/capflow/internal/domain/centrality"
	"github.com/okian/capflow/internal/domain/normalize"
	"github.com/okian/capflow/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func started(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(
			service.WithDatasetCapacity(4),
			service.WithDefaultMinWeight(2),
			service.WithEigenvector(50, 1e-5),
		)

		Convey("When it has not been started", func() {
			_, err := svc.Ingest(context.Background(), "", pingLog())

			Convey("Then dataset operations are refused", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When starting and stopping", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["datasetCapacity"], ShouldEqual, 4)
			So(stats["datasets"], ShouldEqual, 0)

			svc.Stop()
			svc.Stop()
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_Ingest(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := started(t)
		defer svc.Stop()
		ctx := context.Background()

		Convey("When ingesting the ping log", func() {
			info, err := svc.Ingest(ctx, "ping.json", pingLog())

			Convey("Then the dataset is described", func() {
				So(err, ShouldBeNil)
				So(info.ID, ShouldNotBeEmpty)
				So(info.Name, ShouldEqual, "ping.json")
				So(info.Events, ShouldEqual, 2)
				So(info.Types, ShouldResemble, []string{"ping"})
				So(info.Span.Lo, ShouldEqual, 0)
				So(info.Span.Hi, ShouldEqual, 1)
				So(info.MaxPairWeight, ShouldEqual, 2)
				So(info.Empty, ShouldBeFalse)
				So(info.Duplicate, ShouldBeFalse)
			})

			Convey("And ingesting it again returns the same dataset", func() {
				again, err := svc.Ingest(ctx, "copy.json", pingLog())
				So(err, ShouldBeNil)
				So(again.ID, ShouldEqual, info.ID)
				So(again.Duplicate, ShouldBeTrue)

				list, err := svc.List(ctx)
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 1)
			})

			Convey("And deleting it removes it", func() {
				So(svc.Delete(ctx, info.ID), ShouldBeNil)
				_, err := svc.Dataset(ctx, info.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When ingesting an empty array", func() {
			info, err := svc.Ingest(ctx, "", []byte(`[]`))

			Convey("Then an empty dataset is stored", func() {
				So(err, ShouldBeNil)
				So(info.Empty, ShouldBeTrue)
				So(info.Events, ShouldEqual, 0)

				v, err := svc.DefaultView(ctx, info.ID)
				So(err, ShouldBeNil)
				snap, err := svc.Snapshot(ctx, info.ID, v)
				So(err, ShouldBeNil)
				So(snap.Summary.Nodes, ShouldEqual, 0)
				So(snap.Summary.Edges, ShouldEqual, 0)
				So(snap.Centrality.EigenvectorStatus, ShouldEqual, centrality.EigenEmpty)
			})
		})

		Convey("When ingesting malformed input", func() {
			_, err := svc.Ingest(ctx, "", []byte(`{"topic":"x"}`))

			Convey("Then the error is a malformed input error", func() {
				So(errors.Is(err, normalize.ErrMalformedInput), ShouldBeTrue)
				list, _ := svc.List(ctx)
				So(list, ShouldBeEmpty)
			})
		})
	})
}

func TestService_Passes(t *testing.T) {
	Convey("Given the ping dataset", t, func() {
		svc := started(t)
		defer svc.Stop()
		ctx := context.Background()
		info, err := svc.Ingest(ctx, "", pingLog())
		So(err, ShouldBeNil)

		v, err := svc.DefaultView(ctx, info.ID)
		So(err, ShouldBeNil)

		Convey("When the threshold is 2", func() {
			v.MinWeight = 2
			snap, err := svc.Snapshot(ctx, info.ID, v)

			Convey("Then one weighted edge remains", func() {
				So(err, ShouldBeNil)
				So(snap.Nodes, ShouldResemble, []string{"A", "B"})
				So(snap.Edges, ShouldHaveLength, 1)
				So(snap.Edges[0].Weight, ShouldEqual, 2)
				So(snap.Summary.Events, ShouldEqual, 2)
				So(snap.Summary.TotalEvents, ShouldEqual, 2)
			})
		})

		Convey("When the threshold is 3", func() {
			v.MinWeight = 3
			snap, err := svc.Snapshot(ctx, info.ID, v)

			Convey("Then the graph is empty but the events are still counted", func() {
				So(err, ShouldBeNil)
				So(snap.Nodes, ShouldBeEmpty)
				So(snap.Summary.Events, ShouldEqual, 2)
			})
		})

		Convey("When asking for paths", func() {
			path, err := svc.ShortestPath(ctx, info.ID, v, "A", "B")
			So(err, ShouldBeNil)
			So(path, ShouldResemble, []string{"A", "B"})

			_, err = svc.ShortestPath(ctx, info.ID, v, "B", "A")
			So(errors.Is(err, centrality.ErrNoPath), ShouldBeTrue)

			_, err = svc.ShortestPath(ctx, info.ID, v, "A", "Z")
			So(errors.Is(err, centrality.ErrNodeNotFound), ShouldBeTrue)
		})

		Convey("When inspecting a node", func() {
			node, err := svc.Inspect(ctx, info.ID, v, "A")
			So(err, ShouldBeNil)
			So(node.OutDegree, ShouldEqual, 1)
			So(node.Successors, ShouldResemble, []string{"B"})
		})

		Convey("When reading events", func() {
			all, err := svc.Events(ctx, info.ID, nil)
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 2)

			v.Cursor = 0
			some, err := svc.Events(ctx, info.ID, &v)
			So(err, ShouldBeNil)
			So(some, ShouldHaveLength, 1)
		})

		Convey("When the dataset is unknown", func() {
			_, err := svc.Snapshot(ctx, "missing", v)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then passes are counted", func() {
			_, _ = svc.Snapshot(ctx, info.ID, v)
			So(svc.GetStats()["passes"], ShouldBeGreaterThanOrEqualTo, int64(1))
		})
	})
}
