package testevents

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/okian/capflow/pkg/logger"
)

// inspectNodes fetches inspector info for every node concurrently. Failed
// lookups are counted and logged; the returned map holds the successes.
func inspectNodes(ctx context.Context, config *Config, client *HTTPClient, id string, nodes []string, stats *Stats) map[string]NodeInfo {
	logger.Get().Info(ctx, "inspecting nodes",
		logger.Int("nodes", len(nodes)),
		logger.Int("workers", config.Workers))

	results := make([]NodeInfo, len(nodes))
	ok := make([]bool, len(nodes))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, config.Workers))
	for i, name := range nodes {
		g.Go(func() error {
			info, err := client.node(gctx, id, name)
			if err != nil {
				failed.Add(1)
				if config.Verbose {
					logger.Get().Warn(gctx, "node lookup failed", logger.String("node", name), logger.Error(err))
				}
				return nil
			}
			results[i], ok[i] = info, true
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]NodeInfo, len(nodes))
	for i, name := range nodes {
		if ok[i] {
			out[name] = results[i]
		}
	}
	stats.NodesInspected = len(out)
	stats.NodesFailed = int(failed.Load())
	return out
}
