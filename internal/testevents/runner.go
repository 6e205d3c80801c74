package testevents

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/okian/capflow/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	outputPermission    = 0600
)

// Run executes the complete event test: generate a log, save it, and when a
// base URL is configured upload it and verify what the service derives.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		RunID:     uuid.New().String(),
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting capflow event test",
		logger.String("runID", stats.RunID),
		logger.String("baseURL", config.BaseURL),
		logger.Int("events", config.NumEvents),
		logger.Int("capabilities", config.Capabilities),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Bool("verbose", config.Verbose))

	records, err := Generate(ctx, config, stats.RunID)
	if err != nil {
		return fmt.Errorf("event generation failed: %w", err)
	}
	stats.EventsGenerated = len(records)
	exp := Expect(records)

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode events: %w", err)
	}
	filename, err := saveEventsToFile(config.OutputFile, data)
	if err != nil {
		logger.Get().Warn(ctx, "failed to save events to file", logger.Error(err))
	} else {
		logger.Get().Info(ctx, "events saved to file", logger.String("filename", filename))
	}

	if config.BaseURL != "" {
		if err := verifyService(ctx, config, data, exp, stats); err != nil {
			return err
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

func verifyService(ctx context.Context, config *Config, data []byte, exp Expectation, stats *Stats) error {
	client := newHTTPClient(config.BaseURL, config.Timeout)

	if err := client.checkHealth(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	name := "test-events-" + stats.RunID + ".json"
	info, err := client.upload(ctx, name, data)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	stats.Uploads++
	if err := verifyUpload(exp, info); err != nil {
		return fmt.Errorf("upload verification failed: %w", err)
	}

	// Identical content must resolve to the same dataset.
	again, err := client.upload(ctx, name, data)
	if err != nil {
		return fmt.Errorf("repeat upload failed: %w", err)
	}
	stats.Uploads++
	if !again.Duplicate || again.ID != info.ID {
		return fmt.Errorf("%w: repeat upload returned id %s duplicate=%t, expected %s", ErrMismatch, again.ID, again.Duplicate, info.ID)
	}
	stats.Duplicates++

	snap, err := client.snapshot(ctx, info.ID)
	if err != nil {
		return fmt.Errorf("snapshot retrieval failed: %w", err)
	}
	if err := verifySnapshot(exp, snap); err != nil {
		return fmt.Errorf("snapshot verification failed: %w", err)
	}

	nodes := inspectNodes(ctx, config, client, info.ID, snap.Nodes, stats)
	if err := verifyNodes(exp, nodes); err != nil {
		return fmt.Errorf("node verification failed: %w", err)
	}
	if stats.NodesFailed > 0 {
		return fmt.Errorf("%w: %d node lookups failed", ErrMismatch, stats.NodesFailed)
	}
	return nil
}

// saveEventsToFile writes the generated log and returns the file name used.
func saveEventsToFile(filename string, data []byte) (string, error) {
	if filename == "" {
		filename = "generated_events_" + time.Now().Format("20060102_150405") + ".json"
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(filename, data, outputPermission); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return filename, nil
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var eventsPerSecond float64
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsGenerated) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.String("runID", stats.RunID),
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("uploads", stats.Uploads),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("nodesInspected", stats.NodesInspected),
		logger.Int("nodesFailed", stats.NodesFailed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
