package testevents

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/okian/capflow/pkg/logger"
)

var ErrInvalidConfig = errors.New("invalid test configuration")

// randomInt returns a uniform value in [0, n) using crypto/rand.
func randomInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// capabilityName returns the name of capability k.
func capabilityName(k int) string {
	return fmt.Sprintf("cap_%02d", k)
}

// Generate creates config.NumEvents records across config.Capabilities
// capabilities, tagging every message with runID. Records are generated
// concurrently and come back in timestamp order.
func Generate(ctx context.Context, config *Config, runID string) ([]Record, error) {
	if config.NumEvents <= 0 || config.Capabilities <= 0 {
		return nil, fmt.Errorf("%w: events %d, capabilities %d", ErrInvalidConfig, config.NumEvents, config.Capabilities)
	}
	types := config.Types
	if len(types) == 0 {
		types = DefaultTypes
	}
	logger.Get().Info(ctx, "generating capability events",
		logger.Int("numEvents", config.NumEvents),
		logger.Int("capabilities", config.Capabilities),
		logger.String("runID", runID))

	base := time.Now().Unix()
	records := make([]Record, config.NumEvents)

	type result struct {
		index  int
		record Record
		err    error
	}
	resultChan := make(chan result, config.NumEvents)

	workerCount := max(1, min(config.Workers, config.NumEvents))
	perWorker := config.NumEvents / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * perWorker
		end := start + perWorker
		if worker == workerCount-1 {
			end = config.NumEvents
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- result{index: i, err: ctx.Err()}
					return
				default:
					resultChan <- result{index: i, record: generateRecord(i, base, config.Capabilities, types, runID)}
				}
			}
		}(start, end)
	}

	for i := 0; i < config.NumEvents; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during event generation: %w", ctx.Err())
		case r := <-resultChan:
			if r.err != nil {
				return nil, fmt.Errorf("failed to generate event %d: %w", r.index, r.err)
			}
			records[r.index] = r.record
		}
	}

	logger.Get().Info(ctx, "generated events successfully", logger.Int("count", len(records)))
	return records, nil
}

// generateRecord builds record i. Timestamps increase strictly with i.
func generateRecord(i int, base int64, capabilities int, types []string, runID string) Record {
	offset := int64(i)*maxStepNanos + int64(randomInt(maxStepNanos))

	var r Record
	r.Topic = DefaultTopic
	r.Msg.Header.Stamp = Stamp{
		Secs:  base + offset/nanosPerSecond,
		Nsecs: offset % nanosPerSecond,
	}
	r.Msg.Source.Capability = capabilityName(randomInt(capabilities))
	if randomInt(selfLoopOneIn) != 0 {
		r.Msg.Target.Capability = capabilityName(randomInt(capabilities))
	}
	r.Msg.Target.Text = fmt.Sprintf("%s: run %s seq %d", types[randomInt(len(types))], runID, i)
	return r
}

// Expect derives what the service must report for records under the
// default view: every event counted once per directed pair.
func Expect(records []Record) Expectation {
	exp := Expectation{
		Events:       len(records),
		Types:        make(map[string]int),
		Pairs:        make(map[Pair]int),
		Capabilities: make(map[string]struct{}),
	}
	for _, r := range records {
		src, dst := r.Msg.Source.Capability, r.Msg.Target.Capability
		if dst == "" {
			dst = src
		}
		typ, _, _ := strings.Cut(r.Msg.Target.Text, ":")
		exp.Types[strings.TrimSpace(typ)]++
		exp.Pairs[Pair{Source: src, Target: dst}]++
		exp.Capabilities[src] = struct{}{}
		exp.Capabilities[dst] = struct{}{}
	}
	return exp
}

// MaxPairWeight is the largest per-pair event count.
func (e Expectation) MaxPairWeight() int {
	best := 0
	for _, w := range e.Pairs {
		best = max(best, w)
	}
	return best
}
