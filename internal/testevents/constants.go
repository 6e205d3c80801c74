package testevents

// DefaultTopic is the topic the service keeps by default.
const DefaultTopic = "/capabilities/events"

// DefaultTypes are used when no types are configured.
var DefaultTypes = []string{"request", "response", "status", "error", "heartbeat"}

// Generator constants.
const (
	// selfLoopOneIn makes roughly one event in this many omit its target.
	selfLoopOneIn = 20
	// maxStepNanos bounds the random gap between consecutive events.
	maxStepNanos   = 250_000_000
	nanosPerSecond = 1_000_000_000
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)
