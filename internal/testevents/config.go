package testevents

import "time"

// Config holds configuration for the event test
type Config struct {
	BaseURL      string        // Base URL of the service; empty only writes the log
	NumEvents    int           // Number of events to generate
	Capabilities int           // Number of distinct capabilities
	Types        []string      // Event types drawn from for message text
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	OutputFile   string        // Output file for the generated log
	LogFile      string        // Log file for test output
	Verbose      bool          // Enable verbose logging
}

// Stamp is a ROS style time stamp.
type Stamp struct {
	Secs  int64 `json:"secs"`
	Nsecs int64 `json:"nsecs"`
}

// Endpoint is one side of a capability message.
type Endpoint struct {
	Capability string `json:"capability"`
	Text       string `json:"text,omitempty"`
}

// Message is the payload of a raw record.
type Message struct {
	Header struct {
		Stamp Stamp `json:"stamp"`
	} `json:"header"`
	Source Endpoint `json:"source"`
	Target Endpoint `json:"target"`
}

// Record is one raw log entry in upload format.
type Record struct {
	Topic string  `json:"topic"`
	Msg   Message `json:"msg"`
}

// Pair is a directed capability pair.
type Pair struct {
	Source string
	Target string
}

// Expectation is what the service must report for a generated log under
// its default view.
type Expectation struct {
	Events       int
	Types        map[string]int
	Pairs        map[Pair]int
	Capabilities map[string]struct{}
}

// DatasetInfo is the upload response.
type DatasetInfo struct {
	ID            string   `json:"id"`
	Events        int      `json:"events"`
	Types         []string `json:"types"`
	MaxPairWeight int      `json:"max_pair_weight"`
	Duplicate     bool     `json:"duplicate"`
}

// Edge is one row of the snapshot edge table.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"w"`
}

// Snapshot is the subset of a snapshot response the verifier reads.
type Snapshot struct {
	Summary struct {
		Events int `json:"events"`
		Nodes  int `json:"nodes"`
		Edges  int `json:"edges"`
	} `json:"summary"`
	Nodes []string `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

// NodeInfo is the node inspector response.
type NodeInfo struct {
	Node      string `json:"node"`
	InDegree  int    `json:"in_degree"`
	OutDegree int    `json:"out_degree"`
}

// Stats holds test statistics
type Stats struct {
	RunID           string
	EventsGenerated int
	Uploads         int
	Duplicates      int
	NodesInspected  int
	NodesFailed     int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
