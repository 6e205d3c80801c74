package testevents

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/capflow/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		logFile = "test_log_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.InitWithOptions(logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the test events tool.
func ShowHelp() {
	os.Stdout.WriteString(`capflow Event Test Tool
=======================

Generates a synthetic capability event log and, when -url is set, uploads it to a
running capflow server and verifies the derived graph.

Usage:
  go run cmd/test-events/main.go [options]

Options:
  -url string
        Base URL of the service; empty only writes the log
  -events int
        Number of events to generate (default 10000)
  -capabilities int
        Number of distinct capabilities (default 12)
  -types string
        Comma separated event types (default "request,response,status,error,heartbeat")
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for the generated log (default: generated_events_TIMESTAMP.json)
  -log string
        Log file for test output (default: test_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Write a log only
  go run cmd/test-events/main.go -events 5000 -output logs/sample.json

  # Upload and verify against a local server
  go run cmd/test-events/main.go -url http://localhost:9080 -capabilities 30
`)
}
