package service_test

import (
	"fmt"
	"strings"
)

// rawLog renders raw records for the given (secs, source, target, text) rows.
func rawLog(rows ...[4]string) []byte {
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		parts = append(parts, fmt.Sprintf(
			`{"topic":"/capabilities/events","msg":{"header":{"stamp":{"secs":%s,"nsecs":0}},"source":{"capability":%q},"target":{"capability":%q,"text":%q}}}`,
			r[0], r[1], r[2], r[3]))
	}
	return []byte("[" + strings.Join(parts, ",") + "]")
}

func pingLog() []byte {
	return rawLog(
		[4]string{"100", "A", "B", "ping: 1"},
		[4]string{"101", "A", "B", "ping: 2"},
	)
}

func triangleLog() []byte {
	return rawLog(
		[4]string{"10", "Planner", "NavRunner", "goal: dock"},
		[4]string{"11", "NavRunner", "Base", "cmd: move"},
		[4]string{"12", "Base", "Planner", "ack"},
		[4]string{"13", "Planner", "NavRunner", "goal: undock"},
		[4]string{"14", "Camera", "Planner", "frame: 1"},
	)
}
