// Package normalize turns raw capability event records into the canonical
// event table.
package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okian/capflow/internal/domain/model"
	"github.com/okian/capflow/pkg/logger"
)

// Default normalizer configuration constants.
const (
	DefaultTopic      = "/capabilities/events"
	DefaultTypeMaxLen = 60
	defaultText       = "event"
	nanosPerSecond    = 1_000_000_000
)

// Normalizer converts raw records into canonical events.
type Normalizer struct {
	topic      string
	typeMaxLen int
	logger     logger.Logger
}

// New creates a Normalizer with configuration options.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		topic:      DefaultTopic,
		typeMaxLen: DefaultTypeMaxLen,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// payload is the schema of msg for records on the capability topic.
type payload struct {
	Header *struct {
		Stamp *stamp `json:"stamp"`
	} `json:"header"`
	Source *endpoint `json:"source"`
	Target *endpoint `json:"target"`
}

type stamp struct {
	Secs  json.Number `json:"secs"`
	Nsecs json.Number `json:"nsecs"`
}

type endpoint struct {
	Capability string  `json:"capability"`
	Text       *string `json:"text"`
}

// instant is an absolute time split into whole seconds and a nanosecond
// remainder in [0, 1e9), so epochs of any unit fit without overflow.
type instant struct {
	sec  int64
	nsec int64
}

func (a instant) before(b instant) bool {
	if a.sec != b.sec {
		return a.sec < b.sec
	}
	return a.nsec < b.nsec
}

// row is an event still carrying its absolute time.
type row struct {
	at    instant
	event model.Event
}

// Parse decodes a JSON array of raw records.
func Parse(data []byte) ([]model.RawEventRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array of records", ErrMalformedInput)
	}
	var raw []model.RawEventRecord
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return raw, nil
}

// NormalizeJSON parses data and normalizes the resulting records.
func (n *Normalizer) NormalizeJSON(ctx context.Context, data []byte) (model.Table, error) {
	raw, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return n.Normalize(ctx, raw)
}

// Normalize converts raw records into a canonical table sorted by time and
// shifted so the earliest event sits at zero. A nil table with a nil error
// means no record survived.
func (n *Normalizer) Normalize(ctx context.Context, raw []model.RawEventRecord) (model.Table, error) {
	rows := make([]row, 0, len(raw))
	skippedTopic, droppedSource := 0, 0

	for i, rec := range raw {
		if rec.Topic != n.topic {
			skippedTopic++
			continue
		}
		r, ok, err := n.convert(i, rec.Msg)
		if err != nil {
			return nil, err
		}
		if !ok {
			droppedSource++
			continue
		}
		rows = append(rows, r)
	}

	n.logger.Debug(ctx, "normalized records",
		logger.Int("records", len(raw)),
		logger.Int("kept", len(rows)),
		logger.Int("other_topic", skippedTopic),
		logger.Int("empty_source", droppedSource),
	)

	if len(rows) == 0 {
		return nil, nil
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].at.before(rows[j].at) })

	base := rows[0].at
	if last := rows[len(rows)-1].at; base.sec < 0 && last.sec > math.MaxInt64+base.sec {
		return nil, fmt.Errorf("%w: timestamp span exceeds the int64 range of seconds", ErrMalformedInput)
	}
	table := make(model.Table, len(rows))
	for i, r := range rows {
		r.event.Timestamp = float64(r.at.sec-base.sec) + float64(r.at.nsec-base.nsec)/nanosPerSecond
		table[i] = r.event
	}
	return table, nil
}

// convert validates one matching record. ok is false when the record is
// well-formed but has no source capability.
func (n *Normalizer) convert(index int, msg json.RawMessage) (row, bool, error) {
	if len(msg) == 0 || bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
		return row{}, false, fmt.Errorf("%w: record %d: missing msg", ErrMalformedInput, index)
	}
	var p payload
	if err := json.Unmarshal(msg, &p); err != nil {
		return row{}, false, fmt.Errorf("%w: record %d: %v", ErrMalformedInput, index, err)
	}
	switch {
	case p.Header == nil || p.Header.Stamp == nil:
		return row{}, false, fmt.Errorf("%w: record %d: missing msg.header.stamp", ErrMalformedInput, index)
	case p.Source == nil:
		return row{}, false, fmt.Errorf("%w: record %d: missing msg.source", ErrMalformedInput, index)
	case p.Target == nil:
		return row{}, false, fmt.Errorf("%w: record %d: missing msg.target", ErrMalformedInput, index)
	}

	at, err := p.Header.Stamp.instant()
	if err != nil {
		return row{}, false, fmt.Errorf("%w: record %d: %v", ErrMalformedInput, index, err)
	}

	src := strings.TrimSpace(p.Source.Capability)
	if src == "" {
		return row{}, false, nil
	}
	tgt := strings.TrimSpace(p.Target.Capability)
	if tgt == "" {
		tgt = src
	}
	text := defaultText
	if p.Target.Text != nil && *p.Target.Text != "" {
		text = *p.Target.Text
	}
	text = strings.TrimSpace(text)

	return row{
		at: at,
		event: model.Event{
			Source: src,
			Target: tgt,
			Type:   n.typeOf(text),
			Text:   text,
		},
	}, true, nil
}

// typeOf returns the text before the first ':' capped at typeMaxLen runes.
func (n *Normalizer) typeOf(text string) string {
	head, _, _ := strings.Cut(text, ":")
	runes := []rune(head)
	if len(runes) > n.typeMaxLen {
		return string(runes[:n.typeMaxLen])
	}
	return head
}

// instant returns the absolute stamp. nsecs may exceed one second or be
// negative; the carry moves into the seconds.
func (s *stamp) instant() (instant, error) {
	secs, frac, err := splitSeconds(s.Secs)
	if err != nil {
		return instant{}, fmt.Errorf("stamp.secs: %w", err)
	}
	nsecs, err := wholeNanos(s.Nsecs)
	if err != nil {
		return instant{}, fmt.Errorf("stamp.nsecs: %w", err)
	}

	if nsecs > math.MaxInt64-frac {
		return instant{}, fmt.Errorf("stamp.nsecs overflows int64")
	}
	nsecs += frac
	carry := nsecs / nanosPerSecond
	nsecs %= nanosPerSecond
	if nsecs < 0 {
		nsecs += nanosPerSecond
		carry--
	}
	if (carry > 0 && secs > math.MaxInt64-carry) || (carry < 0 && secs < math.MinInt64-carry) {
		return instant{}, fmt.Errorf("stamp overflows int64 seconds")
	}
	return instant{sec: secs + carry, nsec: nsecs}, nil
}

// int64Bound is 2^63, the first float64 outside the int64 range.
const int64Bound = 9.223372036854775808e18

// splitSeconds parses an integer or float seconds value into whole seconds
// and a nanosecond fraction in [0, 1e9].
func splitSeconds(n json.Number) (int64, int64, error) {
	if n == "" {
		return 0, 0, nil
	}
	if i, err := n.Int64(); err == nil {
		return i, 0, nil
	}
	f, err := checkedFloat(n)
	if err != nil {
		return 0, 0, err
	}
	whole := math.Floor(f)
	return int64(whole), int64(math.Round((f - whole) * nanosPerSecond)), nil
}

// wholeNanos parses an integer or float nanoseconds value.
func wholeNanos(n json.Number) (int64, error) {
	if n == "" {
		return 0, nil
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := checkedFloat(n)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(f)), nil
}

// checkedFloat parses n and rejects values outside the int64 range.
func checkedFloat(n json.Number) (float64, error) {
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= int64Bound || f < -int64Bound {
		return 0, fmt.Errorf("number %q out of range", n)
	}
	return f, nil
}
