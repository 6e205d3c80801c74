// Package tablefile imports and exports canonical event tables as CSV or JSON.
package tablefile

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okian/capflow/internal/domain/model"
)

// Format names a file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Header is the CSV column order.
var Header = []string{"timestamp", "source", "target", "type", "text"}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// Write encodes t in format f.
func Write(w io.Writer, f Format, t model.Table) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatJSON:
		return WriteJSON(w, t)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Read decodes a table in format f.
func Read(r io.Reader, f Format) (model.Table, error) {
	switch f {
	case FormatCSV:
		return ReadCSV(r)
	case FormatJSON:
		return ReadJSON(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// WriteCSV writes a header row followed by one row per event.
func WriteCSV(w io.Writer, t model.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	row := make([]string, len(Header))
	for _, e := range t {
		row[0] = strconv.FormatFloat(e.Timestamp, 'g', -1, 64)
		row[1] = e.Source
		row[2] = e.Target
		row[3] = e.Type
		row[4] = e.Text
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV. Columns are matched by header
// name so their order may differ.
func ReadCSV(r io.Reader) (model.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedTable)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTable, err)
	}
	col := make(map[string]int, len(head))
	for i, h := range head {
		col[strings.TrimSpace(strings.ToLower(h))] = i
	}
	for _, h := range Header {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedTable, h)
		}
	}

	var t model.Table
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedTable, err)
		}
		if len(rec) != len(head) {
			return nil, fmt.Errorf("%w: line %d has %d fields, want %d", ErrMalformedTable, line, len(rec), len(head))
		}
		ts, err := strconv.ParseFloat(rec[col["timestamp"]], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: timestamp: %w", ErrMalformedTable, line, err)
		}
		e := model.Event{
			Timestamp: ts,
			Source:    rec[col["source"]],
			Target:    rec[col["target"]],
			Type:      rec[col["type"]],
			Text:      rec[col["text"]],
		}
		if err := validate(e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t = append(t, e)
	}
	return t, nil
}

// WriteJSON writes t as a JSON array of events.
func WriteJSON(w io.Writer, t model.Table) error {
	if t == nil {
		t = model.Table{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// ReadJSON parses a table written by WriteJSON.
func ReadJSON(r io.Reader) (model.Table, error) {
	var t model.Table
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTable, err)
	}
	for i, e := range t {
		if err := validate(e); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	if len(t) == 0 {
		return nil, nil
	}
	return t, nil
}

func validate(e model.Event) error {
	if e.Source == "" {
		return fmt.Errorf("%w: empty source", ErrMalformedTable)
	}
	if e.Target == "" {
		return fmt.Errorf("%w: empty target", ErrMalformedTable)
	}
	return nil
}
