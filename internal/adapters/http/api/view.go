package api

import (
	"encoding/csv"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/capflow/internal/domain/model"
)

// parseView layers query parameters over base. Absent parameters keep the
// base value; a present but empty "types" selects no types.
func parseView(q url.Values, base model.View) (model.View, error) {
	v := base

	if q.Has("types") {
		types, err := parseTypes(q["types"])
		if err != nil {
			return model.View{}, err
		}
		v.Types = types
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"lo", &v.Window.Lo},
		{"hi", &v.Window.Hi},
		{"cursor", &v.Cursor},
	}
	for _, f := range floats {
		if !q.Has(f.key) {
			continue
		}
		x, err := strconv.ParseFloat(q.Get(f.key), 64)
		if err != nil {
			return model.View{}, fmt.Errorf("%w: %s: %w", ErrBadRequest, f.key, err)
		}
		*f.dst = x
	}
	if v.Window.Lo > v.Window.Hi {
		return model.View{}, fmt.Errorf("%w: lo %g exceeds hi %g", ErrBadRequest, v.Window.Lo, v.Window.Hi)
	}

	if q.Has("pattern") {
		v.Pattern = q.Get("pattern")
	}

	if q.Has("min_weight") {
		w, err := strconv.Atoi(q.Get("min_weight"))
		if err != nil {
			return model.View{}, fmt.Errorf("%w: min_weight: %w", ErrBadRequest, err)
		}
		if w < 1 {
			return model.View{}, fmt.Errorf("%w: min_weight must be at least 1", ErrBadRequest)
		}
		v.MinWeight = w
	}
	return v, nil
}

// parseTypes reads every "types" value as one CSV record, the way the CLI
// reads --types. Values may repeat, and a type holding a comma is quoted:
// types="goal reached, retrying",ping.
func parseTypes(values []string) ([]string, error) {
	types := []string{}
	for _, value := range values {
		r := csv.NewReader(strings.NewReader(value))
		r.TrimLeadingSpace = true
		r.FieldsPerRecord = -1
		records, err := r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("%w: types: %w", ErrBadRequest, err)
		}
		for _, record := range records {
			for _, t := range record {
				if t != "" {
					types = append(types, t)
				}
			}
		}
	}
	return types, nil
}
