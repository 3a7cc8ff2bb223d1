package result

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/zkorum/agora/internal/engine"
	"github.com/zkorum/agora/internal/errors"
)

// GroupIDField is the index column group comment statistics are bucketed by.
const GroupIDField = "group_id"

// defaultIndexName is used for an index the engine left unnamed.
const defaultIndexName = "index"

// Normalize converts a RawResult into a CanonicalResult. Record order is
// preserved everywhere, including within each group comment bucket.
// Structural problems are reported as errors wrapping errors.ErrMalformedResult.
func Normalize(raw *engine.RawResult) (*CanonicalResult, error) {
	if raw == nil {
		return nil, malformed("engine returned no result")
	}

	res := Empty()
	var err error

	if res.Statements, err = flatten(raw.Statements); err != nil {
		return nil, errors.Wrap(err, "statements")
	}
	if res.Participants, err = flatten(raw.Participants); err != nil {
		return nil, errors.Wrap(err, "participants")
	}

	stats, err := flatten(raw.GroupCommentStats)
	if err != nil {
		return nil, errors.Wrap(err, "group comment stats")
	}
	for _, rec := range stats {
		v, ok := rec[GroupIDField]
		if !ok {
			return nil, malformed("group comment stats row has no %s", GroupIDField)
		}
		key, err := GroupKey(v)
		if err != nil {
			return nil, errors.Wrap(err, "group comment stats")
		}
		delete(rec, GroupIDField)
		res.GroupCommentStats[key] = append(res.GroupCommentStats[key], rec)
	}

	for group, rows := range raw.Repness {
		if res.Repness[group], err = plainRecords(rows); err != nil {
			return nil, errors.Wrapf(err, "repness of group %s", group)
		}
	}

	if res.Consensus.Agree, err = plainRecords(raw.Consensus.Agree); err != nil {
		return nil, errors.Wrap(err, "consensus agree")
	}
	if res.Consensus.Disagree, err = plainRecords(raw.Consensus.Disagree); err != nil {
		return nil, errors.Wrap(err, "consensus disagree")
	}

	return res, nil
}

// flatten turns a frame into records, promoting index levels to fields.
func flatten(f engine.Frame) ([]Record, error) {
	records := make([]Record, 0, len(f.Data))
	if len(f.Data) == 0 {
		return records, nil
	}

	names := f.IndexNames
	if len(f.Index) > 0 {
		if len(f.Index) != len(f.Data) {
			return nil, malformed("index has %d entries for %d rows", len(f.Index), len(f.Data))
		}
		if len(names) == 0 {
			names = []string{defaultIndexName}
		}
		for _, n := range names {
			for _, c := range f.Columns {
				if n == c {
					return nil, malformed("index level %q collides with a column", n)
				}
			}
		}
	} else {
		names = nil
	}

	for i, row := range f.Data {
		if len(row) != len(f.Columns) {
			return nil, malformed("row %d has %d values for %d columns", i, len(row), len(f.Columns))
		}

		rec := make(Record, len(names)+len(row))
		if names != nil {
			levels, ok := f.Index[i].([]any)
			if !ok {
				levels = []any{f.Index[i]}
			}
			if len(levels) != len(names) {
				return nil, malformed("row %d index has %d levels, want %d", i, len(levels), len(names))
			}
			for j, n := range names {
				if rec[n], ok = plainOK(levels[j]); !ok {
					return nil, malformed("row %d index %q has unsupported type %T", i, n, levels[j])
				}
			}
		}
		for j, c := range f.Columns {
			v, ok := plainOK(row[j])
			if !ok {
				return nil, malformed("row %d column %q has unsupported type %T", i, c, row[j])
			}
			rec[c] = v
		}
		records = append(records, rec)
	}
	return records, nil
}

func plainRecords(rows []map[string]any) ([]Record, error) {
	out := make([]Record, 0, len(rows))
	for i, row := range rows {
		rec := make(Record, len(row))
		for k, v := range row {
			p, ok := plainOK(v)
			if !ok {
				return nil, malformed("record %d field %q has unsupported type %T", i, k, v)
			}
			rec[k] = p
		}
		out = append(out, rec)
	}
	return out, nil
}

// plainOK reduces v to a JSON primitive: nil, bool, string, int64, float64,
// []any or map[string]any. NaN and infinities become nil. It reports false
// for values with no JSON form.
func plainOK(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case bool, string, int64:
		return x, true
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
		f, err := x.Float64()
		if err != nil {
			// Out of range literals are still numbers, just not finite ones.
			return nil, true
		}
		return finite(f), true
	case float64:
		return finite(x), true
	case float32:
		return finite(float64(x)), true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case Record:
		return plainMap(reflect.ValueOf(map[string]any(x)))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return float64(u), true
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		return finite(rv.Float()), true
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return rv.Bool(), true
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, true
		}
		out := make([]any, rv.Len())
		for i := range out {
			p, ok := plainOK(rv.Index(i).Interface())
			if !ok {
				return nil, false
			}
			out[i] = p
		}
		return out, true
	case reflect.Map:
		return plainMap(rv)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, true
		}
		return plainOK(rv.Elem().Interface())
	}
	return nil, false
}

func plainMap(rv reflect.Value) (any, bool) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	if rv.IsNil() {
		return nil, true
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		p, ok := plainOK(iter.Value().Interface())
		if !ok {
			return nil, false
		}
		out[iter.Key().String()] = p
	}
	return out, true
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// GroupKey renders a plain group identifier as a map key. Integral numbers
// render without a fractional part, so 0 and 0.0 share the key "0".
func GroupKey(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return strconv.FormatInt(int64(x), 10), nil
		}
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case nil:
		return "", malformed("group id is null")
	}
	return "", malformed("group id has unsupported type %T", v)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errors.ErrMalformedResult, fmt.Sprintf(format, args...))
}
