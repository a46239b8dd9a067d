package executor

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

// collected is a capped, normalized result set.
type collected struct {
	columns   []core.ResultColumn
	rows      []core.Row
	truncated bool
}

// collect reads at most limit rows and reads one more to decide truncation.
func collect(rows *sql.Rows, limit int) (*collected, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}
	out := &collected{
		columns: make([]core.ResultColumn, len(types)),
		rows:    []core.Row{},
	}
	for i, ct := range types {
		native := ct.DatabaseTypeName()
		out.columns[i] = core.ResultColumn{
			Name:         ct.Name(),
			Type:         core.NormalizeType(native),
			DatabaseType: native,
		}
	}

	values := make([]any, len(types))
	ptrs := make([]any, len(types))
	for i := range values {
		ptrs[i] = &values[i]
	}

	var raw [][]any
	for rows.Next() {
		if len(raw) == limit {
			out.truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		raw = append(raw, append([]any(nil), values...))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	inferTypes(out.columns, raw)
	for _, vals := range raw {
		row := make(core.Row, len(vals))
		for i, v := range vals {
			row[i] = core.Cell{Column: out.columns[i].Name, Value: normalizeValue(v, out.columns[i].Type)}
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// inferTypes fills in categories for columns whose engine reported no usable
// type (SQLite expressions, untyped literals) from the first non-null value.
func inferTypes(columns []core.ResultColumn, raw [][]any) {
	for i := range columns {
		if columns[i].Type != core.TypeUnknown {
			continue
		}
		for _, vals := range raw {
			if vals[i] != nil {
				columns[i].Type = categoryOf(vals[i])
				break
			}
		}
	}
}

func categoryOf(v any) core.TypeCategory {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return core.TypeInteger
	case float32, float64:
		return core.TypeFloat
	case bool:
		return core.TypeBoolean
	case time.Time:
		return core.TypeDatetime
	case string:
		return core.TypeText
	case []byte:
		if utf8.Valid(v.([]byte)) {
			return core.TypeText
		}
		return core.TypeBinary
	}
	return core.TypeUnknown
}

// normalizeValue converts a driver value into something encoding/json
// renders faithfully. Text-protocol drivers (MySQL) hand back []byte for
// every column, so byte slices are decoded according to the column category.
func normalizeValue(v any, cat core.TypeCategory) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return normalizeText(x, cat)
	case string:
		if cat == core.TypeJSON && json.Valid([]byte(x)) {
			return json.RawMessage(x)
		}
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int64:
		if cat == core.TypeBoolean {
			return x != 0
		}
		return x
	case bool, int32, int16, int8, int, uint64, uint32, uint16, uint8, uint:
		return x
	case interface{ Float64() float64 }:
		// fixed-point decimals
		if str, ok := v.(fmt.Stringer); ok {
			if n, ok := preciseNumber(str.String(), x.Float64()); ok {
				return n
			}
		}
		return finite(x.Float64())
	case fmt.Stringer:
		return x.String()
	}
	return normalizeComposite(reflect.ValueOf(v))
}

func normalizeText(b []byte, cat core.TypeCategory) any {
	s := string(b)
	switch cat {
	case core.TypeInteger:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return n
		}
	case core.TypeFloat:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if n, ok := preciseNumber(s, f); ok {
				return n
			}
			return finite(f)
		}
	case core.TypeBoolean:
		if len(b) == 1 && (b[0] == 0 || b[0] == 1) {
			return b[0] == 1
		}
		if ok, err := strconv.ParseBool(strings.ToLower(s)); err == nil {
			return ok
		}
	case core.TypeJSON:
		if json.Valid(b) {
			return json.RawMessage(append([]byte(nil), b...))
		}
	case core.TypeBinary:
		return base64.StdEncoding.EncodeToString(b)
	}
	if utf8.Valid(b) {
		return s
	}
	return base64.StdEncoding.EncodeToString(b)
}

// preciseNumber returns s as a json.Number when f, its float64 reading,
// does not hold every digit of it, as with wide DECIMAL columns.
func preciseNumber(s string, f float64) (json.Number, bool) {
	want, ok := new(big.Rat).SetString(s)
	if !ok || !json.Valid([]byte(s)) {
		return "", false
	}
	got, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, 64))
	if ok && want.Cmp(got) == 0 {
		return "", false
	}
	return json.Number(s), true
}

// finite maps NaN and infinities, which JSON cannot represent, to strings.
func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}

// normalizeComposite handles nested engine values such as DuckDB lists,
// structs and maps.
func normalizeComposite(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return normalizeValue(rv.Elem().Interface(), core.TypeUnknown)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			if len(b) == 16 {
				return uuid.UUID(b).String()
			}
			return normalizeText(b, core.TypeBinary)
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalizeValue(rv.Index(i).Interface(), core.TypeUnknown)
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = normalizeValue(iter.Value().Interface(), core.TypeUnknown)
		}
		return out
	case reflect.Struct:
		out := make(map[string]any, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			f := rv.Type().Field(i)
			if !f.IsExported() {
				continue
			}
			out[f.Name] = normalizeValue(rv.Field(i).Interface(), core.TypeUnknown)
		}
		return out
	}
	return fmt.Sprint(rv.Interface())
}
