// Package decode turns loosely-typed engine rows into typed records driven by a FieldMap.
package decode

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/inventory"
)

// Type is the target type of a unified field.
type Type int

const (
	String Type = iota
	// Int is a non-negative integer.
	Int
	// Decimal is a non-negative decimal number.
	Decimal
	Timestamp
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "int"
	case Decimal:
		return "decimal"
	case Timestamp:
		return "timestamp"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Field declares one unified field and where it comes from.
type Field struct {
	Name     string
	Column   string
	Type     Type
	Required bool
}

// FieldMap is the ordered schema of a unified row.
type FieldMap []Field

// Names returns the unified field names in declaration order.
func (m FieldMap) Names() []string {
	out := make([]string, len(m))
	for i, f := range m {
		out[i] = f.Name
	}
	return out
}

// Value is a decoded, typed field value. Exactly one of the typed members is meaningful,
// selected by the field's Type; Null reports an absent source value.
type Value struct {
	Null    bool
	Str     string
	Int     int64
	Decimal decimal.Decimal
	Time    inventory.Timestamp
}

// Record is one decoded row keyed by unified field name.
type Record map[string]Value

// String returns the field as an optional string.
func (r Record) String(name string) *string {
	v, ok := r[name]
	if !ok || v.Null {
		return nil
	}
	s := v.Str
	return &s
}

// Int returns the field as an optional integer.
func (r Record) Int(name string) *int64 {
	v, ok := r[name]
	if !ok || v.Null {
		return nil
	}
	n := v.Int
	return &n
}

// Decimal returns the field as a nullable decimal.
func (r Record) Decimal(name string) decimal.NullDecimal {
	v, ok := r[name]
	if !ok || v.Null {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v.Decimal)
}

// Time returns the field as an optional timestamp.
func (r Record) Time(name string) *inventory.Timestamp {
	v, ok := r[name]
	if !ok || v.Null {
		return nil
	}
	t := v.Time
	return &t
}

// Decode maps every row of table through schema. Rows that miss a required field or carry
// a value that cannot be coerced are dropped and reported; they never abort sibling rows.
// The returned RowErrors carry no provider; callers tag them.
func Decode(table inventory.RawTable, schema FieldMap) ([]Record, []inventory.RowError) {
	records := make([]Record, 0, len(table))
	var dropped []inventory.RowError
	for i, raw := range table {
		rec, err := decodeRow(raw, schema)
		if err != nil {
			err.Row = i
			dropped = append(dropped, *err)
			continue
		}
		records = append(records, rec)
	}
	return records, dropped
}

func decodeRow(raw inventory.RawRow, schema FieldMap) (Record, *inventory.RowError) {
	rec := make(Record, len(schema))
	for _, f := range schema {
		src, present := raw[f.Column]
		if !present || src == nil {
			if f.Required {
				return nil, &inventory.RowError{Field: f.Name, Message: fmt.Sprintf("required column %q is missing", f.Column)}
			}
			rec[f.Name] = Value{Null: true}
			continue
		}
		v, err := coerce(src, f.Type)
		if err != nil {
			return nil, &inventory.RowError{Field: f.Name, Message: fmt.Sprintf("column %q: %v", f.Column, err)}
		}
		rec[f.Name] = v
	}
	return rec, nil
}

var maxInt = decimal.NewFromInt(math.MaxInt64)

func coerce(src any, t Type) (Value, error) {
	switch t {
	case String:
		s, err := toString(src)
		return Value{Str: s}, err
	case Int:
		d, err := toDecimal(src)
		if err != nil {
			return Value{}, err
		}
		if !d.IsInteger() {
			return Value{}, fmt.Errorf("%s is not an integer", d)
		}
		if d.GreaterThan(maxInt) {
			return Value{}, fmt.Errorf("%s overflows int64", d)
		}
		return Value{Int: d.IntPart()}, nil
	case Decimal:
		d, err := toDecimal(src)
		return Value{Decimal: d}, err
	case Timestamp:
		ts, err := toTimestamp(src)
		return Value{Time: ts}, err
	}
	return Value{}, fmt.Errorf("unsupported field type %s", t)
}

func toString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case json.Number:
		return v.String(), nil
	}
	return "", fmt.Errorf("cannot use %T as string", src)
}

func toDecimal(src any) (decimal.Decimal, error) {
	var d decimal.Decimal
	switch v := src.(type) {
	case float64:
		d = decimal.NewFromFloat(v)
	case json.Number:
		parsed, err := decimal.NewFromString(v.String())
		if err != nil {
			return d, fmt.Errorf("invalid number %q", v)
		}
		d = parsed
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return d, fmt.Errorf("invalid number %q", v)
		}
		d = parsed
	default:
		return d, fmt.Errorf("cannot use %T as number", src)
	}
	if d.IsNegative() {
		return d, fmt.Errorf("negative value %s", d)
	}
	return d, nil
}

// Layouts seen in engine output: Postgres timestamptz text, RFC3339 and bare dates.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func toTimestamp(src any) (inventory.Timestamp, error) {
	s, ok := src.(string)
	if !ok {
		return inventory.Timestamp{}, fmt.Errorf("cannot use %T as timestamp", src)
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return inventory.Timestamp{Time: t, Raw: s}, nil
		}
	}
	return inventory.Timestamp{}, fmt.Errorf("invalid timestamp %q", s)
}
