package search

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ColumnType is the storage type a repository reports for a column.
type ColumnType int

const (
	// ColumnText covers every non-integer column (text, real, blob, dates).
	ColumnText ColumnType = iota
	// ColumnNumeric covers integer columns.
	ColumnNumeric
)

// String returns the column type name.
func (t ColumnType) String() string {
	if t == ColumnNumeric {
		return "numeric"
	}
	return "text"
}

// ColumnTypeFunc reports the type of a column. Translators call it once per
// condition value.
type ColumnTypeFunc func(column string) ColumnType

// TextColumns is a ColumnTypeFunc that treats every column as text.
func TextColumns(string) ColumnType { return ColumnText }

// ValueKind tags a resolved Value.
type ValueKind int

const (
	KindText ValueKind = iota
	KindNumeric
)

// Value is a condition value after column-type resolution: either an
// integer for numeric columns or a string for everything else.
type Value struct {
	Kind ValueKind
	Int  int64
	Text string
}

// Numeric builds a numeric Value.
func Numeric(n int64) Value { return Value{Kind: KindNumeric, Int: n} }

// Text builds a text Value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// IsNumeric reports whether v holds an integer.
func (v Value) IsNumeric() bool { return v.Kind == KindNumeric }

// Any returns the underlying int64 or string.
func (v Value) Any() any {
	if v.IsNumeric() {
		return v.Int
	}
	return v.Text
}

// String renders the value the way it is sent to a backend.
func (v Value) String() string {
	if v.IsNumeric() {
		return strconv.FormatInt(v.Int, 10)
	}
	return v.Text
}

// Resolve converts a raw condition value for a column of the given type.
// LIKE wildcards (%) are stripped; numeric columns coerce the remainder to
// an integer using leading-digit semantics, so "12abc" is 12 and "abc" is 0.
func Resolve(raw any, typ ColumnType) Value {
	s := strings.ReplaceAll(stringify(raw), "%", "")
	if typ == ColumnNumeric {
		return Numeric(leadingInt(s))
	}
	return Text(s)
}

// IsNumeric reports whether v is a Go number or a string holding one.
func IsNumeric(v any) bool {
	switch x := v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	case string:
		return isNumericString(x)
	default:
		return false
	}
}

func isNumericString(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		if x {
			return "1"
		}
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// leadingInt parses an optional sign followed by digits and ignores the
// rest of the string.
func leadingInt(s string) int64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// IsList reports whether v is a slice or array other than raw bytes. A list
// value in a plain Where matches any of its elements.
func IsList(v any) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	k := t.Kind()
	return (k == reflect.Slice || k == reflect.Array) && t.Elem().Kind() != reflect.Uint8
}

// ListValues flattens a list value into its elements.
func ListValues(v any) []any {
	rv := reflect.ValueOf(v)
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, rv.Index(i).Interface())
	}
	return out
}
