package align

import (
	"fmt"
	"strconv"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindText
	KindBool
	KindTime
)

// Value is a closed variant over the scalar types a destination column can
// hold. Exactly one field is meaningful, selected by Kind; the zero Value is
// null.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Text  string
	Bool  bool
	Time  time.Time
}

func Null() Value                { return Value{Kind: KindNull} }
func IntValue(n int64) Value     { return Value{Kind: KindInteger, Int: n} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func TextValue(s string) Value   { return Value{Kind: KindText, Text: s} }
func BoolValue(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func TimeValue(t time.Time) Value {
	return Value{Kind: KindTime, Time: t}
}

// IsNull reports whether the value holds the null variant.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// AsInt64 returns the value as an int64 when it is numeric. Floats qualify
// only when they carry no fractional part.
func (v Value) AsInt64() (int64, bool) {
	switch v.Kind {
	case KindInteger:
		return v.Int, true
	case KindFloat:
		if v.Float == float64(int64(v.Float)) {
			return int64(v.Float), true
		}
	}
	return 0, false
}

// SQL returns the value in a form accepted by database/sql drivers.
func (v Value) SQL() interface{} {
	switch v.Kind {
	case KindInteger:
		return v.Int
	case KindFloat:
		return v.Float
	case KindText:
		return v.Text
	case KindBool:
		return v.Bool
	case KindTime:
		return v.Time
	default:
		return nil
	}
}

// String renders the value for logs and report bodies.
func (v Value) String() string {
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindText:
		return v.Text
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindTime:
		return v.Time.Format("2006-01-02 15:04:05")
	default:
		return "<null>"
	}
}

// RawRow is one spreadsheet row as parsed, keyed by the sheet's header cells
// (casing and whitespace as found in the file).
type RawRow map[string]interface{}

// Row is one aligned row, keyed by destination column name. Its key set
// matches the destination schema exactly.
type Row map[string]Value

// SQLMap converts the row to the map shape the insert layer consumes.
func (r Row) SQLMap() map[string]interface{} {
	data := make(map[string]interface{}, len(r))
	for col, v := range r {
		data[col] = v.SQL()
	}
	return data
}

func (r Row) String() string {
	return fmt.Sprintf("%v", map[string]Value(r))
}
