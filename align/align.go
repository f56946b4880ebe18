// Package align reconciles rows parsed from a spreadsheet against the
// destination table's column schema. Coercion is tolerant: a cell that
// cannot be converted becomes null and is counted, the row survives.
package align

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/andys/sheetsync/db"
)

// Stats accumulates what alignment had to tolerate for one sheet.
type Stats struct {
	// BadCells counts non-empty values that could not be coerced to the
	// declared column type and were stored as null.
	BadCells int
	// UnmappedColumns lists sheet columns with no destination counterpart,
	// each recorded once per sheet.
	UnmappedColumns []string
}

// Align produces one aligned row per raw row, in order. Every output row
// carries exactly the schema's column set: missing sheet columns become
// null, extra sheet columns are dropped and recorded in Stats.
func Align(rows []RawRow, schema *db.TableSchema) ([]Row, *Stats) {
	stats := &Stats{}

	// Sheet headers are matched by trimmed, case-folded name; the physical
	// casing in the workbook is not trusted.
	byNormalized := make(map[string]db.ColumnSchema, len(schema.Columns))
	for _, col := range schema.Columns {
		byNormalized[normalizeKey(col.Name)] = col
	}

	unmapped := make(map[string]bool)
	aligned := make([]Row, 0, len(rows))

	for _, raw := range rows {
		values := make(map[string]interface{}, len(raw))
		for key, v := range raw {
			nk := normalizeKey(key)
			if _, ok := byNormalized[nk]; !ok {
				unmapped[key] = true
				continue
			}
			values[nk] = v
		}

		row := make(Row, len(schema.Columns))
		for _, col := range schema.Columns {
			v, ok := coerce(values[normalizeKey(col.Name)], col.Type)
			if !ok {
				stats.BadCells++
			}
			row[col.Name] = v
		}
		aligned = append(aligned, row)
	}

	for key := range unmapped {
		stats.UnmappedColumns = append(stats.UnmappedColumns, key)
	}
	sort.Strings(stats.UnmappedColumns)

	return aligned, stats
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// coerce converts one raw cell to the declared column type. The bool result
// is false only for a non-empty value that had to be degraded to null.
func coerce(raw interface{}, target db.ColumnType) (Value, bool) {
	if isEmpty(raw) {
		return Null(), true
	}

	switch target {
	case db.TypeInteger:
		return coerceInteger(raw)
	case db.TypeFloat:
		return coerceFloat(raw)
	case db.TypeBoolean:
		return coerceBool(raw)
	case db.TypeTimestamp:
		return coerceTime(raw, false)
	case db.TypeDate:
		return coerceTime(raw, true)
	default:
		return coerceText(raw), true
	}
}

func isEmpty(raw interface{}) bool {
	if raw == nil {
		return true
	}
	if s, ok := raw.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func coerceInteger(raw interface{}) (Value, bool) {
	switch v := raw.(type) {
	case int:
		return IntValue(int64(v)), true
	case int32:
		return IntValue(int64(v)), true
	case int64:
		return IntValue(v), true
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return IntValue(n), true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(f)
		}
	}
	return Null(), false
}

func floatToInt(f float64) (Value, bool) {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return IntValue(int64(f)), true
	}
	return Null(), false
}

func coerceFloat(raw interface{}) (Value, bool) {
	switch v := raw.(type) {
	case int:
		return FloatValue(float64(v)), true
	case int32:
		return FloatValue(float64(v)), true
	case int64:
		return FloatValue(float64(v)), true
	case float32:
		return FloatValue(float64(v)), true
	case float64:
		return FloatValue(v), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return FloatValue(f), true
		}
	}
	return Null(), false
}

func coerceBool(raw interface{}) (Value, bool) {
	switch v := raw.(type) {
	case bool:
		return BoolValue(v), true
	case int, int32, int64, float32, float64:
		if iv, ok := coerceInteger(v); ok {
			switch iv.Int {
			case 0:
				return BoolValue(false), true
			case 1:
				return BoolValue(true), true
			}
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return BoolValue(true), true
		case "false", "0", "no":
			return BoolValue(false), true
		}
	}
	return Null(), false
}

// Accepted textual date layouts, most specific first.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
}

// Excel stores dates as days since 1899-12-30.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

func coerceTime(raw interface{}, dateOnly bool) (Value, bool) {
	var t time.Time

	switch v := raw.(type) {
	case time.Time:
		t = v
	case float64:
		t = serialToTime(v)
	case float32:
		t = serialToTime(float64(v))
	case int:
		t = serialToTime(float64(v))
	case int64:
		t = serialToTime(float64(v))
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				t = parsed
				break
			}
		}
		if t.IsZero() {
			if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
				t = serialToTime(serial)
			}
		}
	}

	if t.IsZero() {
		return Null(), false
	}
	if dateOnly {
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
	return TimeValue(t), true
}

func serialToTime(serial float64) time.Time {
	if serial <= 0 {
		return time.Time{}
	}
	seconds := serial * 24 * 3600
	return excelEpoch.Add(time.Duration(seconds * float64(time.Second)))
}

func coerceText(raw interface{}) Value {
	switch v := raw.(type) {
	case string:
		return TextValue(normalizeText(v))
	case bool:
		return TextValue(strconv.FormatBool(v))
	case int, int32, int64, float32, float64:
		if fv, ok := coerceFloat(v); ok {
			return TextValue(fv.String())
		}
	case time.Time:
		return TextValue(v.Format("2006-01-02 15:04:05"))
	}
	return Null()
}

// normalizeText applies the canonical cleanup used for stored text: collapse
// internal whitespace and strip combining marks (accents). Case is kept as
// found in the sheet.
func normalizeText(s string) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	decomposed := norm.NFKD.String(collapsed)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
