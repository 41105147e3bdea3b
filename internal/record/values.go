package record

import (
	"database/sql"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const nullKey = "\x00null"

// Normalize converts driver-returned values into the forms the rest of the
// module expects: byte slices become strings and sql.Null* wrappers unwrap.
func Normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case sql.RawBytes:
		return string(x)
	case sql.NullString:
		if !x.Valid {
			return nil
		}
		return x.String
	case sql.NullInt64:
		if !x.Valid {
			return nil
		}
		return x.Int64
	case sql.NullFloat64:
		if !x.Valid {
			return nil
		}
		return x.Float64
	case sql.NullTime:
		if !x.Valid {
			return nil
		}
		return x.Time
	case sql.NullBool:
		if !x.Valid {
			return nil
		}
		return x.Bool
	}
	return v
}

// IsNull reports whether v represents a missing value
func IsNull(v interface{}) bool {
	return Normalize(v) == nil
}

// Key returns a comparable identity for v. Integers keep every digit,
// floats with an integral value key like the matching integer, and strings
// are used as fetched so "007" and "7" stay distinct. ok is false for nulls.
func Key(v interface{}) (key string, ok bool) {
	v = Normalize(v)
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), true
	case int:
		return strconv.FormatInt(int64(x), 10), true
	case int8:
		return strconv.FormatInt(int64(x), 10), true
	case int16:
		return strconv.FormatInt(int64(x), 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint8:
		return strconv.FormatUint(uint64(x), 10), true
	case uint16:
		return strconv.FormatUint(uint64(x), 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float32:
		return floatKey(float64(x)), true
	case float64:
		return floatKey(x), true
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	return s, true
}

func floatKey(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// RowKey returns a composite identity for a whole row; nulls compare equal
func RowKey(r Row) string {
	var b strings.Builder
	for i, v := range r {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		k, ok := Key(v)
		if !ok {
			k = nullKey
		}
		b.WriteString(k)
	}
	return b.String()
}

// Date returns v as a calendar date at midnight UTC. Time-of-day is dropped.
func Date(v interface{}) (time.Time, bool) {
	v = Normalize(v)
	if v == nil {
		return time.Time{}, false
	}
	t, err := cast.ToTimeE(v)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

// Text returns v only if it is a string value. Numbers and nulls are not text.
func Text(v interface{}) (string, bool) {
	s, ok := Normalize(v).(string)
	return s, ok
}

// Float returns v as a float64
func Float(v interface{}) (float64, bool) {
	v = Normalize(v)
	if v == nil {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Format renders v for text output. Dates without a time part print as
// YYYY-MM-DD; nulls print as the empty string.
func Format(v interface{}) string {
	v = Normalize(v)
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	case bool:
		if x {
			return "true"
		}
		return "false"
	}
	return cast.ToString(v)
}
