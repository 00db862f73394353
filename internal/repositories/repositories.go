// package repositories provides persistence layer implementations for all model types.
package repositories

import (
	"database/sql"
	"time"
)

// rowScanner abstracts *sql.Row and *sql.Rows so one scan function can
// serve both single-row and iterated queries.
type rowScanner interface {
	Scan(dest ...any) error
}

// timeOrNil converts an optional timestamp to a driver-friendly value.
func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// timePtr converts a scanned nullable timestamp back to an optional one.
func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// str unwraps a nullable text column to its zero value when absent.
func str(s sql.NullString) string {
	return s.String
}

// i64 unwraps a nullable integer column to zero when absent.
func i64(n sql.NullInt64) int64 {
	return n.Int64
}

// f64 unwraps a nullable real column to zero when absent.
func f64(n sql.NullFloat64) float64 {
	return n.Float64
}

// strOrNil stores empty strings as NULL so optional text columns stay
// NULL instead of accumulating empty values.
func strOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// intOrNil stores zero as NULL for optional numeric columns such as
// season and episode numbers.
func intOrNil(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

// floatOrNil stores zero as NULL for optional real columns such as
// duration.
func floatOrNil(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}
