package handlerutils

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// absentFormValue reports whether a form value carries no information. Admin
// clients send "undefined" and "null" for untouched inputs.
func absentFormValue(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "undefined", "null":
		return true
	}
	return false
}

// FormString returns the trimmed value of key, or "" when absent.
func FormString(r *http.Request, key string) string {
	v := r.FormValue(key)
	if absentFormValue(v) {
		return ""
	}
	return strings.TrimSpace(v)
}

// FormDecimal returns the value of key as a decimal, zero when absent or
// malformed.
func FormDecimal(r *http.Request, key string) decimal.Decimal {
	return FormOptionalDecimal(r, key).Decimal
}

// FormOptionalDecimal parses key once into an optional decimal.
func FormOptionalDecimal(r *http.Request, key string) decimal.NullDecimal {
	v := r.FormValue(key)
	if absentFormValue(v) {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// FormOptionalInt64 parses key once into an optional integer.
func FormOptionalInt64(r *http.Request, key string) sql.NullInt64 {
	v := r.FormValue(key)
	if absentFormValue(v) {
		return sql.NullInt64{}
	}

	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: n, Valid: true}
}
