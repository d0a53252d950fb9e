// Package jvrecord decodes fixed-width, code-page-932 vendor race records
// into typed rows ready for the Ingest Writer.
//
// Every record type is declared as data: a Layout names a byte range and a
// Kind for each column. Parsing never panics on malformed input — a record
// that doesn't decode cleanly yields a parse error attached to the caller's
// trace, not a crash.
package jvrecord

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Kind describes how a field's raw bytes are interpreted.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindDecimal
	KindCode
)

// FieldSpec names one column's byte range within a record and how to decode it.
// Scale only applies to KindDecimal: the raw digit string is divided by 10^Scale.
type FieldSpec struct {
	Name     string
	Start    int
	End      int
	Kind     Kind
	Nullable bool
	Scale    int
}

func (f FieldSpec) slice(payload []byte) []byte {
	if f.Start < 0 || f.End > len(payload) || f.Start > f.End {
		return nil
	}

	return payload[f.Start:f.End]
}

// decodeCP932 decodes code-page-932 (Shift-JIS superset) bytes to a Go
// string. It never returns an error: bytes that don't decode cleanly are
// replaced byte-by-byte, ASCII passed through, everything else mapped to
// the Unicode replacement character.
func decodeCP932(raw []byte) string {
	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), raw)
	if err == nil {
		return string(decoded)
	}

	var sb strings.Builder

	for _, b := range raw {
		if b < 0x80 {
			sb.WriteByte(b)
		} else {
			sb.WriteRune('�')
		}
	}

	return sb.String()
}

// decodeField strips trailing spaces and collapses an all-whitespace field
// to empty string; it is the shared primitive every FieldSpec.extract call
// runs its raw slice through before type-specific handling.
func decodeField(raw []byte) string {
	s := decodeCP932(raw)
	s = strings.TrimRight(s, " 　")

	if strings.TrimSpace(s) == "" {
		return ""
	}

	return s
}

// isFillOnly reports whether a raw numeric field is all spaces or all
// zeros — the vendor's convention for "no value" in an otherwise
// fixed-width numeric slot.
func isFillOnly(s string) bool {
	if s == "" {
		return true
	}

	allZero := true

	for _, r := range s {
		if r != '0' {
			allZero = false

			break
		}
	}

	return allZero
}

// extract reads this field out of payload and returns the canonical string
// value to store, and whether the value is present (false means the column
// should be bound NULL).
func (f FieldSpec) extract(payload []byte) (string, bool) {
	raw := f.slice(payload)
	if raw == nil {
		return "", false
	}

	text := decodeField(raw)

	switch f.Kind {
	case KindInt, KindDecimal:
		if f.Nullable && isFillOnly(text) {
			return "", false
		}

		digits := strings.TrimSpace(text)
		if digits == "" {
			return "", true
		}

		if f.Kind == KindDecimal && f.Scale > 0 {
			return scaleDecimal(digits, f.Scale), true
		}

		return digits, true
	default:
		if f.Nullable && text == "" {
			return "", false
		}

		return text, true
	}
}

func scaleDecimal(digits string, scale int) string {
	n, err := strconv.ParseInt(strings.TrimLeft(digits, "0 "), 10, 64)
	if err != nil {
		n = 0
	}

	divisor := int64(1)
	for i := 0; i < scale; i++ {
		divisor *= 10
	}

	whole := n / divisor
	frac := n % divisor

	if frac < 0 {
		frac = -frac
	}

	fracStr := strconv.FormatInt(frac, 10)
	for len(fracStr) < scale {
		fracStr = "0" + fracStr
	}

	return strconv.FormatInt(whole, 10) + "." + fracStr
}
