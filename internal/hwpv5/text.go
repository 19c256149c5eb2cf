package hwpv5

import (
	"encoding/binary"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	xunicode "golang.org/x/text/encoding/unicode"
)

const (
	hangulFirst = 0xAC00
	hangulLast  = 0xD7A3
)

var wideEncoding = xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM)

// DecodeWide decodes UTF-16LE text. Unpaired surrogates and a dangling odd
// byte become U+FFFD.
func DecodeWide(b []byte) string {
	out, err := wideEncoding.NewDecoder().Bytes(b)
	if err != nil {
		return decodeUnits(b)
	}
	return string(out)
}

func decodeUnits(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, binary.LittleEndian.Uint16(b[i:]))
	}
	s := string(utf16.Decode(units))
	if len(b)%2 != 0 {
		s += string(utf8.RuneError)
	}
	return s
}

// ScanPrintable reads buf two bytes at a time, ignoring any record framing.
// ASCII printables, Hangul syllables, tab, CR and LF are kept, NUL becomes a
// single space and every other unit is dropped.
func ScanPrintable(buf []byte) string {
	var sb strings.Builder
	sb.Grow(len(buf) / 2)

	for i := 0; i+1 < len(buf); i += 2 {
		c := rune(binary.LittleEndian.Uint16(buf[i:]))
		switch {
		case c == 0:
			sb.WriteByte(' ')
		case c >= 0x20 && c <= 0x7E, c == '\n', c == '\r', c == '\t':
			sb.WriteByte(byte(c))
		case c >= hangulFirst && c <= hangulLast:
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// DecodeWhole decodes the entire buffer as UTF-16LE and blanks out every rune
// that is neither printable nor ordinary whitespace.
func DecodeWhole(buf []byte) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n', r == '\r', r == '\t', r == ' ':
			return r
		case r == utf8.RuneError, !unicode.IsPrint(r):
			return ' '
		}
		return r
	}, DecodeWide(buf))
}
