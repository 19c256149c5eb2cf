package hwpv5

import (
	"encoding/binary"
	"strings"
	"unicode/utf16"
)

// Control codes below 32 that can appear in a PARA_TEXT payload.
const (
	paraTextCodeUnusable    uint16 = 0
	paraTextCodeTab         uint16 = 9  // 탭
	paraTextCodeLineBreak   uint16 = 10 // 한 줄 끝
	paraTextCodeParaBreak   uint16 = 13 // 문단 끝
	paraTextCodeHyphen      uint16 = 24 // 하이픈
	paraTextCodeReserved25  uint16 = 25
	paraTextCodeReserved29  uint16 = 29
	paraTextCodeBundleSpace uint16 = 30 // 묶음 빈칸
	paraTextCodeFixedSpace  uint16 = 31 // 고정폭 빈칸
)

// ctrlWidth is the number of WCHARs an inline or extended control occupies,
// including the code itself.
const ctrlWidth = 8

// isCharControl reports whether code is a single-WCHAR char control. Every
// other code below 32 is an inline or extended control spanning ctrlWidth units.
func isCharControl(code uint16) bool {
	switch {
	case code == paraTextCodeUnusable,
		code == paraTextCodeLineBreak,
		code == paraTextCodeParaBreak,
		code == paraTextCodeHyphen,
		code >= paraTextCodeReserved25 && code <= paraTextCodeReserved29,
		code == paraTextCodeBundleSpace,
		code == paraTextCodeFixedSpace:
		return true
	}
	return false
}

// ParaText converts a PARA_TEXT payload to plain text, skipping the
// parameters of inline and extended controls (field markers, tables, drawing
// objects, footnotes) and mapping the whitespace-like controls to their text
// equivalents.
func ParaText(payload []byte) string {
	var (
		sb    strings.Builder
		units []uint16
	)

	flush := func() {
		if len(units) > 0 {
			sb.WriteString(string(utf16.Decode(units)))
			units = units[:0]
		}
	}

	n := len(payload) / 2
	for i := 0; i < n; {
		code := binary.LittleEndian.Uint16(payload[i*2:])
		if code >= 32 {
			units = append(units, code)
			i++
			continue
		}

		flush()
		if !isCharControl(code) {
			if code == paraTextCodeTab {
				sb.WriteByte('\t')
			}
			i += ctrlWidth
			continue
		}

		switch code {
		case paraTextCodeLineBreak:
			sb.WriteByte('\n')
		case paraTextCodeHyphen:
			sb.WriteByte('-')
		case paraTextCodeBundleSpace, paraTextCodeFixedSpace:
			sb.WriteByte(' ')
		}
		i++
	}

	flush()
	return sb.String()
}
