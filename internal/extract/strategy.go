package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Strategy selects how a document is turned into text.
type Strategy string

const (
	// Auto picks HWPX for .hwpx files and Multi otherwise.
	Auto Strategy = "auto"
	// Multi runs every in-process HWP strategy and keeps the longest result.
	Multi Strategy = "multi"
	// Scan reads decompressed sections as UTF-16LE, ignoring record framing.
	Scan Strategy = "scan"
	// Record decodes the payloads of paragraph-text records.
	Record Strategy = "record"
	// Resync is Record that skips forward a byte at a time past headers
	// that do not fit the buffer instead of stopping there.
	Resync Strategy = "resync"
	// Whole decodes every decompressed section as one UTF-16LE string.
	Whole Strategy = "whole"
	// Paragraph walks packed HWP record headers and honours inline controls.
	Paragraph Strategy = "paragraph"
	// HWPX reads the zip-of-XML document format.
	HWPX Strategy = "hwpx"
	// HWP5Txt delegates to the external hwp5txt converter.
	HWP5Txt Strategy = "hwp5txt"
	// LibreOffice delegates to a headless office suite.
	LibreOffice Strategy = "libreoffice"
)

var allStrategies = []Strategy{Auto, Multi, Scan, Record, Resync, Whole, Paragraph, HWPX, HWP5Txt, LibreOffice}

// multiStrategies are the candidates Multi compares, in tie-break order.
var multiStrategies = []Strategy{Scan, Record, Whole, Paragraph, Resync}

// Strategies lists every accepted strategy name.
func Strategies() []Strategy {
	return append([]Strategy(nil), allStrategies...)
}

// InProcess lists the strategies that decode HWP files without external tools.
func InProcess() []Strategy {
	return append([]Strategy(nil), multiStrategies...)
}

// ParseStrategy converts a user-supplied name to a Strategy. Matching is
// case-insensitive and an empty name means Auto.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Auto, nil
	}
	for _, s := range allStrategies {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q", name)
}

// External reports whether the strategy shells out to another program.
func (s Strategy) External() bool {
	return s == HWP5Txt || s == LibreOffice
}

// Resolve maps Auto to a concrete strategy for path.
func (s Strategy) Resolve(path string) Strategy {
	if s != Auto {
		return s
	}
	if strings.EqualFold(filepath.Ext(path), ".hwpx") {
		return HWPX
	}
	return Multi
}

func (s Strategy) String() string { return string(s) }
