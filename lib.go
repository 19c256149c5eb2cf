// Package hwptext extracts plain text from Hangul Word Processor documents.
//
// Both the binary HWP v5 format (.hwp, an OLE compound file of compressed
// record streams) and the XML-based HWPX format (.hwpx, a zip archive) are
// supported. Extraction is best effort: damaged sections and records degrade
// to less text rather than failing the whole document.
//
// # Example Usage
//
//	text, err := hwptext.Extract(ctx, "document.hwp")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(text)
//
// Scripts that prefer a single output channel can use Text, which reports
// failures in place of the text as a line starting with "ERROR: ".
//
// # Strategies
//
// HWP v5 files can be decoded several ways. StrategyMulti (the default for
// .hwp files) runs the in-process decoders and keeps the longest result:
//   - StrategyScan reads decompressed sections as UTF-16 text, ignoring record framing
//   - StrategyRecord decodes the payloads of paragraph-text records
//   - StrategyResync does the same but steps over misaligned record headers
//   - StrategyWhole decodes each decompressed section as a whole
//   - StrategyParagraph follows packed record headers and inline controls
//
// StrategyHWP5Txt and StrategyLibreOffice delegate to external programs when
// they are installed.
package hwptext

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hanpama/hwptext/internal/convert"
	"github.com/hanpama/hwptext/internal/extract"
	"github.com/hanpama/hwptext/internal/hwpv5"
	"github.com/hanpama/hwptext/internal/hwpx"
)

// Strategy selects how a document is decoded.
type Strategy = extract.Strategy

const (
	StrategyAuto        = extract.Auto
	StrategyMulti       = extract.Multi
	StrategyScan        = extract.Scan
	StrategyRecord      = extract.Record
	StrategyResync      = extract.Resync
	StrategyWhole       = extract.Whole
	StrategyParagraph   = extract.Paragraph
	StrategyHWPX        = extract.HWPX
	StrategyHWP5Txt     = extract.HWP5Txt
	StrategyLibreOffice = extract.LibreOffice
)

// Strategies lists every strategy name ParseStrategy accepts.
func Strategies() []Strategy {
	return extract.Strategies()
}

// ParseStrategy converts a strategy name such as "multi" or "record".
func ParseStrategy(name string) (Strategy, error) {
	return extract.ParseStrategy(name)
}

// Errors returned by Extract. Use errors.Is to test for them.
var (
	ErrContainerOpen = hwpv5.ErrContainerOpen
	ErrSectionRead   = hwpv5.ErrSectionRead
	ErrNotZip        = hwpx.ErrNotZip
	ErrNoText        = extract.ErrNoText
	ErrFileNotFound  = convert.ErrFileNotFound
	ErrToolTimeout   = convert.ErrToolTimeout
	ErrToolMissing   = convert.ErrToolMissing
	ErrToolFailure   = convert.ErrToolFailure
)

// Comparison is the outcome of one strategy in Compare.
type Comparison = extract.Result

type options struct {
	strategy    Strategy
	logger      *zap.Logger
	timeout     time.Duration
	hwp5txt     string
	libreoffice string
}

// Option configures Extract, Text and Compare.
type Option func(*options)

// WithStrategy selects the decoding strategy. The default is StrategyAuto.
func WithStrategy(s Strategy) Option {
	return func(o *options) { o.strategy = s }
}

// WithLogger routes diagnostics about skipped sections and strategy
// selection to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTimeout bounds each external converter run. The default is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithHWP5Txt sets the hwp5txt executable used by StrategyHWP5Txt.
func WithHWP5Txt(bin string) Option {
	return func(o *options) { o.hwp5txt = bin }
}

// WithLibreOffice sets the office suite executable used by StrategyLibreOffice.
func WithLibreOffice(bin string) Option {
	return func(o *options) { o.libreoffice = bin }
}

func newPipeline(opts []Option) (*extract.Pipeline, options) {
	o := options{
		strategy: StrategyAuto,
		logger:   zap.NewNop(),
		timeout:  convert.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	p := extract.New(
		extract.WithLogger(o.logger),
		extract.WithConverter(StrategyHWP5Txt, &convert.HWP5Txt{Bin: o.hwp5txt, Timeout: o.timeout, Logger: o.logger}),
		extract.WithConverter(StrategyLibreOffice, &convert.LibreOffice{Bin: o.libreoffice, Timeout: o.timeout, Logger: o.logger}),
	)
	return p, o
}

// Extract returns the text of the document at path.
func Extract(ctx context.Context, path string, opts ...Option) (string, error) {
	p, o := newPipeline(opts)
	return p.Run(ctx, path, o.strategy)
}

// Text is Extract with failures rendered in place of the text, prefixed
// with "ERROR: ".
func Text(ctx context.Context, path string, opts ...Option) string {
	return extract.Output(Extract(ctx, path, opts...))
}

// Compare runs every in-process HWP v5 strategy against path and reports
// each outcome. The strategy option is ignored.
func Compare(ctx context.Context, path string, opts ...Option) []Comparison {
	p, _ := newPipeline(opts)
	return p.Compare(ctx, path)
}

// FormatError renders err the way Text reports failures.
func FormatError(err error) string {
	return extract.FormatError(err)
}
