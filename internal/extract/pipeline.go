// Package extract turns HWP and HWPX documents into plain text using one of
// several interchangeable strategies.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hanpama/hwptext/internal/convert"
	"github.com/hanpama/hwptext/internal/hwpv5"
	"github.com/hanpama/hwptext/internal/hwpx"
	"go.uber.org/zap"
)

// ErrNoText reports that a document produced no text.
var ErrNoText = errors.New("no text extracted")

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger passed down to the decoders.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.log = logger
		}
	}
}

// WithConverter installs the converter used for an external strategy.
func WithConverter(s Strategy, c convert.Converter) Option {
	return func(p *Pipeline) {
		p.converters[s] = c
	}
}

// Pipeline runs extraction strategies against files. It holds no per-file
// state and is safe for concurrent use.
type Pipeline struct {
	log        *zap.Logger
	converters map[Strategy]convert.Converter
}

func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		log:        zap.NewNop(),
		converters: make(map[Strategy]convert.Converter),
	}
	for _, opt := range opts {
		opt(p)
	}
	if _, ok := p.converters[HWP5Txt]; !ok {
		p.converters[HWP5Txt] = &convert.HWP5Txt{Logger: p.log}
	}
	if _, ok := p.converters[LibreOffice]; !ok {
		p.converters[LibreOffice] = &convert.LibreOffice{Logger: p.log}
	}
	return p
}

// Run extracts text from path with strategy s. Single in-process strategies
// may return empty text without an error; Multi and HWPX report ErrNoText.
func (p *Pipeline) Run(ctx context.Context, path string, s Strategy) (string, error) {
	resolved := s.Resolve(path)
	log := p.log.With(zap.String("strategy", resolved.String()), zap.String("path", path))
	log.Debug("extracting")

	var (
		text string
		err  error
	)
	switch resolved {
	case Multi:
		text, err = p.multi(ctx, path, log)
	case Scan, Record, Resync, Whole, Paragraph:
		text, err = p.decodeHWP(path, resolved, log)
	case HWPX:
		text, err = p.decodeHWPX(path, log)
	default:
		if !resolved.External() {
			return "", fmt.Errorf("unknown strategy %q", s)
		}
		text, err = p.convert(ctx, path, resolved, log)
	}

	if err != nil {
		log.Debug("extraction failed", zap.Error(err))
		return "", err
	}
	log.Debug("extracted", zap.Int("chars", CharCount(text)), zap.String("preview", Preview(text, previewWidth)))
	return text, nil
}

func (p *Pipeline) convert(ctx context.Context, path string, s Strategy, log *zap.Logger) (string, error) {
	c, ok := p.converters[s]
	if !ok {
		return "", fmt.Errorf("no converter installed for %s", s)
	}
	log.Debug("running converter", zap.String("tool", c.Name()))
	return c.Convert(ctx, path)
}

// sectionDecoder turns one decompressed section into text.
type sectionDecoder func(buf []byte) string

func decoderFor(s Strategy) sectionDecoder {
	switch s {
	case Scan:
		return hwpv5.ScanPrintable
	case Record:
		return func(buf []byte) string { return DecodeRecords(buf, "\n") }
	case Resync:
		return func(buf []byte) string { return DecodeRecords(buf, "\n", hwpv5.WithResync()) }
	case Whole:
		return hwpv5.DecodeWhole
	case Paragraph:
		return DecodeParagraphs
	}
	return nil
}

// keepSection reports whether a decoded section is part of the output.
// Record-scoped decoders keep any non-empty section; the others drop
// whitespace-only sections.
func keepSection(s Strategy) func(string) bool {
	if s == Record || s == Resync {
		return func(text string) bool { return text != "" }
	}
	return func(text string) bool { return strings.TrimSpace(text) != "" }
}

// decodeHWP opens the container, inflates each section and decodes it.
// Sections that keepSection rejects are dropped; the rest are joined with
// newlines in section order.
func (p *Pipeline) decodeHWP(path string, s Strategy, log *zap.Logger) (string, error) {
	return p.decodeHWPWith(path, decoderFor(s), keepSection(s), log)
}

func (p *Pipeline) decodeHWPWith(path string, decode sectionDecoder, keep func(string) bool, log *zap.Logger) (string, error) {
	c, err := hwpv5.Open(path, hwpv5.WithLogger(log))
	if err != nil {
		return "", err
	}
	defer c.Close()

	// Without a FileHeader every section is tried as deflate data;
	// Inflate hands back anything that is not.
	compressed := !c.HasHeader() || c.Header.Properties.Compressed()

	// Unreadable sections have already been logged and skipped.
	sections, _ := c.Sections()

	var parts []string
	for _, sec := range sections {
		raw := sec.Raw
		if compressed {
			raw = hwpv5.Inflate(raw)
		}
		text := decode(raw)
		if !keep(text) {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), nil
}

func (p *Pipeline) decodeHWPX(path string, log *zap.Logger) (string, error) {
	if err := convert.CheckInput(path); err != nil {
		return "", err
	}
	r, err := hwpx.Open(path, hwpx.WithLogger(log))
	if err != nil {
		return "", err
	}
	defer r.Close()

	log.Debug("hwpx document",
		zap.Stringer("version", r.Version()),
		zap.Strings("sections", r.SectionNames()))

	text, err := r.Text()
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// DecodeRecords walks flat 12-byte-header records and decodes the payload of
// every paragraph-text record, appending sep after each one.
func DecodeRecords(buf []byte, sep string, opts ...hwpv5.WalkOption) string {
	var sb strings.Builder
	w := hwpv5.NewRecWalker(buf, opts...)
	for {
		rec, err := w.Next()
		if err != nil {
			break
		}
		if rec.Tag != hwpv5.TagParaText {
			continue
		}
		sb.WriteString(hwpv5.DecodeWide(rec.Data))
		sb.WriteString(sep)
	}
	return sb.String()
}

// DecodeParagraphs walks packed-header records and renders each
// paragraph-text record with its inline controls resolved, one paragraph per
// line.
func DecodeParagraphs(buf []byte) string {
	var paras []string
	s := hwpv5.NewRecScanner(buf)
	for {
		rec, err := s.ScanNext()
		if err != nil {
			break
		}
		if rec.Tag == hwpv5.TagParaText {
			paras = append(paras, hwpv5.ParaText(rec.Data))
		}
	}
	return strings.Join(paras, "\n")
}
