package hwpv5

import (
	"encoding/binary"
	"io"
)

const (
	recTagBegin = 0x10

	// TagParaText marks a record whose payload is paragraph text.
	TagParaText uint32 = recTagBegin + 51

	// recHeaderSize is the width of the flat header: tag, level and size as
	// three little-endian uint32 values.
	recHeaderSize = 12
)

// Record is one tagged record. Data aliases the buffer it was parsed from.
type Record struct {
	Tag   uint32
	Level uint32
	Size  uint32
	Data  []byte
}

// RecWalker yields flat 12-byte-header records from a decompressed section.
type RecWalker struct {
	buf    []byte
	pos    int
	resync bool
}

// WalkOption configures a RecWalker.
type WalkOption func(*RecWalker)

// WithResync makes the walker treat a header whose payload overruns the
// buffer as misalignment: instead of stopping, it retries one byte later.
func WithResync() WalkOption {
	return func(w *RecWalker) { w.resync = true }
}

func NewRecWalker(buf []byte, opts ...WalkOption) *RecWalker {
	w := &RecWalker{buf: buf}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Next returns the next record, or io.EOF once fewer than a header's worth of
// bytes remain or a truncated record ends the usable data.
func (w *RecWalker) Next() (Record, error) {
	for len(w.buf)-w.pos >= recHeaderSize {
		h := w.buf[w.pos : w.pos+recHeaderSize]
		rec := Record{
			Tag:   binary.LittleEndian.Uint32(h[0:4]),
			Level: binary.LittleEndian.Uint32(h[4:8]),
			Size:  binary.LittleEndian.Uint32(h[8:12]),
		}

		start := w.pos + recHeaderSize
		if uint64(rec.Size) > uint64(len(w.buf)-start) {
			if w.resync {
				w.pos++
				continue
			}
			break
		}

		end := start + int(rec.Size)
		rec.Data = w.buf[start:end]
		w.pos = end
		return rec, nil
	}

	w.pos = len(w.buf)
	return Record{}, io.EOF
}

// RecScanner yields records framed with the packed HWP header: a uint32 whose
// low 10 bits are the tag, the next 10 bits the level and the top 12 bits the
// size, with 0xFFF announcing an extra uint32 size.
type RecScanner struct {
	buf []byte
	pos int
}

func NewRecScanner(buf []byte) *RecScanner {
	return &RecScanner{buf: buf}
}

// ScanNext returns the next record. A header or payload that runs past the
// end of the buffer ends the scan with io.ErrUnexpectedEOF.
func (s *RecScanner) ScanNext() (Record, error) {
	remaining := len(s.buf) - s.pos
	if remaining == 0 {
		return Record{}, io.EOF
	}
	if remaining < 4 {
		s.pos = len(s.buf)
		return Record{}, io.ErrUnexpectedEOF
	}

	headerRaw := binary.LittleEndian.Uint32(s.buf[s.pos:])
	s.pos += 4
	rec := Record{
		Tag:   headerRaw & 0x3ff,
		Level: (headerRaw >> 10) & 0x3ff,
		Size:  (headerRaw >> 20) & 0xfff,
	}
	if rec.Size == 0xfff {
		if len(s.buf)-s.pos < 4 {
			s.pos = len(s.buf)
			return Record{}, io.ErrUnexpectedEOF
		}
		rec.Size = binary.LittleEndian.Uint32(s.buf[s.pos:])
		s.pos += 4
	}

	if uint64(rec.Size) > uint64(len(s.buf)-s.pos) {
		s.pos = len(s.buf)
		return Record{}, io.ErrUnexpectedEOF
	}
	rec.Data = s.buf[s.pos : s.pos+int(rec.Size)]
	s.pos += int(rec.Size)
	return rec, nil
}
