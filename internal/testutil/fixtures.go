// Package testutil builds HWP and HWPX fixtures in memory so tests do not
// depend on binary files checked into the repository.
package testutil

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"crypto/aes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"unicode/utf16"
)

// Wide encodes s as UTF-16LE.
func Wide(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[i*2:], u)
	}
	return out
}

// Deflate compresses b as a raw deflate stream with no zlib header.
func Deflate(b []byte) []byte {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(b); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Record12 frames payload with a flat header of three little-endian uint32
// values: tag, level and payload size.
func Record12(tag, level uint32, payload []byte) []byte {
	out := make([]byte, 12+len(payload))
	binary.LittleEndian.PutUint32(out[0:], tag)
	binary.LittleEndian.PutUint32(out[4:], level)
	binary.LittleEndian.PutUint32(out[8:], uint32(len(payload)))
	copy(out[12:], payload)
	return out
}

// PackedRecord frames payload with the packed HWP record header, spilling the
// size into a second uint32 when it does not fit in 12 bits.
func PackedRecord(tag, level uint32, payload []byte) []byte {
	size := uint32(len(payload))
	var hdr []byte
	if size >= 0xFFF {
		hdr = make([]byte, 8)
		binary.LittleEndian.PutUint32(hdr, tag&0x3FF|(level&0x3FF)<<10|0xFFF<<20)
		binary.LittleEndian.PutUint32(hdr[4:], size)
	} else {
		hdr = make([]byte, 4)
		binary.LittleEndian.PutUint32(hdr, tag&0x3FF|(level&0x3FF)<<10|size<<20)
	}
	return append(hdr, payload...)
}

// Property bits of the FileHeader stream.
const (
	PropCompressed   uint32 = 0x1
	PropEncrypted    uint32 = 0x2
	PropDistribution uint32 = 0x4
)

// FileHeader returns a 256-byte FileHeader stream for version 5.1.0.1 with
// the given property bits.
func FileHeader(props uint32) []byte {
	out := make([]byte, 256)
	copy(out, "HWP Document File")
	binary.LittleEndian.PutUint32(out[32:], 0x05010001)
	binary.LittleEndian.PutUint32(out[36:], props)
	return out
}

// Distribute builds a ViewText section stream: a distribution record
// carrying key, followed by plain zero-padded to the AES block size and
// encrypted with AES-128 ECB.
func Distribute(plain []byte, seed uint32, key []byte) []byte {
	if len(key) != 16 {
		panic("testutil: distribution key must be 16 bytes")
	}

	var mask [256]byte
	state := seed
	rnd := func() uint32 {
		state = state*214013 + 2531011
		return (state >> 16) & 0x7FFF
	}
	for i := 0; i < len(mask); {
		val := byte(rnd() & 0xFF)
		run := int(rnd()&0x0F) + 1
		for j := 0; j < run && i < len(mask); j++ {
			mask[i] = val
			i++
		}
	}

	dist := make([]byte, 256)
	binary.LittleEndian.PutUint32(dist, seed)
	off := int(seed&0x0F) + 4
	for i := range key {
		dist[off+i] = mask[off+i] ^ key[i]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		panic(err)
	}
	n := (len(plain) + aes.BlockSize - 1) / aes.BlockSize * aes.BlockSize
	body := make([]byte, n)
	copy(body, plain)
	for i := 0; i < n; i += aes.BlockSize {
		block.Encrypt(body[i:i+aes.BlockSize], body[i:i+aes.BlockSize])
	}

	out := make([]byte, 4, 4+len(dist)+len(body))
	binary.LittleEndian.PutUint32(out, 0x1C|256<<20)
	out = append(out, dist...)
	return append(out, body...)
}

// ZipEntry is one member of a fixture archive.
type ZipEntry struct {
	Name string
	Body string
}

// BuildZip writes entries into an in-memory zip archive in the given order.
func BuildZip(entries []ZipEntry) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(e.Body)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// SectionXML wraps paragraphs in a minimal HWPX section document using the
// 2011 paragraph namespace.
func SectionXML(paragraphs ...string) string {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<hs:sec xmlns:hs="http://www.hancom.co.kr/hwpml/2011/section" xmlns:hp="http://www.hancom.co.kr/hwpml/2011/paragraph">`)
	for _, p := range paragraphs {
		b.WriteString(`<hp:p><hp:run><hp:t>`)
		xmlEscape(&b, p)
		b.WriteString(`</hp:t></hp:run></hp:p>`)
	}
	b.WriteString(`</hs:sec>`)
	return b.String()
}

func xmlEscape(b *bytes.Buffer, s string) {
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(r)
		}
	}
}

// BuildHWPX returns an HWPX package holding the given section bodies as
// Contents/section<i>.xml, preceded by the mimetype member.
func BuildHWPX(sections ...string) []byte {
	entries := []ZipEntry{{Name: "mimetype", Body: "application/hwp+zip"}}
	for i, s := range sections {
		entries = append(entries, ZipEntry{Name: sectionName(i), Body: s})
	}
	return BuildZip(entries)
}

func sectionName(i int) string {
	return "Contents/section" + strconv.Itoa(i) + ".xml"
}

// WriteFile writes data into dir/name and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Section builds a BodyText section from paragraph strings, each framed as a
// PARA_TEXT record with the flat 12-byte header.
func Section(paragraphs ...string) []byte {
	var out []byte
	for _, p := range paragraphs {
		out = append(out, Record12(67, 0, Wide(p))...)
	}
	return out
}

// PackedSection is Section with packed record headers.
func PackedSection(paragraphs ...string) []byte {
	var out []byte
	for _, p := range paragraphs {
		out = append(out, PackedRecord(67, 0, Wide(p))...)
	}
	return out
}
