package testutil

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"unicode/utf16"
)

const (
	sectorSize     = 512
	miniSectorSize = 64
	miniCutoff     = 4096
	entriesPerFAT  = sectorSize / 4

	freeSect   uint32 = 0xFFFFFFFF
	endOfChain uint32 = 0xFFFFFFFE
	fatSect    uint32 = 0xFFFFFFFD
	noStream   uint32 = 0xFFFFFFFF

	typeStorage byte = 0x1
	typeStream  byte = 0x2
	typeRoot    byte = 0x5
)

type cfbEntry struct {
	name     string
	typ      byte
	data     []byte
	children []int
	start    uint32
	size     uint32
}

// BuildCFB returns a version 3 compound file holding streams. Keys are
// slash-separated paths such as "BodyText/Section0"; intermediate storages are
// created as needed. Streams shorter than 4096 bytes live in the mini stream.
func BuildCFB(streams map[string][]byte) []byte {
	entries := []*cfbEntry{{name: "Root Entry", typ: typeRoot}}
	storages := map[string]int{"": 0}

	paths := make([]string, 0, len(streams))
	for p := range streams {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		parts := strings.Split(p, "/")
		parent := 0
		for i, part := range parts[:len(parts)-1] {
			key := strings.Join(parts[:i+1], "/")
			idx, ok := storages[key]
			if !ok {
				idx = len(entries)
				entries = append(entries, &cfbEntry{name: part, typ: typeStorage})
				entries[parent].children = append(entries[parent].children, idx)
				storages[key] = idx
			}
			parent = idx
		}
		idx := len(entries)
		entries = append(entries, &cfbEntry{name: parts[len(parts)-1], typ: typeStream, data: streams[p]})
		entries[parent].children = append(entries[parent].children, idx)
	}

	// Lay out the mini stream and the regular streams.
	var (
		ministream []byte
		miniFAT    []uint32
		bigStreams []*cfbEntry
	)
	for _, e := range entries {
		if e.typ != typeStream {
			continue
		}
		e.size = uint32(len(e.data))
		switch {
		case len(e.data) == 0:
			e.start = endOfChain
		case len(e.data) < miniCutoff:
			first := uint32(len(miniFAT))
			n := (len(e.data) + miniSectorSize - 1) / miniSectorSize
			for i := 0; i < n; i++ {
				next := first + uint32(i) + 1
				if i == n-1 {
					next = endOfChain
				}
				miniFAT = append(miniFAT, next)
			}
			e.start = first
			padded := make([]byte, n*miniSectorSize)
			copy(padded, e.data)
			ministream = append(ministream, padded...)
		default:
			bigStreams = append(bigStreams, e)
		}
	}

	dirSectors := ceilDiv(len(entries)*128, sectorSize)
	miniFATSectors := ceilDiv(len(miniFAT)*4, sectorSize)
	miniStreamSectors := ceilDiv(len(ministream), sectorSize)
	bigSectors := 0
	for _, e := range bigStreams {
		bigSectors += ceilDiv(len(e.data), sectorSize)
	}
	payloadSectors := dirSectors + miniFATSectors + miniStreamSectors + bigSectors
	fatSectors := 1
	for fatSectors*entriesPerFAT < payloadSectors+fatSectors {
		fatSectors++
	}
	total := fatSectors + payloadSectors

	fat := make([]uint32, fatSectors*entriesPerFAT)
	for i := range fat {
		fat[i] = freeSect
	}
	for i := 0; i < fatSectors; i++ {
		fat[i] = fatSect
	}
	next := uint32(fatSectors)
	chain := func(n int) uint32 {
		if n == 0 {
			return endOfChain
		}
		start := next
		for i := 0; i < n; i++ {
			if i == n-1 {
				fat[next] = endOfChain
			} else {
				fat[next] = next + 1
			}
			next++
		}
		return start
	}

	dirStart := chain(dirSectors)
	miniFATStart := chain(miniFATSectors)
	entries[0].start = chain(miniStreamSectors)
	entries[0].size = uint32(len(ministream))
	for _, e := range bigStreams {
		e.start = chain(ceilDiv(len(e.data), sectorSize))
	}

	out := make([]byte, sectorSize*(1+total))
	writeHeader(out[:sectorSize], fatSectors, dirStart, miniFATStart, miniFATSectors)

	sector := func(n uint32) []byte {
		off := int(n+1) * sectorSize
		return out[off : off+sectorSize]
	}
	for i := 0; i < fatSectors; i++ {
		s := sector(uint32(i))
		for j := 0; j < entriesPerFAT; j++ {
			binary.LittleEndian.PutUint32(s[j*4:], fat[i*entriesPerFAT+j])
		}
	}

	dir := make([]byte, dirSectors*sectorSize)
	for i := 0; i < dirSectors*sectorSize/128; i++ {
		slot := dir[i*128 : (i+1)*128]
		if i < len(entries) {
			writeDirEntry(slot, entries, i)
		} else {
			binary.LittleEndian.PutUint32(slot[68:], noStream)
			binary.LittleEndian.PutUint32(slot[72:], noStream)
			binary.LittleEndian.PutUint32(slot[76:], noStream)
		}
	}
	copy(out[int(dirStart+1)*sectorSize:], dir)

	if miniFATSectors > 0 {
		mf := make([]byte, miniFATSectors*sectorSize)
		for i := range mf {
			mf[i] = 0xFF
		}
		for i, v := range miniFAT {
			binary.LittleEndian.PutUint32(mf[i*4:], v)
		}
		copy(out[int(miniFATStart+1)*sectorSize:], mf)
	}
	if miniStreamSectors > 0 {
		copy(out[int(entries[0].start+1)*sectorSize:], ministream)
	}
	for _, e := range bigStreams {
		copy(out[int(e.start+1)*sectorSize:], e.data)
	}
	return out
}

func writeHeader(h []byte, fatSectors int, dirStart, miniFATStart uint32, miniFATSectors int) {
	copy(h, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	binary.LittleEndian.PutUint16(h[24:], 0x003E)
	binary.LittleEndian.PutUint16(h[26:], 0x0003)
	binary.LittleEndian.PutUint16(h[28:], 0xFFFE)
	binary.LittleEndian.PutUint16(h[30:], 9)
	binary.LittleEndian.PutUint16(h[32:], 6)
	binary.LittleEndian.PutUint32(h[44:], uint32(fatSectors))
	binary.LittleEndian.PutUint32(h[48:], dirStart)
	binary.LittleEndian.PutUint32(h[56:], miniCutoff)
	binary.LittleEndian.PutUint32(h[60:], miniFATStart)
	binary.LittleEndian.PutUint32(h[64:], uint32(miniFATSectors))
	binary.LittleEndian.PutUint32(h[68:], endOfChain)
	for i := 0; i < 109; i++ {
		v := freeSect
		if i < fatSectors {
			v = uint32(i)
		}
		binary.LittleEndian.PutUint32(h[76+i*4:], v)
	}
}

// writeDirEntry links siblings as a right-leaning chain, which is a valid
// (if unbalanced) directory tree.
func writeDirEntry(slot []byte, entries []*cfbEntry, i int) {
	e := entries[i]
	name := utf16.Encode([]rune(e.name))
	for j, u := range name {
		binary.LittleEndian.PutUint16(slot[j*2:], u)
	}
	binary.LittleEndian.PutUint16(slot[64:], uint16((len(name)+1)*2))
	slot[66] = e.typ
	slot[67] = 1

	left, right, child := noStream, noStream, noStream
	if len(e.children) > 0 {
		child = uint32(e.children[0])
	}
	if i > 0 {
		right = nextSibling(entries, i)
	}
	binary.LittleEndian.PutUint32(slot[68:], left)
	binary.LittleEndian.PutUint32(slot[72:], right)
	binary.LittleEndian.PutUint32(slot[76:], child)

	start := e.start
	if e.typ == typeStorage {
		start = 0
	}
	binary.LittleEndian.PutUint32(slot[116:], start)
	binary.LittleEndian.PutUint32(slot[120:], e.size)
}

func nextSibling(entries []*cfbEntry, i int) uint32 {
	for _, parent := range entries {
		for k, c := range parent.children {
			if c == i && k+1 < len(parent.children) {
				return uint32(parent.children[k+1])
			}
		}
	}
	return noStream
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// WriteCFB writes a compound file built from streams into dir and returns its path.
func WriteCFB(t testing.TB, dir, name string, streams map[string][]byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, BuildCFB(streams), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
