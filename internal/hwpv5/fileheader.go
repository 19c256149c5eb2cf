package hwpv5

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	signatureText  = "HWP Document File"
	fileHeaderName = "FileHeader"
)

// Version stores the four-part HWP version number (MM.nn.PP.rr).
type Version struct {
	Major byte
	Minor byte
	Patch byte
	Rev   byte
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Rev)
}

// Properties is the attribute bitfield stored after the version number.
type Properties uint32

func (p Properties) Compressed() bool   { return p&0x1 != 0 }
func (p Properties) Encrypted() bool    { return p&0x2 != 0 }
func (p Properties) Distribution() bool { return p&0x4 != 0 }

// FileHeader holds the fields of the FileHeader stream that affect text extraction.
type FileHeader struct {
	Signature  string
	Version    Version
	Properties Properties
}

func parseFileHeader(b []byte) (FileHeader, error) {
	var hdr FileHeader
	if len(b) < 40 {
		return hdr, fmt.Errorf("file header too short: %d bytes", len(b))
	}

	hdr.Signature = string(bytes.TrimRight(b[:32], "\x00"))
	if hdr.Signature != signatureText {
		return hdr, fmt.Errorf("unexpected signature %q", hdr.Signature)
	}

	ver := binary.LittleEndian.Uint32(b[32:36])
	hdr.Version = Version{
		Major: byte(ver >> 24),
		Minor: byte(ver >> 16),
		Patch: byte(ver >> 8),
		Rev:   byte(ver),
	}
	hdr.Properties = Properties(binary.LittleEndian.Uint32(b[36:40]))
	return hdr, nil
}
