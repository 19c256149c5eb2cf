package hwpv5

import (
	"bytes"
	"compress/flate"
	"io"
)

// Inflate reverses the raw deflate compression applied to body text streams.
// Streams that are stored uncompressed, or whose compressed data is damaged,
// are returned unchanged.
func Inflate(raw []byte) []byte {
	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return raw
	}
	return out
}
