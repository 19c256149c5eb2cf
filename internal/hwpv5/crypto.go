package hwpv5

import (
	"crypto/aes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	tagDistributeDocData = 0x1C
	distDataSize         = 256
)

// decryptViewText strips the distribution record from a ViewText section and
// decrypts the remainder with AES-128 ECB.
func decryptViewText(raw []byte) ([]byte, error) {
	if len(raw) < 4+distDataSize {
		return nil, fmt.Errorf("distribution stream too short: %d bytes", len(raw))
	}

	hdr := binary.LittleEndian.Uint32(raw[:4])
	tagID := hdr & 0x3FF
	size := hdr >> 20
	if tagID != tagDistributeDocData || size != distDataSize {
		return nil, fmt.Errorf("invalid distribution document stream (tag=0x%x, size=%d)", tagID, size)
	}

	key, err := deriveKey(raw[4 : 4+distDataSize])
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	body := raw[4+distDataSize:]
	if len(body)%aes.BlockSize != 0 {
		return nil, errors.New("encrypted stream not aligned to block size")
	}

	out := make([]byte, len(body))
	for off := 0; off < len(body); off += aes.BlockSize {
		block.Decrypt(out[off:off+aes.BlockSize], body[off:off+aes.BlockSize])
	}
	return out, nil
}

// deriveKey extracts the AES-128 key from the distribution record:
// the first 4 bytes seed an MSVC rand() sequence that expands into a 256-byte
// mask, the mask is XORed over the record, and the key is the 16 bytes found at
// offset (seed & 0x0F) + 4.
func deriveKey(distData []byte) ([]byte, error) {
	if len(distData) != distDataSize {
		return nil, errors.New("invalid distribution data size")
	}

	seed := binary.LittleEndian.Uint32(distData[0:4])
	rng := &msvcRand{state: seed}

	var mask [distDataSize]byte
	for i := 0; i < distDataSize; {
		val := byte(rng.rand() & 0xFF)
		run := int(rng.rand()&0x0F) + 1
		for j := 0; j < run && i < distDataSize; j++ {
			mask[i] = val
			i++
		}
	}

	offset := int(seed&0x0F) + 4
	key := make([]byte, 16)
	for i := range key {
		key[i] = distData[offset+i] ^ mask[offset+i]
	}
	return key, nil
}

// msvcRand implements MS Visual C++ rand(): next = previous * 214013 + 2531011.
type msvcRand struct {
	state uint32
}

func (r *msvcRand) rand() uint32 {
	r.state = r.state*214013 + 2531011
	return (r.state >> 16) & 0x7FFF
}
