package protocol

import (
	"encoding/binary"
	"fmt"
)

// EncodeChunk prepends an 8-byte little-endian file offset to data, ready
// for AEAD sealing and frame-writing on the bulk channel (spec §3/§4.7).
func EncodeChunk(offset int64, data []byte) []byte {
	buf := make([]byte, 8+len(data))
	binary.LittleEndian.PutUint64(buf[:8], uint64(offset))
	copy(buf[8:], data)
	return buf
}

// DecodeChunk splits a decrypted bulk-channel payload into its offset and
// data.
func DecodeChunk(payload []byte) (offset int64, data []byte, err error) {
	if len(payload) < 8 {
		return 0, nil, fmt.Errorf("protocol: chunk payload shorter than offset header")
	}
	offset = int64(binary.LittleEndian.Uint64(payload[:8]))
	data = payload[8:]
	return offset, data, nil
}
