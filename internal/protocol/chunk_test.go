package protocol

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeChunkRoundTrip(t *testing.T) {
	data := []byte("some file bytes")
	encoded := EncodeChunk(65536, data)

	offset, got, err := DecodeChunk(encoded)
	if err != nil {
		t.Fatalf("DecodeChunk error = %v", err)
	}
	if offset != 65536 {
		t.Errorf("offset = %d, want 65536", offset)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("data = %q, want %q", got, data)
	}
}

func TestDecodeChunkTooShortFails(t *testing.T) {
	if _, _, err := DecodeChunk([]byte("short")); err == nil {
		t.Fatal("expected error for short chunk payload")
	}
}
