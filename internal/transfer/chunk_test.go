package transfer

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/postalsys/croc-go/internal/envelope"
	"github.com/postalsys/croc-go/internal/protocol"
)

func TestSendRecvChunksRoundTrip(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src.bin")
	data := make([]byte, protocol.ChunkSize+100)
	for i := range data {
		data[i] = byte(i)
	}
	if err := os.WriteFile(srcPath, data, 0o644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	sessionKey := []byte("0123456789abcdef0123456789abcdef")
	salt := []byte("saltsalt")
	senderEnv, err := envelope.New(sessionKey, salt)
	if err != nil {
		t.Fatalf("envelope.New error = %v", err)
	}
	receiverEnv, err := envelope.New(sessionKey, salt)
	if err != nil {
		t.Fatalf("envelope.New error = %v", err)
	}

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	senderFramer := protocol.NewFramer(a)
	receiverFramer := protocol.NewFramer(b)

	destPath := filepath.Join(dir, "dst.bin")
	dest, err := createDestFile(destPath, int64(len(data)), 0o644)
	if err != nil {
		t.Fatalf("createDestFile error = %v", err)
	}
	defer dest.Close()

	numChunks := (int64(len(data)) + protocol.ChunkSize - 1) / protocol.ChunkSize

	done := make(chan error, 1)
	go func() {
		done <- sendChunks(senderFramer, senderEnv, srcPath, int64(len(data)), nil)
	}()

	if err := recvChunks(receiverFramer, receiverEnv, dest, numChunks, nil); err != nil {
		t.Fatalf("recvChunks error = %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("sendChunks error = %v", err)
	}

	got, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("ReadFile error = %v", err)
	}
	if len(got) != len(data) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], data[i])
		}
	}
}
