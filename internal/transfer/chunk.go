package transfer

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/postalsys/croc-go/internal/envelope"
	"github.com/postalsys/croc-go/internal/protocol"
)

// bulkConn is the multiplex connection carrying one session's chunk
// traffic, opened once and reused across every file in the transfer.
type bulkConn struct {
	conn   net.Conn
	framer *protocol.Framer
}

func (b *bulkConn) Close() error {
	return b.conn.Close()
}

// openBulkConn opens the multiplex connection used for a session's chunk
// traffic and joins the relay room that pairs it with the peer's own bulk
// connection. The returned framer carries no envelope of its own — chunk
// frames are sealed with the inner PAKE's envelope, shared with the
// control channel, not a fresh one negotiated here.
func openBulkConn(ctx context.Context, s *session) (*bulkConn, error) {
	conn, err := dialRelay(ctx, s.bulkAddress())
	if err != nil {
		return nil, err
	}
	framer := protocol.NewFramer(conn)
	if _, err := negotiateWithRelay(framer, multiplexPassword, multiplexRoomName(s.cfg.SharedSecret)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("transfer: negotiate bulk channel: %w", err)
	}
	return &bulkConn{conn: conn, framer: framer}, nil
}

// sendChunks streams every 65536-byte chunk of the file at path across
// bulk, sealing each with env and prefixing it with its file offset.
func sendChunks(bulk *protocol.Framer, env *envelope.Envelope, path string, size int64, tracker *progressTracker) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("transfer: open source file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, protocol.ChunkSize)
	for offset := int64(0); offset < size; offset += protocol.ChunkSize {
		want := size - offset
		if want > protocol.ChunkSize {
			want = protocol.ChunkSize
		}
		n, err := f.ReadAt(buf[:want], offset)
		if err != nil {
			return fmt.Errorf("transfer: read source chunk at %d: %w", offset, err)
		}

		payload := protocol.EncodeChunk(offset, buf[:n])
		ct, err := env.Encrypt(payload)
		if err != nil {
			return fmt.Errorf("transfer: seal chunk at %d: %w", offset, err)
		}
		if err := bulk.WriteFrame(ct); err != nil {
			return fmt.Errorf("transfer: write chunk at %d: %w", offset, err)
		}
		tracker.add(int64(n))
	}
	return nil
}

// recvChunks reads exactly numChunks frames from bulk, decrypting and
// writing each to dest at its tagged offset. Chunks may arrive out of
// order; the offset tag, not arrival order, determines placement.
func recvChunks(bulk *protocol.Framer, env *envelope.Envelope, dest *destFile, numChunks int64, tracker *progressTracker) error {
	for i := int64(0); i < numChunks; i++ {
		ct, err := bulk.ReadFrame()
		if err != nil {
			return fmt.Errorf("transfer: read chunk frame: %w", err)
		}
		plain, err := env.Decrypt(ct)
		if err != nil {
			return fmt.Errorf("transfer: open chunk frame: %w", err)
		}
		offset, data, err := protocol.DecodeChunk(plain)
		if err != nil {
			return fmt.Errorf("transfer: decode chunk: %w", err)
		}
		if err := dest.writeAt(offset, data); err != nil {
			return fmt.Errorf("transfer: write chunk at %d: %w", offset, err)
		}
		tracker.add(int64(len(data)))
	}
	return nil
}
