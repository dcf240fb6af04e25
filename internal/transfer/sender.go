package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/postalsys/croc-go/internal/protocol"
)

// Send dials the relay, pairs with a receiver under cfg.SharedSecret, and
// streams every file under paths (each a file or a directory to recurse
// into). onProgress, if non-nil, is called after every chunk with the
// running total and the transfer's overall size.
func Send(ctx context.Context, cfg Config, paths []string, onProgress progressFunc) (Result, error) {
	start := time.Now()
	logger := cfg.logger()

	s, err := bootstrap(ctx, cfg, RoleSender)
	if err != nil {
		return Result{}, err
	}
	defer s.conn.Close()

	cc, err := keyExchangeAsSender(s.framer, innerWeakKey(cfg.SharedSecret))
	if err != nil {
		return Result{}, err
	}
	s.cc = cc
	s.state = StateIPExchange

	peerIPMsg, err := cc.recv()
	if err != nil {
		return Result{}, fmt.Errorf("transfer: read peer external ip: %w", err)
	}
	peerIP, ok := peerIPMsg.(protocol.ExternalIPMessage)
	if !ok {
		return Result{}, fmt.Errorf("%w: expected externalip, got %T", ErrInvalidState, peerIPMsg)
	}
	s.peerIP = peerIP.M
	if err := cc.send(protocol.ExternalIPMessage{M: s.selfExternalIP}); err != nil {
		return Result{}, fmt.Errorf("transfer: send external ip: %w", err)
	}
	s.state = StateFileInfoTransfer

	entries, emptyFolders, err := buildManifest(paths)
	if err != nil {
		return Result{}, err
	}

	infos := make([]protocol.FileInfo, len(entries))
	for i, e := range entries {
		infos[i] = e.info
	}

	if err := cc.send(protocol.FileInfoMessage{
		FilesToTransfer:        infos,
		EmptyFoldersToTransfer: emptyFolders,
		TotalNumberFolders:     len(emptyFolders),
		HashAlgorithm:          "sha256",
	}); err != nil {
		return Result{}, fmt.Errorf("transfer: send manifest: %w", err)
	}
	s.state = StateFileTransfer

	var bulk *bulkConn
	total := protocol.TotalSize(infos)
	tracker := newProgressTracker(total, onProgress)

	for {
		msg, err := cc.recv()
		if err != nil {
			return Result{}, fmt.Errorf("transfer: read sender loop message: %w", err)
		}

		switch m := msg.(type) {
		case protocol.RecipientReadyMessage:
			if bulk == nil {
				bulk, err = openBulkConn(ctx, s)
				if err != nil {
					return Result{}, err
				}
				defer bulk.Close()
			}
			idx := m.FilesToTransferCurrentNum
			if idx < 0 || idx >= len(entries) {
				return Result{}, fmt.Errorf("%w: recipient ready for out-of-range file %d", ErrInvalidState, idx)
			}
			entry := entries[idx]
			if err := sendChunks(bulk.framer, cc.env, entry.path, entry.info.Size, tracker); err != nil {
				return Result{}, err
			}

		case protocol.ErrorMessage:
			return Result{}, fmt.Errorf("%w: %s", ErrTransferDenied, m.M)

		case protocol.FinishedMessage:
			if err := cc.send(protocol.FinishedMessage{}); err != nil {
				logger.Debug("transfer: final finished ack failed", "error", err)
			}
			s.state = StateFileTransferred
			logger.Info("transfer complete",
				"files", len(entries),
				"size", humanize.Bytes(uint64(total)),
				"peer", s.peerIP,
				"elapsed", time.Since(start))
			return Result{
				Files:     len(entries),
				TotalSize: total,
				PeerIP:    s.peerIP,
				Elapsed:   time.Since(start),
			}, nil

		default:
			return Result{}, fmt.Errorf("%w: unexpected message %T in file transfer loop", ErrInvalidState, msg)
		}
	}
}
