package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/postalsys/croc-go/internal/protocol"
)

// Receive dials the relay, pairs with a sender under cfg.SharedSecret, and
// writes every file the sender offers under destDir, prompting cfg.Confirmer
// once with the manifest totals before accepting.
func Receive(ctx context.Context, cfg Config, destDir string, onProgress progressFunc) (Result, error) {
	start := time.Now()

	s, err := bootstrap(ctx, cfg, RoleReceiver)
	if err != nil {
		return Result{}, err
	}
	defer s.conn.Close()

	cc, err := keyExchangeAsReceiver(s.framer, innerWeakKey(cfg.SharedSecret))
	if err != nil {
		return Result{}, err
	}
	s.cc = cc
	s.state = StateIPExchange

	if err := cc.send(protocol.ExternalIPMessage{M: s.selfExternalIP}); err != nil {
		return Result{}, fmt.Errorf("transfer: send external ip: %w", err)
	}
	peerIPMsg, err := cc.recv()
	if err != nil {
		return Result{}, fmt.Errorf("transfer: read peer external ip: %w", err)
	}
	peerIP, ok := peerIPMsg.(protocol.ExternalIPMessage)
	if !ok {
		return Result{}, fmt.Errorf("%w: expected externalip, got %T", ErrInvalidState, peerIPMsg)
	}
	s.peerIP = peerIP.M
	s.state = StateFileInfoTransfer

	manifestMsg, err := cc.recv()
	if err != nil {
		return Result{}, fmt.Errorf("transfer: read manifest: %w", err)
	}
	manifest, ok := manifestMsg.(protocol.FileInfoMessage)
	if !ok {
		return Result{}, fmt.Errorf("%w: expected fileinfo, got %T", ErrInvalidState, manifestMsg)
	}

	confirmer := cfg.Confirmer
	if confirmer == nil {
		confirmer = confirmRefuse{}
	}
	if !confirmer.Confirm(len(manifest.FilesToTransfer), protocol.TotalSize(manifest.FilesToTransfer)) {
		if err := cc.send(protocol.ErrorMessage{M: "refusing files"}); err != nil {
			return Result{}, fmt.Errorf("transfer: send refusal: %w", err)
		}
		return Result{}, ErrTransferDenied
	}

	for _, folder := range manifest.EmptyFoldersToTransfer {
		if err := os.MkdirAll(filepath.Join(destDir, folder), 0o755); err != nil {
			return Result{}, fmt.Errorf("transfer: create empty folder %s: %w", folder, err)
		}
	}

	s.state = StateFileTransfer
	tracker := newProgressTracker(protocol.TotalSize(manifest.FilesToTransfer), onProgress)

	if len(manifest.FilesToTransfer) == 0 {
		if err := cc.send(protocol.FinishedMessage{}); err != nil {
			return Result{}, fmt.Errorf("transfer: send finished: %w", err)
		}
		s.state = StateFileTransferred
		return Result{PeerIP: s.peerIP, Elapsed: time.Since(start)}, nil
	}

	bulk, err := openBulkConn(ctx, s)
	if err != nil {
		return Result{}, err
	}
	defer bulk.Close()

	for idx, fi := range manifest.FilesToTransfer {
		destPath, err := resolveDestPath(destDir, fileEntry{Name: fi.Name, RemoteFolder: fi.RemoteFolder})
		if err != nil {
			return Result{}, err
		}
		dest, err := createDestFile(destPath, fi.Size, os.FileMode(fi.Mode))
		if err != nil {
			return Result{}, err
		}

		if err := cc.send(protocol.RecipientReadyMessage{
			FilesToTransferCurrentNum: idx,
			CurrentFileChunkRanges:    []int64{0, fi.NumChunks()},
		}); err != nil {
			dest.Close()
			return Result{}, fmt.Errorf("transfer: send recipient ready: %w", err)
		}

		err = recvChunks(bulk.framer, cc.env, dest, fi.NumChunks(), tracker)
		dest.Close()
		if err != nil {
			return Result{}, err
		}
	}

	if err := cc.send(protocol.FinishedMessage{}); err != nil {
		return Result{}, fmt.Errorf("transfer: send finished: %w", err)
	}
	s.state = StateFileTransferred

	total := protocol.TotalSize(manifest.FilesToTransfer)
	cfg.logger().Info("transfer complete",
		"files", len(manifest.FilesToTransfer),
		"size", humanize.Bytes(uint64(total)),
		"peer", s.peerIP,
		"elapsed", time.Since(start))

	return Result{
		Files:     len(manifest.FilesToTransfer),
		TotalSize: total,
		PeerIP:    s.peerIP,
		Elapsed:   time.Since(start),
	}, nil
}

// confirmRefuse is the zero-value Confirmer fallback: it always refuses,
// so a misconfigured receiver fails safe instead of silently accepting.
type confirmRefuse struct{}

func (confirmRefuse) Confirm(int, int64) bool { return false }
