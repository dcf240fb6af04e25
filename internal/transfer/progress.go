package transfer

// progressFunc is invoked after every chunk with the running byte total
// and the transfer's declared total size from the manifest, mirroring the
// teacher's ProgressWriter/ProgressReader callback shape.
type progressFunc func(done, total int64)

// progressTracker accumulates bytes across every file in a manifest and
// forwards the running total to an optional callback.
type progressTracker struct {
	total int64
	done  int64
	onProgress progressFunc
}

func newProgressTracker(total int64, onProgress progressFunc) *progressTracker {
	return &progressTracker{total: total, onProgress: onProgress}
}

func (p *progressTracker) add(n int64) {
	if p == nil {
		return
	}
	p.done += n
	if p.onProgress != nil {
		p.onProgress(p.done, p.total)
	}
}
