package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bondbook/snapshot"
)

// StartSnapshotJob periodically snapshots the books and truncates the WAL
// segments the snapshot covers. It returns immediately; the job stops when
// ctx is cancelled.
func (s *OrderService) StartSnapshotJob(ctx context.Context, dir string, interval time.Duration) {
	w := &snapshot.Writer{Dir: dir}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := s.snapshotOnce(w); err != nil {
					s.log.Warn("snapshot failed", zap.Error(err))
				}
			}
		}
	}()
}

// snapshotOnce captures the books and their covering sequence as one step
// under the write lock, then persists and truncates outside it. Capturing
// the sequence separately from the books would let an in-flight placement
// fall between them and vanish from both the snapshot and the truncated
// log.
func (s *OrderService) snapshotOnce(w *snapshot.Writer) error {
	s.writeMu.Lock()
	snap := snapshot.Capture(s.seq.Current(), s.engine)
	s.writeMu.Unlock()

	if err := w.WriteSnapshot(snap); err != nil {
		return err
	}
	if err := s.wal.TruncateBefore(snap.Seq); err != nil {
		return err
	}
	s.log.Debug("snapshot written",
		zap.Uint64("seq", snap.Seq),
		zap.Int("orders", len(snap.Orders)))
	return nil
}
