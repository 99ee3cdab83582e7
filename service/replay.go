package service

import (
	"time"

	"go.uber.org/zap"

	"bondbook/domain/matching"
	"bondbook/infra/sequence"
	"bondbook/infra/wal"
	"bondbook/snapshot"
)

/*
Restore rebuilds in-memory state from durable storage.

It MUST run to completion before the service accepts traffic:
 1. load the newest snapshot (optional) and rest its orders,
 2. replay WAL records past the snapshot's covering sequence,
 3. resume the sequencer after the last replayed sequence.

The outbox is NOT replayed here; the broadcaster drains whatever it finds
pending on its own schedule.
*/
func Restore(
	log *zap.Logger,
	engine *matching.Engine,
	seqGen *sequence.Sequencer,
	walDir string,
	snapDir string,
) error {
	start := time.Now()

	var snapSeq uint64
	snap, err := snapshot.Load(snapDir)
	if err != nil {
		return err
	}
	if snap != nil {
		snapSeq = snap.Seq
		for _, e := range snap.Orders {
			engine.Submit(e.Instrument, &matching.Order{
				ID:        e.ID,
				UserID:    e.UserID,
				Side:      matching.Side(e.Side),
				Price:     e.Price,
				Qty:       e.Qty,
				Filled:    e.Filled,
				CreatedAt: e.CreatedAt,
			})
		}
	}

	lastSeq, err := wal.Replay(walDir, func(rec *wal.Record) error {
		if rec.Seq <= snapSeq {
			return nil // already covered by the snapshot
		}
		switch rec.Type {
		case wal.RecordPlace:
			instrument, order, err := decodePlace(rec.Data)
			if err != nil {
				return err
			}
			engine.Submit(instrument, order)
		case wal.RecordCancel:
			instrument, orderID, err := decodeCancel(rec.Data)
			if err != nil {
				return err
			}
			engine.Remove(instrument, orderID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if lastSeq < snapSeq {
		lastSeq = snapSeq
	}
	seqGen.Reset(lastSeq)

	log.Info("state restored",
		zap.Uint64("snapshot_seq", snapSeq),
		zap.Uint64("last_seq", lastSeq),
		zap.Int("instruments", len(engine.Instruments())),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}
