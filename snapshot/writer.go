package snapshot

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"bondbook/domain/matching"
)

const fileName = "snapshot.bin"

type Writer struct {
	Dir string
}

// Capture collects every resting order into an in-memory snapshot covered
// by seq. The caller serializes it against writers; Capture itself only
// reads the books.
func Capture(seq uint64, engine *matching.Engine) *Snapshot {
	s := &Snapshot{
		Seq:     seq,
		Created: time.Now(),
		Orders:  make([]OrderEntry, 0, 1024),
	}
	engine.EachResting(func(instrument string, o *matching.Order) {
		s.Orders = append(s.Orders, OrderEntry{
			Instrument: instrument,
			ID:         o.ID,
			UserID:     o.UserID,
			Side:       int(o.Side),
			Price:      o.Price,
			Qty:        o.Qty,
			Filled:     o.Filled,
			CreatedAt:  o.CreatedAt,
		})
	})
	return s
}

// Write captures every resting order and persists it.
func (w *Writer) Write(seq uint64, engine *matching.Engine) error {
	return w.WriteSnapshot(Capture(seq, engine))
}

// WriteSnapshot persists a captured snapshot atomically: it is written to
// a temp file and renamed over the previous one, so a crash mid-write
// leaves the old snapshot intact.
func (w *Writer) WriteSnapshot(s *Snapshot) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return errors.Wrap(err, "snapshot: create dir")
	}

	tmp, err := os.CreateTemp(w.Dir, fileName+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "snapshot: temp file")
	}
	if err := gob.NewEncoder(tmp).Encode(s); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "snapshot: encode")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "snapshot: close")
	}
	return errors.Wrap(os.Rename(tmp.Name(), filepath.Join(w.Dir, fileName)), "snapshot: rename")
}
