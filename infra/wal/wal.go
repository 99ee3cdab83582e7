package wal

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

type Config struct {
	Dir         string
	SegmentSize int64
}

const defaultSegmentSize = 16 << 20

// WAL is a segmented append-only command log. Records are framed as
//
//	[type:1][seq:8][time:8][len:4][payload][crc:4]
//
// with the CRC32 covering header and payload. Segments rotate by size and
// are dropped whole once a snapshot covers their highest sequence.
//
// The order service serializes appends, which is what keeps the log's
// sequence strictly monotonic; the internal mutex only guards segment
// rotation against concurrent truncation by the snapshot job.
type WAL struct {
	dir     string
	segSize int64

	mu       sync.Mutex
	current  *segment
	segIndex int
}

func Open(cfg Config) (*WAL, error) {
	if cfg.SegmentSize <= 0 {
		cfg.SegmentSize = defaultSegmentSize
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "wal: create dir")
	}

	// Resume appending to the highest existing segment.
	paths, err := segmentPaths(cfg.Dir)
	if err != nil {
		return nil, err
	}
	index := 0
	if n := len(paths); n > 0 {
		index, err = segmentIndex(paths[n-1])
		if err != nil {
			return nil, err
		}
	}

	seg, err := openSegment(cfg.Dir, index)
	if err != nil {
		return nil, err
	}

	return &WAL{
		dir:      cfg.Dir,
		segSize:  cfg.SegmentSize,
		current:  seg,
		segIndex: index,
	}, nil
}

func (w *WAL) Append(r *Record) error {
	payloadLen := uint32(len(r.Data))

	buf := make([]byte, headerSize+payloadLen+4)
	buf[0] = byte(r.Type)
	binary.BigEndian.PutUint64(buf[1:9], r.Seq)
	binary.BigEndian.PutUint64(buf[9:17], uint64(r.Time))
	binary.BigEndian.PutUint32(buf[17:21], payloadLen)
	copy(buf[headerSize:], r.Data)

	crc := checksum(buf[:headerSize+payloadLen])
	binary.BigEndian.PutUint32(buf[headerSize+payloadLen:], crc)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.current.append(buf); err != nil {
		return errors.Wrap(err, "wal: append")
	}

	if w.current.offset >= w.segSize {
		return w.rotate()
	}
	return nil
}

func (w *WAL) rotate() error {
	_ = w.current.close()
	w.segIndex++

	seg, err := openSegment(w.dir, w.segIndex)
	if err != nil {
		return err
	}
	w.current = seg
	return nil
}

// TruncateBefore drops every sealed segment whose highest sequence is
// covered by seq. The active segment is never removed.
func (w *WAL) TruncateBefore(seq uint64) error {
	paths, err := segmentPaths(w.dir)
	if err != nil {
		return err
	}

	w.mu.Lock()
	active := w.current.path
	w.mu.Unlock()

	for _, path := range paths {
		if path == active {
			continue
		}
		maxSeq, err := maxSeqInSegment(path)
		if err != nil {
			continue
		}
		if maxSeq <= seq {
			_ = os.Remove(path)
		}
	}
	return nil
}

func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current.sync()
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current.close()
}

func segmentPaths(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "segment-*.wal"))
	if err != nil {
		return nil, errors.Wrap(err, "wal: list segments")
	}
	return paths, nil
}
