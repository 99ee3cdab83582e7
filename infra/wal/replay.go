package wal

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

var ErrCorruptRecord = errors.New("wal: corrupted record")

type ReplayHandler func(*Record) error

// Replay streams every record in sequence order to fn and returns the
// highest sequence seen. Segment file names sort in creation order, so a
// plain lexical walk preserves the append order.
func Replay(dir string, fn ReplayHandler) (lastSeq uint64, err error) {
	paths, err := segmentPaths(dir)
	if err != nil {
		return 0, err
	}

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return lastSeq, errors.Wrap(err, "wal: open segment")
		}

		for {
			rec, err := readRecord(f)
			if err != nil {
				if err == io.EOF {
					break
				}
				_ = f.Close()
				return lastSeq, errors.Wrapf(err, "wal: replay %s", path)
			}

			if rec.Seq <= lastSeq {
				_ = f.Close()
				return lastSeq, errors.Errorf("wal: non-monotonic seq %d after %d", rec.Seq, lastSeq)
			}
			lastSeq = rec.Seq

			if err := fn(rec); err != nil {
				_ = f.Close()
				return lastSeq, err
			}
		}
		_ = f.Close()
	}

	return lastSeq, nil
}

func readRecord(r io.Reader) (*Record, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, ErrCorruptRecord
		}
		return nil, err
	}

	payloadLen := binary.BigEndian.Uint32(header[17:21])
	rest := make([]byte, payloadLen+4)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, ErrCorruptRecord
	}

	payload := rest[:payloadLen]
	crc := binary.BigEndian.Uint32(rest[payloadLen:])
	if checksum(append(header, payload...)) != crc {
		return nil, ErrCorruptRecord
	}

	return &Record{
		Type: RecordType(header[0]),
		Seq:  binary.BigEndian.Uint64(header[1:9]),
		Time: int64(binary.BigEndian.Uint64(header[9:17])),
		Data: payload,
	}, nil
}
