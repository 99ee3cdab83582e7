package outbox

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

// State tracks a trade through at-least-once publication.
type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	default:
		return "UNKNOWN"
	}
}

var ErrCorruptEntry = errors.New("outbox: corrupted entry")

// Entry is one pending trade publication. Payload is the serialized trade
// event exactly as it will go onto the wire.
type Entry struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// encoding: [state:1][retries:4][lastAttempt:8][payload...]
func encodeEntry(e Entry) []byte {
	buf := make([]byte, 13+len(e.Payload))
	buf[0] = byte(e.State)
	binary.BigEndian.PutUint32(buf[1:5], e.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(e.LastAttempt))
	copy(buf[13:], e.Payload)
	return buf
}

func decodeEntry(seq uint64, b []byte) (Entry, error) {
	if len(b) < 13 {
		return Entry{}, ErrCorruptEntry
	}
	payload := make([]byte, len(b)-13)
	copy(payload, b[13:])
	return Entry{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     payload,
	}, nil
}

// Outbox is the durable staging area between the matching path and Kafka.
// Trades land here in the same synchronous call that produced them; the
// broadcaster drains NEW/SENT entries asynchronously and marks them ACKED
// once the broker confirms. ACKED entries are garbage collected.
//
// The outbox numbers its own entries. The sequence resumes from the
// highest stored key on Open, so entries still pending across a restart
// are never overwritten by new trades.
type Outbox struct {
	db   *pebble.DB
	next atomic.Uint64
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // durability is the whole point
	})
	if err != nil {
		return nil, errors.Wrap(err, "outbox: open")
	}

	o := &Outbox{db: db}
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("trade/"),
		UpperBound: []byte("trade/~"),
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "outbox: iter")
	}
	if iter.Last() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			_ = iter.Close()
			_ = db.Close()
			return nil, err
		}
		o.next.Store(seq)
	}
	if err := iter.Close(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "outbox: iter close")
	}
	return o, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// Put stages a new payload under the next outbox sequence and returns it.
func (o *Outbox) Put(payload []byte) (uint64, error) {
	seq := o.next.Add(1)
	e := Entry{Seq: seq, State: StateNew, Payload: payload}
	if err := o.db.Set(keyFor(seq), encodeEntry(e), pebble.Sync); err != nil {
		return 0, errors.Wrapf(err, "outbox: put %d", seq)
	}
	return seq, nil
}

// MarkSent flags an entry as handed to the broker, bumping its retry count.
func (o *Outbox) MarkSent(seq uint64) error {
	return o.transition(seq, StateSent)
}

// MarkAcked flags an entry as confirmed by the broker.
func (o *Outbox) MarkAcked(seq uint64) error {
	return o.transition(seq, StateAcked)
}

func (o *Outbox) transition(seq uint64, state State) error {
	e, err := o.Get(seq)
	if err != nil {
		return err
	}
	e.State = state
	e.Retries++
	e.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encodeEntry(e), pebble.Sync)
}

func (o *Outbox) Get(seq uint64) (Entry, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return Entry{}, errors.Wrapf(err, "outbox: get %d", seq)
	}
	defer closer.Close()
	return decodeEntry(seq, val)
}

// ScanPending visits every entry not yet ACKED, lowest sequence first.
func (o *Outbox) ScanPending(fn func(Entry) error) error {
	return o.scan(func(e Entry) error {
		if e.State == StateAcked {
			return nil
		}
		return fn(e)
	})
}

// DeleteAcked removes confirmed entries; the broadcaster calls this
// periodically to keep the store bounded.
func (o *Outbox) DeleteAcked() error {
	var acked []uint64
	if err := o.scan(func(e Entry) error {
		if e.State == StateAcked {
			acked = append(acked, e.Seq)
		}
		return nil
	}); err != nil {
		return err
	}
	for _, seq := range acked {
		if err := o.db.Delete(keyFor(seq), pebble.Sync); err != nil {
			return errors.Wrapf(err, "outbox: delete %d", seq)
		}
	}
	return nil
}

func (o *Outbox) scan(fn func(Entry) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("trade/"),
		UpperBound: []byte("trade/~"),
	})
	if err != nil {
		return errors.Wrap(err, "outbox: iter")
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		e, err := decodeEntry(seq, iter.Value())
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return iter.Error()
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("trade/%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte("trade/"))), "%d", &seq)
	return seq, errors.Wrap(err, "outbox: bad key")
}
