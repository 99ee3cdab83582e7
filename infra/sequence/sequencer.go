package sequence

import "sync/atomic"

// Sequencer issues the strictly monotonic sequence that orders every
// durable command. It starts at zero on a fresh book and is reset to the
// last replayed sequence after recovery, so sequences never repeat across
// restarts. The outbox numbers its entries on its own.
type Sequencer struct {
	last atomic.Uint64
}

func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last issued sequence.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}

// Reset jumps the sequencer forward after replay. It must not be called
// once live traffic is flowing.
func (s *Sequencer) Reset(v uint64) {
	s.last.Store(v)
}
