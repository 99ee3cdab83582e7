package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndReplay(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir})
	require.NoError(t, err)

	require.NoError(t, w.Append(NewRecord(RecordPlace, 1, []byte("first"))))
	require.NoError(t, w.Append(NewRecord(RecordCancel, 2, []byte("second"))))
	require.NoError(t, w.Close())

	var got []*Record
	last, err := Replay(dir, func(rec *Record) error {
		got = append(got, rec)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), last)
	require.Len(t, got, 2)
	assert.Equal(t, RecordPlace, got[0].Type)
	assert.Equal(t, []byte("first"), got[0].Data)
	assert.Equal(t, RecordCancel, got[1].Type)
	assert.Equal(t, uint64(2), got[1].Seq)
}

func TestReplaySurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, w.Append(NewRecord(RecordPlace, 1, []byte("a"))))
	require.NoError(t, w.Close())

	w, err = Open(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, w.Append(NewRecord(RecordPlace, 2, []byte("b"))))
	require.NoError(t, w.Close())

	var n int
	last, err := Replay(dir, func(rec *Record) error {
		n++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, uint64(2), last)
}

func TestSegmentRotationAndTruncate(t *testing.T) {
	dir := t.TempDir()
	// Tiny segments force a rotation on every record.
	w, err := Open(Config{Dir: dir, SegmentSize: 8})
	require.NoError(t, err)
	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, w.Append(NewRecord(RecordPlace, seq, []byte("payload"))))
	}

	paths, err := filepath.Glob(filepath.Join(dir, "segment-*.wal"))
	require.NoError(t, err)
	require.Greater(t, len(paths), 1)

	require.NoError(t, w.TruncateBefore(2))

	var seqs []uint64
	_, err = Replay(dir, func(rec *Record) error {
		seqs = append(seqs, rec.Seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, seqs, "covered sealed segments are dropped")
	require.NoError(t, w.Close())
}

func TestReplayRejectsCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, w.Append(NewRecord(RecordPlace, 1, []byte("payload"))))
	require.NoError(t, w.Close())

	paths, err := filepath.Glob(filepath.Join(dir, "segment-*.wal"))
	require.NoError(t, err)
	require.Len(t, paths, 1)

	raw, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	raw[headerSize] ^= 0xff // flip a payload byte
	require.NoError(t, os.WriteFile(paths[0], raw, 0o644))

	_, err = Replay(dir, func(*Record) error { return nil })
	require.ErrorIs(t, err, ErrCorruptRecord)
}

func TestReplayRejectsNonMonotonicSeq(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, w.Append(NewRecord(RecordPlace, 2, nil)))
	require.NoError(t, w.Append(NewRecord(RecordPlace, 2, nil)))
	require.NoError(t, w.Close())

	_, err = Replay(dir, func(*Record) error { return nil })
	require.Error(t, err)
}
