package snapshot

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Load reads the snapshot in dir. A missing snapshot is not an error: it
// returns nil and recovery falls back to a full WAL replay.
func Load(dir string) (*Snapshot, error) {
	f, err := os.Open(filepath.Join(dir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "snapshot: open")
	}
	defer f.Close()

	var s Snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return nil, errors.Wrap(err, "snapshot: decode")
	}
	return &s, nil
}
