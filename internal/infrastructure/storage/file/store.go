package filestore

import (
	"os"
	"path/filepath"

	"github.com/sentinelbtc/sentineld/internal/core/ports"
)

type snapshotStore struct {
	datadir string
}

// NewSnapshotStore returns a ports.SnapshotStore writing one file per
// snapshot under datadir. Writes are write-temp-then-rename so that an
// interrupted save never corrupts the previous snapshot.
func NewSnapshotStore(datadir string) (ports.SnapshotStore, error) {
	if err := os.MkdirAll(datadir, 0700); err != nil {
		return nil, err
	}
	return &snapshotStore{datadir: datadir}, nil
}

func (s *snapshotStore) Save(name string, data []byte) error {
	path := filepath.Join(s.datadir, name)

	tmp, err := os.CreateTemp(s.datadir, name+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *snapshotStore) Load(name string) ([]byte, error) {
	buf, err := os.ReadFile(filepath.Join(s.datadir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ports.ErrSnapshotNotFound
		}
		return nil, err
	}
	return buf, nil
}
