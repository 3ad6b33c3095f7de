package ports

import "errors"

// ErrSnapshotNotFound is returned by Load when no snapshot exists under the
// given name.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Well-known snapshot names for the three shared state entities.
const (
	AddressBookSnapshot = "peers.dat"
	ChainIndexSnapshot  = "headers.dat"
	TrackerSnapshot     = "tracker.dat"
)

// SnapshotStore persists opaque state blobs. Saves must be atomic, an
// interrupted write must never corrupt a previously valid snapshot.
type SnapshotStore interface {
	Save(name string, data []byte) error
	// Load returns ErrSnapshotNotFound if no snapshot exists under name.
	Load(name string) ([]byte, error)
}
