package application

import "errors"

var (
	// ErrNotConnected is thrown when querying balances before the monitor
	// reached the full peer count. Retry once connected.
	ErrNotConnected = errors.New("monitor is not connected to enough peers")
	// ErrNotSynced is thrown when querying balances before the chain index
	// caught up with the network. Retry once synced.
	ErrNotSynced = errors.New("monitor is not synced with the network")
	// ErrMonitorDisposed ...
	ErrMonitorDisposed = errors.New("monitor has been stopped")
	// ErrNullPeerGroupFactory ...
	ErrNullPeerGroupFactory = errors.New("peer group factory must not be null")
	// ErrNullSnapshotStore ...
	ErrNullSnapshotStore = errors.New("snapshot store must not be null")
)
