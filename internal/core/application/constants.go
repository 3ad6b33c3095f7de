package application

import (
	"time"

	"github.com/btcsuite/btcd/wire"
)

const (
	// MaxPeers is the fixed maximum number of concurrent peers.
	MaxPeers = 3
	// RequiredPeerServices are the service bits peers must advertise to be
	// usable for SPV-style querying.
	RequiredPeerServices = wire.SFNodeNetwork

	// PersistInterval is the cadence of the periodic state snapshot.
	PersistInterval = 1 * time.Minute
	// PrivacyInterval is the cadence of the periodic peer-set rotation that
	// limits bloom-filter linkability across peers.
	PrivacyInterval = 7 * time.Minute
	// ProgressInterval is the cadence of the connection/sync progress
	// recomputation.
	ProgressInterval = 500 * time.Millisecond
)
