package ports

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// WalletState is the write surface the peer group uses to feed incoming
// network data into the shared wallet state. Implementations must be safe
// for concurrent use, the peer group calls these from per-peer goroutines.
type WalletState interface {
	// RecordEndpoint adds or refreshes a discovered peer endpoint.
	RecordEndpoint(address string, services wire.ServiceFlag)
	// MarkEndpointAttempt records an outbound connection attempt.
	MarkEndpointAttempt(address string)
	// PickEndpoint returns a candidate endpoint to dial, excluding the given
	// addresses and requiring the given service bits.
	PickEndpoint(
		exclude map[string]struct{}, required wire.ServiceFlag,
	) (string, bool)
	// AppendHeaders extends the chain index with headers received from the
	// network. Headers that do not connect are dropped.
	AppendHeaders(headers ...*wire.BlockHeader)
	// ChainTipHash returns the hash of the best known header. The boolean
	// is false while the chain index holds nothing beyond genesis.
	ChainTipHash() (chainhash.Hash, bool)
	// RecordBlock ingests a full block: its header extends the chain index
	// and its transactions confirm, or newly record, outputs paying to
	// watched scripts at the block's height. Blocks that neither match the
	// tip nor connect to it are dropped.
	RecordBlock(block *wire.MsgBlock)
	// WatchedScripts returns the scripts the tracker is watching.
	WatchedScripts() [][]byte
	// RecordOutput upserts an observed output paying to a watched script.
	RecordOutput(
		txid string, vout uint32, script []byte, value uint64, height int32,
	)
}

// PeerGroupConfig collects everything needed to build a peer group.
type PeerGroupConfig struct {
	// ChainParams selects the network the group connects to.
	ChainParams *chaincfg.Params
	// MaxPeers is the fixed maximum number of concurrent peers.
	MaxPeers int
	// RequiredServices are the service bits every peer must advertise.
	RequiredServices wire.ServiceFlag
	// StaticPeers are optional addresses dialed instead of discovered ones.
	StaticPeers []string
	// State is the shared wallet state the group reads candidates from and
	// writes network data to.
	State WalletState
}

// PeerGroup interface defines the lifecycle of the set of connected peers
// managed as a unit.
type PeerGroup interface {
	// Start begins establishing outbound connections.
	Start() error
	// Stop disconnects all peers and releases resources. Idempotent.
	Stop() error
	// ConnectedCount returns the number of currently connected peers.
	ConnectedCount() int
	// StartHeight returns the chain height reported by the first connected
	// peer in its version handshake. The boolean is false until a peer has
	// completed the handshake.
	StartHeight() (int32, bool)
	// Purge drops the whole current peer set and dials replacements.
	Purge(reason string) error
}

// PeerGroupFactory builds a peer group from its config.
type PeerGroupFactory func(cfg PeerGroupConfig) (PeerGroup, error)
