package application

import (
	"bytes"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"

	"github.com/sentinelbtc/sentineld/internal/core/domain"
	"github.com/sentinelbtc/sentineld/internal/core/ports"
)

// stateKeeper owns the three shared state entities (address book, chain
// index, output tracker) and funnels every read and write through a single
// reader-writer lock, so that the peer group's per-peer goroutines and the
// background schedulers never observe torn state. The
// live-if-loaded-else-load-or-default policy lives here and nowhere else.
type stateKeeper struct {
	store ports.SnapshotStore

	mtx     sync.RWMutex
	loaded  bool
	book    *domain.AddressBook
	chain   *domain.ChainIndex
	tracker *domain.OutputTracker
}

var _ ports.WalletState = (*stateKeeper)(nil)

func newStateKeeper(store ports.SnapshotStore) *stateKeeper {
	return &stateKeeper{store: store}
}

// materialize loads the entities from their snapshots, falling back to fresh
// empty instances on any load or parse failure. Load errors are never
// surfaced. No-op when the entities are already in memory.
func (k *stateKeeper) materialize() {
	k.mtx.Lock()
	defer k.mtx.Unlock()
	if k.loaded {
		return
	}

	k.book = domain.NewAddressBook()
	if buf, err := k.store.Load(ports.AddressBookSnapshot); err == nil {
		if book, err := domain.DeserializeAddressBook(buf); err == nil {
			k.book = book
		} else {
			log.WithError(err).Warn("monitor: discarding corrupt address book snapshot")
		}
	}

	k.chain = domain.NewChainIndex()
	if buf, err := k.store.Load(ports.ChainIndexSnapshot); err == nil {
		if chain, err := domain.DeserializeChainIndex(buf); err == nil {
			k.chain = chain
		} else {
			log.WithError(err).Warn("monitor: discarding corrupt chain index snapshot")
		}
	}

	k.tracker = domain.NewOutputTracker()
	if buf, err := k.store.Load(ports.TrackerSnapshot); err == nil {
		if tracker, err := domain.DeserializeOutputTracker(buf); err == nil {
			k.tracker = tracker
		} else {
			log.WithError(err).Warn("monitor: discarding corrupt tracker snapshot")
		}
	}

	k.loaded = true
}

// snapshot serializes the three entities under the read lock and writes the
// blobs out. A failing save is logged and does not prevent the others.
func (k *stateKeeper) snapshot() {
	k.mtx.RLock()
	if !k.loaded {
		k.mtx.RUnlock()
		return
	}
	blobs := map[string][]byte{}
	if buf, err := k.book.Serialize(); err == nil {
		blobs[ports.AddressBookSnapshot] = buf
	} else {
		log.WithError(err).Warn("monitor: serializing address book")
	}
	if buf, err := k.chain.Serialize(); err == nil {
		blobs[ports.ChainIndexSnapshot] = buf
	} else {
		log.WithError(err).Warn("monitor: serializing chain index")
	}
	if buf, err := k.tracker.Serialize(); err == nil {
		blobs[ports.TrackerSnapshot] = buf
	} else {
		log.WithError(err).Warn("monitor: serializing tracker")
	}
	k.mtx.RUnlock()

	for name, buf := range blobs {
		if err := k.store.Save(name, buf); err != nil {
			log.WithError(err).Warnf("monitor: saving snapshot %s", name)
		}
	}
}

// RecordEndpoint implements ports.WalletState.
func (k *stateKeeper) RecordEndpoint(address string, services wire.ServiceFlag) {
	k.materialize()
	k.mtx.Lock()
	defer k.mtx.Unlock()
	k.book.Add(address, uint64(services))
}

// MarkEndpointAttempt implements ports.WalletState.
func (k *stateKeeper) MarkEndpointAttempt(address string) {
	k.materialize()
	k.mtx.Lock()
	defer k.mtx.Unlock()
	k.book.MarkAttempt(address)
}

// PickEndpoint implements ports.WalletState.
func (k *stateKeeper) PickEndpoint(
	exclude map[string]struct{}, required wire.ServiceFlag,
) (string, bool) {
	k.materialize()
	k.mtx.RLock()
	defer k.mtx.RUnlock()
	ep, ok := k.book.Pick(exclude, uint64(required))
	if !ok {
		return "", false
	}
	return ep.Address, true
}

// AppendHeaders implements ports.WalletState.
func (k *stateKeeper) AppendHeaders(headers ...*wire.BlockHeader) {
	k.materialize()
	k.mtx.Lock()
	defer k.mtx.Unlock()
	if err := k.chain.Append(headers...); err != nil {
		log.WithError(err).Debug("monitor: dropping non-connecting headers")
	}
}

// ChainTipHash implements ports.WalletState.
func (k *stateKeeper) ChainTipHash() (chainhash.Hash, bool) {
	k.materialize()
	k.mtx.RLock()
	defer k.mtx.RUnlock()
	tip, ok := k.chain.Tip()
	if !ok {
		return chainhash.Hash{}, false
	}
	return tip.BlockHash(), true
}

// RecordBlock implements ports.WalletState. The block's header must be the
// current tip or connect to it, anything else is dropped. Outputs paying to
// watched scripts are confirmed at the block's height, or recorded as
// confirmed when seen for the first time.
func (k *stateKeeper) RecordBlock(block *wire.MsgBlock) {
	k.materialize()
	k.mtx.Lock()
	defer k.mtx.Unlock()

	blockHash := block.Header.BlockHash()
	var height int32
	if tip, ok := k.chain.Tip(); ok && tip.BlockHash() == blockHash {
		height = k.chain.Height()
	} else {
		if err := k.chain.Append(&block.Header); err != nil {
			log.WithError(err).Debug("monitor: dropping non-connecting block")
			return
		}
		height = k.chain.Height()
	}

	watched := k.tracker.WatchedScripts()
	if len(watched) == 0 {
		return
	}
	for _, tx := range block.Transactions {
		txid := tx.TxHash().String()
		for vout, out := range tx.TxOut {
			for _, script := range watched {
				if !bytes.Equal(out.PkScript, script) {
					continue
				}
				key := domain.OutputKey{TxID: txid, VOut: uint32(vout)}
				if k.tracker.Has(key) {
					k.tracker.Confirm(key, height)
				} else if err := k.tracker.Record(domain.TrackedOutput{
					TxID:   txid,
					VOut:   uint32(vout),
					Script: out.PkScript,
					Value:  uint64(out.Value),
					Height: height,
				}); err != nil {
					log.WithError(err).Debug("monitor: dropping block output")
				}
				break
			}
		}
	}
}

// WatchedScripts implements ports.WalletState.
func (k *stateKeeper) WatchedScripts() [][]byte {
	k.materialize()
	k.mtx.RLock()
	defer k.mtx.RUnlock()
	return k.tracker.WatchedScripts()
}

// RecordOutput implements ports.WalletState.
func (k *stateKeeper) RecordOutput(
	txid string, vout uint32, script []byte, value uint64, height int32,
) {
	k.materialize()
	k.mtx.Lock()
	defer k.mtx.Unlock()
	if err := k.tracker.Record(domain.TrackedOutput{
		TxID:   txid,
		VOut:   vout,
		Script: script,
		Value:  value,
		Height: height,
	}); err != nil {
		log.WithError(err).Debug("monitor: dropping output for unwatched script")
	}
}

func (k *stateKeeper) chainHeight() int32 {
	k.materialize()
	k.mtx.RLock()
	defer k.mtx.RUnlock()
	return k.chain.Height()
}

func (k *stateKeeper) watchScript(script []byte) error {
	k.materialize()
	k.mtx.Lock()
	defer k.mtx.Unlock()
	return k.tracker.Watch(script)
}

func (k *stateKeeper) balance(script []byte) (btcutil.Amount, btcutil.Amount) {
	k.materialize()
	k.mtx.RLock()
	defer k.mtx.RUnlock()
	return k.tracker.Balance(script)
}
