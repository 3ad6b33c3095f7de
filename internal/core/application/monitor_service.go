package application

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sentinelbtc/sentineld/internal/core/domain"
	"github.com/sentinelbtc/sentineld/internal/core/ports"
	"github.com/sentinelbtc/sentineld/pkg/wallet"
)

// MonitorService coordinates the SPV monitor lifecycle. It owns the shared
// wallet state through a stateKeeper, materializes it when the session
// starts, hands it to the peer group, and runs the three background
// schedulers (periodic persistence, periodic peer rotation, progress
// recomputation) until stopped.
type MonitorService interface {
	Start()
	Stop()
	ConnectionPercent() int
	SyncPercent() int
	IsConnected() bool
	IsSynced() bool
	IsDisposed() bool
	WatchAddress(address string) error
	GetBalance(address string) (domain.BalanceInfo, error)
}

type monitorService struct {
	sessionID   uuid.UUID
	network     wallet.Network
	staticPeers []string
	factory     ports.PeerGroupFactory
	keeper      *stateKeeper

	persistInterval  time.Duration
	privacyInterval  time.Duration
	progressInterval time.Duration

	mtx           sync.RWMutex
	peerGroup     ports.PeerGroup
	connectionPct int
	syncPct       int

	started  int32
	disposed int32
	quit     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// MonitorOpts is the struct given to the NewMonitorService method
type MonitorOpts struct {
	Network          wallet.Network
	PeerGroupFactory ports.PeerGroupFactory
	SnapshotStore    ports.SnapshotStore
	StaticPeers      []string

	// Optional scheduler cadence overrides, zero values pick the defaults.
	PersistInterval  time.Duration
	PrivacyInterval  time.Duration
	ProgressInterval time.Duration
}

func (o MonitorOpts) validate() error {
	if _, err := o.Network.ChainParams(); err != nil {
		return err
	}
	if o.PeerGroupFactory == nil {
		return ErrNullPeerGroupFactory
	}
	if o.SnapshotStore == nil {
		return ErrNullSnapshotStore
	}
	return nil
}

// NewMonitorService returns a monitor in its idle state. Nothing touches the
// disk or the network until Start is called.
func NewMonitorService(opts MonitorOpts) (MonitorService, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	persistInterval := opts.PersistInterval
	if persistInterval <= 0 {
		persistInterval = PersistInterval
	}
	privacyInterval := opts.PrivacyInterval
	if privacyInterval <= 0 {
		privacyInterval = PrivacyInterval
	}
	progressInterval := opts.ProgressInterval
	if progressInterval <= 0 {
		progressInterval = ProgressInterval
	}

	return &monitorService{
		sessionID:        uuid.New(),
		network:          opts.Network,
		staticPeers:      opts.StaticPeers,
		factory:          opts.PeerGroupFactory,
		keeper:           newStateKeeper(opts.SnapshotStore),
		persistInterval:  persistInterval,
		privacyInterval:  privacyInterval,
		progressInterval: progressInterval,
		quit:             make(chan struct{}),
	}, nil
}

// Start transitions the monitor to its active state asynchronously. The
// caller is never blocked on state materialization or peer connections.
// Calling Start more than once has no effect.
func (m *monitorService) Start() {
	if atomic.AddInt32(&m.started, 1) != 1 {
		return
	}
	go m.connect()
}

func (m *monitorService) connect() {
	m.keeper.materialize()

	if m.IsDisposed() {
		return
	}

	// network tag was validated on construction.
	params, _ := m.network.ChainParams()
	peerGroup, err := m.factory(ports.PeerGroupConfig{
		ChainParams:      params,
		MaxPeers:         MaxPeers,
		RequiredServices: RequiredPeerServices,
		StaticPeers:      m.staticPeers,
		State:            m.keeper,
	})
	if err != nil {
		log.WithError(err).Warnf("monitor %s: building peer group", m.sessionID)
		return
	}

	// Stop may have raced the construction above. In that case the group is
	// torn down without ever being started.
	m.mtx.Lock()
	if m.IsDisposed() {
		m.mtx.Unlock()
		peerGroup.Stop()
		return
	}
	m.peerGroup = peerGroup
	if err := peerGroup.Start(); err != nil {
		m.peerGroup = nil
		m.mtx.Unlock()
		log.WithError(err).Warnf("monitor %s: starting peer group", m.sessionID)
		return
	}
	m.mtx.Unlock()

	m.wg.Add(3)
	go m.persistLoop()
	go m.privacyLoop()
	go m.progressLoop()

	log.Debugf("monitor %s: peer group started on %s", m.sessionID, m.network)
}

// Stop sets the disposed latch, performs the final state snapshot and tears
// down the peer group. It is idempotent and waits briefly for the background
// loops to exit.
func (m *monitorService) Stop() {
	m.stopOnce.Do(func() {
		atomic.StoreInt32(&m.disposed, 1)
		close(m.quit)

		m.keeper.snapshot()

		m.mtx.Lock()
		peerGroup := m.peerGroup
		m.peerGroup = nil
		m.connectionPct = 0
		m.syncPct = 0
		m.mtx.Unlock()

		if peerGroup != nil {
			if err := peerGroup.Stop(); err != nil {
				log.WithError(err).Warnf("monitor %s: stopping peer group", m.sessionID)
			}
		}

		if !waitTimeout(&m.wg, 5*time.Second) {
			log.Warnf("monitor %s: schedulers did not exit in time", m.sessionID)
		}
		log.Debugf("monitor %s: stopped", m.sessionID)
	})
}

// IsDisposed returns whether Stop has been called. The latch is one-way.
func (m *monitorService) IsDisposed() bool {
	return atomic.LoadInt32(&m.disposed) == 1
}

// ConnectionPercent returns the last computed peer connection progress.
func (m *monitorService) ConnectionPercent() int {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return m.connectionPct
}

// SyncPercent returns the last computed header sync progress.
func (m *monitorService) SyncPercent() int {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return m.syncPct
}

// IsConnected returns whether the peer group reached its full peer count.
func (m *monitorService) IsConnected() bool {
	return m.ConnectionPercent() == 100
}

// IsSynced returns whether the chain index caught up with the height
// reported by the first connected peer.
func (m *monitorService) IsSynced() bool {
	return m.SyncPercent() == 100
}

// WatchAddress registers an address script with the output tracker so that
// network activity paying to it is recorded.
func (m *monitorService) WatchAddress(address string) error {
	script, err := m.addressScript(address)
	if err != nil {
		return err
	}
	return m.keeper.watchScript(script)
}

// GetBalance returns the confirmed and unconfirmed amounts observed for the
// given address. It fails with ErrNotConnected or ErrNotSynced until the
// monitor is fully connected and synced, both are retryable.
func (m *monitorService) GetBalance(address string) (domain.BalanceInfo, error) {
	if m.IsDisposed() {
		return domain.BalanceInfo{}, ErrMonitorDisposed
	}
	if !m.IsConnected() {
		return domain.BalanceInfo{}, ErrNotConnected
	}
	if !m.IsSynced() {
		return domain.BalanceInfo{}, ErrNotSynced
	}

	script, err := m.addressScript(address)
	if err != nil {
		return domain.BalanceInfo{}, err
	}

	confirmed, unconfirmed := m.keeper.balance(script)
	return domain.BalanceInfo{
		Confirmed:   confirmed,
		Unconfirmed: unconfirmed,
	}, nil
}

func (m *monitorService) addressScript(address string) ([]byte, error) {
	params, err := m.network.ChainParams()
	if err != nil {
		return nil, err
	}
	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}

// persistLoop snapshots the shared state on a fixed cadence. A failing save
// is logged inside the keeper and the loop continues at the next interval.
func (m *monitorService) persistLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.persistInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.quit:
			return
		case <-ticker.C:
			m.keeper.snapshot()
		}
	}
}

// privacyLoop forces a periodic peer-set rotation to limit bloom-filter and
// address linkability across peers. Purge failures are logged, never fatal.
func (m *monitorService) privacyLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.privacyInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.quit:
			return
		case <-ticker.C:
			m.mtx.RLock()
			peerGroup := m.peerGroup
			m.mtx.RUnlock()
			if peerGroup == nil {
				continue
			}
			if err := peerGroup.Purge("scheduled peer rotation"); err != nil {
				log.WithError(err).Warnf("monitor %s: rotating peer set", m.sessionID)
			}
		}
	}
}

// progressLoop recomputes connection and sync progress from the current
// peer-group snapshot. Pure in-memory work, it never blocks on network I/O.
func (m *monitorService) progressLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.quit:
			return
		case <-ticker.C:
			m.computeProgress()
		}
	}
}

func (m *monitorService) computeProgress() {
	var connectionPct, syncPct int

	m.mtx.RLock()
	peerGroup := m.peerGroup
	m.mtx.RUnlock()

	if peerGroup != nil {
		connected := peerGroup.ConnectedCount()
		if connected > 0 {
			connectionPct = clampPercent(100 * float64(connected) / MaxPeers)

			// The sync target is the height the first connected peer reported
			// in its version handshake. A single peer's self-reported height
			// is only an approximation of the network tip.
			if startHeight, ok := peerGroup.StartHeight(); ok && startHeight > 0 {
				local := m.keeper.chainHeight()
				syncPct = clampPercent(100 * float64(local) / float64(startHeight))
			}
		}
	}

	m.mtx.Lock()
	m.connectionPct = connectionPct
	m.syncPct = syncPct
	m.mtx.Unlock()
}

func clampPercent(v float64) int {
	pct := int(math.Round(v))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// waitTimeout waits for the wait group up to the given timeout, returning
// false when it fires first.
func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
