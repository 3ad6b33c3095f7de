package spv

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/connmgr"
	"github.com/btcsuite/btcd/peer"
	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sentinelbtc/sentineld/internal/core/ports"
	"github.com/sentinelbtc/sentineld/pkg/circuitbreaker"
)

const (
	userAgentName    = "sentineld"
	userAgentVersion = "0.1.0"

	retryDuration = 5 * time.Second
	dialTimeout   = 10 * time.Second
)

var (
	// ErrNullChainParams ...
	ErrNullChainParams = errors.New("chain params must not be null")
	// ErrNullState ...
	ErrNullState = errors.New("wallet state must not be null")
	// ErrNullMaxPeers ...
	ErrNullMaxPeers = errors.New("max peers must be a positive number")
	// ErrNoConnectAddress is returned to the connection manager when the
	// address book has no dialable candidate. The manager retries later.
	ErrNoConnectAddress = errors.New("no valid connect address")
)

// zeroHash is the zero value hash used as the stop hash of header requests.
var zeroHash chainhash.Hash

type connectedPeer struct {
	*peer.Peer
	req *connmgr.ConnReq
}

// peerGroup is a ports.PeerGroup backed by btcd's peer and connmgr packages.
// It keeps at most MaxPeers outbound connections to full network nodes,
// feeding received headers, transactions and gossiped addresses into the
// shared wallet state.
type peerGroup struct {
	cfg     ports.PeerGroupConfig
	connMgr *connmgr.ConnManager
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker

	mtx   sync.RWMutex
	peers map[uint64]*connectedPeer
	order []uint64

	seedOnce sync.Once
	started  int32
	stopped  int32
}

// NewPeerGroup builds a peer group for the given network. It implements
// ports.PeerGroupFactory.
func NewPeerGroup(cfg ports.PeerGroupConfig) (ports.PeerGroup, error) {
	if cfg.ChainParams == nil {
		return nil, ErrNullChainParams
	}
	if cfg.State == nil {
		return nil, ErrNullState
	}
	if cfg.MaxPeers <= 0 {
		return nil, ErrNullMaxPeers
	}

	g := &peerGroup{
		cfg:   cfg,
		peers: map[uint64]*connectedPeer{},
		// pace outbound dials so a purge does not burst connections.
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), cfg.MaxPeers),
		breaker: circuitbreaker.NewCircuitBreaker("spv dialer"),
	}

	connMgrCfg := &connmgr.Config{
		TargetOutbound: uint32(cfg.MaxPeers),
		RetryDuration:  retryDuration,
		OnConnection:   g.onConnection,
		Dial:           g.dial,
	}
	if len(cfg.StaticPeers) == 0 {
		connMgrCfg.GetNewAddress = g.nextAddress
	}

	connMgr, err := connmgr.New(connMgrCfg)
	if err != nil {
		return nil, err
	}
	g.connMgr = connMgr

	return g, nil
}

// Start begins establishing outbound connections. Non-blocking.
func (g *peerGroup) Start() error {
	if atomic.AddInt32(&g.started, 1) != 1 {
		return nil
	}

	for _, address := range g.cfg.StaticPeers {
		tcpAddr, err := net.ResolveTCPAddr("tcp", address)
		if err != nil {
			log.WithError(err).Warnf("peergroup: skipping static peer %s", address)
			continue
		}
		go g.connMgr.Connect(&connmgr.ConnReq{
			Addr:      tcpAddr,
			Permanent: true,
		})
	}

	go g.connMgr.Start()
	return nil
}

// Stop disconnects every peer and shuts the connection manager down.
// Idempotent.
func (g *peerGroup) Stop() error {
	if atomic.AddInt32(&g.stopped, 1) != 1 {
		return nil
	}
	if atomic.LoadInt32(&g.started) != 0 {
		g.connMgr.Stop()
	}

	g.mtx.Lock()
	peers := make([]*connectedPeer, 0, len(g.peers))
	for _, cp := range g.peers {
		peers = append(peers, cp)
	}
	g.peers = map[uint64]*connectedPeer{}
	g.order = nil
	g.mtx.Unlock()

	for _, cp := range peers {
		cp.Disconnect()
	}
	return nil
}

// ConnectedCount returns the number of peers with an established connection.
func (g *peerGroup) ConnectedCount() int {
	g.mtx.RLock()
	defer g.mtx.RUnlock()
	count := 0
	for _, cp := range g.peers {
		if cp.Connected() {
			count++
		}
	}
	return count
}

// StartHeight returns the height the first connected peer reported in its
// version handshake. A single peer's self-reported height is only an
// approximation of the network tip.
func (g *peerGroup) StartHeight() (int32, bool) {
	g.mtx.RLock()
	defer g.mtx.RUnlock()
	for _, id := range g.order {
		cp, ok := g.peers[id]
		if !ok {
			continue
		}
		if cp.VersionKnown() {
			return cp.StartingHeight(), true
		}
	}
	return 0, false
}

// Purge drops the whole current peer set. The connection manager dials
// replacements: permanent requests reconnect with backoff, discovered ones
// are replaced through the address book.
func (g *peerGroup) Purge(reason string) error {
	if g.isStopped() {
		return nil
	}
	log.Infof("peergroup: dropping %d peers: %s", g.ConnectedCount(), reason)

	g.mtx.Lock()
	peers := make([]*connectedPeer, 0, len(g.peers))
	for _, cp := range g.peers {
		peers = append(peers, cp)
	}
	g.peers = map[uint64]*connectedPeer{}
	g.order = nil
	g.mtx.Unlock()

	for _, cp := range peers {
		if cp.req.Permanent {
			g.connMgr.Disconnect(cp.req.ID())
		} else {
			g.connMgr.Remove(cp.req.ID())
			go g.connMgr.NewConnReq()
		}
		cp.Disconnect()
	}
	return nil
}

func (g *peerGroup) isStopped() bool {
	return atomic.LoadInt32(&g.stopped) != 0
}

// dial is handed to the connection manager. Attempts are rate limited and
// routed through a circuit breaker so a flaky network does not turn into a
// tight dial loop.
func (g *peerGroup) dial(addr net.Addr) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	g.cfg.State.MarkEndpointAttempt(addr.String())

	conn, err := g.breaker.Execute(func() (interface{}, error) {
		return net.DialTimeout(addr.Network(), addr.String(), dialTimeout)
	})
	if err != nil {
		return nil, err
	}
	return conn.(net.Conn), nil
}

// nextAddress returns a dial candidate from the address book, seeding the
// book from the network's DNS seeds on first use.
func (g *peerGroup) nextAddress() (net.Addr, error) {
	if g.isStopped() {
		return nil, ErrNoConnectAddress
	}

	exclude := map[string]struct{}{}
	g.mtx.RLock()
	for _, cp := range g.peers {
		exclude[cp.Addr()] = struct{}{}
	}
	g.mtx.RUnlock()

	address, ok := g.cfg.State.PickEndpoint(exclude, g.cfg.RequiredServices)
	if !ok {
		g.seedOnce.Do(g.seedFromDNS)
		address, ok = g.cfg.State.PickEndpoint(exclude, g.cfg.RequiredServices)
	}
	if !ok {
		return nil, ErrNoConnectAddress
	}
	return net.ResolveTCPAddr("tcp", address)
}

func (g *peerGroup) seedFromDNS() {
	connmgr.SeedFromDNS(
		g.cfg.ChainParams, g.cfg.RequiredServices, net.LookupIP,
		func(addrs []*wire.NetAddressV2) {
			for _, na := range addrs {
				legacy := na.ToLegacy()
				g.cfg.State.RecordEndpoint(
					net.JoinHostPort(
						legacy.IP.String(), strconv.Itoa(int(legacy.Port)),
					),
					legacy.Services,
				)
			}
		},
	)
}

// onConnection is invoked by the connection manager once an outbound TCP
// connection is established. It wraps the connection in a wire protocol peer
// and registers it with the group.
func (g *peerGroup) onConnection(req *connmgr.ConnReq, conn net.Conn) {
	if g.isStopped() {
		conn.Close()
		return
	}

	p, err := peer.NewOutboundPeer(g.peerConfig(), req.Addr.String())
	if err != nil {
		log.WithError(err).Debugf("peergroup: cannot create peer %s", req.Addr)
		conn.Close()
		g.connMgr.Disconnect(req.ID())
		return
	}

	g.mtx.Lock()
	g.peers[req.ID()] = &connectedPeer{Peer: p, req: req}
	g.order = append(g.order, req.ID())
	g.mtx.Unlock()

	p.AssociateConnection(conn)
	go g.peerDoneHandler(req, p)
}

func (g *peerGroup) peerDoneHandler(req *connmgr.ConnReq, p *peer.Peer) {
	p.WaitForDisconnect()

	g.mtx.Lock()
	delete(g.peers, req.ID())
	for i, id := range g.order {
		if id == req.ID() {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.mtx.Unlock()

	if !g.isStopped() {
		g.connMgr.Disconnect(req.ID())
	}
}

func (g *peerGroup) peerConfig() *peer.Config {
	return &peer.Config{
		UserAgentName:    userAgentName,
		UserAgentVersion: userAgentVersion,
		ChainParams:      g.cfg.ChainParams,
		Services:         0,
		DisableRelayTx:   true,
		Listeners: peer.MessageListeners{
			OnVersion: g.onVersion,
			OnVerAck:  g.onVerAck,
			OnHeaders: g.onHeaders,
			OnInv:     g.onInv,
			OnBlock:   g.onBlock,
			OnAddr:    g.onAddr,
			OnTx:      g.onTx,
		},
	}
}

// onVersion disconnects peers that do not advertise the required services
// and records usable ones in the address book.
func (g *peerGroup) onVersion(p *peer.Peer, msg *wire.MsgVersion) *wire.MsgReject {
	if msg.Services&g.cfg.RequiredServices != g.cfg.RequiredServices {
		log.Debugf("peergroup: peer %s lacks required services, disconnecting", p.Addr())
		p.Disconnect()
		return nil
	}
	g.cfg.State.RecordEndpoint(p.Addr(), msg.Services)
	return nil
}

// onVerAck kicks off the header download once the handshake completed.
func (g *peerGroup) onVerAck(p *peer.Peer, msg *wire.MsgVerAck) {
	g.pushGetHeaders(p)
}

// pushGetHeaders asks the peer for headers extending our best known one,
// starting from genesis when the chain index is empty.
func (g *peerGroup) pushGetHeaders(p *peer.Peer) {
	bestHash := *g.cfg.ChainParams.GenesisHash
	if hash, ok := g.cfg.State.ChainTipHash(); ok {
		bestHash = hash
	}
	locator := blockchain.BlockLocator([]*chainhash.Hash{&bestHash})
	if err := p.PushGetHeadersMsg(locator, &zeroHash); err != nil {
		log.WithError(err).Debugf("peergroup: requesting headers from %s", p.Addr())
	}
}

func (g *peerGroup) onHeaders(p *peer.Peer, msg *wire.MsgHeaders) {
	g.cfg.State.AppendHeaders(msg.Headers...)

	// a full batch means the peer has more headers for us.
	if len(msg.Headers) == wire.MaxBlockHeadersPerMsg {
		g.pushGetHeaders(p)
	}
}

// onInv answers advertised inventory with a getdata request: blocks are
// always fetched so watched outputs get confirmed, transactions only while
// scripts are being watched.
func (g *peerGroup) onInv(p *peer.Peer, msg *wire.MsgInv) {
	getData := g.invToFetch(msg)
	if len(getData.InvList) > 0 {
		p.QueueMessage(getData, nil)
	}
}

func (g *peerGroup) invToFetch(msg *wire.MsgInv) *wire.MsgGetData {
	getData := wire.NewMsgGetData()
	for _, iv := range msg.InvList {
		switch iv.Type {
		case wire.InvTypeBlock, wire.InvTypeWitnessBlock:
		case wire.InvTypeTx, wire.InvTypeWitnessTx:
			if len(g.cfg.State.WatchedScripts()) == 0 {
				continue
			}
		default:
			continue
		}
		if err := getData.AddInvVect(iv); err != nil {
			log.WithError(err).Debug("peergroup: trimming getdata request")
			break
		}
	}
	return getData
}

// onBlock feeds a fetched block into the shared state, extending the chain
// index and confirming watched outputs.
func (g *peerGroup) onBlock(p *peer.Peer, msg *wire.MsgBlock, _ []byte) {
	g.cfg.State.RecordBlock(msg)
}

// onAddr feeds gossiped peer addresses advertising the required services
// into the address book.
func (g *peerGroup) onAddr(p *peer.Peer, msg *wire.MsgAddr) {
	for _, na := range msg.AddrList {
		if na.Services&g.cfg.RequiredServices != g.cfg.RequiredServices {
			continue
		}
		g.cfg.State.RecordEndpoint(
			net.JoinHostPort(na.IP.String(), strconv.Itoa(int(na.Port))),
			na.Services,
		)
	}
}

// onTx records outputs paying to watched scripts.
func (g *peerGroup) onTx(p *peer.Peer, msg *wire.MsgTx) {
	watched := g.cfg.State.WatchedScripts()
	if len(watched) == 0 {
		return
	}
	txid := msg.TxHash().String()
	for vout, out := range msg.TxOut {
		for _, script := range watched {
			if bytes.Equal(out.PkScript, script) {
				g.cfg.State.RecordOutput(
					txid, uint32(vout), out.PkScript, uint64(out.Value), 0,
				)
				break
			}
		}
	}
}
