// Package relay implements the croc-go rendezvous broker: it pairs two
// clients by room name and then bridges their connection transparently,
// never itself participating in (or able to read) the client-to-client
// protocol that follows pairing. It is grounded on the accept/track/relay
// shape of the teacher's forward.Listener, generalized from a single
// dialed target to a two-party room.
package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/postalsys/croc-go/internal/logging"
	"github.com/postalsys/croc-go/internal/protocol"
	"github.com/postalsys/croc-go/internal/recovery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ServerConfig configures a relay Server.
type ServerConfig struct {
	// Address is the main control-channel listen address.
	Address string

	// MultiplexAddresses are additional listeners used for bulk file
	// data. All of them check MultiplexPassword; each keeps its own room
	// namespace, separate from the control channel's rooms.
	MultiplexAddresses []string

	// Password gates the control channel.
	Password string

	// MultiplexPassword gates every multiplex listener.
	MultiplexPassword string

	// RoomTTL bounds how long an unpaired room waits before eviction.
	RoomTTL time.Duration

	// BandwidthLimit caps bytes/sec bridged per direction, per room.
	// Zero means unlimited.
	BandwidthLimit int

	// MetricsAddress, when non-empty, serves Prometheus metrics at
	// "/metrics" on this address for as long as the server runs.
	MetricsAddress string

	Logger  *slog.Logger
	Metrics *Metrics
}

// Server runs the relay's control-channel listener plus any multiplex
// listeners, each backed by its own RoomManager.
type Server struct {
	cfg      ServerConfig
	logger   *slog.Logger
	metrics  *Metrics
	registry *prometheus.Registry

	control *roomListener
	bulk    []*roomListener

	metricsSrv *http.Server

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// newBandwidthLimiter returns nil when unlimited, otherwise a limiter
// whose burst is large enough to admit one full bridge read (32KB) in a
// single WaitN call even at a very low configured rate.
func newBandwidthLimiter(bytesPerSec int) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	burst := bytesPerSec
	if burst < 32*1024 {
		burst = 32 * 1024
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// limitedWriter throttles Write calls through a rate.Limiter before
// forwarding to w. Each direction of a bridged pair gets its own limiter,
// so each direction is capped at the configured rate separately.
type limitedWriter struct {
	w   io.Writer
	lim *rate.Limiter
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.lim != nil {
		if err := l.lim.WaitN(context.Background(), len(p)); err != nil {
			return 0, fmt.Errorf("relay: bandwidth limiter: %w", err)
		}
	}
	return l.w.Write(p)
}

// roomListener is one listening socket plus the RoomManager serving it.
type roomListener struct {
	listener net.Listener
	rooms    *RoomManager
	password string
	banner   string // sent as the first field of the "<banner>|||<addr>" reply
}

// NewServer constructs a Server. Call Start to begin listening.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	registry := prometheus.NewRegistry()
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(registry)
	}
	return &Server{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		registry: registry,
		stopCh:   make(chan struct{}),
	}
}

// Start opens the control and multiplex listeners and begins accepting.
func (s *Server) Start() error {
	controlBanner := "ok"
	if len(s.cfg.MultiplexAddresses) > 0 {
		ports := make([]string, 0, len(s.cfg.MultiplexAddresses))
		for _, addr := range s.cfg.MultiplexAddresses {
			ports = append(ports, portOf(addr))
		}
		controlBanner = joinCSV(ports)
	}

	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("relay: listen on %s: %w", s.cfg.Address, err)
	}
	s.control = &roomListener{
		listener: ln,
		rooms:    NewRoomManager(),
		password: s.cfg.Password,
		banner:   controlBanner,
	}
	s.wg.Add(1)
	go s.acceptLoop(s.control)
	s.wg.Add(1)
	go s.sweepLoop(s.control.rooms)

	for _, addr := range s.cfg.MultiplexAddresses {
		bln, err := net.Listen("tcp", addr)
		if err != nil {
			s.Stop()
			return fmt.Errorf("relay: listen on %s: %w", addr, err)
		}
		rl := &roomListener{
			listener: bln,
			rooms:    NewRoomManager(),
			password: s.cfg.MultiplexPassword,
			banner:   "ok",
		}
		s.bulk = append(s.bulk, rl)
		s.wg.Add(1)
		go s.acceptLoop(rl)
		s.wg.Add(1)
		go s.sweepLoop(rl.rooms)
	}

	if s.cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
		s.metricsSrv = &http.Server{Addr: s.cfg.MetricsAddress, Handler: mux}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer recovery.RecoverWithLog(s.logger, "relay.Server.metricsServer")
			if err := s.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error("relay metrics server failed", logging.KeyError, err)
			}
		}()
	}

	s.logger.Info("relay started",
		"address", s.cfg.Address,
		"multiplex_count", len(s.cfg.MultiplexAddresses))
	return nil
}

// Address returns the control channel's listening address. It is useful
// when Start was called with a ":0" port and the caller needs to know
// which port the OS actually chose.
func (s *Server) Address() net.Addr {
	if s.control == nil {
		return nil
	}
	return s.control.listener.Addr()
}

// MultiplexAddresses returns the listening addresses of every multiplex
// listener, in the order ServerConfig.MultiplexAddresses was given.
func (s *Server) MultiplexAddresses() []net.Addr {
	addrs := make([]net.Addr, 0, len(s.bulk))
	for _, rl := range s.bulk {
		addrs = append(addrs, rl.listener.Addr())
	}
	return addrs
}

// Stop closes every listener, ends the keepalive and sweep loops, and
// waits for every connection handler to return. A handler that is
// bridging a paired room returns only when that bridge ends, so Stop
// also waits for active bridges.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.control != nil {
			s.control.listener.Close()
		}
		for _, rl := range s.bulk {
			rl.listener.Close()
		}
		if s.metricsSrv != nil {
			s.metricsSrv.Shutdown(context.Background())
		}
	})
	s.wg.Wait()
	return nil
}

func (s *Server) acceptLoop(rl *roomListener) {
	defer s.wg.Done()
	defer recovery.RecoverWithLog(s.logger, "relay.Server.acceptLoop")

	for {
		conn, err := rl.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				s.logger.Debug("relay accept error", logging.KeyError, err)
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(rl, conn)
	}
}

func (s *Server) sweepLoop(rooms *RoomManager) {
	defer s.wg.Done()
	defer recovery.RecoverWithLog(s.logger, "relay.Server.sweepLoop")

	ttl := s.cfg.RoomTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if n := rooms.sweepExpired(ttl); n > 0 {
				s.metrics.RoomsExpired.Add(float64(n))
				s.logger.Debug("relay rooms expired", logging.KeyCount, n)
			}
		}
	}
}

// handleConn is the per-connection entry point: detect a bare liveness
// probe, otherwise negotiate the room and either start keepalive or
// bridge, mirroring the branch structure of the original relay's
// per-connection handler.
func (s *Server) handleConn(rl *roomListener, conn net.Conn) {
	defer s.wg.Done()
	defer recovery.RecoverWithLog(s.logger, "relay.Server.handleConn")

	framer := protocol.NewFramer(conn)
	remote := conn.RemoteAddr().String()

	peek, err := framer.Peek(len(protocol.PingProbe))
	if err == nil && bytes.Equal(peek, protocol.PingProbe) {
		if _, err := framer.ReadPlain(len(protocol.PingProbe)); err == nil {
			framer.WritePlain(protocol.PongReply)
		}
		conn.Close()
		return
	}

	result, err := negotiate(framer, rl.password, rl.banner, remote)
	if err != nil {
		s.logger.Debug("relay negotiation failed",
			logging.KeyPeerAddr, remote, logging.KeyError, err)
		if err == ErrBadPassword {
			s.metrics.AuthFailures.WithLabelValues("bad_password").Inc()
		}
		conn.Close()
		return
	}

	ep := &endpoint{conn: conn, framer: framer}
	status, room := rl.rooms.join(result.roomName, ep)

	switch status {
	case joinFull:
		s.metrics.RoomsRejectedFull.Inc()
		result.replyRoomStatus(true)
		conn.Close()

	case joinCreated:
		s.metrics.RoomsActive.Inc()
		s.metrics.RoomsCreated.Inc()
		if err := result.replyRoomStatus(false); err != nil {
			rl.rooms.remove(result.roomName)
			conn.Close()
			return
		}
		s.keepalive(rl.rooms, room)

	case joinPaired:
		if err := result.replyRoomStatus(false); err != nil {
			conn.Close()
			return
		}
		first, second := room.takeForBridge()
		s.metrics.RoomsActive.Dec()
		rl.rooms.remove(room.name)
		s.bridge(first, second)
	}
}

// keepalive pings the first-arrived endpoint once a second until a
// second endpoint pairs (or bridging otherwise starts) or the write
// fails, at which point the room is torn down — grounded on the
// original relay's do_keepalive loop.
func (s *Server) keepalive(rooms *RoomManager, room *Room) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !room.stillWaiting() {
				return
			}
			room.mu.Lock()
			first := room.first
			room.mu.Unlock()
			if err := first.framer.WriteFrame([]byte{0x01}); err != nil {
				s.logger.Debug("relay keepalive write failed",
					logging.KeyRoomName, room.name, logging.KeyError, err)
				rooms.remove(room.name)
				first.conn.Close()
				s.metrics.RoomsActive.Dec()
				return
			}
		}
	}
}

// bridge copies bytes transparently between the two paired endpoints
// until either side closes, then closes both. Grounded on forward's
// relay() helper, generalized to two already-established connections
// instead of a freshly dialed target.
func (s *Server) bridge(first, second *endpoint) {
	defer first.conn.Close()
	defer second.conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		dst := io.Writer(second.conn)
		if lim := newBandwidthLimiter(s.cfg.BandwidthLimit); lim != nil {
			dst = &limitedWriter{w: second.conn, lim: lim}
		}
		n, err := io.Copy(dst, first.framer.Reader())
		s.metrics.BytesBridged.Add(float64(n))
		// Closing both ends unblocks the opposite copy so the bridge
		// ends as soon as either side does.
		first.conn.Close()
		second.conn.Close()
		return err
	})
	g.Go(func() error {
		dst := io.Writer(first.conn)
		if lim := newBandwidthLimiter(s.cfg.BandwidthLimit); lim != nil {
			dst = &limitedWriter{w: first.conn, lim: lim}
		}
		n, err := io.Copy(dst, second.framer.Reader())
		s.metrics.BytesBridged.Add(float64(n))
		first.conn.Close()
		second.conn.Close()
		return err
	})

	g.Wait()
	s.metrics.BridgesCompleted.Inc()
	s.logger.Debug("relay bridge finished",
		logging.KeyPeerAddr, first.conn.RemoteAddr().String())
}

// portOf extracts the port component of a listen address such as ":9010"
// or "0.0.0.0:9010".
func portOf(addr string) string {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return addr
	}
	port := addr[idx+1:]
	if _, err := strconv.Atoi(port); err != nil {
		return addr
	}
	return port
}

func joinCSV(items []string) string {
	return strings.Join(items, ",")
}
