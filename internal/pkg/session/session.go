package session

import (
	"context"
	"encoding/json"
	"net/url"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dpp/homer/internal/pkg/config"
	"github.com/dpp/homer/internal/pkg/model"
	"github.com/dpp/homer/internal/pkg/readiness"
	"github.com/dpp/homer/pkg/sockets"
)

type State int32

const (
	Disconnected State = iota
	Connecting
	AuthPending
	Subscribed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case AuthPending:
		return "auth_pending"
	case Subscribed:
		return "subscribed"
	default:
		return "disconnected"
	}
}

// ConnectBackoff is the fixed wait between failed connect attempts. There
// is deliberately no exponential growth on repeated disconnects.
const ConnectBackoff = 250 * time.Millisecond

const maxFrameSize = 1 << 20

// Manager owns the lifecycle of the single event-stream session: connect,
// authenticate, subscribe, relay, reconnect. The session object never leaves
// this manager; any error tears it down wholesale and rebuilds from scratch.
type Manager struct {
	cfg     *config.HAConfig
	flags   *readiness.Flags
	cmds    <-chan Command
	events  chan<- *model.EventFrame
	logger  *zap.Logger
	backoff time.Duration

	conn  sockets.Connection
	state atomic.Int32
	gen   atomic.Int64
	errs  chan connErr
}

type connErr struct {
	gen int64
	err error
}

func New(cfg *config.HAConfig, flags *readiness.Flags, cmds <-chan Command, events chan<- *model.EventFrame) *Manager {
	return &Manager{
		cfg:     cfg,
		flags:   flags,
		cmds:    cmds,
		events:  events,
		logger:  zap.L(),
		backoff: ConnectBackoff,
		errs:    make(chan connErr, 4),
	}
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
}

// Run drives the session until the context ends. It waits for network
// bring-up first; afterwards it attempts one connect per loop iteration
// while no session is live and drains exactly one command per iteration
// while one is.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.flags.AwaitNetwork(ctx); err != nil {
		return err
	}
	for {
		if m.conn == nil {
			m.drainDisconnected()
			if err := m.connect(ctx); err != nil {
				select {
				case <-time.After(m.backoff):
				case <-ctx.Done():
					return ctx.Err()
				}
				continue
			}
		}
		select {
		case cmd := <-m.cmds:
			m.handle(cmd)
		case ce := <-m.errs:
			if ce.gen == m.gen.Load() {
				m.logger.Warn("transport error, tearing session down", zap.Error(ce.err))
				m.teardown()
			}
		case <-ctx.Done():
			m.teardown()
			return ctx.Err()
		}
	}
}

func (m *Manager) url() string {
	u := url.URL{Scheme: "ws", Host: m.cfg.Host, Path: "/api/websocket"}
	if m.cfg.Ssl {
		u.Scheme = "wss"
	}
	return u.String()
}

func (m *Manager) connect(ctx context.Context) error {
	m.setState(Connecting)
	gen := m.gen.Add(1)
	conn := sockets.New(
		sockets.OnMessage(func(data []byte, c sockets.Connection) {
			m.onMessage(gen, data, c)
		}),
		sockets.OnError(func(err error) {
			m.reportErr(gen, err)
		}),
		sockets.InsecureSkipVerify(),
		sockets.WithReadLimit(maxFrameSize),
	)

	target := m.url()
	m.logger.Debug("connecting", zap.String("url", target))
	if err := conn.Dial(ctx, target); err != nil {
		m.logger.Warn("connect failed", zap.String("url", target), zap.Error(err))
		m.setState(Disconnected)
		return err
	}

	// authentication precedes everything; no subscription is honored
	// before the acknowledgment arrives
	auth, err := json.Marshal(model.NewAuthRequest(m.cfg.Token))
	if err != nil {
		_ = conn.Close()
		m.setState(Disconnected)
		return err
	}
	if err := conn.Send(sockets.Msg{Body: auth}); err != nil {
		m.logger.Warn("auth send failed", zap.Error(err))
		_ = conn.Close()
		m.setState(Disconnected)
		return err
	}
	m.conn = conn
	m.setState(AuthPending)
	return nil
}

func (m *Manager) reportErr(gen int64, err error) {
	select {
	case m.errs <- connErr{gen: gen, err: err}:
	default:
	}
}

// onMessage runs on the read goroutine. Frames that fail to parse are
// protocol errors: logged and dropped without touching the transport. The
// authentication acknowledgment triggers the subscription; every other
// frame is forwarded as a shared immutable decoded value. A full event
// channel blocks here, which is the intended backpressure on a stalled
// consumer.
func (m *Manager) onMessage(gen int64, data []byte, c sockets.Connection) {
	if gen != m.gen.Load() {
		return
	}
	frame := &model.EventFrame{}
	if err := json.Unmarshal(data, frame); err != nil {
		m.logger.Debug("dropping unparseable frame", zap.Error(err), zap.Int("size", len(data)))
		return
	}
	if frame.Type == model.FrameAuthOK.String() {
		sub, err := json.Marshal(model.NewSubscribeRequest())
		if err != nil {
			m.reportErr(gen, err)
			return
		}
		if err := c.Send(sockets.Msg{Body: sub}); err != nil {
			m.reportErr(gen, err)
			return
		}
		m.setState(Subscribed)
		m.logger.Info("authenticated and subscribed", zap.Int("subscribe_id", model.SubscribeRequestID))
		return
	}
	m.events <- frame
}

// drainDisconnected consumes pending commands while no session is live.
// Reconnect signals coalesce into the teardown already in effect; payload
// sends are dropped, not queued.
func (m *Manager) drainDisconnected() {
	for {
		select {
		case cmd := <-m.cmds:
			switch cmd.(type) {
			case Reconnect:
			default:
				m.logger.Warn("dropping payload send while disconnected")
			}
		default:
			return
		}
	}
}

func (m *Manager) handle(cmd Command) {
	switch cmd := cmd.(type) {
	case Reconnect:
		m.logger.Info("reconnect requested")
		m.teardown()
	case SendText:
		m.send([]byte(cmd))
	case SendMessage:
		data, err := json.Marshal(cmd.Payload)
		if err != nil {
			m.logger.Error("unencodable outbound message", zap.Error(err))
			return
		}
		m.send(data)
	}
}

// send failure is indistinguishable from a transport error: full teardown.
func (m *Manager) send(data []byte) {
	if m.conn == nil {
		m.logger.Warn("dropping payload send while disconnected")
		return
	}
	if err := m.conn.Send(sockets.Msg{Body: data}); err != nil {
		m.logger.Warn("send failed, tearing session down", zap.Error(err))
		m.teardown()
	}
}

func (m *Manager) teardown() {
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.gen.Add(1)
	m.setState(Disconnected)
}
