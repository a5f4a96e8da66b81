package bridge

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/lucasepe/codename"

	"github.com/leoapplecool/discord-x-housing-bridge/clients"
	"github.com/leoapplecool/discord-x-housing-bridge/config"
	"github.com/leoapplecool/discord-x-housing-bridge/core"
	"github.com/leoapplecool/discord-x-housing-bridge/services/queue"
)

// ConnState is the supervisor's connection lifecycle state.
type ConnState string

const (
	StateDisconnected      ConnState = "disconnected"
	StateConnecting        ConnState = "connecting"
	StateConnectedPreReady ConnState = "pre_ready"
	StateConnectedReady    ConnState = "ready"
)

// SupervisorEvents are the callbacks the supervisor raises. All of them are
// optional. Error events never change connection state by themselves; the
// transport's disconnect signal is authoritative.
type SupervisorEvents struct {
	OnOnline      func()
	OnReady       func()
	OnOffline     func(reason string)
	OnKicked      func(reason string)
	OnError       func(err error)
	OnChat        func(line string)
	OnPlayerJoin  func(name string)
	OnPlayerLeave func(name string)
}

// Supervisor owns the Minecraft connection lifecycle: connect, post-connect
// setup, disconnect detection and fixed-delay reconnect. It also owns the
// outbound command queue, which is the only path to the live session.
type Supervisor struct {
	cfg    config.MinecraftConfig
	dialer clients.MinecraftDialer
	events SupervisorEvents
	queue  *queue.Queue
	rng    *rand.Rand

	mu             sync.Mutex
	state          ConnState
	session        clients.MinecraftSession
	reconnectTimer *time.Timer
	settleTimer    *time.Timer
	stopped        bool
	visitTarget    string
	sessionID      string
	sessionName    string
}

func NewSupervisor(
	cfg config.MinecraftConfig,
	dialer clients.MinecraftDialer,
	events SupervisorEvents,
) *Supervisor {
	s := &Supervisor{
		cfg:         cfg,
		dialer:      dialer,
		events:      events,
		state:       StateDisconnected,
		visitTarget: cfg.VisitTarget,
	}
	s.queue = queue.New(cfg.CommandCooldown, s.dispatch)
	if rng, err := codename.DefaultRNG(); err == nil {
		s.rng = rng
	}
	return s
}

func (s *Supervisor) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsReady reports whether the settle delay after spawn has elapsed, i.e.
// commands are meaningfully deliverable.
func (s *Supervisor) IsReady() bool {
	return s.State() == StateConnectedReady
}

// SessionLabel identifies the current connection cycle in logs.
func (s *Supervisor) SessionLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionName == "" {
		return s.sessionID
	}
	return s.sessionID + " (" + s.sessionName + ")"
}

func (s *Supervisor) SetVisitTarget(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visitTarget = target
}

func (s *Supervisor) VisitTarget() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visitTarget
}

// Enqueue appends a command to the outbound queue. Commands queued while the
// session is PreReady (or even absent) are handled per queue semantics:
// dispatched when possible, dropped when no session exists at dispatch time.
func (s *Supervisor) Enqueue(command string) {
	s.queue.Enqueue(command)
}

func (s *Supervisor) QueueLen() int {
	return s.queue.Len()
}

// Players returns the live tab list of the current session, or nil.
func (s *Supervisor) Players() []string {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return nil
	}
	return session.Players()
}

// Start moves Disconnected -> Connecting and opens a session. No-op when
// already connecting/connected or after Stop.
func (s *Supervisor) Start() {
	s.mu.Lock()
	if s.stopped || s.state != StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.state = StateConnecting
	s.sessionID = core.NewID("sess")
	if s.rng != nil {
		s.sessionName = codename.Generate(s.rng, 0)
	}
	s.mu.Unlock()

	log.Printf("🔌 Connecting to %s:%d as %s [%s]", s.cfg.Host, s.cfg.Port, s.cfg.Username, s.SessionLabel())
	go s.connect()
}

func (s *Supervisor) connect() {
	session, err := s.dialer.Dial(
		clients.MinecraftConnectOptions{
			Host:     s.cfg.Host,
			Port:     s.cfg.Port,
			Username: s.cfg.Username,
		},
		clients.MinecraftSessionHandlers{
			OnSpawn:       s.handleSpawn,
			OnChat:        s.events.OnChat,
			OnPlayerJoin:  s.events.OnPlayerJoin,
			OnPlayerLeave: s.events.OnPlayerLeave,
			OnKicked:      s.handleKicked,
			OnDisconnect:  s.handleDisconnect,
			OnError:       s.handleError,
		},
	)
	if err != nil {
		s.mu.Lock()
		if s.state == StateConnecting {
			s.state = StateDisconnected
		}
		s.mu.Unlock()

		log.Printf("❌ Minecraft connect failed [%s]: %v", s.SessionLabel(), err)
		if s.events.OnError != nil {
			s.events.OnError(err)
		}
		s.scheduleReconnect()
		return
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		_ = session.Close()
		return
	}
	s.session = session
	s.mu.Unlock()

	go session.Run()
}

func (s *Supervisor) handleSpawn() {
	s.mu.Lock()
	if s.stopped || s.state != StateConnecting {
		s.mu.Unlock()
		return
	}
	s.state = StateConnectedPreReady
	visitTarget := s.visitTarget
	s.settleTimer = time.AfterFunc(s.cfg.SettleDelay, s.handleSettled)
	s.mu.Unlock()

	log.Printf("🤖 Minecraft bot online [%s], joining housing...", s.SessionLabel())
	if s.events.OnOnline != nil {
		s.events.OnOnline()
	}

	s.queue.Enqueue("/l housing")
	if visitTarget != "" {
		s.queue.Enqueue("/visit " + visitTarget)
	}
}

func (s *Supervisor) handleSettled() {
	s.mu.Lock()
	if s.state != StateConnectedPreReady {
		s.mu.Unlock()
		return
	}
	s.state = StateConnectedReady
	s.mu.Unlock()

	log.Printf("✅ Minecraft bot is ready and in housing [%s]", s.SessionLabel())
	if s.events.OnReady != nil {
		s.events.OnReady()
	}
}

func (s *Supervisor) handleKicked(reason string) {
	log.Printf("⚠️ Minecraft bot kicked [%s]: %s", s.SessionLabel(), reason)
	if s.events.OnKicked != nil {
		s.events.OnKicked(reason)
	}
	// The transport fires its disconnect signal next; that drives the
	// state change and the reconnect.
}

func (s *Supervisor) handleDisconnect(reason string) {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	s.session = nil
	if s.settleTimer != nil {
		s.settleTimer.Stop()
		s.settleTimer = nil
	}
	s.mu.Unlock()

	log.Printf("⚠️ Minecraft bot offline [%s]: %s", s.SessionLabel(), reason)
	if s.events.OnOffline != nil {
		s.events.OnOffline(reason)
	}
	s.scheduleReconnect()
}

func (s *Supervisor) handleError(err error) {
	log.Printf("❌ Minecraft error [%s]: %v", s.SessionLabel(), err)
	if s.events.OnError != nil {
		s.events.OnError(err)
	}
}

// scheduleReconnect arms a single fixed-delay retry. A zero delay disables
// reconnection entirely.
func (s *Supervisor) scheduleReconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.reconnectTimer != nil || s.cfg.ReconnectDelay == 0 {
		return
	}

	log.Printf("🔄 Scheduling reconnect in %s", s.cfg.ReconnectDelay)
	s.reconnectTimer = time.AfterFunc(s.cfg.ReconnectDelay, func() {
		s.mu.Lock()
		s.reconnectTimer = nil
		stopped := s.stopped
		s.mu.Unlock()
		if !stopped {
			s.Start()
		}
	})
}

// Stop cancels the pending reconnect and the queue drain before releasing
// the connection, so a reconnect never races a deliberate shutdown. The
// supervisor is terminal afterwards.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	if s.settleTimer != nil {
		s.settleTimer.Stop()
		s.settleTimer = nil
	}
	session := s.session
	s.session = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	s.queue.Stop()
	if session != nil {
		_ = session.Close()
	}
	log.Printf("📋 Minecraft supervisor stopped")
}

// dispatch delivers one queued command to the live session. Without a
// session the command is dropped; callers needing delivery guarantees
// re-enqueue after reconnect.
func (s *Supervisor) dispatch(command string) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session == nil {
		log.Printf("⚠️ No active Minecraft session - dropping command: %s", command)
		return
	}

	log.Printf("⚡ Sending command: %s", command)
	if err := session.SendChat(command); err != nil {
		s.handleError(err)
	}
}
