package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"transcript-sync-service/internal/dedup"
	"transcript-sync-service/internal/events"
	"transcript-sync-service/internal/models"
	"transcript-sync-service/internal/observability/logging"
	"transcript-sync-service/internal/observability/metrics"
	"transcript-sync-service/internal/transcript"
	"transcript-sync-service/internal/wire"
)

// ErrReconnectBudget marks the terminal failure after the reconnect budget
// ran out. Cleared by Retry or a renewed Connect.
var ErrReconnectBudget = errors.New("reconnect budget exhausted")

// ActiveChecker reports whether a meeting is still live. Consulted before
// scheduling a reconnect; reachability problems count as active so a flaky
// collaborator cannot strand the viewer.
type ActiveChecker interface {
	IsActive(ctx context.Context, meetingID string) (bool, error)
}

// Config holds the parameters for one desired connection.
type Config struct {
	// FeedURL is the ws:// or wss:// base of the meeting feed. http(s)
	// schemes are rewritten, which keeps httptest servers usable.
	FeedURL   string
	MeetingID string
	ViewerID  string

	HeartbeatInterval   time.Duration
	MaxMissedHeartbeats int
	Policy              ReconnectPolicy
	DialTimeout         time.Duration
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 25 * time.Second
	}
	if c.MaxMissedHeartbeats <= 0 {
		c.MaxMissedHeartbeats = DefaultMaxMissedHeartbeats
	}
	if c.Policy.MaxAttempts <= 0 {
		c.Policy = DefaultReconnectPolicy()
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	return c
}

// Manager orchestrates the lifetime of the meeting feed connection. It owns
// the connection state machine, tears down superseded transports before
// opening new ones, and routes accepted frames through the dedup filter
// into the transcript store.
//
// Exactly one transport is live at a time. Every transport is tagged with a
// generation number; handlers belonging to a superseded generation never
// mutate state.
type Manager struct {
	cfg       Config
	store     *transcript.Store
	filter    *dedup.Filter
	publisher *events.Publisher
	checker   ActiveChecker
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	tracker   *livenessTracker

	onParticipants func([]string)
	onStateChange  func(ConnectionState)

	writeMu sync.Mutex

	mu            sync.Mutex
	state         ConnectionState
	conn          *websocket.Conn
	gen           uint64
	attempts      int
	intent        bool
	meetingActive bool
	retryTimer    *time.Timer
	heartbeatStop chan struct{}
	participants  []string
	lastErr       error
}

// NewManager creates a manager for one (meeting, viewer) pair. The
// publisher may be a disabled (log-only) instance but must not be nil.
func NewManager(cfg Config, store *transcript.Store, filter *dedup.Filter, publisher *events.Publisher) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:       cfg,
		store:     store,
		filter:    filter,
		publisher: publisher,
		metrics:   metrics.DefaultMetrics,
		logger:    logging.WithMeeting(cfg.MeetingID, cfg.ViewerID),
		tracker:   newLivenessTracker(cfg.MaxMissedHeartbeats),
		state:     StateDisconnected,
	}
}

// SetActiveChecker installs the collaborator used to gate reconnection.
// Must be called before Connect.
func (m *Manager) SetActiveChecker(c ActiveChecker) {
	m.checker = c
}

// SetParticipantsCallback installs a callback invoked with each participant
// snapshot. Must be called before Connect; the callback must not block.
func (m *Manager) SetParticipantsCallback(cb func([]string)) {
	m.onParticipants = cb
}

// SetStateCallback installs a callback invoked on every state transition.
// Must be called before Connect; the callback must not call back into the
// Manager.
func (m *Manager) SetStateCallback(cb func(ConnectionState)) {
	m.onStateChange = cb
}

// Connect establishes (or renews) the desired connection. The attempt
// budget is reset: this is a fresh intent.
func (m *Manager) Connect() {
	m.mu.Lock()
	m.intent = true
	m.meetingActive = true
	m.attempts = 0
	m.lastErr = nil
	m.teardownTransportLocked()
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	go m.dial(gen)
}

// Close tears the connection down synchronously: the liveness loop stops,
// any pending reconnect timer is cancelled, and the transport is closed.
// Safe to call multiple times.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intent = false
	m.gen++
	m.teardownTransportLocked()
	m.setStateLocked(StateDisconnected)
}

// Retry resets the attempt budget and dials immediately. This is the manual
// reconnect offered after the budget is exhausted, and the hook for external
// recovery signals (viewer regains focus, network comes back). A meeting
// already marked ended stays ended; renew with Connect instead.
func (m *Manager) Retry() {
	m.mu.Lock()
	if !m.intent || !m.meetingActive || m.state == StateConnected || m.state == StateConnecting {
		m.mu.Unlock()
		return
	}
	m.attempts = 0
	m.lastErr = nil
	m.teardownTransportLocked()
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	m.logger.Info().Msg("Manual retry requested, attempt budget reset")
	go m.dial(gen)
}

// State returns the current connection state.
func (m *Manager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the error behind a Failed state, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// MeetingActive reports whether the meeting is still considered live.
func (m *Manager) MeetingActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meetingActive
}

// Participants returns the most recent participant snapshot.
func (m *Manager) Participants() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.participants))
	copy(out, m.participants)
	return out
}

// endpoint builds the feed URL for this (meeting, viewer) pair.
func (m *Manager) endpoint() string {
	base := strings.TrimRight(m.cfg.FeedURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return fmt.Sprintf("%s/ws/meetings/%s/transcript?viewer=%s",
		base, url.PathEscape(m.cfg.MeetingID), url.QueryEscape(m.cfg.ViewerID))
}

// dial runs one connection attempt for the given generation.
func (m *Manager) dial(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || !m.intent {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	logger := logging.WithSession(m.cfg.MeetingID, m.cfg.ViewerID, gen)
	dialer := websocket.Dialer{HandshakeTimeout: m.cfg.DialTimeout}
	conn, resp, err := dialer.Dial(m.endpoint(), nil)
	if resp != nil && resp.Body != nil && err != nil {
		resp.Body.Close()
	}
	if err != nil {
		logger.Warn().Err(err).Msg("Dial failed")
		active := m.stillActive()
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.gen || !m.intent {
			return
		}
		if !active {
			m.setStateLocked(StateDisconnected)
			return
		}
		m.scheduleReconnectLocked()
		return
	}

	m.mu.Lock()
	if gen != m.gen || !m.intent {
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.conn = conn
	m.attempts = 0
	m.tracker.Reset()
	stop := make(chan struct{})
	m.heartbeatStop = stop
	m.setStateLocked(StateConnected)
	m.metrics.RecordConnect()
	m.mu.Unlock()

	logger.Info().Msg("Feed connection established")
	go m.heartbeatLoop(conn, stop)
	go m.readLoop(conn, gen)
}

// readLoop drains inbound frames until the transport errors or closes.
func (m *Manager) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			clean := websocket.IsCloseError(err, websocket.CloseNormalClosure)
			m.handleDisconnect(conn, gen, clean, err)
			return
		}
		m.handleFrame(conn, gen, raw)
	}
}

// heartbeatLoop sends liveness probes on a fixed interval. When the missed
// count passes the threshold the transport is force-closed, which drives
// the read loop into the reconnect path.
func (m *Manager) heartbeatLoop(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := m.writeFrame(conn, wire.Heartbeat()); err != nil {
				m.logger.Warn().Err(err).Msg("Heartbeat send failed")
				conn.Close()
				return
			}
			m.metrics.RecordHeartbeatSent()
			if m.tracker.Probe() {
				m.logger.Warn().
					Int("missed", m.tracker.Missed()).
					Msg("Heartbeat threshold exceeded, forcing reconnect")
				m.metrics.RecordLivenessReconnect()
				conn.Close()
				return
			}
		}
	}
}

// handleDisconnect decides what a transport loss means: teardown, clean
// stop, or a scheduled reconnect. Events from superseded transports are
// ignored.
func (m *Manager) handleDisconnect(conn *websocket.Conn, gen uint64, clean bool, cause error) {
	active := !clean && m.stillActive()

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || conn != m.conn {
		return
	}
	if m.heartbeatStop != nil {
		close(m.heartbeatStop)
		m.heartbeatStop = nil
	}
	conn.Close()
	m.conn = nil

	if !m.intent {
		m.setStateLocked(StateDisconnected)
		return
	}
	if clean {
		m.logger.Info().Msg("Feed closed cleanly")
		m.setStateLocked(StateDisconnected)
		return
	}
	if !active {
		m.logger.Info().Msg("Meeting no longer active, not reconnecting")
		m.setStateLocked(StateDisconnected)
		return
	}

	m.logger.Warn().Err(cause).Msg("Feed connection lost")
	m.scheduleReconnectLocked()
}

// scheduleReconnectLocked applies the backoff policy for the next attempt.
// Caller must hold the lock.
func (m *Manager) scheduleReconnectLocked() {
	if m.cfg.Policy.Exhausted(m.attempts) {
		m.lastErr = ErrReconnectBudget
		m.setStateLocked(StateFailed)
		m.metrics.RecordReconnectExhausted()
		m.logger.Error().
			Int("attempts", m.attempts).
			Msg("Reconnect budget exhausted, giving up until manual retry")
		return
	}

	delay := m.cfg.Policy.Delay(m.attempts)
	m.attempts++
	m.gen++
	gen := m.gen
	m.setStateLocked(StateReconnecting)
	m.metrics.RecordReconnectScheduled(delay.Seconds())
	m.logger.Info().
		Int("attempt", m.attempts).
		Dur("delay", delay).
		Msg("Reconnect scheduled")

	m.retryTimer = time.AfterFunc(delay, func() {
		m.dial(gen)
	})
}

// stillActive consults the local flag and, when configured, the meetings
// collaborator. Runs without the manager lock held: the collaborator call
// is network I/O.
func (m *Manager) stillActive() bool {
	m.mu.Lock()
	active := m.meetingActive
	m.mu.Unlock()
	if !active {
		return false
	}
	if m.checker == nil {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ok, err := m.checker.IsActive(ctx, m.cfg.MeetingID)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Meeting activity check failed, assuming active")
		return true
	}
	if !ok {
		m.mu.Lock()
		m.meetingActive = false
		m.mu.Unlock()
	}
	return ok
}

// handleFrame routes one decoded inbound frame. Malformed frames are
// dropped and logged; they never tear down the connection.
func (m *Manager) handleFrame(conn *websocket.Conn, gen uint64, raw []byte) {
	env, err := wire.Decode(raw)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Dropping malformed frame")
		m.metrics.RecordFrameDropped("malformed")
		return
	}
	m.metrics.RecordFrame(env.Type)

	switch env.Type {
	case wire.TypeInitialState:
		state, err := env.InitialState()
		if err != nil {
			m.logger.Warn().Err(err).Msg("Dropping bad initial_state frame")
			m.metrics.RecordFrameDropped("malformed")
			return
		}
		applied := m.applyIfCurrent(conn, gen, func() {
			// A fresh snapshot invalidates prior fingerprints.
			m.filter.Reset()
			m.store.ReplaceAll(state.History, state.Active)
			if state.Participants != nil {
				m.participants = state.Participants
			}
		})
		if !applied {
			return
		}
		m.metrics.RecordStoreSize(m.store.HistoryLen(), m.store.ActiveLen())
		m.logger.Info().
			Int("history", len(state.History)).
			Int("active", len(state.Active)).
			Msg("Initial transcript state installed")
		m.notifyParticipants(state.Participants)

	case wire.TypeTranscript, wire.TypeTranscriptUpdate:
		seg, err := env.SegmentUpdate()
		if err != nil {
			m.logger.Warn().Err(err).Msg("Dropping bad segment update")
			m.metrics.RecordFrameDropped("malformed")
			return
		}
		var verdict dedup.Verdict
		applied := m.applyIfCurrent(conn, gen, func() {
			verdict = m.filter.Check(seg)
			if verdict != dedup.Accepted {
				return
			}
			m.store.Apply(seg)
		})
		if !applied {
			return
		}
		if verdict != dedup.Accepted {
			m.metrics.RecordDedupRejected(verdict.String())
			return
		}
		m.metrics.RecordSegmentApplied(seg.IsFinal())
		m.metrics.RecordStoreSize(m.store.HistoryLen(), m.store.ActiveLen())
		m.export(seg)

	case wire.TypeParticipantUpdate:
		participants, err := env.ParticipantUpdate()
		if err != nil {
			m.metrics.RecordFrameDropped("malformed")
			return
		}
		applied := m.applyIfCurrent(conn, gen, func() {
			if participants != nil {
				m.participants = participants
			}
		})
		if !applied {
			return
		}
		m.notifyParticipants(participants)

	case wire.TypeMeetingEnded:
		endedAt := time.Now().UTC()
		if env.EndedAt != nil {
			endedAt = *env.EndedAt
		}
		if !m.applyIfCurrent(conn, gen, func() { m.meetingActive = false }) {
			return
		}
		m.logger.Info().Time("endedAt", endedAt).Msg("Meeting ended")

	case wire.TypeHeartbeat:
		if err := m.writeFrame(conn, wire.HeartbeatAck()); err != nil {
			m.logger.Warn().Err(err).Msg("Heartbeat ack send failed")
		}

	case wire.TypeHeartbeatAck:
		acked := m.applyIfCurrent(conn, gen, func() { m.tracker.Ack() })
		if acked {
			m.metrics.RecordHeartbeatAck()
		}

	default:
		m.logger.Debug().Str("type", env.Type).Msg("Ignoring unrecognized frame type")
	}
}

// applyIfCurrent runs fn under the manager lock, only when the given
// transport is still the live one. Holding the lock across both the
// identity check and the mutation means a late frame from a superseded
// connection can never mutate state, even if it raced the check against a
// new dial. fn must not call back into the Manager.
func (m *Manager) applyIfCurrent(conn *websocket.Conn, gen uint64, fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || conn != m.conn {
		return false
	}
	fn()
	return true
}

// notifyParticipants invokes the participants callback outside the lock.
func (m *Manager) notifyParticipants(participants []string) {
	if participants != nil && m.onParticipants != nil {
		m.onParticipants(participants)
	}
}

// writeFrame serializes writes to the transport; the read loop's acks and
// the heartbeat loop share it.
func (m *Manager) writeFrame(conn *websocket.Conn, payload []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// export publishes an accepted update for downstream consumers. Publish
// errors are terminal: the publisher logs and counts them, and there is no
// retry path here, so the returns are discarded.
func (m *Manager) export(seg models.TranscriptSegment) {
	ctx := context.Background()
	now := time.Now().UnixMilli()
	if seg.IsFinal() {
		_ = m.publisher.PublishFinal(ctx, m.cfg.MeetingID, models.SegmentFinal{
			EventType:   "transcript.final",
			MeetingID:   m.cfg.MeetingID,
			ViewerID:    m.cfg.ViewerID,
			Timestamp:   now,
			SegmentID:   seg.ID,
			Speaker:     seg.Speaker,
			Text:        seg.Text,
			CallTime:    seg.CallTime,
			CallTimeSec: seg.CallTimeSeconds(),
		})
		return
	}
	_ = m.publisher.PublishInterim(ctx, m.cfg.MeetingID, models.SegmentInterim{
		EventType: "transcript.interim",
		MeetingID: m.cfg.MeetingID,
		ViewerID:  m.cfg.ViewerID,
		Timestamp: now,
		SegmentID: seg.ID,
		Speaker:   seg.Speaker,
		Text:      seg.Text,
	})
}

// setStateLocked records a state transition. Caller must hold the lock.
func (m *Manager) setStateLocked(next ConnectionState) {
	if m.state == next {
		return
	}
	prev := m.state
	m.state = next
	m.metrics.RecordStateTransition(next.String(), next == StateConnected)
	m.logger.Info().
		Str("from", prev.String()).
		Str("to", next.String()).
		Msg("Connection state changed")
	if m.onStateChange != nil {
		m.onStateChange(next)
	}
}

// teardownTransportLocked stops the liveness loop, cancels any pending
// reconnect timer, and closes the transport. Caller must hold the lock.
func (m *Manager) teardownTransportLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	if m.heartbeatStop != nil {
		close(m.heartbeatStop)
		m.heartbeatStop = nil
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}
