// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/ircpipe/internal/model"
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Config holds the identity a new session starts with.
type Config struct {
	// Nick is used on networks that have not reported their own nick.
	Nick string

	// Network is the default network id.
	Network string
}

// network is the mutable per-network state.
type network struct {
	nick        string
	connected   bool
	connectedAt time.Time
	channels    map[string]string // folded name -> display name
}

// Manager tracks session state. All methods are safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	sessionID    string
	startTime    time.Time
	lastActivity time.Time

	defaultNick    string
	defaultNetwork string
	networks       map[string]*network
	active         model.Tab

	now func() time.Time
}

// NewManager creates a session. The active tab starts as the default
// network's server tab.
func NewManager(cfg Config) *Manager {
	return newManager(cfg, time.Now)
}

func newManager(cfg Config, now func() time.Time) *Manager {
	start := now()
	return &Manager{
		sessionID:      generateSessionID(start),
		startTime:      start,
		lastActivity:   start,
		defaultNick:    cfg.Nick,
		defaultNetwork: cfg.Network,
		networks:       make(map[string]*network),
		active:         model.ServerTab(cfg.Network),
		now:            now,
	}
}

// SessionID returns the current session ID.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// =============================================================================
// NETWORK STATE
// =============================================================================

func (m *Manager) networkLocked(id string) *network {
	n, ok := m.networks[id]
	if !ok {
		n = &network{channels: make(map[string]string)}
		m.networks[id] = n
	}
	return n
}

// Connect marks networkID as registered under nick.
func (m *Manager) Connect(networkID, nick string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.networkLocked(networkID)
	n.connected = true
	n.connectedAt = m.now()
	if nick != "" {
		n.nick = nick
	}
}

// Disconnect marks networkID as down and forgets its channels.
func (m *Manager) Disconnect(networkID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.networks[networkID]; ok {
		n.connected = false
		n.channels = make(map[string]string)
	}
}

// Connected reports whether networkID is registered.
func (m *Manager) Connected(networkID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.networks[networkID]
	return ok && n.connected
}

// SetNick records a nick change on networkID.
func (m *Manager) SetNick(networkID, nick string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.networkLocked(networkID).nick = nick
}

// Nick returns the nick on networkID, falling back to the configured nick.
func (m *Manager) Nick(networkID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.networks[networkID]; ok && n.nick != "" {
		return n.nick
	}
	return m.defaultNick
}

// Join records that the user joined channel.
func (m *Manager) Join(networkID, channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.networkLocked(networkID).channels[model.Fold(channel)] = channel
}

// Part records that the user left channel.
func (m *Manager) Part(networkID, channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.networks[networkID]; ok {
		delete(n.channels, model.Fold(channel))
	}
}

// InChannel reports whether the user is in channel.
func (m *Manager) InChannel(networkID, channel string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.networks[networkID]
	if !ok {
		return false
	}
	_, in := n.channels[model.Fold(channel)]
	return in
}

// Channels returns the joined channels of networkID, sorted.
func (m *Manager) Channels(networkID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.networks[networkID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(n.channels))
	for _, name := range n.channels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Network is a read-only snapshot of one network.
type Network struct {
	ID          string
	Nick        string
	Connected   bool
	ConnectedAt time.Time
	Channels    []string
}

// Networks returns a snapshot of every known network, sorted by id.
func (m *Manager) Networks() []Network {
	m.mu.Lock()
	ids := make([]string, 0, len(m.networks))
	for id := range m.networks {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Strings(ids)

	out := make([]Network, 0, len(ids))
	for _, id := range ids {
		m.mu.Lock()
		n := m.networks[id]
		snap := Network{ID: id, Nick: n.nick, Connected: n.connected, ConnectedAt: n.connectedAt}
		m.mu.Unlock()
		snap.Channels = m.Channels(id)
		if snap.Nick == "" {
			snap.Nick = m.Nick(id)
		}
		out = append(out, snap)
	}
	return out
}

// =============================================================================
// ACTIVE TAB
// =============================================================================

// SetActiveTab switches the tab commands are typed into.
func (m *Manager) SetActiveTab(tab model.Tab) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tab.NetworkID == "" {
		tab.NetworkID = m.defaultNetwork
	}
	m.active = tab
}

// ActiveTab returns the tab commands are typed into.
func (m *Manager) ActiveTab() model.Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// DefaultNetwork returns the active tab's network, or the configured
// network when no tab names one.
func (m *Manager) DefaultNetwork() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active.NetworkID != "" {
		return m.active.NetworkID
	}
	return m.defaultNetwork
}

// =============================================================================
// ACTIVITY TRACKING
// =============================================================================

// RecordActivity updates the last activity timestamp.
func (m *Manager) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = m.now()
}

// IdleTime returns how long since last activity.
func (m *Manager) IdleTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.lastActivity)
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status summarizes the session for display.
type Status struct {
	SessionID string
	ActiveTab model.Tab
	Nick      string
	Connected int
	Channels  int
	Duration  time.Duration
	IdleTime  time.Duration
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	st := Status{
		SessionID: m.sessionID,
		ActiveTab: m.active,
		Nick:      m.defaultNick,
		Duration:  now.Sub(m.startTime),
		IdleTime:  now.Sub(m.lastActivity),
	}
	if n, ok := m.networks[m.active.NetworkID]; ok && n.nick != "" {
		st.Nick = n.nick
	}
	for _, n := range m.networks {
		if n.connected {
			st.Connected++
		}
		st.Channels += len(n.channels)
	}
	return st
}

// String renders the status as a single line.
func (s Status) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s on %s", s.Nick, s.ActiveTab)
	fmt.Fprintf(&b, " | %d connected, %d channels", s.Connected, s.Channels)
	fmt.Fprintf(&b, " | up %s, idle %s", FormatDuration(s.Duration), FormatDuration(s.IdleTime))
	return b.String()
}

// =============================================================================
// HELPERS
// =============================================================================

// generateSessionID creates a session ID from the start time.
func generateSessionID(t time.Time) string {
	return "sess_" + t.Format("20060102_150405")
}

// FormatDuration returns a short human-readable duration.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		mins, secs := int(d.Minutes()), int(d.Seconds())%60
		if secs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm %ds", mins, secs)
	default:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
