package widget

import (
	"context"
	"sync"
)

// ClosedSessionKey is the session-scope key holding the closed flag.
const ClosedSessionKey = "videoWidgetClosed"

// SessionStore is a session-scoped key/value store that outlives a single
// widget instance (for example across page reloads).
type SessionStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Clear(key string)
}

// MemorySession is a SessionStore that lives as long as the process.
type MemorySession struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemorySession() *MemorySession {
	return &MemorySession{values: make(map[string]string)}
}

func (m *MemorySession) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemorySession) Set(key, value string) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
}

func (m *MemorySession) Clear(key string) {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
}

type playback interface {
	StopAll()
	Replay(ctx context.Context)
}

// Gate holds the minimised/expanded and visible/hidden state and enforces
// the closed-for-session flag. Every transition is caller driven.
type Gate struct {
	session   SessionStore
	player    playback
	visible   bool
	minimized bool
}

func NewGate(session SessionStore, player playback) *Gate {
	if session == nil {
		session = NewMemorySession()
	}
	return &Gate{session: session, player: player}
}

func (g *Gate) Visible() bool   { return g.visible }
func (g *Gate) Minimized() bool { return g.minimized }

func (g *Gate) ClosedForSession() bool {
	v, ok := g.session.Get(ClosedSessionKey)
	return ok && v == "true"
}

// Playing reports whether playback is currently permitted.
func (g *Gate) Playing() bool {
	return g.visible && !g.minimized
}

// Show makes the shell visible unless the widget was closed for this
// session. It does not expand a minimised widget.
func (g *Gate) Show() bool {
	if g.ClosedForSession() {
		return false
	}
	g.visible = true
	return true
}

func (g *Gate) Hide() {
	g.visible = false
	g.player.StopAll()
}

func (g *Gate) Toggle(ctx context.Context) {
	g.minimized = !g.minimized
	if g.minimized {
		g.player.StopAll()
		return
	}
	if g.visible {
		g.player.Replay(ctx)
	}
}

func (g *Gate) Minimize() {
	if g.minimized {
		return
	}
	g.minimized = true
	g.player.StopAll()
}

func (g *Gate) CloseForSession() {
	g.Hide()
	g.player.StopAll()
	g.session.Set(ClosedSessionKey, "true")
}

func (g *Gate) ResetClosedState() {
	g.session.Clear(ClosedSessionKey)
}
