package widget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeMedia struct {
	mu       sync.Mutex
	src      string
	loads    []string
	playing  bool
	position float64
	duration float64
	playErr  error
	onUpdate func()
}

func (m *fakeMedia) Load(src string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.src = src
	m.loads = append(m.loads, src)
	m.position = 0
}

func (m *fakeMedia) Play(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playErr != nil {
		return m.playErr
	}
	m.playing = true
	return nil
}

func (m *fakeMedia) Pause() {
	m.mu.Lock()
	m.playing = false
	m.mu.Unlock()
}

func (m *fakeMedia) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *fakeMedia) Seek(t float64) {
	m.mu.Lock()
	m.position = t
	m.mu.Unlock()
}

func (m *fakeMedia) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *fakeMedia) Unload() {
	m.mu.Lock()
	m.src = ""
	m.mu.Unlock()
}

func (m *fakeMedia) OnTimeUpdate(fn func()) {
	m.mu.Lock()
	m.onUpdate = fn
	m.mu.Unlock()
}

func (m *fakeMedia) isPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *fakeMedia) source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src
}

func (m *fakeMedia) tick(position float64) {
	m.mu.Lock()
	m.position = position
	fn := m.onUpdate
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type reports struct {
	mu   sync.Mutex
	errs []error
}

func (r *reports) report(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *reports) has(target error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, err := range r.errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (r *reports) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

func opt(id string, action Action, payload string) Option {
	return Option{ID: id, Text: id, Action: action, Payload: payload}
}

func video(id string) Video {
	return Video{ID: id, Title: "Video " + id, Source: Source{URL: "https://cdn.example.com/" + id + ".mp4"}}
}
