package media

import (
	"context"
	"errors"
	"sync"
)

// ErrNoSource is returned by Play when nothing is loaded.
var ErrNoSource = errors.New("no source loaded")

// Command is one call recorded by a Recorder.
type Command struct {
	Name string  `json:"name"`
	Src  string  `json:"src,omitempty"`
	At   float64 `json:"at,omitempty"`
}

// Recorder is a headless media element. It keeps a simulated clock that
// only moves when Advance is called, and records every command so a shell
// (or a test) can replay them.
type Recorder struct {
	mu        sync.Mutex
	src       string
	playing   bool
	position  float64
	duration  float64
	durations map[string]float64
	fallback  float64
	commands  []Command
	playErr   error
	onUpdate  func()
}

// NewRecorder returns a Recorder; durations maps a source to its length in
// seconds and may be nil.
func NewRecorder(durations map[string]float64) *Recorder {
	if durations == nil {
		durations = make(map[string]float64)
	}
	return &Recorder{durations: durations}
}

// SetDefaultDuration sets the length used for sources missing from the
// durations map. Zero means unbounded.
func (r *Recorder) SetDefaultDuration(seconds float64) {
	r.mu.Lock()
	r.fallback = seconds
	r.mu.Unlock()
}

// FailPlay makes subsequent Play calls fail with err; nil clears it.
func (r *Recorder) FailPlay(err error) {
	r.mu.Lock()
	r.playErr = err
	r.mu.Unlock()
}

func (r *Recorder) Load(src string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.src = src
	r.playing = false
	r.position = 0
	r.duration = r.fallback
	if d, ok := r.durations[src]; ok {
		r.duration = d
	}
	r.commands = append(r.commands, Command{Name: "load", Src: src})
}

func (r *Recorder) Play(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.playErr != nil {
		return r.playErr
	}
	if r.src == "" {
		return ErrNoSource
	}
	r.playing = true
	r.commands = append(r.commands, Command{Name: "play", Src: r.src})
	return nil
}

func (r *Recorder) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.playing {
		return
	}
	r.playing = false
	r.commands = append(r.commands, Command{Name: "pause", At: r.position})
}

func (r *Recorder) CurrentTime() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.position
}

func (r *Recorder) Seek(t float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.position = t
	r.commands = append(r.commands, Command{Name: "seek", At: t})
}

func (r *Recorder) Duration() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.duration
}

func (r *Recorder) Unload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.src == "" {
		return
	}
	r.src = ""
	r.playing = false
	r.commands = append(r.commands, Command{Name: "unload"})
}

func (r *Recorder) OnTimeUpdate(fn func()) {
	r.mu.Lock()
	r.onUpdate = fn
	r.mu.Unlock()
}

// Advance moves the clock forward by seconds while playing, clamped to the
// duration when one is known, and fires a time update. It reports whether
// the clock moved.
func (r *Recorder) Advance(seconds float64) bool {
	r.mu.Lock()
	if !r.playing || seconds <= 0 {
		r.mu.Unlock()
		return false
	}
	r.position += seconds
	if r.duration > 0 && r.position >= r.duration {
		r.position = r.duration
		r.playing = false
	}
	fn := r.onUpdate
	r.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

func (r *Recorder) Playing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing
}

func (r *Recorder) Source() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src
}

// Commands returns and clears the recorded commands.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.commands
	r.commands = nil
	return out
}
