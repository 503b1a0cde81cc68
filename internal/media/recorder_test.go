package media

import (
	"context"
	"errors"
	"testing"
)

func TestRecorder_RecordsCommands(t *testing.T) {
	r := NewRecorder(nil)

	r.Load("a.mp4")
	if err := r.Play(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Pause()
	r.Seek(0)
	r.Unload()

	cmds := r.Commands()
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	want := []string{"load", "play", "pause", "seek", "unload"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("command %d: expected %q, got %q", i, want[i], names[i])
		}
	}
	if len(r.Commands()) != 0 {
		t.Error("expected commands to be cleared after reading")
	}
}

func TestRecorder_PlayWithoutSource(t *testing.T) {
	r := NewRecorder(nil)
	if err := r.Play(context.Background()); !errors.Is(err, ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}
}

func TestRecorder_FailPlay(t *testing.T) {
	r := NewRecorder(nil)
	r.Load("a.mp4")
	r.FailPlay(errors.New("autoplay blocked"))
	if err := r.Play(context.Background()); err == nil {
		t.Error("expected play failure")
	}
	if r.Playing() {
		t.Error("expected not playing")
	}
}

func TestRecorder_AdvanceFiresTimeUpdates(t *testing.T) {
	r := NewRecorder(map[string]float64{"a.mp4": 10})
	updates := 0
	r.OnTimeUpdate(func() { updates++ })

	if r.Advance(1) {
		t.Error("expected no advance while stopped")
	}

	r.Load("a.mp4")
	_ = r.Play(context.Background())
	r.Advance(4)
	r.Advance(8)

	if updates != 2 {
		t.Errorf("expected 2 updates, got %d", updates)
	}
	if r.CurrentTime() != 10 {
		t.Errorf("expected clamp to duration, got %v", r.CurrentTime())
	}
	if r.Playing() {
		t.Error("expected playback to end at duration")
	}
}

func TestRecorder_DefaultDuration(t *testing.T) {
	r := NewRecorder(map[string]float64{"known.mp4": 5})
	r.SetDefaultDuration(20)

	r.Load("other.mp4")
	if r.Duration() != 20 {
		t.Errorf("expected default duration 20, got %v", r.Duration())
	}
	r.Load("known.mp4")
	if r.Duration() != 5 {
		t.Errorf("expected mapped duration 5, got %v", r.Duration())
	}
}
