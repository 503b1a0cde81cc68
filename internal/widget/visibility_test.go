package widget

import (
	"context"
	"testing"
)

type fakePlayback struct {
	stops   int
	replays int
}

func (f *fakePlayback) StopAll() { f.stops++ }
func (f *fakePlayback) Replay(context.Context) { f.replays++ }

func TestGate_CloseForSessionSuppressesShow(t *testing.T) {
	session := NewMemorySession()
	pb := &fakePlayback{}
	g := NewGate(session, pb)

	g.Show()
	g.CloseForSession()

	if g.Show() {
		t.Error("expected show to be suppressed")
	}
	if g.Visible() {
		t.Error("expected widget to stay invisible")
	}
	if pb.stops == 0 {
		t.Error("expected playback to be stopped on close")
	}

	g.ResetClosedState()
	if !g.Show() || !g.Visible() {
		t.Error("expected show to succeed after reset")
	}
}

func TestGate_ClosedFlagSurvivesNewInstance(t *testing.T) {
	session := NewMemorySession()
	NewGate(session, &fakePlayback{}).CloseForSession()

	reloaded := NewGate(session, &fakePlayback{})
	if !reloaded.ClosedForSession() {
		t.Fatal("expected closed flag to persist in the session store")
	}
	if reloaded.Show() {
		t.Error("expected show to be suppressed after reload")
	}
}

func TestGate_HideKeepsSessionOpen(t *testing.T) {
	pb := &fakePlayback{}
	g := NewGate(nil, pb)
	g.Show()

	g.Hide()

	if g.Visible() {
		t.Error("expected hidden")
	}
	if g.ClosedForSession() {
		t.Error("hide must not close the session")
	}
	if pb.stops != 1 {
		t.Errorf("expected 1 stop, got %d", pb.stops)
	}
	if !g.Show() {
		t.Error("expected show after hide to succeed")
	}
}

func TestGate_ToggleStopsAndResumes(t *testing.T) {
	pb := &fakePlayback{}
	g := NewGate(nil, pb)
	g.Show()

	g.Toggle(context.Background())
	if !g.Minimized() || pb.stops != 1 {
		t.Fatalf("expected minimized with playback stopped, minimized=%v stops=%d", g.Minimized(), pb.stops)
	}
	if g.Playing() {
		t.Error("expected playback not permitted while minimized")
	}

	g.Toggle(context.Background())
	if g.Minimized() || pb.replays != 1 {
		t.Errorf("expected expanded with replay, minimized=%v replays=%d", g.Minimized(), pb.replays)
	}
}

func TestGate_ShowDoesNotExpand(t *testing.T) {
	g := NewGate(nil, &fakePlayback{})
	g.Minimize()
	g.Show()

	if !g.Minimized() {
		t.Error("expected show to leave the widget minimized")
	}
}
