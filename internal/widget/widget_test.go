package widget

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeChat struct {
	available bool
	messages  chan string
}

func (c *fakeChat) Available() bool { return c.available }

func (c *fakeChat) Open(_ context.Context, message string) error {
	c.messages <- message
	return nil
}

type fakeNavigator struct {
	mu   sync.Mutex
	urls []string
}

func (n *fakeNavigator) Open(url string) {
	n.mu.Lock()
	n.urls = append(n.urls, url)
	n.mu.Unlock()
}

type fakeLoader struct {
	err error
}

func (l *fakeLoader) Materialize(_ context.Context, url string) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	return "/cache/" + url[len(url)-5:], nil
}

func startWidget(t *testing.T, cfg Config, deps Deps) *Widget {
	t.Helper()
	if deps.Media == nil {
		deps.Media = &fakeMedia{}
	}
	w, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("new widget: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return w
}

func TestNew_RequiresMedia(t *testing.T) {
	if _, err := New(Config{}, Deps{}); err == nil {
		t.Error("expected error without media")
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := Config{Videos: []Video{video("a"), video("a")}}
	if _, err := New(cfg, Deps{Media: &fakeMedia{}}); err == nil {
		t.Error("expected error for duplicate video ids")
	}
}

func TestWidget_ChangeOptionsThenPlayVideo(t *testing.T) {
	cfg := Config{
		Videos:     []Video{video("a"), video("b")},
		OptionSets: map[string][]Option{"menu": {opt("watch-b", ActionPlayVideo, "b")}},
		Options:    []Option{opt("open-menu", ActionChangeOptions, "menu")},
	}
	w := startWidget(t, cfg, Deps{})
	w.Show()

	w.Select("open-menu")
	state := w.State()
	if len(state.Options) != 1 || state.Options[0].ID != "watch-b" {
		t.Fatalf("expected menu options, got %+v", state.Options)
	}

	w.Select("watch-b")
	if got := w.State().CurrentVideoID; got != "b" {
		t.Errorf("expected current video b, got %q", got)
	}
}

func TestWidget_ChangeOptionsMissingEmptiesMenu(t *testing.T) {
	cfg := Config{
		Videos:  []Video{video("a")},
		Options: []Option{opt("go", ActionChangeOptions, "missing"), opt("play", ActionPlayVideo, "a")},
	}
	w := startWidget(t, cfg, Deps{})

	w.Select("go")
	eventually(t, func() bool { return len(w.State().Options) == 0 }, "menu emptied")

	w.Show()
	w.Dispatch(opt("direct", ActionPlayVideo, "a"))
	state := w.State()
	if !state.Visible || state.CurrentVideoID != "a" {
		t.Errorf("expected widget to remain functional, got %+v", state)
	}
}

func TestWidget_PlayVideoUnknownIDLeavesCurrent(t *testing.T) {
	w := startWidget(t, Config{Videos: []Video{video("a")}}, Deps{})
	w.Show()
	w.Dispatch(opt("p", ActionPlayVideo, "a"))
	w.Dispatch(opt("q", ActionPlayVideo, "nope"))

	if got := w.State().CurrentVideoID; got != "a" {
		t.Errorf("expected current a, got %q", got)
	}
}

func TestWidget_PlayVideoWhileHiddenDoesNotPlay(t *testing.T) {
	media := &fakeMedia{}
	w := startWidget(t, Config{Videos: []Video{video("a")}}, Deps{Media: media})

	w.Dispatch(opt("p", ActionPlayVideo, "a"))
	if got := w.State().CurrentVideoID; got != "a" {
		t.Errorf("expected current a, got %q", got)
	}
	if media.isPlaying() {
		t.Error("expected no playback while the shell is hidden")
	}
}

func TestWidget_StartChatHidesWithAvailableChat(t *testing.T) {
	chat := &fakeChat{available: true, messages: make(chan string, 1)}
	media := &fakeMedia{}
	w := startWidget(t, Config{Videos: []Video{video("a")}}, Deps{Chat: chat, Media: media})
	w.Show()
	w.Dispatch(opt("p", ActionPlayVideo, "a"))

	w.Dispatch(opt("c", ActionStartChat, "Hi, I have a question"))
	state := w.State()

	if state.Visible {
		t.Error("expected widget hidden after StartChat")
	}
	if !state.Minimized {
		t.Error("expected widget minimized after StartChat")
	}
	if media.isPlaying() {
		t.Error("expected playback stopped after StartChat")
	}
	if msg := <-chat.messages; msg != "Hi, I have a question" {
		t.Errorf("unexpected chat message %q", msg)
	}
}

func TestWidget_StartChatUnavailableReportsAndStaysHidden(t *testing.T) {
	for _, chat := range []Chat{nil, &fakeChat{available: false}} {
		rep := &reports{}
		w := startWidget(t, Config{}, Deps{Chat: chat, Report: rep.report})
		w.Show()

		w.Dispatch(opt("c", ActionStartChat, "hello"))
		if w.State().Visible {
			t.Error("expected widget hidden")
		}
		if !rep.has(ErrChatUnavailable) {
			t.Error("expected chat unavailability to be reported")
		}
	}
}

func TestWidget_OpenURLNavigates(t *testing.T) {
	nav := &fakeNavigator{}
	w := startWidget(t, Config{Options: []Option{opt("docs", ActionOpenURL, "https://example.com/docs")}}, Deps{Navigator: nav})

	w.Select("docs")
	w.State()

	nav.mu.Lock()
	defer nav.mu.Unlock()
	if len(nav.urls) != 1 || nav.urls[0] != "https://example.com/docs" {
		t.Errorf("unexpected navigations %v", nav.urls)
	}
}

func TestWidget_ToggleToMinimizedStopsPlayback(t *testing.T) {
	media := &fakeMedia{}
	w := startWidget(t, Config{Videos: []Video{video("a")}}, Deps{Media: media})
	w.Show()
	w.Dispatch(opt("p", ActionPlayVideo, "a"))
	w.State()
	if !media.isPlaying() {
		t.Fatal("expected playback before toggle")
	}

	w.Toggle()
	if !w.State().Minimized {
		t.Fatal("expected minimized")
	}
	if media.isPlaying() {
		t.Error("expected no playback while minimized")
	}

	w.Toggle()
	w.State()
	if !media.isPlaying() {
		t.Error("expected current video to resume on expand")
	}
}

func TestWidget_CloseForSessionAndReset(t *testing.T) {
	session := NewMemorySession()
	w := startWidget(t, Config{}, Deps{Session: session})

	w.Show()
	w.CloseForSession()
	w.Show()
	state := w.State()
	if state.Visible || !state.ClosedForSession {
		t.Fatalf("expected closed and invisible, got %+v", state)
	}

	w.ResetClosedState()
	w.Show()
	if !w.State().Visible {
		t.Error("expected visible after reset")
	}
}

func TestWidget_RemoteChangeOptionsAppliesAsynchronously(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"r1","text":"Remote","action":"openUrl","payload":"https://example.com"}]`))
	}))
	defer srv.Close()

	w := startWidget(t, Config{}, Deps{HTTPClient: srv.Client()})
	w.SetRemoteEndpoint(srv.URL)
	w.ChangeOptions("remote")

	eventually(t, func() bool {
		opts := w.State().Options
		return len(opts) == 1 && opts[0].ID == "r1"
	}, "remote options applied")
}

func TestWidget_RemoveOptionSetForgetsPredefined(t *testing.T) {
	cfg := Config{OptionSets: map[string][]Option{"menu": {opt("x", ActionPlayVideo, "a")}}}
	w := startWidget(t, cfg, Deps{})

	w.RemoveOptionSet("menu")
	w.ChangeOptions("menu")
	eventually(t, func() bool { return len(w.State().Options) == 0 }, "menu emptied")

	w.AddOptionSet("menu", []Option{opt("y", ActionPlayVideo, "a")})
	w.ChangeOptions("menu")
	eventually(t, func() bool {
		opts := w.State().Options
		return len(opts) == 1 && opts[0].ID == "y"
	}, "re-added menu applied")
}

func TestWidget_AddAndRemoveOption(t *testing.T) {
	w := startWidget(t, Config{Options: []Option{opt("a", ActionPlayVideo, "a")}}, Deps{})

	w.AddOption(opt("b", ActionPlayVideo, "b"))
	w.AddOption(Option{ID: "a", Text: "renamed", Action: ActionPlayVideo, Payload: "a"})
	opts := w.State().Options
	if len(opts) != 2 || opts[0].Text != "renamed" || opts[1].ID != "b" {
		t.Fatalf("unexpected options %+v", opts)
	}

	w.RemoveOption("a")
	opts = w.State().Options
	if len(opts) != 1 || opts[0].ID != "b" {
		t.Errorf("unexpected options after removal %+v", opts)
	}
}

func TestWidget_RemoveCurrentVideo(t *testing.T) {
	w := startWidget(t, Config{Videos: []Video{video("a"), video("b")}}, Deps{})
	w.Show()
	w.Dispatch(opt("p", ActionPlayVideo, "a"))

	w.RemoveVideo("a")
	if got := w.State().CurrentVideoID; got != "b" {
		t.Errorf("expected advance to b, got %q", got)
	}

	w.RemoveVideo("b")
	if got := w.State().CurrentVideoID; got != "" {
		t.Errorf("expected no current video, got %q", got)
	}
}

func TestWidget_TimeUpdateDrivesMenuSwitch(t *testing.T) {
	media := &fakeMedia{duration: 30}
	cfg := Config{
		Videos:     []Video{video("a")},
		OptionSets: map[string][]Option{"offer": {opt("buy", ActionOpenURL, "https://example.com/buy")}},
	}
	w := startWidget(t, cfg, Deps{Media: media})
	w.Show()
	w.Dispatch(opt("p", ActionPlayVideo, "a"))

	switched := false
	w.OnTimeUpdate(func(cur, dur float64, id string) {
		if !switched && id == "a" && cur >= 10 {
			switched = true
			w.ChangeOptions("offer")
		}
	})
	w.State()

	media.tick(5)
	if len(w.State().Options) != 0 {
		t.Fatal("expected no switch before the cue")
	}
	media.tick(11)
	eventually(t, func() bool {
		opts := w.State().Options
		return len(opts) == 1 && opts[0].ID == "buy"
	}, "offer menu applied")
}

func TestWidget_MaterializesSources(t *testing.T) {
	media := &fakeMedia{}
	w := startWidget(t, Config{Videos: []Video{video("a")}}, Deps{Media: media, Loader: &fakeLoader{}})

	eventually(t, func() bool { return w.State().Videos[0].Source.Handle != "" }, "handle applied")

	w.Show()
	w.Dispatch(opt("p", ActionPlayVideo, "a"))
	w.State()
	if media.source() != "/cache/a.mp4" {
		t.Errorf("expected materialized handle to be played, got %q", media.source())
	}
}

func TestWidget_MaterializeFailureKeepsURL(t *testing.T) {
	rep := &reports{}
	media := &fakeMedia{}
	w := startWidget(t, Config{Videos: []Video{video("a")}}, Deps{
		Media:  media,
		Loader: &fakeLoader{err: errors.New("404")},
		Report: rep.report,
	})

	eventually(t, func() bool { return rep.has(ErrMaterialize) }, "materialize failure reported")

	w.Show()
	w.Dispatch(opt("p", ActionPlayVideo, "a"))
	w.State()
	if media.source() != "https://cdn.example.com/a.mp4" {
		t.Errorf("expected fallback to URL, got %q", media.source())
	}
}

func TestWidget_RenderReceivesSnapshots(t *testing.T) {
	renders := make(chan Snapshot, 16)
	w := startWidget(t, Config{}, Deps{Render: func(s Snapshot) { renders <- s }})

	w.Show()
	w.State()

	select {
	case s := <-renders:
		if !s.Visible {
			t.Errorf("expected visible snapshot, got %+v", s)
		}
	default:
		t.Fatal("expected a render after show")
	}
}

func TestWidget_SetPositionValidates(t *testing.T) {
	w := startWidget(t, Config{}, Deps{})

	w.SetPosition(Position{Vertical: "middle", Horizontal: "left"})
	if got := w.State().Position; got != DefaultPosition() {
		t.Errorf("expected invalid position to be ignored, got %+v", got)
	}

	w.SetPosition(Position{Vertical: "top", Horizontal: "left", OffsetX: 5, OffsetY: 8})
	if got := w.State().Position; got.Vertical != "top" || got.OffsetY != 8 {
		t.Errorf("unexpected position %+v", got)
	}
}

func TestWidget_StateAfterStop(t *testing.T) {
	w, err := New(Config{Name: "Demo"}, Deps{Media: &fakeMedia{}})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	if got := w.State().Name; got != "Demo" {
		t.Errorf("expected last snapshot after stop, got %q", got)
	}
	if err := w.Run(context.Background()); err == nil {
		t.Error("expected second Run to fail")
	}
}

func TestWidgetState_WaitsForRunToStart(t *testing.T) {
	w, err := New(Config{Videos: []Video{{ID: "a", Source: Source{URL: "https://cdn.example.com/a.mp4"}}}}, Deps{Media: &fakeMedia{}})
	if err != nil {
		t.Fatalf("new widget: %v", err)
	}
	w.Show()

	states := make(chan Snapshot, 1)
	go func() { states <- w.State() }()

	select {
	case snap := <-states:
		t.Fatalf("expected State to wait for Run, got %+v", snap)
	case <-time.After(50 * time.Millisecond):
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(stopped)
	}()
	defer func() {
		cancel()
		<-stopped
	}()

	select {
	case snap := <-states:
		if !snap.Visible {
			t.Error("expected the queued Show to have run")
		}
	case <-time.After(time.Second):
		t.Fatal("State did not return after Run started")
	}
}
