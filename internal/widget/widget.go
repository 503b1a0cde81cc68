package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Deps are the external capabilities a Widget drives. Media is required;
// every other field may be left nil.
type Deps struct {
	Media      Media
	Loader     Loader
	Chat       Chat
	Navigator  Navigator
	Session    SessionStore
	HTTPClient *http.Client
	Report     ReportFunc
	Render     func(Snapshot)
}

// Snapshot is an immutable copy of everything the shell renders.
type Snapshot struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Avatar           string   `json:"avatar"`
	Position         Position `json:"position"`
	Style            Style    `json:"style"`
	Visible          bool     `json:"visible"`
	Minimized        bool     `json:"minimized"`
	ClosedForSession bool     `json:"closedForSession"`
	CurrentVideoID   string   `json:"currentVideoId,omitempty"`
	Options          []Option `json:"options"`
	Videos           []Video  `json:"videos"`
}

// Widget serialises every state change on one goroutine (see Run). Its
// mutating methods enqueue work and return immediately; State waits for
// all previously enqueued work.
type Widget struct {
	id       string
	name     string
	avatar   string
	position Position
	style    Style

	store      *Store
	player     *Player
	gate       *Gate
	dispatcher *Dispatcher

	loader     Loader
	httpClient *http.Client
	report     ReportFunc
	render     func(Snapshot)

	queue   *taskQueue
	ctx     context.Context
	dirty   bool
	started atomic.Bool
	done    chan struct{}
	last    atomic.Pointer[Snapshot]
}

func New(cfg Config, deps Deps) (*Widget, error) {
	if deps.Media == nil {
		return nil, errors.New("widget: media is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid widget config: %w", err)
	}

	report := deps.Report
	if report == nil {
		report = logReport
	}

	w := &Widget{
		id:         uuid.NewString(),
		name:       cfg.Name,
		avatar:     cfg.Avatar,
		position:   cfg.Position,
		style:      cfg.Style,
		loader:     deps.Loader,
		httpClient: deps.HTTPClient,
		report:     report,
		render:     deps.Render,
		queue:      newTaskQueue(),
		ctx:        context.Background(),
		done:       make(chan struct{}),
	}

	var fetcher Fetcher
	if cfg.RemoteEndpoint != "" {
		fetcher = NewRemoteSource(cfg.RemoteEndpoint, deps.HTTPClient)
	}
	w.store = NewStore(cfg.OptionSets, fetcher, report)
	w.player = NewPlayer(deps.Media, cfg.Videos, report)
	w.gate = NewGate(deps.Session, w.player)
	w.dispatcher = newDispatcher(dispatcherDeps{
		store:   w.store,
		player:  w.player,
		gate:    w.gate,
		nav:     deps.Navigator,
		chat:    deps.Chat,
		report:  report,
		post:    w.post,
		changed: w.markDirty,
	}, cfg.Options)

	deps.Media.OnTimeUpdate(func() {
		w.post(w.player.notifyTimeUpdate)
	})

	snap := w.snapshot()
	w.last.Store(&snap)
	return w, nil
}

func (w *Widget) ID() string { return w.id }

// Run processes queued work until ctx is cancelled. It must be called
// exactly once; playback is stopped on return.
func (w *Widget) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("widget: already running")
	}
	defer close(w.done)

	w.ctx = ctx
	for _, v := range w.player.Videos() {
		w.materialize(v)
	}

	for {
		select {
		case <-ctx.Done():
			w.player.StopAll()
			slog.Info("widget: stopped", "widget_id", w.id)
			return nil
		case <-w.queue.wake:
			for _, task := range w.queue.drain() {
				task()
				w.flush()
			}
		}
	}
}

func (w *Widget) post(fn func()) {
	w.queue.push(fn)
}

func (w *Widget) markDirty() {
	w.dirty = true
}

func (w *Widget) flush() {
	if !w.dirty {
		return
	}
	w.dirty = false
	snap := w.snapshot()
	w.last.Store(&snap)
	if w.render != nil {
		w.render(snap)
	}
}

// State returns the state after all previously enqueued work has run. It
// must not be called from a time-update observer or Render callback. Before
// Run is called it blocks until Run starts; once Run has returned it reports
// the last rendered state.
func (w *Widget) State() Snapshot {
	result := make(chan Snapshot, 1)
	w.post(func() { result <- w.snapshot() })
	select {
	case snap := <-result:
		return snap
	case <-w.done:
		return *w.last.Load()
	}
}

func (w *Widget) snapshot() Snapshot {
	current, _ := w.player.Current()
	return Snapshot{
		ID:               w.id,
		Name:             w.name,
		Avatar:           w.avatar,
		Position:         w.position,
		Style:            w.style,
		Visible:          w.gate.Visible(),
		Minimized:        w.gate.Minimized(),
		ClosedForSession: w.gate.ClosedForSession(),
		CurrentVideoID:   current,
		Options:          w.dispatcher.Active(),
		Videos:           w.player.Videos(),
	}
}

func (w *Widget) Show() {
	w.post(func() {
		if !w.gate.Show() {
			slog.Debug("widget: show suppressed, closed for session", "widget_id", w.id)
		}
		w.markDirty()
	})
}

func (w *Widget) Hide() {
	w.post(func() {
		w.gate.Hide()
		w.markDirty()
	})
}

func (w *Widget) Toggle() {
	w.post(func() {
		w.gate.Toggle(w.ctx)
		w.markDirty()
	})
}

func (w *Widget) CloseForSession() {
	w.post(func() {
		w.gate.CloseForSession()
		w.markDirty()
	})
}

func (w *Widget) ResetClosedState() {
	w.post(func() {
		w.gate.ResetClosedState()
		w.markDirty()
	})
}

func (w *Widget) SetPosition(p Position) {
	w.post(func() {
		if err := p.Validate(); err != nil {
			slog.Warn("widget: ignoring position", "widget_id", w.id, "error", err)
			return
		}
		w.position = p
		w.markDirty()
	})
}

func (w *Widget) SetStyle(s Style) {
	w.post(func() {
		w.style = s
		w.markDirty()
	})
}

func (w *Widget) AddVideo(v Video) {
	w.post(func() {
		w.player.Add(v)
		w.materialize(v)
		w.markDirty()
	})
}

func (w *Widget) RemoveVideo(id string) {
	w.post(func() {
		if !w.player.Remove(w.ctx, id) {
			return
		}
		if !w.gate.Playing() {
			w.player.StopAll()
		}
		w.markDirty()
	})
}

// AddOption appends o to the active list, replacing an option with the
// same id in place.
func (w *Widget) AddOption(o Option) {
	w.post(func() {
		active := w.dispatcher.Active()
		replaced := false
		for i := range active {
			if active[i].ID == o.ID {
				active[i] = o
				replaced = true
			}
		}
		if !replaced {
			active = append(active, o)
		}
		w.dispatcher.replace(active)
	})
}

func (w *Widget) RemoveOption(id string) {
	w.post(func() {
		active := w.dispatcher.Active()
		kept := active[:0]
		for _, o := range active {
			if o.ID != id {
				kept = append(kept, o)
			}
		}
		if len(kept) != len(active) {
			w.dispatcher.replace(kept)
		}
	})
}

func (w *Widget) AddOptionSet(setID string, opts []Option) {
	w.post(func() { w.store.Put(setID, opts) })
}

func (w *Widget) RemoveOptionSet(setID string) {
	w.post(func() { w.store.Remove(setID) })
}

// SetRemoteEndpoint switches the remote option source; an empty endpoint
// disables remote lookups. Already cached sets are kept.
func (w *Widget) SetRemoteEndpoint(endpoint string) {
	w.post(func() {
		if endpoint == "" {
			w.store.SetFetcher(nil)
			return
		}
		w.store.SetFetcher(NewRemoteSource(endpoint, w.httpClient))
	})
}

// OnTimeUpdate registers the single time-update observer. It runs on the
// widget goroutine and may call any method except State.
func (w *Widget) OnTimeUpdate(fn TimeUpdateFunc) {
	w.post(func() { w.player.OnTimeUpdate(fn) })
}

// Select dispatches the active option with optionID. Ids not in the
// active list are ignored.
func (w *Widget) Select(optionID string) {
	w.post(func() {
		for _, o := range w.dispatcher.active {
			if o.ID == optionID {
				w.dispatcher.Handle(w.ctx, o)
				return
			}
		}
		slog.Debug("widget: ignoring unknown option", "widget_id", w.id, "option_id", optionID)
	})
}

func (w *Widget) Dispatch(o Option) {
	w.post(func() { w.dispatcher.Handle(w.ctx, o) })
}

func (w *Widget) ChangeOptions(setID string) {
	w.Dispatch(Option{ID: "change:" + setID, Action: ActionChangeOptions, Payload: setID})
}

func (w *Widget) materialize(v Video) {
	if w.loader == nil || v.Source.URL == "" || v.Source.Handle != "" {
		return
	}
	ctx := w.ctx
	go func() {
		handle, err := w.loader.Materialize(ctx, v.Source.URL)
		w.post(func() {
			if err != nil {
				w.report(fmt.Errorf("%w: video %q: %w", ErrMaterialize, v.ID, err))
				return
			}
			w.player.SetHandle(v.ID, v.Source.URL, handle)
		})
	}()
}

type taskQueue struct {
	mu    sync.Mutex
	tasks []func()
	wake  chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{wake: make(chan struct{}, 1)}
}

func (q *taskQueue) push(fn func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *taskQueue) drain() []func() {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()
	return tasks
}
