package widget

import (
	"context"
	"fmt"
	"log/slog"
)

// Navigator opens an external URL on behalf of the widget.
type Navigator interface {
	Open(url string)
}

// Chat hands a conversation over to an external chat service.
type Chat interface {
	Available() bool
	Open(ctx context.Context, message string) error
}

// Dispatcher routes a selected option to its effect and owns the active
// option list. Like Player it is owned by the Widget loop.
type Dispatcher struct {
	store   *Store
	player  *Player
	gate    *Gate
	nav     Navigator
	chat    Chat
	report  ReportFunc
	post    func(func())
	changed func()

	active  []Option
	issued  uint64
	applied uint64
}

type dispatcherDeps struct {
	store   *Store
	player  *Player
	gate    *Gate
	nav     Navigator
	chat    Chat
	report  ReportFunc
	post    func(func())
	changed func()
}

func newDispatcher(deps dispatcherDeps, initial []Option) *Dispatcher {
	return &Dispatcher{
		store:   deps.store,
		player:  deps.player,
		gate:    deps.gate,
		nav:     deps.nav,
		chat:    deps.chat,
		report:  deps.report,
		post:    deps.post,
		changed: deps.changed,
		active:  cloneOptions(initial),
	}
}

func (d *Dispatcher) Active() []Option {
	return cloneOptions(d.active)
}

func (d *Dispatcher) replace(opts []Option) {
	d.active = cloneOptions(opts)
	d.changed()
}

func (d *Dispatcher) Handle(ctx context.Context, opt Option) {
	switch opt.Action {
	case ActionPlayVideo:
		if d.player.PlayByID(ctx, opt.Payload) && !d.gate.Playing() {
			d.player.StopAll()
		}
		d.changed()
	case ActionOpenURL:
		if d.nav != nil {
			d.nav.Open(opt.Payload)
		}
	case ActionStartChat:
		d.gate.Minimize()
		d.gate.Hide()
		d.changed()
		if d.chat == nil || !d.chat.Available() {
			d.report(fmt.Errorf("%w: option %q", ErrChatUnavailable, opt.ID))
			return
		}
		go func(chat Chat, message string) {
			if err := chat.Open(ctx, message); err != nil {
				d.report(fmt.Errorf("%w: %w", ErrChatUnavailable, err))
			}
		}(d.chat, opt.Payload)
	case ActionChangeOptions:
		d.changeOptions(ctx, opt.Payload)
	default:
		slog.Warn("options: ignoring option with unknown action", "option_id", opt.ID, "action", int(opt.Action))
	}
}

// changeOptions resolves setID and replaces the active list. Results are
// applied in request order: a resolution that completes after a newer one
// has been applied is dropped.
func (d *Dispatcher) changeOptions(ctx context.Context, setID string) {
	d.issued++
	seq := d.issued

	if opts, ok := d.store.Lookup(setID); ok {
		d.apply(seq, setID, opts)
		return
	}

	go func() {
		opts := d.store.Resolve(ctx, setID)
		d.post(func() { d.apply(seq, setID, opts) })
	}()
}

func (d *Dispatcher) apply(seq uint64, setID string, opts []Option) {
	if seq <= d.applied {
		slog.Debug("options: dropping stale resolution", "set_id", setID, "seq", seq, "applied", d.applied)
		return
	}
	d.applied = seq
	d.replace(opts)
}
