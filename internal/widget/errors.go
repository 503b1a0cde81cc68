package widget

import (
	"errors"
	"log/slog"
)

// Failure kinds passed to a ReportFunc. None of them is ever returned to
// the host; the widget degrades to showing or doing nothing instead.
var (
	ErrResolution      = errors.New("option set resolution failed")
	ErrPlayback        = errors.New("playback failed")
	ErrMaterialize     = errors.New("source materialization failed")
	ErrChatUnavailable = errors.New("chat unavailable")
)

// ReportFunc receives every failure the widget recovers from.
type ReportFunc func(err error)

func logReport(err error) {
	slog.Error("widget: recovered failure", "error", err)
}
