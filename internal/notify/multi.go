package notify

import (
	"context"
	"log/slog"

	"github.com/sendrec/vidwidget/internal/chat"
)

var _ chat.Notifier = (*MultiHandoffNotifier)(nil)

// MultiHandoffNotifier fans out handoff alerts to all registered notifiers.
type MultiHandoffNotifier struct {
	notifiers []chat.Notifier
}

// NewMultiHandoffNotifier creates a notifier that delegates to all provided notifiers.
func NewMultiHandoffNotifier(notifiers ...chat.Notifier) *MultiHandoffNotifier {
	return &MultiHandoffNotifier{notifiers: notifiers}
}

func (m *MultiHandoffNotifier) NotifyHandoff(ctx context.Context, widgetID, handoffID, message string) error {
	for _, n := range m.notifiers {
		if err := n.NotifyHandoff(ctx, widgetID, handoffID, message); err != nil {
			slog.Error("multi-notifier: handoff notification failed", "widget_id", widgetID, "handoff_id", handoffID, "error", err)
		}
	}
	return nil
}
