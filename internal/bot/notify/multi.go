package notify

import (
	"context"
	"errors"

	"panterabot/internal/bot/monitor"
)

// Multi fans a notification out to several notifiers.
type Multi []monitor.Notifier

// Notify delivers to every notifier and joins their errors.
func (m Multi) Notify(ctx context.Context, title, body string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, title, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
