package notify

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"panterabot/internal/bot/monitor"
)

// ErrThrottled is returned when a notification was dropped by the rate limit.
var ErrThrottled = errors.New("notification throttled")

// Throttle drops notifications above a rate so a busy batch does not flood
// the driver's device.
type Throttle struct {
	next    monitor.Notifier
	limiter *rate.Limiter
}

// NewThrottle allows perSecond notifications with the given burst.
func NewThrottle(next monitor.Notifier, perSecond float64, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Notify forwards the notification if the limiter has a token.
func (t *Throttle) Notify(ctx context.Context, title, body string) error {
	if !t.limiter.Allow() {
		return ErrThrottled
	}
	return t.next.Notify(ctx, title, body)
}
