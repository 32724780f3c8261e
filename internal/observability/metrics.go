// Package observability carries the request-scoped meter and wraps
// outbound HTTP clients with trace propagation.
package observability

import (
	"context"

	"github.com/getsentry/sentry-go"
)

type meterKey struct{}

// WithMeter stores meter on the context. Middleware uses this to hand a
// pre-attributed meter down to services and handlers.
func WithMeter(ctx context.Context, meter sentry.Meter) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if meter == nil {
		meter = sentry.NewMeter(ctx)
	}
	return context.WithValue(ctx, meterKey{}, meter.WithCtx(ctx))
}

// MeterFromContext returns the request-scoped meter, or a fresh one when
// the context carries none.
func MeterFromContext(ctx context.Context) sentry.Meter {
	if ctx == nil {
		ctx = context.Background()
	}
	if meter, ok := ctx.Value(meterKey{}).(sentry.Meter); ok && meter != nil {
		return meter.WithCtx(ctx)
	}
	return sentry.NewMeter(ctx).WithCtx(ctx)
}
