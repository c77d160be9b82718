package analyzer

import (
	"context"

	"golang.org/x/time/rate"
)

// invokePacer throttles outbound agent invocations across the worker pool so
// a burst of workers starting simultaneously doesn't all hit the CLI's own
// rate limit in the same instant. Grounded on internal/relay/bandwidth.go's
// BandwidthMeter, simplified from per-user token buckets to a single
// process-wide limiter since a run has exactly one agent backend.
type invokePacer struct {
	limiter *rate.Limiter
}

// newInvokePacer allows one invocation per worker slot immediately (burst),
// then refills at ratePerSecond. ratePerSecond <= 0 disables pacing.
func newInvokePacer(ratePerSecond float64, workers int) *invokePacer {
	if ratePerSecond <= 0 {
		return &invokePacer{}
	}
	burst := workers
	if burst < 1 {
		burst = 1
	}
	return &invokePacer{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// wait blocks until the pacer admits one invocation, or ctx is done.
func (p *invokePacer) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
