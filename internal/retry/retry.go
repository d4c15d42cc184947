// Package retry provides the bounded exponential backoff policy shared by
// the source fetcher and the storage backend.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Policy parameterizes retry behavior. The zero value is not usable;
// construct with NewPolicy or fill both fields.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// NewPolicy returns a policy with sane floors applied
func NewPolicy(maxAttempts int, baseDelay time.Duration) Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return Policy{MaxAttempts: maxAttempts, BaseDelay: baseDelay}
}

// Do runs op, retrying with jittered exponential backoff until it succeeds,
// returns a permanent error, the attempt budget is spent, or ctx is done
func (p Policy) Do(ctx context.Context, name string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.RandomizationFactor = 0.25
	b.MaxElapsedTime = 0

	attempt := 0
	notify := func(err error, wait time.Duration) {
		attempt++
		log.Warn().
			Str("op", name).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Err(err).
			Msg("Retrying after backoff")
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
	return backoff.RetryNotify(op, bo, notify)
}

// Permanent marks err as not worth retrying; Do returns it immediately
func Permanent(err error) error {
	return backoff.Permanent(err)
}
