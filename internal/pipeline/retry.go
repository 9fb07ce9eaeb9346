package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"

	"github.com/blagoySimandov/rowenrich/internal/models"
	"github.com/blagoySimandov/rowenrich/internal/services"
)

const (
	defaultRetryInitial = 500 * time.Millisecond
	defaultRetryMax     = 10 * time.Second
)

// applyStage runs one stage call under the per-call timeout, retrying
// transient failures when the run allows it.
func applyStage(ctx context.Context, opts models.RunOptions, b Binding, in StageInput) (string, error) {
	call := func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, opts.StageTimeout)
		defer cancel()
		return b.Stage.Apply(callCtx, in)
	}

	if !opts.Retry.Enabled() {
		return call()
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = opts.Retry.InitialInterval
	if exp.InitialInterval <= 0 {
		exp.InitialInterval = defaultRetryInitial
	}
	exp.MaxInterval = opts.Retry.MaxInterval
	if exp.MaxInterval <= 0 {
		exp.MaxInterval = defaultRetryMax
	}

	return backoff.Retry(ctx, func() (string, error) {
		out, err := call()
		if err != nil && !services.IsTransient(err) {
			return "", backoff.Permanent(err)
		}
		return out, err
	},
		backoff.WithBackOff(exp),
		backoff.WithMaxTries(uint(opts.Retry.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Str("stage", b.Stage.Name()).Str("entity", in.Entity).
				Dur("retry_in", next).Msg("transient stage failure")
		}),
	)
}
