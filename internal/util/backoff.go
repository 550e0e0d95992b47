package util

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tilinna/clock"
)

const (
	paramRetryInterval = "retry-interval"  // constant
	paramRetryMaxCount = "retry-max-count" // constant + exponential
	paramRetryMaxTime  = "retry-max-time"  // constant + exponential
	paramRetryPolicy   = "retry-policy"

	defaultRetryInterval = 1 * time.Second  // constant
	defaultRetryMaxCount = 0                // constant + exponential
	defaultRetryMaxTime  = 15 * time.Second // constant + exponential
	defaultRetryPolicy   = policyDisabled

	policyConstant    = "constant"
	policyDisabled    = "disabled"
	policyExponential = "exponential"
)

type BackoffFactory func() backoff.BackOff

// NewBackoffFactory creates a new BackoffFactory based on a backoff.ExponentialBackoff
//
// backoff.ConstantBackoff lacks randomization of the interval and a maximum duration, so a
// backoff.ExponentialBackOff with a Multiplier of 1.0 is used instead.
func NewBackoffFactory(multiplier float64, maxElapsedTime, interval time.Duration, maxRetries uint64) BackoffFactory {
	return func() backoff.BackOff {
		bo := backoff.NewExponentialBackOff()
		bo.Multiplier = multiplier
		bo.MaxElapsedTime = maxElapsedTime
		bo.InitialInterval = interval
		bo.Reset() // Reset is required to make the InitialInterval change take effect.
		if maxRetries == 0 {
			return bo
		}
		return backoff.WithMaxRetries(bo, maxRetries)
	}
}

// AddRetryFlags adds the retry policy flags read by GetRetryFromViper to fs.
func AddRetryFlags(fs *pflag.FlagSet) {
	fs.String(paramRetryPolicy, defaultRetryPolicy, "Retry policy, one of "+policyDisabled+", "+policyConstant+", or "+policyExponential)
	fs.Duration(paramRetryInterval, defaultRetryInterval, "Interval between attempts of the constant policy")
	fs.Int64(paramRetryMaxCount, defaultRetryMaxCount, "Maximum number of retries, 0 for no limit")
	fs.Duration(paramRetryMaxTime, defaultRetryMaxTime, "Maximum time spent retrying")
}

// GetRetryFromViper reads a retry policy.  Retries are disabled unless a policy is configured.
func GetRetryFromViper(v *viper.Viper) (BackoffFactory, error) {
	v.SetDefault(paramRetryInterval, defaultRetryInterval) // constant
	v.SetDefault(paramRetryMaxCount, defaultRetryMaxCount) // constant + exponential
	v.SetDefault(paramRetryMaxTime, defaultRetryMaxTime)   // constant + exponential
	v.SetDefault(paramRetryPolicy, defaultRetryPolicy)

	retryInterval := v.GetDuration(paramRetryInterval) // constant
	retryMaxCount := v.GetInt64(paramRetryMaxCount)    // constant + exponential
	retryMaxTime := v.GetDuration(paramRetryMaxTime)   // constant + exponential
	retryPolicy := v.GetString(paramRetryPolicy)

	if retryInterval <= 0 {
		return nil, errors.New(paramRetryInterval + " must be positive")
	}

	if retryMaxCount < 0 {
		return nil, errors.New(paramRetryMaxCount + " must be zero or positive")
	}

	if retryMaxTime <= 0 {
		return nil, errors.New(paramRetryMaxTime + " must be positive")
	}

	switch retryPolicy {
	case policyDisabled:
		return func() backoff.BackOff { return &backoff.StopBackOff{} }, nil
	case policyExponential:
		return NewBackoffFactory(backoff.DefaultMultiplier, retryMaxTime, backoff.DefaultInitialInterval, uint64(retryMaxCount)), nil
	case policyConstant:
		return NewBackoffFactory(1.0, retryMaxTime, retryInterval, uint64(retryMaxCount)), nil
	default:
		return nil, fmt.Errorf("%s (%s) not one of %s, %s, or %s", paramRetryPolicy, retryPolicy, policyDisabled, policyConstant, policyExponential)
	}
}

// Retry calls op until it succeeds, the backoff policy gives up, or ctx is done.  The error of the last attempt is
// returned.
func Retry(ctx context.Context, logger logrus.FieldLogger, factory BackoffFactory, op func() error) error {
	bo := factory()
	for {
		err := op()
		if err == nil {
			return nil
		}

		next := bo.NextBackOff()
		if next == backoff.Stop {
			return err
		}

		logger.WithError(err).WithField("retry_in", next).Warn("attempt failed, retrying")

		if !interruptableSleep(ctx, next) {
			return err
		}
	}
}

// interruptableSleep will sleep for the specified duration, or until the context is
// cancelled, whichever comes first.  Returns true if the sleep completes, false if
// the context is canceled.
func interruptableSleep(ctx context.Context, d time.Duration) bool {
	timer := clock.NewTimer(ctx, d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
		return true
	}
}
