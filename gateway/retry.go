// ABOUTME: Retry policy configuration and exponential backoff delay calculation for gateway calls.
// ABOUTME: Default policy is a single attempt; retries are an opt-in extension covering transport failures only.
package gateway

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls how many times an Invoke is attempted on transport
// failure. The upstream protocol has no retry semantics of its own, so the
// default everywhere is RetryPolicyNone; anything else is a deliberate
// opt-in by the caller.
type RetryPolicy struct {
	MaxAttempts int // minimum 1 (1 = no retries)
	Backoff     BackoffConfig
}

// BackoffConfig controls delay timing between retry attempts.
type BackoffConfig struct {
	InitialDelay time.Duration // default 200ms
	Factor       float64       // default 2.0
	MaxDelay     time.Duration // default 30s
	Jitter       bool
}

// DelayForAttempt calculates the delay before retrying after a given attempt
// number (0-indexed): InitialDelay * Factor^attempt, capped at MaxDelay.
// With Jitter the delay is randomized in [0, calculated_delay].
func (b BackoffConfig) DelayForAttempt(attempt int) time.Duration {
	baseNanos := float64(b.InitialDelay.Nanoseconds()) * math.Pow(b.Factor, float64(attempt))
	maxNanos := float64(b.MaxDelay.Nanoseconds())
	delayNanos := math.Min(baseNanos, maxNanos)

	if b.Jitter {
		delayNanos = rand.Float64() * delayNanos
	}

	return time.Duration(int64(delayNanos))
}

// RetryPolicyNone returns the default policy: one attempt, no retries.
func RetryPolicyNone() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// RetryPolicyStandard returns an opt-in policy with 3 attempts and jittered
// exponential backoff, applied only to retryable (transport) failures.
func RetryPolicyStandard() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: BackoffConfig{
			InitialDelay: 200 * time.Millisecond,
			Factor:       2.0,
			MaxDelay:     30 * time.Second,
			Jitter:       true,
		},
	}
}

// shouldRetry reports whether the policy permits another attempt after the
// given 0-indexed attempt failed with err.
func (p RetryPolicy) shouldRetry(attempt int, err error) bool {
	if attempt+1 >= p.MaxAttempts {
		return false
	}
	r, ok := err.(RetryableError)
	return ok && r.IsRetryable()
}
