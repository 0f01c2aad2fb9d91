package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/apigw/backend/internal/domain/credential"
	"github.com/apigw/backend/internal/infrastructure/ratelimit"
)

// Quota is the rate-limit telemetry for one admitted or rejected request,
// exposed to callers through the X-RateLimit response headers.
type Quota struct {
	MinuteLimit     int
	MinuteRemaining int64
	MinuteReset     time.Time
	DailyLimit      int
	DailyRemaining  int64
	DailyReset      time.Time
}

// RateLimiter enforces the two independent ceilings of a credential: a
// fixed per-minute window in the shared counter store and a per-day counter
// on the credential row. Both increments are atomic at their store, which
// is what keeps the count honest across stateless gateway instances.
type RateLimiter struct {
	counters ratelimit.CounterStore
	creds    credential.Repository
	now      func() time.Time
}

// NewRateLimiter creates a new RateLimiter
func NewRateLimiter(counters ratelimit.CounterStore, creds credential.Repository) *RateLimiter {
	return &RateLimiter{
		counters: counters,
		creds:    creds,
		now:      time.Now,
	}
}

// Check runs both ceilings, minute first. The minute counter is bumped even
// when the request is later rejected by scope or branch checks: usage
// accounting reflects authentication attempts, not fulfilled requests.
func (l *RateLimiter) Check(ctx context.Context, cred *credential.APICredential) (*Quota, error) {
	now := l.now().UTC()
	epochMinute := now.Unix() / 60
	windowEnd := time.Unix((epochMinute+1)*60, 0).UTC()
	midnight := now.Truncate(24 * time.Hour).Add(24 * time.Hour)

	quota := &Quota{
		MinuteLimit: cred.RateLimitRPM,
		MinuteReset: windowEnd,
		DailyLimit:  cred.RateLimitRPD,
		DailyReset:  midnight,
	}

	key := fmt.Sprintf("minute:%s:%d", cred.ID, epochMinute)
	minuteCount, err := l.counters.Increment(ctx, key, 2*time.Minute)
	if err != nil {
		return nil, serviceUnavailableError("minute_counter_failed")
	}
	quota.MinuteRemaining = remaining(int64(cred.RateLimitRPM), minuteCount)
	if minuteCount > int64(cred.RateLimitRPM) {
		retryAfter := int(windowEnd.Sub(now).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		quota.DailyRemaining = remaining(int64(cred.RateLimitRPD), cred.DailyUsageCount)
		return quota, minuteLimitError(retryAfter)
	}

	dailyCount, err := l.creds.IncrementDailyUsage(ctx, cred.ID)
	if err != nil {
		return nil, serviceUnavailableError("daily_counter_failed")
	}
	cred.DailyUsageCount = dailyCount
	quota.DailyRemaining = remaining(int64(cred.RateLimitRPD), dailyCount)
	if dailyCount > int64(cred.RateLimitRPD) {
		return quota, dailyLimitError()
	}

	return quota, nil
}

func remaining(limit, used int64) int64 {
	if used >= limit {
		return 0
	}
	return limit - used
}
