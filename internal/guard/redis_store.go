package guard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "match:breaker:"

var admitScript = redis.NewScript(`
local h = redis.call('HMGET', KEYS[1], 'state', 'last_failure', 'trial', 'trial_at')
local state = h[1] or 'closed'
local last = tonumber(h[2] or '0')
local now = tonumber(ARGV[1])
local cooldown = tonumber(ARGV[2])
local trialTimeout = tonumber(ARGV[3])
if state == 'open' then
  if now - last < cooldown then
    return 0
  end
  redis.call('HSET', KEYS[1], 'state', 'half-open', 'trial', '1', 'trial_at', ARGV[1])
  return 1
end
if state == 'half-open' then
  if h[3] == '1' then
    local startedAt = tonumber(h[4] or '0')
    if trialTimeout <= 0 or now - startedAt < trialTimeout then
      return 0
    end
  end
  redis.call('HSET', KEYS[1], 'trial', '1', 'trial_at', ARGV[1])
  return 1
end
return 1
`)

var successScript = redis.NewScript(`
local state = redis.call('HGET', KEYS[1], 'state') or 'closed'
if state == 'half-open' then
  redis.call('HSET', KEYS[1], 'state', 'closed', 'failures', '0', 'trial', '0')
  redis.call('HDEL', KEYS[1], 'trial_at')
elseif state == 'closed' then
  redis.call('HSET', KEYS[1], 'state', 'closed', 'failures', '0')
end
return redis.call('HMGET', KEYS[1], 'state', 'failures', 'last_failure', 'trial', 'trial_at')
`)

var failureScript = redis.NewScript(`
local h = redis.call('HMGET', KEYS[1], 'state', 'failures')
local state = h[1] or 'closed'
local failures = tonumber(h[2] or '0')
local threshold = tonumber(ARGV[2])
if state == 'half-open' then
  redis.call('HSET', KEYS[1], 'state', 'open', 'failures', failures + 1, 'last_failure', ARGV[1], 'trial', '0')
  redis.call('HDEL', KEYS[1], 'trial_at')
elseif state == 'closed' then
  failures = failures + 1
  local nextState = 'closed'
  if failures >= threshold then
    nextState = 'open'
  end
  redis.call('HSET', KEYS[1], 'state', nextState, 'failures', failures, 'last_failure', ARGV[1])
end
return redis.call('HMGET', KEYS[1], 'state', 'failures', 'last_failure', 'trial', 'trial_at')
`)

// RedisStore shares breaker state between instances. Each transition is one Lua script.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(strategy string) string {
	return redisKeyPrefix + strategy
}

func (s *RedisStore) Admit(ctx context.Context, strategy string, now time.Time, p Policy) (bool, error) {
	n, err := admitScript.Run(ctx, s.client, []string{s.key(strategy)}, now.UnixMilli(), p.Cooldown.Milliseconds(), p.TrialTimeout.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrHealthStore, err)
	}
	return n == 1, nil
}

func (s *RedisStore) RecordSuccess(ctx context.Context, strategy string, _ time.Time) (Health, error) {
	vals, err := successScript.Run(ctx, s.client, []string{s.key(strategy)}).Slice()
	if err != nil {
		return Health{}, fmt.Errorf("%w: %v", ErrHealthStore, err)
	}
	return parseHealth(strategy, vals), nil
}

func (s *RedisStore) RecordFailure(ctx context.Context, strategy string, now time.Time, p Policy) (Health, error) {
	vals, err := failureScript.Run(ctx, s.client, []string{s.key(strategy)}, now.UnixMilli(), p.FailureThreshold).Slice()
	if err != nil {
		return Health{}, fmt.Errorf("%w: %v", ErrHealthStore, err)
	}
	return parseHealth(strategy, vals), nil
}

func (s *RedisStore) Snapshot(ctx context.Context, strategy string) (Health, error) {
	vals, err := s.client.HMGet(ctx, s.key(strategy), "state", "failures", "last_failure", "trial", "trial_at").Result()
	if err != nil {
		return Health{}, fmt.Errorf("%w: %v", ErrHealthStore, err)
	}
	return parseHealth(strategy, vals), nil
}

func parseHealth(strategy string, vals []interface{}) Health {
	h := closedHealth(strategy)
	field := func(i int) string {
		if i >= len(vals) || vals[i] == nil {
			return ""
		}
		switch v := vals[i].(type) {
		case string:
			return v
		case int64:
			return strconv.FormatInt(v, 10)
		default:
			return fmt.Sprint(v)
		}
	}
	if st := field(0); st != "" {
		h.State = State(st)
	}
	if n, err := strconv.Atoi(field(1)); err == nil {
		h.ConsecutiveFailures = n
	}
	if ms, err := strconv.ParseInt(field(2), 10, 64); err == nil && ms > 0 {
		h.LastFailure = time.UnixMilli(ms).UTC()
	}
	h.TrialInFlight = field(3) == "1"
	if ms, err := strconv.ParseInt(field(4), 10, 64); err == nil && ms > 0 && h.TrialInFlight {
		h.TrialStarted = time.UnixMilli(ms).UTC()
	}
	return h
}
