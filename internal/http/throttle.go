package http

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Login throttling counts failed attempts per normalized email in redis.
// Without redis the throttle is disabled and login behaves as before; errors
// talking to redis fail open for the same reason.

const loginAttemptsPrefix = "login_attempts:"

func (s *Server) loginThrottled(ctx context.Context, email string) (bool, error) {
	if s.redis == nil || s.cfg.LoginMaxAttempts <= 0 {
		return false, nil
	}

	value, err := s.redis.Get(ctx, loginAttemptsPrefix+email).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value >= s.cfg.LoginMaxAttempts, nil
}

func (s *Server) recordLoginFailure(ctx context.Context, email string) error {
	if s.redis == nil || s.cfg.LoginMaxAttempts <= 0 {
		return nil
	}

	key := loginAttemptsPrefix + email
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		return s.redis.Expire(ctx, key, s.cfg.LoginAttemptWindow).Err()
	}
	return nil
}

func (s *Server) clearLoginFailures(ctx context.Context, email string) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Del(ctx, loginAttemptsPrefix+email).Err()
}
