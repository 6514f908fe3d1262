package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/you/verifysvc/domain"
)

// ChallengeConfig carries the one-time code settings for the local
// provider's challenge store.
type ChallengeConfig struct {
	Length       int
	TTL          time.Duration
	MaxAttempts  int
	ResendWindow time.Duration
}

// ChallengeStore issues and validates one-time codes using Redis
// persistence. TTLs bound code lifetime and the provider-side resend
// throttle.
type ChallengeStore struct {
	redisClient *redis.Client
	config      ChallengeConfig
}

// NewChallengeStore creates a Redis-based challenge store
func NewChallengeStore(redisClient *redis.Client, config ChallengeConfig) *ChallengeStore {
	return &ChallengeStore{redisClient: redisClient, config: config}
}

// Issue generates a fresh code for the phone, stores it with its TTL and
// returns it for delivery. Issuing inside the resend window fails with
// ErrRateLimited.
func (s *ChallengeStore) Issue(ctx context.Context, phone string) (string, error) {
	otpKey := fmt.Sprintf("otp:%s", phone)
	resendKey := fmt.Sprintf("otp:res:%s", phone)
	attemptsKey := fmt.Sprintf("otp:att:%s", phone)

	if canResend, _, err := s.CanResend(ctx, phone); err != nil {
		return "", err
	} else if !canResend {
		return "", domain.ErrRateLimited
	}

	code, err := s.generateSecureCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate challenge code: %w", err)
	}

	if err := s.redisClient.Set(ctx, otpKey, code, s.config.TTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store challenge: %w", err)
	}
	if err := s.redisClient.Set(ctx, attemptsKey, 0, s.config.TTL).Err(); err != nil {
		return "", fmt.Errorf("failed to initialize attempts counter: %w", err)
	}
	if err := s.redisClient.Set(ctx, resendKey, 1, s.config.ResendWindow).Err(); err != nil {
		return "", fmt.Errorf("failed to set resend throttle: %w", err)
	}

	return code, nil
}

// Verify checks the submitted code against the stored one. The attempts
// counter is incremented atomically; exceeding the cap burns the challenge.
func (s *ChallengeStore) Verify(ctx context.Context, phone, code string) error {
	otpKey := fmt.Sprintf("otp:%s", phone)
	attemptsKey := fmt.Sprintf("otp:att:%s", phone)

	attempts, err := s.redisClient.Incr(ctx, attemptsKey).Result()
	if err != nil {
		return fmt.Errorf("failed to increment attempts: %w", err)
	}
	if attempts > int64(s.config.MaxAttempts) {
		s.redisClient.Del(ctx, otpKey, attemptsKey)
		return domain.ErrMaxAttemptsExceeded
	}

	storedCode, err := s.redisClient.Get(ctx, otpKey).Result()
	if errors.Is(err, redis.Nil) {
		s.redisClient.Del(ctx, attemptsKey)
		return domain.ErrChallengeNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load challenge: %w", err)
	}

	if storedCode != code {
		return domain.ErrCodeRejected
	}

	s.redisClient.Del(ctx, otpKey, attemptsKey)
	return nil
}

// CanResend reports whether the resend throttle has expired and, if not,
// the seconds left to wait.
func (s *ChallengeStore) CanResend(ctx context.Context, phone string) (bool, int64, error) {
	resendKey := fmt.Sprintf("otp:res:%s", phone)

	ttl, err := s.redisClient.TTL(ctx, resendKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check resend TTL: %w", err)
	}
	if ttl <= 0 {
		return true, 0, nil
	}
	return false, int64(ttl.Seconds()), nil
}

// Drop removes any pending challenge for the phone.
func (s *ChallengeStore) Drop(ctx context.Context, phone string) {
	s.redisClient.Del(ctx,
		fmt.Sprintf("otp:%s", phone),
		fmt.Sprintf("otp:att:%s", phone),
		fmt.Sprintf("otp:res:%s", phone),
	)
}

// generateSecureCode generates a cryptographically secure numeric code
func (s *ChallengeStore) generateSecureCode() (string, error) {
	digits := make([]byte, s.config.Length)

	for i := 0; i < s.config.Length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		digits[i] = byte('0' + num.Int64())
	}

	return string(digits), nil
}
