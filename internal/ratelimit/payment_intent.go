package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/gammapace/backend/internal/config"
)

const keyPaymentIntent = "payment:intent:%s"

// PaymentIntentLimiter throttles payment intent creation per client.
// A nil limiter (rate limiting disabled) allows everything.
type PaymentIntentLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewPaymentIntentLimiter(cfg config.Config) (*PaymentIntentLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.PaymentIntentRate <= 0 || limitCfg.PaymentIntentBurst <= 0 {
		return nil, errors.New("payment intent rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &PaymentIntentLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.PaymentIntentRate,
		burst:  limitCfg.PaymentIntentBurst,
	}, nil
}

// Allow checks the bucket keyed by the caller identity (client IP). Redis
// failures fail open so a cache outage cannot block payments.
func (l *PaymentIntentLimiter) Allow(ctx context.Context, clientKey string) (*Result, error) {
	if l == nil {
		return &Result{Allowed: true}, nil
	}
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		clientKey = "unknown"
	}

	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyPaymentIntent, clientKey), l.rate, l.burst)
	if err != nil {
		return &Result{Allowed: true}, err
	}
	return res, nil
}
