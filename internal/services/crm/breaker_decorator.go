package crm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nordveil/site-api/internal/models"
)

type pusher interface {
	Push(ctx context.Context, lead models.Lead) error
}

// BreakerConfig tunes the circuit breaker around the CRM webhook.
type BreakerConfig struct {
	TimeInterval time.Duration
	TimeTimeOut  time.Duration
	RepeatNumber uint32
}

// BreakerClient stops hammering the CRM webhook after consecutive failures.
type BreakerClient struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	wrapped pusher
}

func NewBreakerClient(name string, cfg BreakerConfig, wrapped pusher) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.TimeInterval,
		Timeout:     cfg.TimeTimeOut,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.RepeatNumber
		},
	}
	return &BreakerClient{
		name:    name,
		cb:      gobreaker.NewCircuitBreaker(settings),
		wrapped: wrapped,
	}
}

func (b *BreakerClient) Push(ctx context.Context, lead models.Lead) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.wrapped.Push(ctx, lead)
	})
	if err != nil {
		return errors.New(b.name + " unavailable: " + err.Error())
	}
	return nil
}
