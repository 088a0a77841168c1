package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerSettings configures the circuit breaker around the provider.
type BreakerSettings struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	TripRatio   float64
}

// BreakerClient wraps a Client with circuit breaking so a failing provider is
// not hammered. While open, calls fail fast with gobreaker.ErrOpenState.
type BreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps client. The breaker trips once at least three
// requests were seen and the failure ratio reaches TripRatio.
func NewBreakerClient(client Client, s BreakerSettings, logger *zap.Logger) *BreakerClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	ratio := s.TripRatio
	if ratio <= 0 {
		ratio = 0.6
	}
	st := gobreaker.Settings{
		Name:        "llm",
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= ratio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// caller cancellations say nothing about provider health
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &BreakerClient{client: client, cb: gobreaker.NewCircuitBreaker(st)}
}

// Complete implements Client.
func (c *BreakerClient) Complete(ctx context.Context, system, user string) (string, error) {
	return c.execute(func() (string, error) { return c.client.Complete(ctx, system, user) })
}

// CompleteJSON implements Client.
func (c *BreakerClient) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	return c.execute(func() (string, error) { return c.client.CompleteJSON(ctx, system, user) })
}

// State returns the current breaker state.
func (c *BreakerClient) State() gobreaker.State {
	return c.cb.State()
}

func (c *BreakerClient) execute(fn func() (string, error)) (string, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return "", err
	}
	return resp.(string), nil
}
