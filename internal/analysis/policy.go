package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type BackoffKind string

const (
	BackoffConstant    BackoffKind = "constant"
	BackoffExponential BackoffKind = "exponential"
)

// Policy 每个端点调用的超时与重试策略
type Policy struct {
	// Timeout bounds a single attempt.
	Timeout         time.Duration
	MaxAttempts     int
	Backoff         BackoffKind
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Timeout:         5 * time.Second,
		MaxAttempts:     3,
		Backoff:         BackoffExponential,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

func (p Policy) Validate() error {
	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1")
	}
	switch p.Backoff {
	case BackoffConstant, BackoffExponential:
	default:
		return fmt.Errorf("unknown backoff %q", p.Backoff)
	}
	if p.InitialInterval < 0 || p.MaxInterval < 0 {
		return fmt.Errorf("backoff intervals must not be negative")
	}
	return nil
}

func (p Policy) newBackOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff
	switch p.Backoff {
	case BackoffConstant:
		b = backoff.NewConstantBackOff(p.InitialInterval)
	default:
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = p.InitialInterval
		if p.MaxInterval > 0 {
			eb.MaxInterval = p.MaxInterval
		}
		// 由 MaxAttempts 控制次数
		eb.MaxElapsedTime = 0
		eb.Reset()
		b = eb
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
}
