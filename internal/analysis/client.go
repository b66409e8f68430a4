package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"socialpulse/internal/metrics"
)

const (
	EndpointSentiment = "/sentiment"
	EndpointModerate  = "/moderate"

	maxResponseBytes = 1 << 20
)

// BreakerSettings 熔断配置
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failed calls that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{MaxFailures: 5, OpenTimeout: 30 * time.Second}
}

// Client 推理服务客户端，情绪和审核两个请求并发执行
type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     Policy
	cache      Cache
	breakers   map[string]*gobreaker.CircuitBreaker
	log        *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithBreaker(s BreakerSettings) Option {
	return func(c *Client) { c.breakers = newBreakers(s, c) }
}

// NewClient 创建客户端
func NewClient(baseURL string, policy Policy, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		policy:     policy,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breakers == nil {
		c.breakers = newBreakers(DefaultBreakerSettings(), c)
	}
	return c
}

func newBreakers(s BreakerSettings, c *Client) map[string]*gobreaker.CircuitBreaker {
	out := make(map[string]*gobreaker.CircuitBreaker, 2)
	for _, endpoint := range []string{EndpointSentiment, EndpointModerate} {
		out[endpoint] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "analysis" + endpoint,
			MaxRequests: 1,
			Timeout:     s.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= s.MaxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.log.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
				metrics.BreakerState.WithLabelValues(strings.TrimPrefix(name, "analysis")).Set(float64(to))
			},
			// 请求被拒绝或调用方取消不算后端故障
			IsSuccessful: func(err error) bool {
				if err == nil || errors.Is(err, context.Canceled) {
					return true
				}
				var ae *Error
				return errors.As(err, &ae) && !ae.retryable()
			},
		})
	}
	return out
}

// Analyze 并发调用 /sentiment 和 /moderate
// 审核失败返回错误；只有情绪失败时仍返回审核结果，并在 SentimentErr 中记录原因
func (c *Client) Analyze(ctx context.Context, text string) (*Result, error) {
	key := CacheKey(text)
	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, key)
		switch {
		case err != nil:
			metrics.AnalysisCache.WithLabelValues("error").Inc()
			c.log.Warn("analysis cache lookup failed", zap.Error(err))
		case ok:
			metrics.AnalysisCache.WithLabelValues("hit").Inc()
			cached.Cached = true
			return cached, nil
		default:
			metrics.AnalysisCache.WithLabelValues("miss").Inc()
		}
	}

	var (
		sent    sentimentResponse
		mod     moderationResponse
		sentErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sentErr = c.call(gctx, EndpointSentiment, text, func(b []byte) error {
			var r sentimentResponse
			if err := json.Unmarshal(b, &r); err != nil {
				return err
			}
			if err := r.validate(); err != nil {
				return err
			}
			sent = r
			return nil
		})
		return nil
	})
	g.Go(func() error {
		return c.call(gctx, EndpointModerate, text, func(b []byte) error {
			var r moderationResponse
			if err := json.Unmarshal(b, &r); err != nil {
				return err
			}
			if err := r.validate(); err != nil {
				return err
			}
			mod = r
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Emotions:   EmotionScores(sent.Emotions),
		Primary:    sent.Primary,
		Moderation: ModerationScores(mod.Scores),
	}
	if sentErr != nil {
		// 部分结果不缓存
		res.SentimentErr = sentErr
		c.log.Warn("sentiment analysis failed, moderation result kept", zap.Error(sentErr))
		return res, nil
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, key, res); err != nil {
			c.log.Warn("analysis cache store failed", zap.Error(err))
		}
	}
	return res, nil
}

// call 对单个端点执行带重试和熔断的请求
func (c *Client) call(ctx context.Context, endpoint, text string, decode func([]byte) error) error {
	start := time.Now()
	defer func() {
		metrics.AnalysisLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	attempts := 0
	_, err := c.breakers[endpoint].Execute(func() (interface{}, error) {
		op := func() error {
			attempts++
			return c.do(ctx, endpoint, text, decode)
		}
		notify := func(err error, wait time.Duration) {
			metrics.AnalysisRetries.WithLabelValues(endpoint).Inc()
			c.log.Debug("retrying analysis call",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempts),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}
		return nil, backoff.RetryNotify(op, c.policy.newBackOff(ctx), notify)
	})
	if err == nil {
		metrics.AnalysisRequests.WithLabelValues(endpoint, "ok").Inc()
		return nil
	}

	aerr := c.classify(ctx, endpoint, attempts, err)
	metrics.AnalysisRequests.WithLabelValues(endpoint, aerr.Kind.String()).Inc()
	return aerr
}

func (c *Client) classify(ctx context.Context, endpoint string, attempts int, err error) *Error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &Error{Kind: KindUnavailable, Endpoint: endpoint, Err: err}
	}

	var last *Error
	if !errors.As(err, &last) {
		// 调用方取消或超时，backoff 返回的是 ctx.Err()
		kind := KindTransport
		if errors.Is(err, context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return &Error{Kind: kind, Endpoint: endpoint, Attempts: attempts, Err: err}
	}

	if !last.retryable() {
		last.Attempts = attempts
		return last
	}
	if attempts >= c.policy.MaxAttempts {
		return &Error{Kind: KindUnavailable, Endpoint: endpoint, Attempts: attempts, Err: last}
	}
	last.Attempts = attempts
	return last
}

// do 单次请求，超时由 Policy.Timeout 控制
func (c *Client) do(ctx context.Context, endpoint, text string, decode func([]byte) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	body, err := json.Marshal(textRequest{Text: text})
	if err != nil {
		return backoff.Permanent(&Error{Kind: KindTransport, Endpoint: endpoint, Err: err})
	}
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(&Error{Kind: KindTransport, Endpoint: endpoint, Err: err})
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return c.attemptError(attemptCtx, endpoint, 0, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return c.attemptError(attemptCtx, endpoint, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		aerr := &Error{
			Kind:     KindTransport,
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("backend returned %s", resp.Status),
		}
		if !aerr.retryable() {
			return backoff.Permanent(aerr)
		}
		return aerr
	}

	if err := decode(payload); err != nil {
		return &Error{
			Kind:     KindTransport,
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("malformed response: %w", err),
		}
	}
	return nil
}

func (c *Client) attemptError(attemptCtx context.Context, endpoint string, status int, err error) *Error {
	kind := KindTransport
	var netErr net.Error
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Endpoint: endpoint, Status: status, Err: err}
}

// Health 探测后端 /health
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: backend returned %s", resp.Status)
	}
	return nil
}
