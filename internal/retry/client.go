// Package retry runs fallible operations with exponential backoff and jitter,
// retrying only errors that look transient.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
}

var DefaultConfig = Config{
	MaxRetries:     3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
	Timeout:        2 * time.Minute,
}

// Temporary is implemented by errors that know whether they are worth retrying.
// It takes precedence over message matching.
type Temporary interface {
	Temporary() bool
}

type Client struct {
	logger logrus.FieldLogger
	config Config
}

// NewClient returns a Client. Non-positive config values fall back to DefaultConfig
// and a nil logger discards output.
func NewClient(logger logrus.FieldLogger, config ...Config) *Client {
	cfg := DefaultConfig
	if len(config) > 0 {
		cfg = sanitize(config[0])
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	return &Client{
		logger: logger,
		config: cfg,
	}
}

func sanitize(cfg Config) Config {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultConfig.MaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultConfig.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultConfig.MaxBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig.Timeout
	}
	return cfg
}

// Config returns the effective retry configuration.
func (c *Client) Config() Config {
	return c.config
}

// Do calls fn until it succeeds, returns a non-transient error, exhausts the
// retries or the overall timeout elapses. op names the operation in logs and errors.
func Do[T any](ctx context.Context, c *Client, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	opCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var lastErr error
	backoff := c.config.InitialBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s canceled: %w", op, ctx.Err())
		}
		if opCtx.Err() != nil {
			return zero, fmt.Errorf("%s timed out after %v: %w", op, c.config.Timeout, opCtx.Err())
		}

		log := c.logger.WithFields(logrus.Fields{"op": op, "attempt": attempt + 1, "max_attempts": c.config.MaxRetries + 1})
		log.Debug("attempt started")

		result, err := fn(opCtx)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !IsTransient(err) || attempt == c.config.MaxRetries {
			log.WithError(err).Debug("attempt failed")
			break
		}

		log.WithError(err).Warnf("transient error, retrying in %v", backoff)
		select {
		case <-time.After(backoff):
			backoff = c.calculateNextBackoff(backoff)
		case <-ctx.Done():
			return zero, fmt.Errorf("%s canceled during backoff: %w", op, ctx.Err())
		case <-opCtx.Done():
			return zero, fmt.Errorf("%s timed out during backoff: %w", op, opCtx.Err())
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", op, c.config.MaxRetries+1, lastErr)
}

func (c *Client) calculateNextBackoff(currentBackoff time.Duration) time.Duration {
	backoff := time.Duration(float64(currentBackoff) * 1.5)
	if backoff > c.config.MaxBackoff {
		backoff = c.config.MaxBackoff
	}

	maxJitter := int64(backoff / 4)
	if maxJitter > 0 {
		jitterVal, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
		if err != nil {
			c.logger.WithError(err).Warn("failed to generate jitter")
		} else {
			backoff += time.Duration(jitterVal.Int64())
		}
	}

	return backoff
}

var transientPatterns = []string{
	"timeout",
	"connection refused",
	"connection reset",
	"temporary failure",
	"server error",
	"rate limit",
	"429", // HTTP 429 Too Many Requests
	"502", // HTTP 502 Bad Gateway
	"503", // HTTP 503 Service Unavailable
	"504", // HTTP 504 Gateway Timeout
	"network",
	"dns",
	"tcp",
	"eof",
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var tmp Temporary
	if errors.As(err, &tmp) {
		return tmp.Temporary()
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
