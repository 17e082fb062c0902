package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/ratelimit"
)

const (
	DefaultTimeout = 10 * time.Second

	OutcomeSuccess     = "success"
	OutcomeNotFound    = "not_found"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
	OutcomeTimeout     = "timeout"
)

// Observer receives one call per outbound provider request.
type Observer func(provider, outcome string, duration time.Duration)

// NewHTTPClient returns the client shared by every provider adapter. The
// transport keeps a small pool of idle connections per provider host.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Pacer spaces outbound requests so a burst of cache misses does not hammer
// a provider.
type Pacer struct {
	limiter ratelimit.Limiter
}

// NewPacer allows perSecond requests per second; zero or less disables pacing.
func NewPacer(perSecond int) *Pacer {
	if perSecond <= 0 {
		return &Pacer{limiter: ratelimit.NewUnlimited()}
	}
	return &Pacer{limiter: ratelimit.New(perSecond)}
}

// Wait blocks until the next request slot or until ctx is done. A slot that
// arrives after ctx gave up is consumed and lost.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("pacer wait cancelled: %w", err)
	}

	ready := make(chan struct{})
	go func() {
		p.limiter.Take()
		close(ready)
	}()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pacer wait cancelled: %w", ctx.Err())
	}
}

// transportError strips the request URL from a client error. The URL can
// carry credentials in its path.
func transportError(err error, secrets ...string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	msg := err.Error()
	for _, secret := range secrets {
		if secret != "" && strings.Contains(msg, secret) {
			return errors.New(strings.ReplaceAll(msg, secret, "<redacted>"))
		}
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func observe(observer Observer, provider, outcome string, start time.Time) {
	if observer != nil {
		observer(provider, outcome, time.Since(start))
	}
}
