package telegram

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/m3rciful/openspace/core/logger"
	"github.com/m3rciful/openspace/core/telegram/netutil"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultResponseTimeout   = 5 * time.Second
	defaultClientTimeout     = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	defaultRetryAttempts     = 3
	defaultRetryBackoff      = 2 * time.Second
)

// errBodyNotReplayable is not retryable, so it ends the attempt loop.
var errBodyNotReplayable = errors.New("telegram: request body cannot be replayed")

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls.
// Transient dial and timeout failures are retried with backoff.
func BuildHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ResponseHeaderTimeout: defaultResponseTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout: defaultClientTimeout,
		Transport: &retryTransport{
			base:     transport,
			attempts: defaultRetryAttempts + 1,
			backoff:  defaultRetryBackoff,
		},
	}
}

type retryTransport struct {
	base     http.RoundTripper
	attempts uint
	backoff  time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	ctx := req.Context()

	var (
		resp  *http.Response
		tries int
	)
	err := retry.Do(
		func() error {
			tries++
			curr := req
			if tries > 1 {
				curr = req.Clone(ctx)
				if req.Body != nil {
					if req.GetBody == nil {
						return errBodyNotReplayable
					}
					body, err := req.GetBody()
					if err != nil {
						return err
					}
					curr.Body = body
				}
			}
			r, err := base.RoundTrip(curr)
			if err != nil {
				return err
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(t.attempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(t.backoff),
		retry.RetryIf(netutil.ShouldRetry),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug(ctx, "tg.wire", "http.retry",
				slog.String("status", "retry"),
				slog.Int("attempt", int(n)+1),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
