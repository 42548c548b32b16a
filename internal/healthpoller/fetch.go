package healthpoller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/deadline"
)

const (
	// DefaultTimeout bounds a status fetch when the caller passes none.
	DefaultTimeout = 5 * time.Second

	maxBodyBytes = 1 << 20
)

var (
	ErrTimeout  = errors.New("health request timed out")
	ErrCanceled = errors.New("health request canceled")
	ErrNetwork  = errors.New("health request failed")
	ErrStatus   = errors.New("health endpoint not ready")
)

// ErrorKind classifies why a fetch or copy did not fully succeed.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNetwork
	KindTimeout
	KindCanceled
	KindHTTPStatus
	KindClipboard
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	case KindHTTPStatus:
		return "http_status"
	case KindClipboard:
		return "clipboard"
	default:
		return "unknown"
	}
}

// FetchResult is the outcome of one status fetch. It is always fully
// populated; FetchStatus never returns an error.
type FetchResult struct {
	OK bool
	// Status is the HTTP status code, or 0 when no response arrived.
	Status int
	Report Report
	Kind   ErrorKind
	Err    error
	// BodyErr is set when the body could not be decoded and Report is the
	// empty fallback.
	BodyErr  error
	Duration time.Duration
}

// Degraded reports whether the report is the empty fallback for an
// undecodable body rather than what the endpoint sent.
func (r FetchResult) Degraded() bool {
	return r.BodyErr != nil
}

// Fetcher issues health status requests.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetcher wraps client. The client's cookie jar, if any, supplies the
// credentials sent with each request.
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, logger: logger}
}

// FetchStatus GETs url and decodes the health report. The whole exchange,
// body included, is bounded by timeout; on expiry the request is cancelled
// and the result carries KindTimeout with Status 0.
func (f *Fetcher) FetchStatus(ctx context.Context, url string, timeout time.Duration) FetchResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var got FetchResult
	outcome := deadline.Run(ctx, timeout, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		res, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		body, readErr := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
		if readErr != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		got.Status = res.StatusCode
		got.OK = res.StatusCode >= 200 && res.StatusCode < 300

		report, parseErr := ParseReport(body)
		switch {
		case readErr != nil:
			got.BodyErr = errors.Join(ErrMalformedBody, readErr)
		case parseErr != nil:
			got.BodyErr = parseErr
		default:
			got.Report = report
		}
		return nil
	})

	if outcome.Err != nil {
		result := FetchResult{Duration: outcome.Elapsed}
		switch {
		case outcome.Expired:
			result.Kind = KindTimeout
			result.Err = fmt.Errorf("%w after %s", ErrTimeout, timeout)
		case outcome.Canceled:
			result.Kind = KindCanceled
			result.Err = fmt.Errorf("%w: %v", ErrCanceled, outcome.Err)
		default:
			result.Kind = KindNetwork
			result.Err = fmt.Errorf("%w: %v", ErrNetwork, outcome.Err)
		}

		f.logger.Warn("Health fetch failed",
			slog.String("url", url),
			slog.String("kind", result.Kind.String()),
			slog.Any("err", outcome.Err))
		return result
	}

	got.Duration = outcome.Elapsed
	if !got.OK {
		got.Kind = KindHTTPStatus
		got.Err = fmt.Errorf("%w: status %d", ErrStatus, got.Status)
	}
	if got.Degraded() {
		f.logger.Warn("Health report could not be decoded",
			slog.String("url", url),
			slog.Int("status", got.Status),
			slog.Any("err", got.BodyErr))
	}

	return got
}
