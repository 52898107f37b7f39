// Package datacite pushes landing page metadata to the DataCite REST API.
// Every failure is folded into a domain.SyncOutcome; Sync never returns an
// error to its caller.
package datacite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/landing/internal/backoff"
	"github.com/MrSnakeDoc/landing/internal/domain"
	"github.com/MrSnakeDoc/landing/internal/logger"
)

const (
	contentType     = "application/vnd.api+json"
	maxBackoff      = 5 * time.Second
	maxErrorBodyLen = 64 << 10

	MsgLandingPageRequired = "Landing page is required before metadata can be synced to DataCite"
	MsgNotConfigured       = "DataCite credentials are not configured"
)

type Options struct {
	Endpoint      string // ex: https://api.test.datacite.org
	Username      string
	Password      string
	Timeout       time.Duration // per attempt
	MaxAttempts   int
	RetryInterval time.Duration
	HTTPClient    *http.Client // optional
}

// Client implements landing.Notifier.
type Client struct {
	endpoint string
	username string
	password string
	timeout  time.Duration
	policy   backoff.Policy
	http     *http.Client
	urls     domain.URLBuilder
	log      logger.Logger
}

func New(opts Options, urls domain.URLBuilder, log logger.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		username: opts.Username,
		password: opts.Password,
		timeout:  opts.Timeout,
		policy: backoff.Policy{
			Initial:     opts.RetryInterval,
			Max:         maxBackoff,
			MaxAttempts: opts.MaxAttempts,
		},
		http: opts.HTTPClient,
		urls: urls,
		log:  log,
	}
}

// Configured reports whether credentials and endpoint are set.
func (c *Client) Configured() bool {
	return c.endpoint != "" && c.username != "" && c.password != ""
}

// Sync updates the DOI metadata of res so that it points at page.
func (c *Client) Sync(ctx context.Context, res *domain.Resource, page *domain.LandingPage) domain.SyncOutcome {
	doi := res.Identifier()
	if doi == nil {
		return domain.SyncNotRequiredOutcome()
	}
	if page == nil {
		return domain.SyncFailedOutcome(*doi, false, MsgLandingPageRequired)
	}
	if !c.Configured() {
		return domain.SyncFailedOutcome(*doi, false, MsgNotConfigured)
	}

	body, err := json.Marshal(buildDocument(*doi, c.urls.PublicURL(page), res))
	if err != nil {
		return domain.SyncFailedOutcome(*doi, false, "Failed to build DataCite payload")
	}

	attempts, err := backoff.Retry(ctx, c.policy, func(ctx context.Context) error {
		return c.put(ctx, *doi, body)
	}, func(attempt int, wait time.Duration, err error) {
		c.log.Warn("datacite update failed, retrying",
			logger.String("doi", *doi),
			logger.Int("attempt", attempt),
			logger.Duration("retry_in", wait),
			logger.Error(err))
	})
	if err != nil {
		c.log.Error("datacite update failed",
			logger.String("doi", *doi),
			logger.Int("attempts", attempts),
			logger.Error(err))
		return domain.SyncFailedOutcome(*doi, true, message(err))
	}

	c.log.Info("datacite metadata updated",
		logger.String("doi", *doi),
		logger.Int("attempts", attempts))
	return domain.SyncSucceededOutcome(*doi)
}

func (c *Client) put(ctx context.Context, doi string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.endpoint + "/dois/" + escapeDOI(doi)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
	se := &statusError{code: resp.StatusCode}
	var doc errorDocument
	if json.Unmarshal(raw, &doc) == nil {
		se.title = doc.firstTitle()
	}

	if se.retryable() {
		return se
	}
	return backoff.Permanent(se)
}

// escapeDOI keeps the prefix/suffix slash and escapes everything else.
func escapeDOI(doi string) string {
	prefix, suffix, ok := strings.Cut(doi, "/")
	if !ok {
		return url.PathEscape(doi)
	}
	return url.PathEscape(prefix) + "/" + url.PathEscape(suffix)
}

type statusError struct {
	code  int
	title string
}

func (e *statusError) Error() string {
	if e.title != "" {
		return fmt.Sprintf("datacite: HTTP %d: %s", e.code, e.title)
	}
	return fmt.Sprintf("datacite: HTTP %d", e.code)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

type transportError struct {
	err error
}

func (e *transportError) Error() string { return "datacite: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// message maps a failure to the text shown to curators.
func message(err error) string {
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.code == http.StatusUnauthorized || se.code == http.StatusForbidden:
			return "DataCite authentication failed"
		case se.code == http.StatusNotFound:
			return "DOI not found at DataCite"
		case se.code == http.StatusTooManyRequests:
			return "DataCite rejected the update: too many requests"
		case se.code >= 500:
			return fmt.Sprintf("DataCite is temporarily unavailable (HTTP %d)", se.code)
		case se.code == http.StatusUnprocessableEntity && se.title != "":
			return se.title
		default:
			return fmt.Sprintf("DataCite rejected the update (HTTP %d)", se.code)
		}
	}

	var te *transportError
	if errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded) {
		return "DataCite is temporarily unavailable (request timed out or connection failed)"
	}
	return "DataCite sync failed: " + err.Error()
}
