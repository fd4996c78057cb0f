package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/oshokin/selfupdate/internal/config"
	"github.com/oshokin/selfupdate/internal/domain/release"
	"github.com/oshokin/selfupdate/internal/logger"
	"github.com/oshokin/selfupdate/internal/version"
)

const (
	// DefaultBaseURL is the public GitHub REST API.
	DefaultBaseURL = config.DefaultAPIURL

	// ArchiveFilename is the local name of a downloaded release asset.
	ArchiveFilename = "update.zip"

	// chunkSize is the fixed buffer used to stream downloads.
	chunkSize = 8192

	// maxErrorBody caps how much of an error response is quoted.
	maxErrorBody = 512
)

// Client talks to the GitHub Releases API of one repository.
type Client struct {
	// httpClient performs the requests; timeouts are applied per request through contexts.
	httpClient *http.Client
	// baseURL is the API root without a trailing slash.
	baseURL string
	// repo is the "owner/name" repository.
	repo string

	// timeout bounds each metadata attempt.
	timeout time.Duration
	// downloadTimeout bounds each download attempt.
	downloadTimeout time.Duration
	// retries is the number of retries after the first attempt.
	retries uint64
	// retryInterval is the initial backoff interval.
	retryInterval time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL points the client at another API root, e.g. GitHub Enterprise or a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTimeout sets the timeout of each metadata request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithDownloadTimeout sets the timeout of each download attempt.
func WithDownloadTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.downloadTimeout = timeout
		}
	}
}

// WithRetries sets how many times a transient failure is retried and the initial backoff.
func WithRetries(retries uint, interval time.Duration) Option {
	return func(c *Client) {
		c.retries = uint64(retries)

		if interval > 0 {
			c.retryInterval = interval
		}
	}
}

// NewClient creates a client for the "owner/name" repository.
func NewClient(repo string, opts ...Option) (*Client, error) {
	owner, name, found := strings.Cut(repo, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w: %q", errRepoFormat, repo)
	}

	c := &Client{
		httpClient:      new(http.Client),
		baseURL:         DefaultBaseURL,
		repo:            repo,
		timeout:         config.DefaultTimeout,
		downloadTimeout: config.DefaultDownloadTimeout,
		retries:         config.DefaultRetries,
		retryInterval:   config.DefaultRetryInterval,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// releasePayload is the subset of the release JSON the updater consumes.
type releasePayload struct {
	TagName string         `json:"tag_name"`
	Assets  []assetPayload `json:"assets"`
}

type assetPayload struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// LatestReleaseURL returns the endpoint queried by LatestRelease.
func (c *Client) LatestReleaseURL() string {
	return fmt.Sprintf("%s/repos/%s/releases/latest", c.baseURL, c.repo)
}

// LatestRelease fetches the latest release and describes its first asset.
func (c *Client) LatestRelease(ctx context.Context) (*release.Descriptor, error) {
	var payload releasePayload

	err := c.retry(ctx, "fetch latest release", func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.get(attemptCtx, c.LatestReleaseURL(), "application/vnd.github+json")
		if err != nil {
			return err
		}

		defer func() {
			_ = resp.Body.Close()
		}()

		if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %w", ErrMalformed, err))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(payload.TagName) == "" {
		return nil, fmt.Errorf("%w: empty tag_name", ErrMalformed)
	}

	if len(payload.Assets) == 0 || payload.Assets[0].BrowserDownloadURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoAssets, payload.TagName)
	}

	asset := payload.Assets[0]

	return &release.Descriptor{
		Tag:         strings.TrimSpace(payload.TagName),
		AssetName:   asset.Name,
		DownloadURL: asset.BrowserDownloadURL,
		Size:        asset.Size,
	}, nil
}

// Download streams url into dir/update.zip in fixed-size chunks and returns the file path.
// A failed attempt truncates the file before retrying; on final failure the file is removed.
func (c *Client) Download(ctx context.Context, url, dir string) (string, error) {
	target := filepath.Join(dir, ArchiveFilename)

	err := c.retry(ctx, "download release asset", func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
		defer cancel()

		resp, err := c.get(attemptCtx, url, "application/octet-stream")
		if err != nil {
			return err
		}

		defer func() {
			_ = resp.Body.Close()
		}()

		out, err := os.Create(target)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create %s: %w", target, err))
		}

		buf := make([]byte, chunkSize)

		if _, err = io.CopyBuffer(out, onlyReader{resp.Body}, buf); err != nil {
			_ = out.Close()

			return fmt.Errorf("%w: %w", ErrNetwork, err)
		}

		if err = out.Close(); err != nil {
			return backoff.Permanent(fmt.Errorf("close %s: %w", target, err))
		}

		return nil
	})
	if err != nil {
		_ = os.Remove(target)

		return "", err
	}

	return target, nil
}

// get performs a GET and maps non-2xx statuses to errors. Permanent failures are wrapped
// with backoff.Permanent so that they are not retried.
func (c *Client) get(ctx context.Context, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return resp, nil
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	return nil, statusError(resp)
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return backoff.Permanent(fmt.Errorf("%w: %s", ErrNoRelease, resp.Request.URL))
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return backoff.Permanent(ErrRateLimited)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s: %s", ErrBadStatus, resp.Status, detail)
	default:
		return backoff.Permanent(fmt.Errorf("%w: %s: %s", ErrBadStatus, resp.Status, detail))
	}
}

func (c *Client) retry(ctx context.Context, operation string, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxElapsedTime = 0
	policy.Reset()

	attempt := 0

	return backoff.Retry(func() error {
		attempt++

		err := fn()
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(errors.Join(err, ctx.Err()))
		}

		if err != nil {
			logger.DebugKV(ctx, "Request attempt failed", "operation", operation, "attempt", attempt, "error", err)
		}

		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, c.retries), ctx))
}

// onlyReader hides WriterTo so that io.CopyBuffer really streams through the fixed buffer.
type onlyReader struct {
	io.Reader
}
