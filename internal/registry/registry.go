// Package registry fetches published SDK versions from a NuGet v3
// flat-container endpoint.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	// DefaultBaseURL is the nuget.org flat-container root.
	DefaultBaseURL = "https://api.nuget.org/v3-flatcontainer"

	// DefaultPackageID is the package providing the void SDK.
	DefaultPackageID = "Csproj.Sdk.Void"

	mimeJSON = "application/json"

	// maxPayloadBytes caps the index document read from the registry.
	maxPayloadBytes = 4 << 20
)

var (
	// ErrMalformedPayload is returned when the index body cannot be understood.
	ErrMalformedPayload = errors.New("malformed registry payload")
	// ErrNoVersions is returned when the index lists no versions.
	ErrNoVersions = errors.New("registry lists no versions")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("registry request %s failed: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// index is the flat-container version index: {"versions": ["1.0.0", ...]}, ascending.
type index struct {
	Versions []string `json:"versions"`
}

// Client issues version-index requests. Deadlines come from the request context.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		userAgent:  "sdkproj",
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IndexURL returns the version index URL of packageID.
// Flat-container ids are lower-case.
func (c *Client) IndexURL(packageID string) string {
	return c.baseURL + "/" + strings.ToLower(packageID) + "/index.json"
}

// FetchIndex returns every published version of packageID, in registry order.
func (c *Client) FetchIndex(ctx context.Context, packageID string) ([]string, error) {
	url := c.IndexURL(packageID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("Accept", mimeJSON)
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("requesting version index", "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read registry response: %w", err)
	}

	var payload index
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return payload.Versions, nil
}

// FetchLatest returns the last published version of packageID.
func (c *Client) FetchLatest(ctx context.Context, packageID string) (string, error) {
	versions, err := c.FetchIndex(ctx, packageID)
	if err != nil {
		return "", err
	}
	return Latest(versions)
}

// Latest returns the last element of an ascending version list.
// The element must be a NuGet version: a semantic version, optionally with a
// fourth numeric segment (1.1.0.1).
func Latest(versions []string) (string, error) {
	if len(versions) == 0 {
		return "", ErrNoVersions
	}
	last := strings.TrimSpace(versions[len(versions)-1])
	if last == "" {
		return "", fmt.Errorf("%w: empty version string", ErrMalformedPayload)
	}
	if err := checkNuGetVersion(last); err != nil {
		return "", fmt.Errorf("%w: %q is not a version: %v", ErrMalformedPayload, last, err)
	}
	return last, nil
}

// checkNuGetVersion validates the numeric part without the legacy revision
// segment as semver; the revision must be a plain number.
func checkNuGetVersion(v string) error {
	release, suffix := v, ""
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		release, suffix = v[:i], v[i:]
	}
	segments := strings.Split(release, ".")
	if len(segments) == 4 {
		if _, err := strconv.ParseUint(segments[3], 10, 64); err != nil {
			return fmt.Errorf("invalid revision segment %q", segments[3])
		}
		release = strings.Join(segments[:3], ".")
	}
	_, err := semver.NewVersion(release + suffix)
	return err
}
