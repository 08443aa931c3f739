// Package jenkins is the HTTP client for the Jenkins job API.
package jenkins

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/sirupsen/logrus"

	"github.com/gurumnet/ci-jobs/src/config"
)

const (
	versionHeader  = "X-Jenkins"
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 512
)

// Options configures Connect.
type Options struct {
	URL string

	// User and Token enable basic authentication when either is set.
	// Token is resolved from JENKINS_API_TOKEN when empty.
	User  string
	Token string

	// MinVersion is a semver constraint the server version must satisfy.
	// Empty disables the check.
	MinVersion string

	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// Client talks to one Jenkins server. It is not safe for concurrent use.
type Client struct {
	base    *url.URL
	user    string
	token   string
	http    *http.Client
	log     logrus.FieldLogger
	version string

	crumbField string
	crumb      string
}

// StatusError is an HTTP response with status >= 400.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Connect checks the server is reachable, authenticates, and verifies its
// version. Every failure is a *config.PreconditionError.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.URL, "/"))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, &config.PreconditionError{Reason: fmt.Sprintf("invalid Jenkins URL %q", opts.URL), Err: err}
	}

	token := opts.Token
	if token == "" {
		token = os.Getenv("JENKINS_API_TOKEN")
	}

	hc := opts.HTTPClient
	if hc == nil {
		jar, _ := cookiejar.New(nil)
		hc = &http.Client{Timeout: defaultTimeout, Jar: jar}
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	c := &Client{
		base:  base,
		user:  opts.User,
		token: token,
		http:  hc,
		log:   log.WithField("url", base.String()),
	}

	resp, _, err := c.do(ctx, http.MethodGet, "api/json", nil, nil, "")
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
			return nil, config.Precondition(err, "authenticating to Jenkins at %s as %q", base, opts.User)
		}
		return nil, config.Precondition(err, "connecting to Jenkins at %s", base)
	}

	c.version = resp.Header.Get(versionHeader)
	if err := checkVersion(c.version, opts.MinVersion); err != nil {
		return nil, config.Precondition(err, "Jenkins at %s", base)
	}

	if err := c.fetchCrumb(ctx); err != nil {
		return nil, config.Precondition(err, "requesting CSRF crumb from %s", base)
	}

	c.log.WithField("version", c.version).Debug("connected to Jenkins")
	return c, nil
}

// Version returns the server version reported on connect.
func (c *Client) Version() string { return c.version }

// URL returns the server base URL.
func (c *Client) URL() string { return c.base.String() }

func checkVersion(version, constraint string) error {
	if version == "" {
		return fmt.Errorf("response carries no %s header", versionHeader)
	}
	if constraint == "" {
		return nil
	}
	want, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	got, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("unparseable server version %q: %w", version, err)
	}
	if !want.Check(got) {
		return fmt.Errorf("server version %s does not satisfy %s", version, constraint)
	}
	return nil
}

// do executes a request against a path relative to the server root. The
// response body is read and closed.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, contentType string) (*http.Response, []byte, error) {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	if c.user != "" || c.token != "" {
		req.SetBasicAuth(c.user, c.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if method != http.MethodGet && c.crumb != "" {
		req.Header.Set(c.crumbField, c.crumb)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, u.Redacted(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, fmt.Errorf("reading response from %s %s: %w", method, u.Redacted(), err)
	}

	c.log.WithFields(logrus.Fields{
		"method": method,
		"path":   u.Path,
		"status": resp.StatusCode,
	}).Debug("jenkins request")

	if resp.StatusCode >= 400 {
		return resp, respBody, &StatusError{
			Method:     method,
			URL:        u.Redacted(),
			StatusCode: resp.StatusCode,
			Body:       truncateBody(respBody, maxErrorBody),
		}
	}
	return resp, respBody, nil
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

func truncateBody(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
