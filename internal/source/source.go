// Package source downloads dnsmasq-format domain lists and extracts the domains they route. List contents look
// like "server=/cn/114.114.114.114" lines mixed with comments; only the domain between the first two slashes is
// consumed.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/davidsbond/x/set"
)

type (
	// The Fetcher type downloads raw domain list documents over HTTP. It performs no retries; any failure is
	// returned to the caller as a FetchError.
	Fetcher struct {
		client *http.Client
		logger *slog.Logger
	}

	// The FetchError type describes the failure to download a single domain list. The wrapped error is nil when
	// the failure was an unexpected response status rather than a transport error.
	FetchError struct {
		URL    string
		Status int
		Err    error
	}
)

// Error returns a human-readable description of the failed download.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
	}

	return fmt.Sprintf("failed to fetch %s: unexpected status %d", e.URL, e.Status)
}

// Unwrap returns the underlying transport error, if any.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetcher returns a new instance of the Fetcher type that downloads documents using the provided HTTP client
// and logs download progress to the provided logger.
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		logger: logger,
	}
}

// Fetch downloads the document at the provided URL, returning its body as text.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.logger.With("url", url).Info("downloading domain list")

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}

	response, err := f.client.Do(request)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", &FetchError{URL: url, Status: response.StatusCode}
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}

	return string(body), nil
}

const prefix = "server="

// Parse extracts the set of domains routed by a single domain list document. Lines not starting with "server="
// (comments, blanks) are ignored. Lines carrying the prefix but missing their slash delimiters are logged and
// skipped rather than failing the parse. Duplicate domains are collapsed; the returned slice preserves first-seen
// order.
func Parse(ctx context.Context, r io.Reader, logger *slog.Logger) ([]string, error) {
	seen := set.New[string]()

	var domains []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, prefix) {
			continue
		}

		first := strings.Index(line, "/")
		if first == -1 {
			logger.With("line", line).Warn("skipping invalid line")
			continue
		}

		second := strings.Index(line[first+1:], "/")
		if second == -1 {
			logger.With("line", line).Warn("skipping invalid line")
			continue
		}

		domain := line[first+1 : first+1+second]
		if domain == "" || seen.Contains(domain) {
			continue
		}

		seen.Put(domain)
		domains = append(domains, domain)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return domains, nil
}
