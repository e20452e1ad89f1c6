package ingest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds a whole remote retrieval.
const DefaultFetchTimeout = 30 * time.Second

// FetcherOptions configure a Fetcher. Zero values select the defaults.
type FetcherOptions struct {
	Timeout  time.Duration
	MaxBytes int64
	// Client overrides the HTTP client; its Timeout is left untouched.
	Client *http.Client
}

// Fetcher retrieves remote files for ingestion with a single GET. Requests
// are never retried.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher returns a Fetcher configured by opts.
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Fetcher{client: client, maxBytes: opts.MaxBytes}
}

// Fetch downloads rawURL and returns its body as a RawInput named after the
// last path segment. Transport errors, timeouts and non-2xx statuses are
// FetchFailure errors; bodies over the size ceiling are PayloadTooLarge.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (RawInput, error) {
	u, err := parseSourceURL(rawURL)
	if err != nil {
		return RawInput{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return RawInput{}, newError(KindBadInput, err, "invalid url")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return RawInput{}, newError(KindFetchFailure, err, "error fetching URL: request timed out")
		}
		return RawInput{}, newError(KindFetchFailure, err, "error fetching URL")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return RawInput{}, newError(KindFetchFailure, nil, "error fetching URL: upstream returned %s", resp.Status)
	}
	if resp.ContentLength > f.maxBytes {
		return RawInput{}, TooLarge(f.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return RawInput{}, newError(KindFetchFailure, err, "error fetching URL: reading body")
	}
	if int64(len(data)) > f.maxBytes {
		return RawInput{}, TooLarge(f.maxBytes)
	}

	return RawInput{
		Data: data,
		Name: SourceName(u, resp.Header.Get("Content-Type")),
	}, nil
}

func parseSourceURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, newError(KindBadInput, err, "invalid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, newError(KindBadInput, nil, "invalid url: scheme must be http or https")
	}
	if u.Host == "" {
		return nil, newError(KindBadInput, nil, "invalid url: missing host")
	}
	return u, nil
}

// SourceName derives a file name for a fetched resource: the last segment
// of the URL path, or when that has no extension a generic name chosen from
// the content type.
func SourceName(u *url.URL, contentType string) string {
	name := u.Path
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if name != "" && strings.Contains(name, ".") {
		return name
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "csv"):
		return "data.csv"
	case strings.Contains(ct, "excel"), strings.Contains(ct, "spreadsheet"):
		return "data.xlsx"
	default:
		return "data.txt"
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

