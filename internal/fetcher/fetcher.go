// Package fetcher implements the HTTP fetch primitive shared by every
// source adapter and the PDF download path: a single retrying GET with
// a fixed User-Agent, redirect following and a bounded body size.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 EditaisIngestor/1.0"

// ErrorKind classifies why a fetch failed, so callers can decide whether
// to retry at a higher level (job re-run) or give up on the URL.
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindProtocol   ErrorKind = "protocol"
	KindHTTPStatus ErrorKind = "http_status"
	KindTooLarge   ErrorKind = "too_large"
)

// FetchError wraps the classified failure of a fetch attempt.
type FetchError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options controls a single Fetch call. Zero values fall back to the
// defaults below.
type Options struct {
	AcceptPDF      bool
	MaxRetries     int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxBodyBytes   int64
}

const (
	defaultMaxRetries     = 3
	defaultConnectTimeout = 10 * time.Second
	defaultReadTimeout    = 30 * time.Second
	defaultMaxBodyBytes   = 64 << 20 // 64MiB, generous for edital PDFs
)

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = defaultReadTimeout
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = defaultMaxBodyBytes
	}
	return o
}

// Result is what a successful Fetch returns.
type Result struct {
	Bytes       []byte
	ContentType string
	FinalURL    string
	IsPDF       bool
}

// Fetcher performs retrying HTTP GETs with a connection pool shared
// across every caller, so it should be constructed once per process
// and reused by every adapter and worker.
type Fetcher struct {
	client *http.Client
}

// New builds a Fetcher. connectTimeout bounds dialing; the per-request
// read timeout is applied per call via Options.
func New(connectTimeout time.Duration) *Fetcher {
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("stopped after 10 redirects")
				}
				return nil
			},
		},
	}
}

// Fetch retrieves url, retrying transient failures with exponential
// backoff. Network/timeout errors back off from a 2s base; protocol
// errors (5xx, reset) back off from a 3s base. Up to opts.MaxRetries
// attempts are made in total.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	var lastErr error
	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		if attempt > 0 {
			base := 2 * time.Second
			var fe *FetchError
			if errors.As(lastErr, &fe) && fe.Kind == KindProtocol {
				base = 3 * time.Second
			}
			backoff := base * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := f.attempt(ctx, url, opts)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var fe *FetchError
		if errors.As(err, &fe) {
			if fe.Kind == KindHTTPStatus && fe.StatusCode != 0 && fe.StatusCode < 500 {
				// Client errors (404, 403, ...) are not transient.
				return nil, err
			}
			if fe.Kind == KindTooLarge {
				return nil, err
			}
		}
	}

	return nil, lastErr
}

func (f *Fetcher) attempt(ctx context.Context, url string, opts Options) (*Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, opts.ReadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindProtocol, URL: url, Err: err}
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")
	if opts.AcceptPDF {
		req.Header.Set("Accept", "application/pdf,*/*;q=0.8")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeoutErr(err) {
			return nil, &FetchError{Kind: KindTimeout, URL: url, Err: err}
		}
		return nil, &FetchError{Kind: KindProtocol, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &FetchError{Kind: KindProtocol, URL: url, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode >= 400 {
		return nil, &FetchError{Kind: KindHTTPStatus, URL: url, StatusCode: resp.StatusCode}
	}

	limited := io.LimitReader(resp.Body, opts.MaxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, &FetchError{Kind: KindProtocol, URL: url, Err: err}
	}
	if int64(len(body)) > opts.MaxBodyBytes {
		return nil, &FetchError{Kind: KindTooLarge, URL: url}
	}

	contentType := resp.Header.Get("Content-Type")
	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Result{
		Bytes:       body,
		ContentType: contentType,
		FinalURL:    finalURL,
		IsPDF:       LooksLikePDF(contentType, finalURL, body),
	}, nil
}

// LooksLikePDF implements the PDF detection heuristic: content-type
// says so, the URL hints at it, or the magic bytes match.
func LooksLikePDF(contentType, url string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	lowerURL := strings.ToLower(url)
	if strings.Contains(lowerURL, ".pdf") || strings.Contains(lowerURL, "-pdf") || strings.Contains(lowerURL, "download") {
		return true
	}
	return bytes.HasPrefix(body, []byte("%PDF"))
}

func isTimeoutErr(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
