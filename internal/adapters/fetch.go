package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"github.com/editais/ingestor/internal/fetcher"
)

// fetchListingDocument downloads a listing page and parses it with
// goquery, handling brotli compression and charset normalization the
// way the teacher's crawler does for HTML pages (PDF downloads never
// need this: they go through fetcher.Fetch directly).
func fetchListingDocument(ctx context.Context, f *fetcher.Fetcher, listingURL string) (*goquery.Document, error) {
	result, err := f.Fetch(ctx, listingURL, fetcher.Options{})
	if err != nil {
		return nil, err
	}

	body := result.Bytes
	if looksBrotli(result.ContentType) {
		decoded, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err == nil {
			body = decoded
		}
	}

	reader, err := charset.NewReader(bytes.NewReader(body), result.ContentType)
	if err != nil {
		reader = bytes.NewReader(body)
	}

	return goquery.NewDocumentFromReader(reader)
}

func looksBrotli(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "br")
}

// resolveAbsolute normalizes a possibly-relative href against base,
// stripping tracking query parameters and fragments.
func resolveAbsolute(base *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", fmt.Errorf("not a navigable link: %q", href)
	}

	resolved, err := base.Parse(href)
	if err != nil {
		return "", err
	}

	resolved.Fragment = ""
	q := resolved.Query()
	for _, tracking := range []string{"utm_source", "utm_medium", "utm_campaign", "utm_content", "utm_term", "fbclid", "gclid"} {
		q.Del(tracking)
	}
	resolved.RawQuery = q.Encode()

	return resolved.String(), nil
}
