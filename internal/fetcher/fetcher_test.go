package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchRetriesOnServerError(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(2 * time.Second)
	result, err := f.Fetch(context.Background(), srv.URL, Options{MaxRetries: 3, ReadTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if string(result.Bytes) != "ok" {
		t.Fatalf("unexpected body: %q", result.Bytes)
	}
	if hits != 2 {
		t.Fatalf("expected 2 attempts, got %d", hits)
	}
}

func TestFetchDoesNotRetryClientError(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(2 * time.Second)
	_, err := f.Fetch(context.Background(), srv.URL, Options{MaxRetries: 3, ReadTimeout: 2 * time.Second})
	if err == nil {
		t.Fatalf("expected error")
	}
	fe, ok := err.(*FetchError)
	if !ok {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fe.Kind != KindHTTPStatus || fe.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected error: %+v", fe)
	}
	if hits != 1 {
		t.Fatalf("expected 1 attempt, got %d", hits)
	}
}

func TestFetchTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 100))
	}))
	defer srv.Close()

	f := New(2 * time.Second)
	_, err := f.Fetch(context.Background(), srv.URL, Options{MaxRetries: 1, MaxBodyBytes: 10})
	if err == nil {
		t.Fatalf("expected error")
	}
	fe, ok := err.(*FetchError)
	if !ok || fe.Kind != KindTooLarge {
		t.Fatalf("expected too_large error, got %+v", err)
	}
}

func TestLooksLikePDF(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		url         string
		body        []byte
		want        bool
	}{
		{"content-type", "application/pdf", "http://x/file", nil, true},
		{"url suffix", "text/html", "http://x/edital.pdf", nil, true},
		{"url dash-pdf", "text/html", "http://x/edital-pdf?id=1", nil, true},
		{"url download", "text/html", "http://x/download?id=1", nil, true},
		{"magic bytes", "application/octet-stream", "http://x/file", []byte("%PDF-1.4"), true},
		{"plain html", "text/html", "http://x/pagina", []byte("<html>"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := LooksLikePDF(c.contentType, c.url, c.body); got != c.want {
				t.Errorf("LooksLikePDF(%q, %q) = %v, want %v", c.contentType, c.url, got, c.want)
			}
		})
	}
}
