package pdftext

import "testing"

func TestExtractMalformed(t *testing.T) {
	_, err := Extract([]byte("not a pdf"))
	if err == nil {
		t.Fatalf("expected error for malformed input")
	}
}

func TestJoinEmpty(t *testing.T) {
	if got := Join(nil); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestJoinSeparator(t *testing.T) {
	pages := []Page{{Number: 1, Text: "a"}, {Number: 2, Text: "b"}}
	got := Join(pages)
	if got != "a\n\n--- PAGE BREAK ---\n\nb" {
		t.Fatalf("unexpected join output: %q", got)
	}
}
