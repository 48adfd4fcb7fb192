package models

import "time"

// ListingParser names the strategy an adapter uses to turn a listing
// page into a set of candidate detail pages or direct PDF links.
type ListingParser string

const (
	ListingParserSingle    ListingParser = "single"    // one page lists every call with direct PDF links
	ListingParserDetail    ListingParser = "detail"    // listing links to per-call detail pages, each holding the PDF
	ListingParserSectioned ListingParser = "sectioned" // listing is split across year/category sections
)

// PDFFilter decides whether a discovered link is worth fetching as a
// candidate edital PDF, beyond a bare ".pdf" suffix check.
type PDFFilter func(href, linkText string) bool

// DateFilter extracts a deadline from a listing row's nearby text,
// returning ok=false when no date could be found (in which case the
// caller admits the row anyway; the LLM stage is authoritative).
type DateFilter func(rowText string) (deadline time.Time, ok bool)

// SourceDescriptor is the static configuration for one agency. Adding
// an eighth agency means adding a SourceDescriptor, never touching the
// orchestrator.
type SourceDescriptor struct {
	Tag            string
	Name           string
	ListingURL     string
	ListingParser  ListingParser
	DetailSelector string
	PDFFilter      PDFFilter
	DateFilter     DateFilter
}

// CallRef is one candidate PDF discovered by a source adapter, not yet
// fetched or ingested.
type CallRef struct {
	SourceTag string
	URL       string
	Title     string
}
