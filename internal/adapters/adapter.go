// Package adapters implements the seven funding-agency source
// adapters behind one common contract, driven by a declarative
// models.SourceDescriptor so that adding an eighth agency means adding
// a descriptor rather than writing a new adapter from scratch.
package adapters

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/editais/ingestor/internal/fetcher"
	"github.com/editais/ingestor/models"
)

// Adapter is the contract every source implements, per spec.md §4.3.
type Adapter interface {
	ListCalls(ctx context.Context, filterByDate bool) ([]models.CallRef, error)
}

// genericAdapter implements Adapter for all three listing shapes
// (single, detail, sectioned) driven entirely by its descriptor.
type genericAdapter struct {
	desc    models.SourceDescriptor
	fetcher *fetcher.Fetcher
}

// New builds the adapter for one source descriptor.
func New(desc models.SourceDescriptor, f *fetcher.Fetcher) Adapter {
	return &genericAdapter{desc: desc, fetcher: f}
}

func (a *genericAdapter) ListCalls(ctx context.Context, filterByDate bool) ([]models.CallRef, error) {
	doc, err := fetchListingDocument(ctx, a.fetcher, a.desc.ListingURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(a.desc.ListingURL)
	if err != nil {
		return nil, err
	}

	switch a.desc.ListingParser {
	case models.ListingParserSectioned:
		return a.listSectioned(doc, base, filterByDate)
	case models.ListingParserDetail:
		return a.listWithDetailPages(ctx, doc, base, filterByDate)
	default:
		return a.listSingle(doc, base, filterByDate)
	}
}

// listSingle walks every anchor on one index page, admitting those
// whose href/text match the source's PDFFilter (or a bare ".pdf"
// suffix when no filter is set).
func (a *genericAdapter) listSingle(doc *goquery.Document, base *url.URL, filterByDate bool) ([]models.CallRef, error) {
	seen := map[string]bool{}
	var refs []models.CallRef

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		text := strings.TrimSpace(s.Text())

		if !a.admitsLink(href, text) {
			return
		}
		absolute, err := resolveAbsolute(base, href)
		if err != nil || seen[absolute] {
			return
		}

		rowText := strings.TrimSpace(s.Closest("tr,li,div").Text())
		if filterByDate && !a.admitsByDate(rowText) {
			return
		}

		seen[absolute] = true
		refs = append(refs, models.CallRef{SourceTag: a.desc.Tag, URL: absolute, Title: text})
	})

	return refs, nil
}

// listSectioned walks year/category sections, applying the same
// per-link admission rules within each section.
func (a *genericAdapter) listSectioned(doc *goquery.Document, base *url.URL, filterByDate bool) ([]models.CallRef, error) {
	seen := map[string]bool{}
	var refs []models.CallRef

	doc.Find("section, .ano, .edicao").Each(func(_ int, section *goquery.Selection) {
		sectionYear, hasYear := extractYear(section.Find("h2,h3,.titulo-secao").First().Text())

		section.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			text := strings.TrimSpace(s.Text())

			if !a.admitsLink(href, text) {
				return
			}
			absolute, err := resolveAbsolute(base, href)
			if err != nil || seen[absolute] {
				return
			}

			if filterByDate && hasYear && sectionYear < time.Now().Year() {
				return
			}

			seen[absolute] = true
			refs = append(refs, models.CallRef{SourceTag: a.desc.Tag, URL: absolute, Title: text})
		})
	})

	return refs, nil
}

// listWithDetailPages follows each listing row to its detail page and
// extracts the PDF link there, per the "index with per-call detail
// page" listing shape. Failures on an individual row do not abort the
// adapter; they are skipped and the rest proceeds.
func (a *genericAdapter) listWithDetailPages(ctx context.Context, doc *goquery.Document, base *url.URL, filterByDate bool) ([]models.CallRef, error) {
	seen := map[string]bool{}
	var detailLinks []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		absolute, err := resolveAbsolute(base, href)
		if err != nil {
			return
		}
		rowText := strings.TrimSpace(s.Closest("tr,li,div").Text())
		if filterByDate && !a.admitsByDate(rowText) {
			return
		}
		detailLinks = append(detailLinks, absolute)
	})

	var refs []models.CallRef
	for _, detailURL := range detailLinks {
		detailDoc, err := fetchListingDocument(ctx, a.fetcher, detailURL)
		if err != nil {
			continue
		}

		detailBase, _ := url.Parse(detailURL)
		selector := a.desc.DetailSelector
		if selector == "" {
			selector = "a[href]"
		}

		detailDoc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			text := strings.TrimSpace(s.Text())
			if !a.admitsLink(href, text) {
				return
			}
			absolute, err := resolveAbsolute(detailBase, href)
			if err != nil || seen[absolute] {
				return
			}
			seen[absolute] = true
			refs = append(refs, models.CallRef{SourceTag: a.desc.Tag, URL: absolute, Title: text})
		})
	}

	return refs, nil
}

func (a *genericAdapter) admitsLink(href, text string) bool {
	if href == "" {
		return false
	}
	if a.desc.PDFFilter != nil {
		return a.desc.PDFFilter(href, text)
	}
	lower := strings.ToLower(href)
	return strings.HasSuffix(lower, ".pdf")
}

// admitsByDate implements rule 3: admit when the extractable deadline
// is >= today, or when no date could be extracted at all.
func (a *genericAdapter) admitsByDate(rowText string) bool {
	if a.desc.DateFilter == nil {
		return true
	}
	deadline, ok := a.desc.DateFilter(rowText)
	if !ok {
		return true
	}
	today := time.Now().Truncate(24 * time.Hour)
	return !deadline.Before(today)
}

var yearPattern = regexp.MustCompile(`\b(20\d{2})\b`)

func extractYear(text string) (int, bool) {
	m := yearPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return year, true
}

// DeadlinePattern matches common Brazilian date formats (DD/MM/YYYY)
// inside free-form listing text, used by DateFilter implementations
// that admit by deadline rather than by year.
var DeadlinePattern = regexp.MustCompile(`(\d{2})/(\d{2})/(20\d{2})`)

// DeadlineYear extracts the year component of the first DD/MM/YYYY
// date found in text.
func DeadlineYear(text string) (int, bool) {
	m := DeadlinePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, false
	}
	return year, true
}

// DeadlineDate parses the first DD/MM/YYYY date found in text into a
// full date, used by DateFilter implementations that must compare a
// listing row against today rather than just the calendar year.
func DeadlineDate(text string) (time.Time, bool) {
	m := DeadlinePattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	day, errD := strconv.Atoi(m[1])
	month, errM := strconv.Atoi(m[2])
	year, errY := strconv.Atoi(m[3])
	if errD != nil || errM != nil || errY != nil {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}
