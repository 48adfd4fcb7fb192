package adapters

import (
	"strings"
	"time"

	"github.com/editais/ingestor/models"
)

// Descriptors lists the seven configured funding agencies. They
// differ along the three axes named in spec.md §4.3: listing shape,
// PDF link selector, and date filtering strategy.
func Descriptors() []models.SourceDescriptor {
	return []models.SourceDescriptor{
		{
			Tag:           "cnpq",
			Name:          "CNPq",
			ListingURL:    "https://www.gov.br/cnpq/pt-br/acesso-a-informacao/acoes-e-programas/chamadas-publicas",
			ListingParser: models.ListingParserSingle,
			PDFFilter:     pdfSuffixFilter,
			DateFilter:    deadlineDateFilter,
		},
		{
			Tag:           "fapesq",
			Name:          "FAPESQ-PB",
			ListingURL:    "http://fapesq.pb.gov.br/chamadas-publicas",
			ListingParser: models.ListingParserSingle,
			PDFFilter:     dashPDFFilter,
			DateFilter:    deadlineDateFilter,
		},
		{
			Tag:           "paraiba_gov",
			Name:          "Governo da Paraíba",
			ListingURL:    "https://paraiba.pb.gov.br/editais",
			ListingParser: models.ListingParserDetail,
			DetailSelector: "a.btn-download, a[href*='download']",
			PDFFilter:     downloadFilter,
			DateFilter:    deadlineDateFilter,
		},
		{
			Tag:            "confap",
			Name:           "CONFAP",
			ListingURL:     "https://confap.org.br/editais-e-chamadas/",
			ListingParser:  models.ListingParserDetail,
			DetailSelector: "a[href$='.pdf'], a.wp-block-button__link",
			PDFFilter:      pdfOrButtonFilter,
			DateFilter:     nil,
		},
		{
			Tag:           "capes",
			Name:          "CAPES",
			ListingURL:    "https://www.gov.br/capes/pt-br/acesso-a-informacao/editais-e-avisos",
			ListingParser: models.ListingParserSectioned,
			PDFFilter:     pdfSuffixFilter,
			DateFilter:    yearDateFilter,
		},
		{
			Tag:           "finep",
			Name:          "FINEP",
			ListingURL:    "http://www.finep.gov.br/chamadas-publicas",
			ListingParser: models.ListingParserDetail,
			DetailSelector: "a[href*='download'], a[href$='.pdf']",
			PDFFilter:     downloadFilter,
			DateFilter:    deadlineDateFilter,
		},
		{
			Tag:           "sebrae",
			Name:          "SEBRAE",
			ListingURL:    "https://www.sebrae.com.br/sites/PortalSebrae/editais",
			ListingParser: models.ListingParserSectioned,
			PDFFilter:     pdfSuffixFilter,
			DateFilter:    yearDateFilter,
		},
	}
}

func pdfSuffixFilter(href, _ string) bool {
	return hasSuffixFold(href, ".pdf")
}

func dashPDFFilter(href, _ string) bool {
	return containsFold(href, "-pdf") || hasSuffixFold(href, ".pdf")
}

func downloadFilter(href, _ string) bool {
	return containsFold(href, "download") || hasSuffixFold(href, ".pdf")
}

func pdfOrButtonFilter(href, linkText string) bool {
	if hasSuffixFold(href, ".pdf") {
		return true
	}
	return containsFold(linkText, "edital") || containsFold(linkText, "baixar")
}

func deadlineDateFilter(rowText string) (time.Time, bool) {
	return DeadlineDate(rowText)
}

// yearDateFilter admits sections by calendar year; a bare year has no
// day-level precision, so it is treated as a deadline of December 31
// of that year.
func yearDateFilter(rowText string) (time.Time, bool) {
	year, ok := extractYear(rowText)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC), true
}

func hasSuffixFold(s, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(s), strings.ToLower(suffix))
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
