package adapters

import "testing"

func TestDescriptorsCoversSevenAgencies(t *testing.T) {
	descs := Descriptors()
	if len(descs) != 7 {
		t.Fatalf("expected 7 source descriptors, got %d", len(descs))
	}
	seen := map[string]bool{}
	for _, d := range descs {
		if seen[d.Tag] {
			t.Fatalf("duplicate source tag: %s", d.Tag)
		}
		seen[d.Tag] = true
	}
}

func TestDeadlineYear(t *testing.T) {
	year, ok := DeadlineYear("Prazo de submissão: 15/03/2027")
	if !ok || year != 2027 {
		t.Fatalf("expected year 2027, got %d ok=%v", year, ok)
	}
}

func TestDeadlineYearMissing(t *testing.T) {
	_, ok := DeadlineYear("sem data definida")
	if ok {
		t.Fatalf("expected no match")
	}
}

func TestPDFFilters(t *testing.T) {
	if !pdfSuffixFilter("/edital.PDF", "") {
		t.Fatalf("expected case-insensitive .pdf match")
	}
	if !dashPDFFilter("/arquivo-pdf?id=1", "") {
		t.Fatalf("expected -pdf match")
	}
	if !downloadFilter("/download?file=1", "") {
		t.Fatalf("expected download match")
	}
}
