package extractor

import "strings"

// Chunk splits text into fixed-size, overlapping windows. Chunk i
// covers [i*(size-overlap), i*(size-overlap)+size], right-trimmed to
// len(text), and is stripped of leading/trailing whitespace.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 || overlap >= size {
		return []string{strings.TrimSpace(text)}
	}

	stride := size - overlap
	var chunks []string
	for start := 0; start < len(text); start += stride {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		piece := strings.TrimSpace(text[start:end])
		if piece != "" {
			chunks = append(chunks, piece)
		}
		if end == len(text) {
			break
		}
	}
	return chunks
}
