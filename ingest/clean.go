package ingest

import (
	"regexp"
	"strings"
)

var (
	secHeaderPattern   = regexp.MustCompile(`(?s)<sec-header>.*?</sec-header>`)
	secDocumentPattern = regexp.MustCompile(`(?s)<sec-document>.*?</sec-document>`)
	sgmlLinePattern    = regexp.MustCompile(`(?im)^<(TYPE|SEQUENCE|FILENAME|DESCRIPTION)>.*$`)
	tagPattern         = regexp.MustCompile(`<[^>]+>`)
)

// minCleanLines is the number of content lines below which cleaning is assumed to have
// discarded the document body, and the tag-stripped text is returned instead.
const minCleanLines = 10

var metadataMarkers = []string{"ACCESSION NUMBER:", "CONFORMED SUBMISSION TYPE:", "FILING VALUES:"}

// CleanSECText strips EDGAR envelope markup and leading filing metadata from a raw submission.
func CleanSECText(text string) string {
	text = secHeaderPattern.ReplaceAllString(text, "")
	text = secDocumentPattern.ReplaceAllString(text, "")
	text = sgmlLinePattern.ReplaceAllString(text, "")
	text = tagPattern.ReplaceAllString(text, " ")

	var lines []string
	started := false
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if started {
			if clean := strings.Join(strings.Fields(line), " "); clean != "" {
				lines = append(lines, clean)
			}
			continue
		}

		if containsAny(line, metadataMarkers) {
			continue
		}
		if isContentStart(line) {
			started = true
			lines = append(lines, line)
		}
	}

	if len(lines) < minCleanLines {
		return text
	}
	return strings.Join(lines, "\n")
}

func isContentStart(line string) bool {
	if len(line) > 50 && !strings.Contains(line, "|") {
		return true
	}
	return strings.Contains(line, "Item 1.") ||
		strings.Contains(line, "ITEM 1.") ||
		strings.Contains(line, "PART I")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Chunk splits text into windows of size runes, each overlapping the previous by overlap runes.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	step := size - overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
