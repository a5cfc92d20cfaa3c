package ocr

import (
	"regexp"
	"strings"
)

var (
	reMRZLine   = regexp.MustCompile(`[A-Z0-9<]{20,}<<`)
	reDocDate   = regexp.MustCompile(`(?i)\b\d{1,2}[ \-]?[A-Z]{3,}[ \-]?\d{4}\b|\b\d{4}-\d{2}-\d{2}\b|\b\d{2}[/.]\d{2}[/.]\d{4}\b`)
	reIATAPair  = regexp.MustCompile(`\b[A-Z]{3}\s*[/\-]\s*[A-Z]{3}\b`)
	reFlight    = regexp.MustCompile(`\b[A-Z]{2,3}\s?\d{2,5}\b`)
	docKeywords = []string{"passport", "surname", "given name", "nationality", "boarding", "flight", "gate", "seat", "passenger"}
)

// heuristicConfidence scores how much the text looks like a travel document.
func heuristicConfidence(txt string) float32 {
	score := float32(0.2)
	if reMRZLine.MatchString(txt) {
		score += 0.25
	}
	if reDocDate.MatchString(txt) {
		score += 0.15
	}
	if reIATAPair.MatchString(txt) || reFlight.MatchString(txt) {
		score += 0.15
	}
	lower := strings.ToLower(txt)
	hits := 0
	for _, kw := range docKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	score += min(float32(hits)*0.05, 0.2)
	if len(txt) > 120 {
		score += 0.05
	}
	return min(score, 1.0)
}

// blendConfidence weights the engine score higher when it reported one.
func blendConfidence(engine, heuristic float32) float32 {
	if engine <= 0 {
		return heuristic
	}
	return min(0.7*engine+0.3*heuristic, 1.0)
}
