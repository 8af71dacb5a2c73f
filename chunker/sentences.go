package chunker

import (
	"regexp"
	"strings"
)

var sentenceEnd = regexp.MustCompile(`([.!?]+)\s+`)

// SplitSentences splits text into trimmed sentences, keeping terminal
// punctuation runs attached to the preceding sentence. Text without any
// sentence-ending punctuation comes back as a single sentence.
func SplitSentences(text string) []string {
	var sentences []string
	last := 0

	for _, m := range sentenceEnd.FindAllStringSubmatchIndex(text, -1) {
		s := strings.TrimSpace(text[last:m[3]])
		if s != "" {
			sentences = append(sentences, s)
		}
		last = m[1]
	}

	if tail := strings.TrimSpace(text[last:]); tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}
