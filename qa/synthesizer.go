package qa

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// NoAnswer is the fixed response when no context supports an answer.
const NoAnswer = "No relevant information found in the provided documents."

const excerptLen = 300

var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

const groundingPrompt = `You are a retrieval-grounded assistant.

STRICT RULES:
1. Use ONLY the provided chunks as evidence.
2. Do NOT copy references, citations, or bracketed numbers that appear inside the source text. The ONLY allowed citations are chunk numbers you add yourself: [1], [2], [3], etc.
3. When you use information from chunk i, cite it ONLY as [i].
4. If multiple chunks support a sentence, use multiple citations like [1][2].
5. Paraphrase where possible; do not quote long passages verbatim.
6. If the answer is not contained in or related to the chunks, say exactly:
"` + NoAnswer + `"`

// Synthesizer turns reranked chunks into a cited answer. The 1-based index it
// renders in front of each context block is the only link between a citation
// marker in the generated text and chunk provenance, so every parsed marker is
// validated against that index before it becomes a Citation.
type Synthesizer struct {
	gen Generator
}

func NewSynthesizer(gen Generator) *Synthesizer {
	return &Synthesizer{gen: gen}
}

// Synthesize answers the query from the given chunks. An empty chunk sequence
// short-circuits to the fixed no-answer result without calling the generator.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, chunks []RerankedChunk) (Result, error) {
	if len(chunks) == 0 {
		return Result{
			Answer:    NoAnswer,
			Citations: []Citation{},
			Sources:   []Source{},
		}, nil
	}

	answer, err := s.gen.Generate(ctx, groundingPrompt, userPrompt(query, chunks))
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate answer: %w", err)
	}

	citations := extractCitations(answer, chunks)

	return Result{
		Answer:    answer,
		Citations: citations,
		Sources:   dedupSources(citations),
	}, nil
}

func userPrompt(query string, chunks []RerankedChunk) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, c.Text)
	}
	fmt.Fprintf(&b, "\n\nQuestion: %s\n\nAnswer concisely with inline citations.", query)

	return b.String()
}

// extractCitations parses the generator's output as untrusted text: distinct
// bracketed integers, ascending, and only those with a matching context block.
// Anything else is silently dropped.
func extractCitations(answer string, chunks []RerankedChunk) []Citation {
	seen := make(map[int]struct{})
	var numbers []int
	for _, m := range citationMarker.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}

		seen[n] = struct{}{}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	citations := make([]Citation, 0, len(numbers))
	for _, n := range numbers {
		if n < 1 || n > len(chunks) {
			continue
		}

		chunk := chunks[n-1]
		citations = append(citations, Citation{
			Number:   n,
			Source:   chunk.Source,
			Section:  chunk.Section,
			Position: chunk.Position,
			Excerpt:  excerpt(chunk.Text),
		})
	}

	return citations
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) > excerptLen {
		runes = runes[:excerptLen]
	}

	return strings.TrimSpace(string(runes)) + "..."
}

// dedupSources keeps the first occurrence of each chunk address, in citation order.
func dedupSources(citations []Citation) []Source {
	sources := make([]Source, 0, len(citations))
	seen := make(map[Source]struct{})
	for _, c := range citations {
		src := Source{Source: c.Source, Section: c.Section, Position: c.Position}
		if _, ok := seen[src]; ok {
			continue
		}

		seen[src] = struct{}{}
		sources = append(sources, src)
	}

	return sources
}
