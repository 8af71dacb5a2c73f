package chunker

import (
	"strings"

	"github.com/gamma-omg/rag-qa/docstore"
)

const (
	DefaultMinTokens    = 800
	DefaultMaxTokens    = 1200
	DefaultOverlapRatio = 0.12
)

// SentenceChunker packs sentences greedily into token-bounded chunks, seeding
// each chunk after the first with a token-budgeted suffix of its predecessor.
// Chunks are never split mid-sentence: the bounds are soft ceilings, and a
// chunk keeps growing past maxTokens until it has at least minTokens.
type SentenceChunker struct {
	minTokens    int
	maxTokens    int
	overlapRatio float64
	counter      TokenCounter
}

func NewSentenceChunker(counter TokenCounter, minTokens, maxTokens int, overlapRatio float64) *SentenceChunker {
	if minTokens <= 0 {
		minTokens = DefaultMinTokens
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlapRatio <= 0 {
		overlapRatio = DefaultOverlapRatio
	}

	return &SentenceChunker{
		minTokens:    minTokens,
		maxTokens:    maxTokens,
		overlapRatio: overlapRatio,
		counter:      counter,
	}
}

// span accumulates the sentences of the chunk being built.
type span struct {
	sentences []string
	tokens    int
}

func (s span) add(sentence string, tokens int) span {
	return span{
		sentences: append(s.sentences, sentence),
		tokens:    s.tokens + tokens,
	}
}

// Chunk splits text into sentence-aligned chunks carrying the given provenance
// metadata verbatim. Positions start at 0 and increase by one per emitted
// chunk; identical input and configuration always produce identical output.
// Empty or whitespace-only text yields no chunks.
func (c *SentenceChunker) Chunk(text, source, title, section string) []docstore.Chunk {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []docstore.Chunk
	var cur span

	for _, sentence := range sentences {
		tokens := c.counter.Count(sentence)
		if len(cur.sentences) > 0 && cur.tokens+tokens > c.maxTokens && cur.tokens >= c.minTokens {
			chunks = append(chunks, c.emit(cur, source, title, section, len(chunks)))
			cur = c.overlap(cur)
		}

		cur = cur.add(sentence, tokens)
	}

	// trailing content is never dropped, even below minTokens
	if len(cur.sentences) > 0 {
		chunks = append(chunks, c.emit(cur, source, title, section, len(chunks)))
	}

	return chunks
}

func (c *SentenceChunker) emit(s span, source, title, section string, position int) docstore.Chunk {
	return docstore.Chunk{
		Text:       strings.Join(s.sentences, " "),
		Source:     source,
		Title:      title,
		Section:    section,
		Position:   position,
		TokenCount: s.tokens,
	}
}

// overlap seeds the next chunk with the longest suffix of the flushed chunk
// whose token count stays within floor(flushedTokens * overlapRatio).
func (c *SentenceChunker) overlap(flushed span) span {
	budget := int(float64(flushed.tokens) * c.overlapRatio)

	total := 0
	cut := len(flushed.sentences)
	for i := len(flushed.sentences) - 1; i >= 0; i-- {
		tokens := c.counter.Count(flushed.sentences[i])
		if total+tokens > budget {
			break
		}

		total += tokens
		cut = i
	}

	return span{
		sentences: append([]string(nil), flushed.sentences[cut:]...),
		tokens:    total,
	}
}
