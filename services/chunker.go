package services

import (
	"regexp"
	"strings"
)

// Chunker splits extracted text into ordered, overlapping segments, the
// retrieval unit for everything downstream. Splits prefer paragraph
// boundaries, then sentences, then words; hard cuts are the last resort.
type Chunker struct {
	maxChunkSize   int
	overlap        int
	minChunkSize   int
	sentenceRegex  *regexp.Regexp
	paragraphRegex *regexp.Regexp
}

// NewChunker creates a chunker. overlap must be smaller than maxChunkSize.
func NewChunker(maxChunkSize, overlap, minChunkSize int) *Chunker {
	return &Chunker{
		maxChunkSize:   maxChunkSize,
		overlap:        overlap,
		minChunkSize:   minChunkSize,
		sentenceRegex:  regexp.MustCompile(`[.!?]+[\s]+`),
		paragraphRegex: regexp.MustCompile(`\n\n+`),
	}
}

// Piece is one chunk of source text with basic counts.
type Piece struct {
	Content   string
	CharCount int
	WordCount int
}

// Split chunks text with boundary awareness. Empty or whitespace-only input
// yields zero pieces.
func (c *Chunker) Split(text string) []Piece {
	paragraphs := filterEmpty(c.paragraphRegex.Split(text, -1))
	if len(paragraphs) == 0 {
		return nil
	}

	var pieces []Piece
	current := new(strings.Builder)
	seedLen := 0 // carried-over overlap, never flushed on its own

	flush := func() {
		if current.Len() <= seedLen {
			return
		}
		content := current.String()
		pieces = append(pieces, Piece{
			Content:   content,
			CharCount: len(content),
			WordCount: len(strings.Fields(content)),
		})

		// Seed the next chunk with the tail of this one
		current = new(strings.Builder)
		if c.overlap > 0 {
			current.WriteString(c.overlapTail(content))
		}
		seedLen = current.Len()
	}

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		// Oversized paragraphs are split on sentence/word boundaries first
		for _, segment := range c.splitOversized(paragraph) {
			if current.Len()+len(segment) > c.maxChunkSize && current.Len() >= c.minChunkSize {
				flush()
			}
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(segment)
		}
	}

	if current.Len() > seedLen {
		content := current.String()
		pieces = append(pieces, Piece{
			Content:   content,
			CharCount: len(content),
			WordCount: len(strings.Fields(content)),
		})
	}

	return pieces
}

// splitOversized breaks a paragraph that alone exceeds maxChunkSize into
// sentence groups, falling back to word packing for run-on sentences.
func (c *Chunker) splitOversized(paragraph string) []string {
	if len(paragraph) <= c.maxChunkSize {
		return []string{paragraph}
	}

	sentences := filterEmpty(c.sentenceRegex.Split(paragraph, -1))
	if len(sentences) <= 1 {
		return c.packWords(paragraph)
	}

	var segments []string
	builder := new(strings.Builder)
	for _, sentence := range sentences {
		if len(sentence) > c.maxChunkSize {
			if builder.Len() > 0 {
				segments = append(segments, builder.String())
				builder = new(strings.Builder)
			}
			segments = append(segments, c.packWords(sentence)...)
			continue
		}
		if builder.Len()+len(sentence) > c.maxChunkSize && builder.Len() > 0 {
			segments = append(segments, builder.String())
			builder = new(strings.Builder)
		}
		if builder.Len() > 0 {
			builder.WriteString(". ")
		}
		builder.WriteString(sentence)
	}
	if builder.Len() > 0 {
		segments = append(segments, builder.String())
	}
	return segments
}

// packWords packs words into maxChunkSize-bounded segments; a single word
// longer than the limit gets a hard cut.
func (c *Chunker) packWords(text string) []string {
	words := strings.Fields(text)
	var segments []string
	builder := new(strings.Builder)
	for _, word := range words {
		for len(word) > c.maxChunkSize {
			if builder.Len() > 0 {
				segments = append(segments, builder.String())
				builder = new(strings.Builder)
			}
			segments = append(segments, word[:c.maxChunkSize])
			word = word[c.maxChunkSize:]
		}
		if builder.Len()+len(word)+1 > c.maxChunkSize && builder.Len() > 0 {
			segments = append(segments, builder.String())
			builder = new(strings.Builder)
		}
		if builder.Len() > 0 {
			builder.WriteString(" ")
		}
		builder.WriteString(word)
	}
	if builder.Len() > 0 {
		segments = append(segments, builder.String())
	}
	return segments
}

// overlapTail extracts roughly overlap characters from the end of a chunk,
// snapped to a sentence start when one fits, else to a word start.
func (c *Chunker) overlapTail(text string) string {
	if len(text) <= c.overlap {
		return text
	}

	tail := text[len(text)-c.overlap:]

	// Prefer starting at a sentence boundary inside the tail
	if loc := c.sentenceRegex.FindStringIndex(tail); loc != nil && loc[1] < len(tail) {
		return tail[loc[1]:]
	}

	// Otherwise snap to the next word start
	if idx := strings.IndexAny(tail, " \t\n"); idx >= 0 && idx+1 < len(tail) {
		return strings.TrimSpace(tail[idx+1:])
	}
	return tail
}

// filterEmpty removes empty strings from slice
func filterEmpty(slice []string) []string {
	result := make([]string, 0, len(slice))
	for _, s := range slice {
		if len(strings.TrimSpace(s)) > 0 {
			result = append(result, s)
		}
	}
	return result
}
