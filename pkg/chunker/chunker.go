// Package chunker splits document text into ordered, token-bounded passages
// with stable identifiers. Splitting prefers paragraph and sentence
// boundaries, falling back to hard cuts only when a single sentence exceeds
// the budget. Output is deterministic for a fixed configuration, covers all
// of the source text, never contains an empty chunk, and never splits a
// multi-byte character.
package chunker

import (
	"errors"
	"strings"
	"unicode"

	"github.com/graphein/graphein/pkg/types"
)

// Config bounds chunk size and the overlap carried between adjacent chunks,
// both in tokens.
type Config struct {
	MaxTokens     int
	OverlapTokens int
}

// Configuration errors
var (
	ErrInvalidMaxTokens = errors.New("max tokens must be positive")
	ErrOverlapTooLarge  = errors.New("overlap tokens must be smaller than max tokens")
)

// Chunker turns documents into chunks.
type Chunker struct {
	cfg     Config
	counter TokenCounter
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithTokenCounter overrides the default tiktoken-backed counter.
func WithTokenCounter(counter TokenCounter) Option {
	return func(c *Chunker) {
		if counter != nil {
			c.counter = counter
		}
	}
}

// New creates a Chunker. The default token counter uses the cl100k_base
// tiktoken encoding.
func New(cfg Config, opts ...Option) (*Chunker, error) {
	if cfg.MaxTokens <= 0 {
		return nil, ErrInvalidMaxTokens
	}
	if cfg.OverlapTokens < 0 || cfg.OverlapTokens >= cfg.MaxTokens {
		return nil, ErrOverlapTooLarge
	}
	c := &Chunker{cfg: cfg, counter: NewTiktokenCounter("")}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Chunk splits a document into ordered chunks. Chunk IDs derive from the
// document ID and ordinal, so re-chunking identical content yields identical
// chunks.
func (c *Chunker) Chunk(doc *types.Document) ([]*types.Chunk, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	segments := c.segment(doc.Content)

	var chunks []*types.Chunk
	var current []segment
	currentTokens := 0

	flush := func(seedOverlap bool) {
		if len(current) == 0 {
			return
		}
		var b strings.Builder
		for _, seg := range current {
			b.WriteString(seg.text)
		}
		text := b.String()
		if strings.TrimSpace(text) == "" {
			// Whitespace-only runs fold into the previous chunk so
			// coverage stays complete without emitting empty chunks.
			if n := len(chunks); n > 0 {
				chunks[n-1].Text += text
			}
			current = current[:0]
			currentTokens = 0
			return
		}
		ordinal := len(chunks)
		chunks = append(chunks, &types.Chunk{
			ID:         types.ChunkID(doc.ID, ordinal),
			DocumentID: doc.ID,
			Ordinal:    ordinal,
			Text:       text,
			TokenCount: currentTokens,
		})

		// Seed the next chunk with trailing segments up to the overlap
		// budget.
		if seedOverlap && c.cfg.OverlapTokens > 0 {
			var carry []segment
			carried := 0
			for i := len(current) - 1; i >= 0; i-- {
				if carried+current[i].tokens > c.cfg.OverlapTokens {
					break
				}
				carried += current[i].tokens
				carry = append([]segment{current[i]}, carry...)
			}
			current = carry
			currentTokens = carried
		} else {
			current = current[:0]
			currentTokens = 0
		}
	}

	for _, seg := range segments {
		if currentTokens > 0 && currentTokens+seg.tokens > c.cfg.MaxTokens {
			flush(true)
		}
		current = append(current, seg)
		currentTokens += seg.tokens
	}
	// The final chunk does not seed another.
	flush(false)

	return chunks, nil
}

// segment is a piece of source text small enough to pack into chunks.
type segment struct {
	text   string
	tokens int
}

// segment cuts text at paragraph boundaries, then sentences, then hard
// rune-boundary cuts, so that concatenating the returned segments in order
// reproduces the input exactly.
func (c *Chunker) segment(text string) []segment {
	var out []segment
	for _, para := range splitAfterParagraphs(text) {
		for _, sent := range splitAfterSentences(para) {
			tokens := c.counter.Count(sent)
			if tokens <= c.cfg.MaxTokens {
				out = append(out, segment{text: sent, tokens: tokens})
				continue
			}
			out = append(out, c.hardSplit(sent)...)
		}
	}
	return out
}

// hardSplit cuts an oversized sentence at whitespace where possible and at
// rune boundaries otherwise.
func (c *Chunker) hardSplit(text string) []segment {
	var out []segment
	var b strings.Builder
	tokens := 0
	for _, word := range splitAfterSpaces(text) {
		wt := c.counter.Count(word)
		if wt > c.cfg.MaxTokens {
			// A single unbreakable run longer than the budget: cut by
			// runes into windows that fit.
			if b.Len() > 0 {
				out = append(out, segment{text: b.String(), tokens: tokens})
				b.Reset()
				tokens = 0
			}
			out = append(out, c.splitRunes(word)...)
			continue
		}
		if tokens > 0 && tokens+wt > c.cfg.MaxTokens {
			out = append(out, segment{text: b.String(), tokens: tokens})
			b.Reset()
			tokens = 0
		}
		b.WriteString(word)
		tokens += wt
	}
	if b.Len() > 0 {
		out = append(out, segment{text: b.String(), tokens: tokens})
	}
	return out
}

func (c *Chunker) splitRunes(text string) []segment {
	var out []segment
	runes := []rune(text)
	// Conservative window: assume one token per rune at worst.
	window := c.cfg.MaxTokens
	for start := 0; start < len(runes); start += window {
		end := start + window
		if end > len(runes) {
			end = len(runes)
		}
		piece := string(runes[start:end])
		out = append(out, segment{text: piece, tokens: c.counter.Count(piece)})
	}
	return out
}

// splitAfterParagraphs splits after each blank-line run, keeping the run
// attached to the preceding paragraph.
func splitAfterParagraphs(text string) []string {
	var out []string
	start := 0
	i := 0
	for i < len(text) {
		if text[i] == '\n' && i+1 < len(text) && text[i+1] == '\n' {
			j := i
			for j < len(text) && text[j] == '\n' {
				j++
			}
			out = append(out, text[start:j])
			start = j
			i = j
			continue
		}
		i++
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// splitAfterSentences splits after sentence terminators followed by
// whitespace, keeping terminator and whitespace attached to the sentence.
func splitAfterSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	i := 0
	for i < len(runes) {
		r := runes[i]
		if r == '.' || r == '!' || r == '?' {
			j := i + 1
			for j < len(runes) && (runes[j] == '.' || runes[j] == '!' || runes[j] == '?') {
				j++
			}
			if j < len(runes) && unicode.IsSpace(runes[j]) {
				for j < len(runes) && unicode.IsSpace(runes[j]) {
					j++
				}
				out = append(out, string(runes[start:j]))
				start = j
				i = j
				continue
			}
			i = j
			continue
		}
		i++
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

// splitAfterSpaces splits after each whitespace run, keeping the run
// attached to the preceding word.
func splitAfterSpaces(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	i := 0
	for i < len(runes) {
		if unicode.IsSpace(runes[i]) {
			j := i
			for j < len(runes) && unicode.IsSpace(runes[j]) {
				j++
			}
			out = append(out, string(runes[start:j]))
			start = j
			i = j
			continue
		}
		i++
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}
