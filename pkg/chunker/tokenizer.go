package chunker

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter reports how many model tokens a text consumes. The chunker
// only needs counting; it never decodes tokens back to text.
type TokenCounter interface {
	Count(text string) int
}

// ApproxCounter estimates token counts as ceil(runes/4), the usual BPE
// rule of thumb. It is the fallback when the tiktoken dictionary cannot be
// loaded and the deterministic counter used in tests.
type ApproxCounter struct{}

func (ApproxCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// TiktokenCounter counts tokens with a tiktoken encoding, initialized
// lazily since the first use may download the BPE dictionary. On init
// failure it logs once and degrades to ApproxCounter.
type TiktokenCounter struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
}

// NewTiktokenCounter returns a counter for the given encoding name,
// defaulting to cl100k_base.
func NewTiktokenCounter(encoding string) *TiktokenCounter {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	return &TiktokenCounter{encoding: encoding}
}

func (t *TiktokenCounter) Count(text string) int {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			slog.Warn("tiktoken init failed, using approximate token counts",
				"encoding", t.encoding, "error", err)
			return
		}
		t.enc = enc
	})
	if t.enc == nil {
		return ApproxCounter{}.Count(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}
