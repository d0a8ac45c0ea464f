package llm

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// RunesPerToken approximates token counts when no BPE encoding is available.
const RunesPerToken = 4.0

// TokenCounter counts tokens with the cl100k_base encoding used by
// gpt-3.5/gpt-4 class models. Loading the encoding may need network access to
// fetch the BPE ranks; when it fails the counter degrades to a rune estimate.
type TokenCounter struct {
	model string
	once  sync.Once
	enc   *tiktoken.Tiktoken
}

// NewTokenCounter creates a counter for the given model name.
func NewTokenCounter(model string) *TokenCounter {
	return &TokenCounter{model: model}
}

func (c *TokenCounter) encoding() *tiktoken.Tiktoken {
	c.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
		}
		if err != nil {
			slog.Debug("tiktoken encoding unavailable, estimating tokens", "model", c.model, "error", err)
			return
		}
		c.enc = enc
	})
	return c.enc
}

// Count returns the number of tokens in text.
func (c *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c != nil {
		if enc := c.encoding(); enc != nil {
			return len(enc.Encode(text, nil, nil))
		}
	}
	return EstimateTokens(text)
}

// EstimateTokens approximates the token count from the rune count.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	est := int(float64(n)/RunesPerToken + 0.5)
	if est == 0 {
		est = 1
	}
	return est
}
