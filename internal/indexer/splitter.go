package indexer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// SplitterVersion identifies the chunking behaviour recorded in stats.
	SplitterVersion = "recursive-v1"
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the maximum overlap between neighbouring chunks in runes.
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried in order: paragraphs, lines, CJK sentence and
// clause marks, spaces, then single characters.
var DefaultSeparators = []string{"\n\n", "\n", "。", "，", " ", ""}

// Splitter cuts text recursively on the coarsest separator that yields pieces
// under the chunk size, then merges pieces back up to the size with overlap.
// Separators stay attached to the start of the piece that follows them.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// SplitterOption configures a Splitter.
type SplitterOption func(*Splitter)

// WithChunkSize sets the maximum chunk length in runes.
func WithChunkSize(size int) SplitterOption {
	return func(s *Splitter) { s.chunkSize = size }
}

// WithChunkOverlap sets the maximum overlap in runes.
func WithChunkOverlap(overlap int) SplitterOption {
	return func(s *Splitter) { s.overlap = overlap }
}

// WithSeparators replaces the separator list. The last entry should be "".
func WithSeparators(seps ...string) SplitterOption {
	return func(s *Splitter) { s.separators = seps }
}

// NewSplitter creates a Splitter with the defaults, adjusted by opts.
func NewSplitter(opts ...SplitterOption) (*Splitter, error) {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", s.chunkSize)
	}
	if s.overlap < 0 || s.overlap >= s.chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", s.chunkSize, s.overlap)
	}
	if len(s.separators) == 0 {
		return nil, fmt.Errorf("at least one separator is required")
	}
	return s, nil
}

// Split returns the chunks of text in order. Blank input yields no chunks.
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	var chunks []string

	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var good []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if runeLen(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}

	return chunks
}

// merge packs pieces into chunks of at most chunkSize runes. When a chunk is
// emitted, pieces are dropped from its front until at most overlap runes
// remain; those carry into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.chunkSize && len(current) > 0 {
			if chunk := joinChunk(current); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.overlap || (total+n > s.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	if chunk := joinChunk(current); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitKeepSeparator splits on sep and prefixes every piece after the first
// with it. An empty sep splits into single runes. Empty pieces are dropped.
func splitKeepSeparator(text, sep string) []string {
	var parts []string
	if sep == "" {
		parts = make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}

	raw := strings.Split(text, sep)
	parts = make([]string, 0, len(raw))
	for i, p := range raw {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func joinChunk(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
