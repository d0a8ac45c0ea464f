package indexer

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewSplitter_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    []SplitterOption
		wantErr bool
	}{
		{name: "defaults", opts: nil, wantErr: false},
		{name: "zero size", opts: []SplitterOption{WithChunkSize(0)}, wantErr: true},
		{name: "negative overlap", opts: []SplitterOption{WithChunkOverlap(-1)}, wantErr: true},
		{name: "overlap equals size", opts: []SplitterOption{WithChunkSize(10), WithChunkOverlap(10)}, wantErr: true},
		{name: "no separators", opts: []SplitterOption{WithSeparators()}, wantErr: true},
		{name: "custom", opts: []SplitterOption{WithChunkSize(10), WithChunkOverlap(2), WithSeparators(" ", "")}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSplitter() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitter_Split_Small(t *testing.T) {
	tests := []struct {
		name string
		opts []SplitterOption
		text string
		want []string
	}{
		{
			name: "blank",
			text: "   ",
			want: nil,
		},
		{
			name: "fits in one chunk",
			text: "  entropy always increases  ",
			want: []string{"entropy always increases"},
		},
		{
			name: "words with overlap",
			opts: []SplitterOption{WithChunkSize(10), WithChunkOverlap(4)},
			text: "aaa bbb ccc ddd eee",
			want: []string{"aaa bbb", "bbb ccc", "ccc ddd", "ddd eee"},
		},
		{
			name: "long word falls back to characters",
			opts: []SplitterOption{WithChunkSize(4), WithChunkOverlap(1)},
			text: "abcdefghij",
			want: []string{"abcd", "defg", "ghij"},
		},
		{
			name: "cjk sentence mark keeps separator in front",
			opts: []SplitterOption{WithChunkSize(6), WithChunkOverlap(0)},
			text: "熱力學定律。熵會增加。能量守恆",
			want: []string{"熱力學定律", "。熵會增加", "。能量守恆"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSplitter(tt.opts...)
			if err != nil {
				t.Fatalf("NewSplitter() error = %v", err)
			}
			got := s.Split(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitter_Split_Bounds(t *testing.T) {
	s, err := NewSplitter()
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}

	// every word is distinct so shared text between chunks is the real overlap
	var latin, cjk strings.Builder
	for i := 0; i < 800; i++ {
		fmt.Fprintf(&latin, "w%d ", i)
	}
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&cjk, "第%d條定律說明熵不會減少，", i)
	}
	inputs := map[string]string{
		"latin": latin.String(),
		"cjk":   cjk.String(),
	}

	for name, text := range inputs {
		t.Run(name, func(t *testing.T) {
			chunks := s.Split(text)
			if len(chunks) < 2 {
				t.Fatalf("Split() returned %d chunks, want several", len(chunks))
			}
			for i, c := range chunks {
				if n := utf8.RuneCountInString(c); n > DefaultChunkSize {
					t.Errorf("chunk %d has %d runes, want <= %d", i, n, DefaultChunkSize)
				}
				if c == "" {
					t.Errorf("chunk %d is empty", i)
				}
			}
			for i := 1; i < len(chunks); i++ {
				ov := overlapRunes(chunks[i-1], chunks[i])
				if ov == 0 {
					t.Errorf("chunks %d and %d share no text", i-1, i)
				}
				if ov > DefaultChunkOverlap {
					t.Errorf("chunks %d and %d overlap by %d runes, want <= %d", i-1, i, ov, DefaultChunkOverlap)
				}
			}
		})
	}
}

func TestSplitter_Split_PrefersCoarseSeparators(t *testing.T) {
	s, err := NewSplitter(WithChunkSize(30), WithChunkOverlap(0))
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}

	text := "first paragraph about heat\n\nsecond paragraph about work"
	got := s.Split(text)
	want := []string{"first paragraph about heat", "second paragraph about work"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split() = %q, want %q", got, want)
	}
}

// overlapRunes returns the length of the longest suffix of a that is a prefix of b.
func overlapRunes(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	for n := min(len(ra), len(rb)); n > 0; n-- {
		if string(ra[len(ra)-n:]) == string(rb[:n]) {
			return n
		}
	}
	return 0
}
