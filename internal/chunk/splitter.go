package chunk

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// defaultSeparators is the split priority: paragraph breaks, then
// lines, then sentence boundaries, then spaces, then raw characters.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter divides text into spans of at most size tokens, with
// adjacent spans overlapping by roughly overlap tokens. Splitting
// recurses through the separator priority list: a piece that fits is
// kept, an oversized piece is re-split on the next finer separator.
type Splitter struct {
	size       int
	overlap    int
	separators []string
	length     LengthFunc
}

// SplitterOption customizes a Splitter.
type SplitterOption func(*Splitter)

// WithSeparators overrides the separator priority list.
func WithSeparators(seps []string) SplitterOption {
	return func(s *Splitter) { s.separators = seps }
}

// WithLengthFunc overrides the token length function. Tests use rune
// counts for determinism.
func WithLengthFunc(fn LengthFunc) SplitterOption {
	return func(s *Splitter) { s.length = fn }
}

// NewSplitter creates a Splitter. Overlap must be smaller than size;
// violating that is a configuration error caught here, never at split
// time.
func NewSplitter(size, overlap int, opts ...SplitterOption) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk: size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk: overlap must be non-negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk: overlap (%d) must be less than size (%d)", overlap, size)
	}

	s := &Splitter{
		size:       size,
		overlap:    overlap,
		separators: defaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.length == nil {
		s.length = TokenCounter()
	}
	return s, nil
}

// Split divides text into overlapping spans. Blank input yields nil.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, seps []string) []string {
	sep := ""
	var rest []string
	for i, cand := range seps {
		if cand == "" {
			sep = ""
			rest = nil
			break
		}
		if strings.Contains(text, cand) {
			sep = cand
			rest = seps[i+1:]
			break
		}
	}

	parts := splitKeep(text, sep)

	var out []string
	var pending []string
	for _, p := range parts {
		if s.length(p) < s.size {
			pending = append(pending, p)
			continue
		}
		if len(pending) > 0 {
			out = append(out, s.merge(pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			// No finer separator left. Keep the oversized piece.
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
			continue
		}
		out = append(out, s.split(p, rest)...)
	}
	if len(pending) > 0 {
		out = append(out, s.merge(pending)...)
	}
	return out
}

// merge packs consecutive pieces into spans of at most size tokens,
// then slides the window forward keeping at most overlap tokens of
// trailing context in the next span.
func (s *Splitter) merge(parts []string) []string {
	var docs []string
	var window []string
	total := 0

	for _, p := range parts {
		pl := s.length(p)
		if total+pl > s.size && len(window) > 0 {
			if doc := strings.TrimSpace(strings.Join(window, "")); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.overlap || (total+pl > s.size && total > 0) {
				total -= s.length(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += pl
	}
	if doc := strings.TrimSpace(strings.Join(window, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeep splits text on sep, keeping the separator attached to the
// preceding piece so joins reconstruct the original text. An empty
// separator splits into individual characters.
func splitKeep(text, sep string) []string {
	if sep == "" {
		parts := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}
	raw := strings.SplitAfter(text, sep)
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
