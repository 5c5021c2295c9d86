package chunk

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// LengthFunc measures text length for chunk sizing.
type LengthFunc func(string) int

var (
	tokenizerOnce sync.Once
	tokenizerFn   LengthFunc
)

// TokenCounter returns a LengthFunc backed by the cl100k_base BPE
// encoding, matching the embedding model's vocabulary. When the
// encoding cannot be loaded the rune count is used instead; the
// fallback changes effective chunk sizes, so it is logged once.
func TokenCounter() LengthFunc {
	tokenizerOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			slog.Warn("BPE tokenizer unavailable, falling back to character counts",
				slog.String("encoding", "cl100k_base"),
				slog.String("error", err.Error()))
			tokenizerFn = runeCount
			return
		}
		tokenizerFn = func(text string) int {
			return len(enc.Encode(text, nil, nil))
		}
	})
	return tokenizerFn
}

func runeCount(text string) int {
	return utf8.RuneCountInString(text)
}
