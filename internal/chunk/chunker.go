package chunk

import (
	"fmt"
	"log/slog"
	"strings"
)

const (
	// Abstracts of this length or shorter produce no technical chunks.
	minAbstractChars = 50
	// Titles of this length or shorter produce no title chunks.
	minTitleChars = 10
	// Title fragments shorter than this are dropped.
	minTitleFragment = 5
	// The context pass uses at most this many abstract characters.
	contextAbstractMax = 1000
	// The context pass keeps at most this many chunks.
	maxContextChunks = 2
)

// Config holds chunker sizing. Sizes and overlaps are in tokens.
type Config struct {
	ChunkSize         int
	ChunkOverlap      int
	TitleChunkSize    int
	TitleChunkOverlap int
	// Length overrides the token length function (tests use rune counts).
	Length LengthFunc
}

// DefaultConfig returns the production chunk sizing.
func DefaultConfig() Config {
	return Config{
		ChunkSize:         400,
		ChunkOverlap:      40,
		TitleChunkSize:    100,
		TitleChunkOverlap: 20,
	}
}

// Chunker turns an award's text fields into chunks via three passes:
// abstract (technical), title, and title+abstract context. All passes
// share one chunk index counter per award, assigned in pass order.
type Chunker struct {
	body   *Splitter
	title  *Splitter
	length LengthFunc
	logger *slog.Logger
}

// New creates a Chunker. Overlap >= size in either splitter is a
// construction error.
func New(cfg Config) (*Chunker, error) {
	if cfg.ChunkSize == 0 {
		cfg = applyDefaults(cfg)
	}
	length := cfg.Length
	if length == nil {
		length = TokenCounter()
	}

	body, err := NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap, WithLengthFunc(length))
	if err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}
	title, err := NewSplitter(cfg.TitleChunkSize, cfg.TitleChunkOverlap, WithLengthFunc(length))
	if err != nil {
		return nil, fmt.Errorf("chunker: title splitter: %w", err)
	}

	return &Chunker{
		body:   body,
		title:  title,
		length: length,
		logger: slog.Default(),
	}, nil
}

func applyDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = def.ChunkSize
		cfg.ChunkOverlap = def.ChunkOverlap
	}
	if cfg.TitleChunkSize == 0 {
		cfg.TitleChunkSize = def.TitleChunkSize
		cfg.TitleChunkOverlap = def.TitleChunkOverlap
	}
	return cfg
}

// ChunkText splits one field's text into chunks. Empty input yields an
// empty list with a warning, never an error.
func (c *Chunker) ChunkText(awardID, text, fieldName string) []Chunk {
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("chunking empty text",
			slog.String("award_id", awardID),
			slog.String("field", fieldName))
		return nil
	}

	splitter := c.body
	contentType := ContentTechnical
	switch fieldName {
	case FieldTitle:
		splitter = c.title
		contentType = ContentTitle
	case FieldContext:
		contentType = ContentContext
	}

	idx := 0
	var chunks []Chunk
	for _, span := range splitter.Split(text) {
		chunks = append(chunks, c.newChunk(awardID, &idx, span, fieldName, contentType))
	}
	return chunks
}

// ChunkAward runs the three chunking passes over one award. The fields
// argument restricts which passes run; empty means all. Chunk indexes
// are unique per award and assigned in pass order, not reset per field.
func (c *Chunker) ChunkAward(awardID, title, abstract string, fields ...string) []Chunk {
	want := func(field string) bool {
		if len(fields) == 0 {
			return true
		}
		for _, f := range fields {
			if f == field {
				return true
			}
		}
		return false
	}

	title = strings.TrimSpace(title)
	abstract = strings.TrimSpace(abstract)

	idx := 0
	var chunks []Chunk

	// Technical pass: the abstract at full chunk size.
	if want(FieldAbstract) && len(abstract) > minAbstractChars {
		for _, span := range c.body.Split(abstract) {
			chunks = append(chunks, c.newChunk(awardID, &idx, span, FieldAbstract, ContentTechnical))
		}
	}

	// Title pass: small chunks, short fragments dropped.
	if want(FieldTitle) && len(title) > minTitleChars {
		for _, span := range c.title.Split(title) {
			if len(span) < minTitleFragment {
				continue
			}
			chunks = append(chunks, c.newChunk(awardID, &idx, span, FieldTitle, ContentTitle))
		}
	}

	// Context pass: title plus leading abstract, first chunks only.
	if want(FieldContext) && title != "" && abstract != "" {
		context := fmt.Sprintf("%s. %s", title, headRunes(abstract, contextAbstractMax))
		spans := c.body.Split(context)
		if len(spans) > maxContextChunks {
			spans = spans[:maxContextChunks]
		}
		for _, span := range spans {
			chunks = append(chunks, c.newChunk(awardID, &idx, span, FieldContext, ContentContext))
		}
	}

	return chunks
}

func (c *Chunker) newChunk(awardID string, idx *int, text, fieldName, contentType string) Chunk {
	ch := Chunk{
		AwardID:     awardID,
		ChunkIndex:  *idx,
		Text:        text,
		TokenCount:  c.length(text),
		FieldName:   fieldName,
		ContentType: contentType,
		TextHash:    HashText(text),
	}
	*idx++
	return ch
}

func headRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
