// Package chunker splits a document's plain text into word-bounded chunks
// that are reviewed independently.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Config controls chunk sizes, measured in words.
type Config struct {
	TargetWords int // Close a chunk once it reaches this many words.
	MinWords    int // Never close a chunk below this many words.
	MaxWords    int // Upper bound when merging trailing leftovers.
}

// DefaultConfig returns the sizes used by the editor.
func DefaultConfig() Config {
	return Config{
		TargetWords: 300,
		MinWords:    150,
		MaxWords:    400,
	}
}

// Chunk is a contiguous run of words from the source text.
// Start and End are byte offsets, not rune offsets, into the text the chunk
// was built from; Text is the chunk's words joined by single spaces.
type Chunk struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
}

// span locates one word in the source text.
type span struct {
	start, end int
}

// Build splits text using DefaultConfig.
func Build(text string) []Chunk {
	return BuildWithConfig(text, DefaultConfig())
}

// BuildWithConfig splits text into chunks. Blank input yields nil.
func BuildWithConfig(text string, cfg Config) []Chunk {
	cfg = normalize(cfg)

	words := scanWords(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []Chunk
	first := 0 // index into words of the current chunk's first word

	for i := range words {
		count := i - first + 1
		word := text[words[i].start:words[i].end]

		closeNow := count >= cfg.TargetWords ||
			(count >= cfg.MinWords && IsSentenceEnd(word)) ||
			i == len(words)-1

		if closeNow && count >= cfg.MinWords {
			chunks = append(chunks, newChunk(text, words[first:i+1], len(chunks)))
			first = i + 1
		}
	}

	// Leftovers: the document ended before the open chunk reached MinWords.
	if first < len(words) {
		rest := words[first:]
		if n := len(chunks); n > 0 && chunks[n-1].WordCount+len(rest) <= cfg.MaxWords {
			last := &chunks[n-1]
			last.Text += " " + joinWords(text, rest)
			last.WordCount += len(rest)
			last.End = rest[len(rest)-1].end
		} else {
			chunks = append(chunks, newChunk(text, rest, len(chunks)))
		}
	}

	return chunks
}

// IsSentenceEnd reports whether word ends in '.', '!' or '?'.
func IsSentenceEnd(word string) bool {
	if word == "" {
		return false
	}
	switch word[len(word)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// Find returns the chunk with the given index.
func Find(chunks []Chunk, index int) (Chunk, bool) {
	for _, c := range chunks {
		if c.Index == index {
			return c, true
		}
	}
	return Chunk{}, false
}

// Splice replaces the chunk's span in text with replacement. Offsets that
// fall outside text are clamped.
func Splice(text string, c Chunk, replacement string) string {
	start := clamp(c.Start, 0, len(text))
	end := clamp(c.End, start, len(text))
	return text[:start] + replacement + text[end:]
}

func newChunk(text string, words []span, index int) Chunk {
	return Chunk{
		Index:     index,
		Text:      joinWords(text, words),
		WordCount: len(words),
		Start:     words[0].start,
		End:       words[len(words)-1].end,
	}
}

func joinWords(text string, words []span) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text[w.start:w.end])
	}
	return b.String()
}

// scanWords returns the byte span of every whitespace-separated word.
func scanWords(text string) []span {
	var words []span
	start := -1
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, span{start, i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
		i += size
	}
	if start >= 0 {
		words = append(words, span{start, len(text)})
	}
	return words
}

func normalize(cfg Config) Config {
	def := DefaultConfig()
	if cfg.TargetWords <= 0 {
		cfg.TargetWords = def.TargetWords
	}
	if cfg.MinWords <= 0 {
		cfg.MinWords = def.MinWords
	}
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = def.MaxWords
	}
	if cfg.MinWords > cfg.TargetWords {
		cfg.MinWords = cfg.TargetWords
	}
	if cfg.MaxWords < cfg.TargetWords {
		cfg.MaxWords = cfg.TargetWords
	}
	return cfg
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
