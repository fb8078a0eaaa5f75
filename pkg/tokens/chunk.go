package tokens

import (
	"strings"
	"unicode"
)

type Chunk struct {
	Text      string
	TokenSize int
	Index     int
}

type ChunkerConfig struct {
	MaxTokens     int
	OverlapTokens int
}

// DocumentChunkerConfig keeps knowledge documents small enough that a few of
// them fit in a reply prompt next to the conversation history.
func DocumentChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		MaxTokens:     350,
		OverlapTokens: 40,
	}
}

// ChunkText splits text on sentence boundaries into chunks of at most
// cfg.MaxTokens, repeating roughly cfg.OverlapTokens of trailing context at the
// start of each new chunk.
func ChunkText(text string, cfg ChunkerConfig) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)

	var chunks []Chunk
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Text:      strings.TrimSpace(current.String()),
			TokenSize: currentTokens,
			Index:     len(chunks),
		})
		current.Reset()
		currentTokens = 0
	}

	for i, sentence := range sentences {
		sentenceTokens := Count(sentence)

		if sentenceTokens > cfg.MaxTokens {
			flush()
			for _, part := range splitLong(sentence, cfg.MaxTokens) {
				chunks = append(chunks, Chunk{
					Text:      strings.TrimSpace(part),
					TokenSize: Count(part),
					Index:     len(chunks),
				})
			}
			continue
		}

		if currentTokens+sentenceTokens > cfg.MaxTokens && current.Len() > 0 {
			flush()
			overlap := overlapBefore(sentences, i, cfg.OverlapTokens)
			current.WriteString(overlap)
			currentTokens = Count(overlap)
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
		currentTokens += sentenceTokens
	}
	flush()

	return chunks
}

// splitLong cuts an oversized sentence by token windows, or by words when the
// encoding is unavailable.
func splitLong(text string, maxTokens int) []string {
	enc, err := tokenizer()
	if err != nil {
		return splitWords(text, maxTokens)
	}
	ids := enc.Encode(text, nil, nil)
	var parts []string
	for i := 0; i < len(ids); i += maxTokens {
		end := min(i+maxTokens, len(ids))
		parts = append(parts, enc.Decode(ids[i:end]))
	}
	return parts
}

func splitWords(text string, maxTokens int) []string {
	words := strings.Fields(text)
	var parts []string
	var cur []string
	for _, w := range words {
		cur = append(cur, w)
		if Count(strings.Join(cur, " ")) >= maxTokens {
			parts = append(parts, strings.Join(cur, " "))
			cur = nil
		}
	}
	if len(cur) > 0 {
		parts = append(parts, strings.Join(cur, " "))
	}
	return parts
}

var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true, '．': true, '…': true,
}

func splitSentences(text string) []string {
	var sentences []string

	for _, para := range splitParagraphs(text) {
		var current strings.Builder
		runes := []rune(para)

		for i, r := range runes {
			current.WriteRune(r)
			if !sentenceEnders[r] {
				continue
			}
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) || isCJK(runes[i+1]) {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}

		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
	}

	if len(sentences) == 0 {
		return []string{text}
	}
	return sentences
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var result []string
	for _, p := range strings.Split(text, "\n\n") {
		// soft wraps inside a paragraph
		p = strings.TrimSpace(strings.ReplaceAll(p, "\n", " "))
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func overlapBefore(sentences []string, idx int, target int) string {
	if idx == 0 || target <= 0 {
		return ""
	}
	var overlap []string
	used := 0
	for i := idx - 1; i >= 0 && used < target; i-- {
		overlap = append([]string{sentences[i]}, overlap...)
		used += Count(sentences[i])
	}
	return strings.Join(overlap, " ")
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
