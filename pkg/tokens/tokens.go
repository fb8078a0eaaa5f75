package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

var (
	tk     *tiktoken.Tiktoken
	tkErr  error
	tkOnce sync.Once
)

func tokenizer() (*tiktoken.Tiktoken, error) {
	tkOnce.Do(func() {
		tk, tkErr = tiktoken.GetEncoding(encodingName)
	})
	return tk, tkErr
}

// Count returns the cl100k token count of text. When the encoding cannot be
// loaded it falls back to the usual four-bytes-per-token estimate.
func Count(text string) int {
	if text == "" {
		return 0
	}
	enc, err := tokenizer()
	if err != nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// FitNewest keeps the newest items of texts (ordered oldest first) whose summed
// token count fits budget and returns the index of the first kept item.
// The newest item is always kept. A non-positive budget keeps everything.
func FitNewest(texts []string, budget int) int {
	if budget <= 0 || len(texts) == 0 {
		return 0
	}
	used := 0
	for i := len(texts) - 1; i >= 0; i-- {
		used += Count(texts[i])
		if used > budget && i < len(texts)-1 {
			return i + 1
		}
	}
	return 0
}
