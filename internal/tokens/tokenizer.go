package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const DefaultEncoding = "cl100k_base"

// Tokenizer wraps a deterministic BPE encoding. Loading happens once at
// construction: token accounting must never degrade to an approximation
// mid-session, so a missing encoding is a startup error, not a per-call one.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

func NewTokenizer(encoding string) (*Tokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encoding, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// Count returns the token count of text. Empty input counts as zero.
func (t *Tokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// TruncateToTokens returns the longest prefix of text, in token space, whose
// count is at most max. The result is decoded from the truncated token
// sequence, so it may differ from a naive character slice near the cut point.
func (t *Tokenizer) TruncateToTokens(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if text == "" {
		return ""
	}
	ids := t.enc.Encode(text, nil, nil)
	if len(ids) <= max {
		return text
	}
	return t.enc.Decode(ids[:max])
}
