// Package tokenizer provides token counting used for prompt-size reporting.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts tokens in text.
type Tokenizer interface {
	// CountTokens returns the number of tokens in text.
	CountTokens(text string) (int, error)
	// Name returns the tokenizer's identifier.
	Name() string
}

// TiktokenTokenizer counts tokens with a tiktoken encoding. Encoding data may
// be downloaded on first use, so initialization is lazy.
type TiktokenTokenizer struct {
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
}

// NewTiktokenTokenizer creates a tiktoken-backed tokenizer for the given
// encoding name (e.g. "cl100k_base", "o200k_base"). An empty name selects
// cl100k_base.
func NewTiktokenTokenizer(encoding string) *TiktokenTokenizer {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	return &TiktokenTokenizer{encoding: encoding}
}

func (t *TiktokenTokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

// CountTokens returns the token count for text.
func (t *TiktokenTokenizer) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

// Name returns the tokenizer's identifier.
func (t *TiktokenTokenizer) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}

// EstimatorTokenizer estimates token counts from character classes without
// external encoding data. Roughly 4 characters per token for Latin text and
// 1.5 for CJK.
type EstimatorTokenizer struct{}

// NewEstimatorTokenizer creates an estimation-based tokenizer.
func NewEstimatorTokenizer() *EstimatorTokenizer {
	return &EstimatorTokenizer{}
}

// CountTokens estimates the token count for text. It never fails.
func (t *EstimatorTokenizer) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	var cjk, other int
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FA5 {
			cjk++
		} else {
			other++
		}
	}
	tokens := float64(cjk)/1.5 + float64(other)/4.0
	if tokens < 1 {
		return 1, nil
	}
	return int(tokens), nil
}

// Name returns the tokenizer's identifier.
func (t *EstimatorTokenizer) Name() string {
	return "estimator"
}
