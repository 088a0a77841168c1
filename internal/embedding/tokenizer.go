package embedding

import (
	"strings"
	"unicode"
)

// BERT special token IDs.
const (
	tokenCLS = 101
	tokenSEP = 102
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
	TokenizePair(first, second string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs (for testing or fallback).
type SimpleTokenizer struct{}

// Tokenize encodes one sequence as [CLS] words [SEP], padded to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	return t.TokenizePair(text, "", maxTokens)
}

// TokenizePair encodes a cross-encoder pair as [CLS] first [SEP] second [SEP].
// Tokens of the second segment get token type 1. The first segment is cut to
// leave at least half of the budget for the second.
func (t *SimpleTokenizer) TokenizePair(first, second string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	pos := 0
	put := func(id int64, segment int64) bool {
		if pos >= maxTokens {
			return false
		}
		inputIDs[pos] = id
		attentionMask[pos] = 1
		tokenTypeIDs[pos] = segment
		pos++
		return true
	}

	put(tokenCLS, 0)
	firstWords := SplitWords(first)
	if second != "" {
		firstWords = TruncateWords(firstWords, maxTokens/2-2)
	}
	for _, w := range firstWords {
		if pos >= maxTokens-1 {
			break
		}
		put(wordID(w), 0)
	}
	put(tokenSEP, 0)
	if second == "" {
		return inputIDs, attentionMask, tokenTypeIDs
	}
	for _, w := range SplitWords(second) {
		if pos >= maxTokens-1 {
			break
		}
		put(wordID(w), 1)
	}
	put(tokenSEP, 1)
	return inputIDs, attentionMask, tokenTypeIDs
}

func wordID(w string) int64 {
	return int64(HashString(Lower(w))%30000) + 1000
}

// SplitWords splits text on whitespace and returns non-empty words.
func SplitWords(text string) []string {
	return strings.FieldsFunc(text, unicode.IsSpace)
}

// Lower lowercases text.
func Lower(text string) string {
	return strings.ToLower(text)
}

// HashString returns a deterministic non-negative hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}

// TruncateWords returns up to maxWords words from the slice.
func TruncateWords(words []string, maxWords int) []string {
	if maxWords < 0 {
		maxWords = 0
	}
	if len(words) <= maxWords {
		return words
	}
	return words[:maxWords]
}
