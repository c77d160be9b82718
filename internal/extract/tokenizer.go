package extract

import (
	"math"
	"strings"

	"github.com/clipperhouse/uax29/v2/graphemes"
)

// TokenEstimator estimates token counts from cleaned text using a
// chars-per-token heuristic — simple, fast, no network calls. Applied
// after cleanup, since raw terminal content is 55-89% noise.
type TokenEstimator struct {
	CharsPerToken float64
	SafetyFactor  float64
}

// DefaultTokenEstimator matches the original implementation's defaults:
// terminal content tokenizes poorly (short words, symbols, paths), so 3.0
// chars/token is used instead of the usual 4.0, plus a 30% safety buffer
// for CLI modes with extra system-prompt overhead.
func DefaultTokenEstimator() TokenEstimator {
	return TokenEstimator{CharsPerToken: 3.0, SafetyFactor: 0.70}
}

func graphemeCount(s string) int {
	n := 0
	for range graphemes.FromString(s) {
		n++
	}
	return n
}

// Estimate returns the token estimate for arbitrary text.
func (e TokenEstimator) Estimate(text string) int {
	n := graphemeCount(text)
	raw := math.Ceil(float64(n) / e.CharsPerToken)
	return int(raw * e.SafetyFactor)
}

// EstimateCode applies a whitespace bonus: code has more tokens per
// character (short identifiers, many special characters), so content with
// a whitespace ratio over 15% uses a 3.5 divisor instead of the base ratio.
func (e TokenEstimator) EstimateCode(text string) int {
	n := graphemeCount(text)
	if n == 0 {
		return 0
	}
	ws := 0
	for _, c := range text {
		if isSpaceRune(c) {
			ws++
		}
	}
	ratio := float64(ws) / float64(n)
	divisor := e.CharsPerToken
	if ratio > 0.15 {
		divisor = 3.5
	}
	raw := math.Ceil(float64(n) / divisor)
	return int(raw * e.SafetyFactor)
}

func isSpaceRune(c rune) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return strings.ContainsRune(" \t\n\r\v\f", c)
	}
}
