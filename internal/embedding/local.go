package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// DefaultLocalDimensions is used when a non-positive dimension is configured.
const DefaultLocalDimensions = 256

// Local is a deterministic, offline provider based on feature hashing.
// Identifier tokens and adjacent token pairs are hashed into a fixed number
// of buckets with a hash-derived sign, and the result is L2-normalized.
// Texts sharing vocabulary end up close in cosine space.
type Local struct {
	dims int
}

// NewLocal creates a local hashing provider with the given dimension.
func NewLocal(dims int) *Local {
	if dims <= 0 {
		dims = DefaultLocalDimensions
	}
	return &Local{dims: dims}
}

// Model implements Provider.
func (l *Local) Model() string {
	return fmt.Sprintf("local-xxhash-%d", l.dims)
}

// Embed implements Provider. It never fails except on cancellation.
func (l *Local) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = l.vector(text)
	}
	return out, nil
}

func (l *Local) vector(text string) []float32 {
	acc := make([]float64, l.dims)

	tokens := tokenize(text)
	for i, tok := range tokens {
		l.add(acc, tok, 1)
		if i > 0 {
			l.add(acc, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vec := make([]float32, l.dims)
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

func (l *Local) add(acc []float64, feature string, weight float64) {
	h := xxhash.Sum64String(feature)
	idx := h % uint64(l.dims)
	if h&(1<<63) != 0 {
		weight = -weight
	}
	acc[idx] += weight
}

// tokenize splits on anything that is not a letter, digit or underscore and
// lowercases the pieces.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}
