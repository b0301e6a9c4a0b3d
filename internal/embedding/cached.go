package embedding

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"changelens/internal/storage"
)

// VectorStore is the persistence the cache needs. storage.EmbeddingCache
// implements it.
type VectorStore interface {
	GetMany(keys []string) (map[string]storage.EmbeddingEntry, error)
	PutMany(entries []storage.EmbeddingEntry, ttl time.Duration) error
}

// Cached serves repeated texts from a VectorStore and sends only the
// misses to the wrapped provider, in one batch. An inner failure is
// returned unchanged and nothing is written for that call. Store errors
// are logged and otherwise ignored.
type Cached struct {
	inner  Provider
	store  VectorStore
	ttl    time.Duration
	logger *slog.Logger

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCached wraps inner with a persistent cache.
func NewCached(inner Provider, store VectorStore, ttl time.Duration, logger *slog.Logger) *Cached {
	// Neither constructor fails without options.
	enc, _ := zstd.NewWriter(nil)
	dec, _ := zstd.NewReader(nil)
	return &Cached{
		inner:  inner,
		store:  store,
		ttl:    ttl,
		logger: logger,
		enc:    enc,
		dec:    dec,
	}
}

// Model implements Provider.
func (c *Cached) Model() string {
	return c.inner.Model()
}

// Embed implements Provider.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	model := c.inner.Model()
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = CacheKey(model, t)
	}

	hits, err := c.store.GetMany(keys)
	if err != nil {
		c.logger.Warn("Embedding cache lookup failed", "error", err)
		hits = nil
	}

	out := make([][]float32, len(texts))
	missIndex := make(map[string]int) // key -> position in missTexts
	var missTexts []string
	var missKeys []string

	for i, key := range keys {
		if entry, ok := hits[key]; ok && entry.Model == model {
			vec, derr := c.decode(entry.Vector, entry.Dimensions)
			if derr == nil {
				out[i] = vec
				continue
			}
			c.logger.Warn("Discarding corrupt cache entry", "key", key, "error", derr)
		}
		if _, seen := missIndex[key]; !seen {
			missIndex[key] = len(missTexts)
			missTexts = append(missTexts, texts[i])
			missKeys = append(missKeys, key)
		}
	}

	c.logger.Debug("Embedding cache",
		"requested", len(texts),
		"hits", len(texts)-countNil(out),
		"unique_misses", len(missTexts),
	)

	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("provider returned %d vectors for %d texts", len(fresh), len(missTexts))
	}

	for i, key := range keys {
		if out[i] == nil {
			out[i] = fresh[missIndex[key]]
		}
	}

	entries := make([]storage.EmbeddingEntry, len(fresh))
	for i, vec := range fresh {
		entries[i] = storage.EmbeddingEntry{
			Key:        missKeys[i],
			Model:      model,
			Dimensions: len(vec),
			Vector:     c.encode(vec),
		}
	}
	if err := c.store.PutMany(entries, c.ttl); err != nil {
		c.logger.Warn("Embedding cache write failed", "entries", len(entries), "error", err)
	}

	return out, nil
}

// CacheKey is the hex blake2b-256 digest of model, a NUL byte, and text.
func CacheKey(model, text string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// encode stores little-endian float32 components, zstd-compressed.
func (c *Cached) encode(vec []float32) []byte {
	raw := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	return c.enc.EncodeAll(raw, nil)
}

func (c *Cached) decode(blob []byte, dims int) ([]float32, error) {
	raw, err := c.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, err
	}
	if len(raw) != 4*dims {
		return nil, fmt.Errorf("vector has %d bytes, want %d", len(raw), 4*dims)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return vec, nil
}

func countNil(vs [][]float32) int {
	n := 0
	for _, v := range vs {
		if v == nil {
			n++
		}
	}
	return n
}
