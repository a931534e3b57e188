package semantic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTimeout = 1500 * time.Millisecond
	embedKeyPrefix = "match:embed:"
	embedTTL       = 24 * time.Hour
)

var ErrEmptyEmbedding = errors.New("embedding backend returned no vector")

// Embedder turns texts into vectors, one per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorCache is the subset of the JSON cache used to memoize embeddings.
type VectorCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Provider computes text similarity as the cosine of two embeddings, clamped to [0,1].
type Provider struct {
	embedder Embedder
	cache    VectorCache
	timeout  time.Duration
	logger   *zap.Logger
}

func NewProvider(embedder Embedder, cache VectorCache, timeout time.Duration, logger *zap.Logger) *Provider {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{embedder: embedder, cache: cache, timeout: timeout, logger: logger}
}

func (p *Provider) Similarity(ctx context.Context, a, b string) (float64, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	vecs, err := p.vectors(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}
	return clamp01(Cosine(vecs[0], vecs[1])), nil
}

func (p *Provider) vectors(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []int
	for i, t := range texts {
		if p.cache != nil {
			var v []float32
			if hit, err := p.cache.GetJSON(ctx, embedKey(t), &v); err == nil && hit && len(v) > 0 {
				out[i] = v
				continue
			}
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	batch := make([]string, len(missing))
	for k, i := range missing {
		batch[k] = texts[i]
	}
	vecs, err := p.embedder.Embed(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmptyEmbedding, len(vecs), len(batch))
	}
	for k, i := range missing {
		if len(vecs[k]) == 0 {
			return nil, ErrEmptyEmbedding
		}
		out[i] = vecs[k]
		if p.cache != nil {
			if err := p.cache.SetJSON(ctx, embedKey(texts[i]), vecs[k], embedTTL); err != nil {
				p.logger.Debug("embedding cache write failed", zap.Error(err))
			}
		}
	}
	return out, nil
}

func embedKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return embedKeyPrefix + hex.EncodeToString(sum[:])
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero or lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
