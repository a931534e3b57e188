package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"match-engine/internal/domain/matching"
)

const (
	matchCachePrefix  = "match:result:"
	MatchCachePattern = matchCachePrefix + "*"
)

type ResultCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
}

type matchCacheKeyInput struct {
	Version   int                `json:"v"`
	Candidate matching.Candidate `json:"candidate"`
	Job       matching.Job       `json:"job"`
	Strategy  matching.Strategy  `json:"strategy"`
}

// MatchCacheKey fingerprints a (candidate, job, strategy) triple.
func MatchCacheKey(c matching.Candidate, j matching.Job, s matching.Strategy) string {
	in := matchCacheKeyInput{
		Version:   1,
		Candidate: c,
		Job:       j,
		Strategy:  s,
	}

	b, _ := json.Marshal(in)
	sum := sha256.Sum256(b)
	h := hex.EncodeToString(sum[:])
	return matchCachePrefix + h
}
