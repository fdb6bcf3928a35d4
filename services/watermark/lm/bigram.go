package lm

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
)

// BigramSource is an offline stand-in language model. It assigns each
// candidate token a pseudo-frequency derived from a hash of the (previous
// token, candidate) pair, so the conditional distribution is deterministic,
// skewed like real text, and needs no network or model weights.
//
// Candidates come from the model's registered vocabulary. Models registered
// without a vocabulary cannot generate through this source.
type BigramSource struct {
	store *greenlist.KeyStore
}

func NewBigramSource(store *greenlist.KeyStore) *BigramSource {
	return &BigramSource{store: store}
}

// NextDistribution returns a normalized distribution over the model's
// vocabulary conditioned on the last token of prefix.
func (s *BigramSource) NextDistribution(_ context.Context, modelID string, prefix []string) (map[string]float64, error) {
	cfg, err := s.store.Lookup(modelID)
	if err != nil {
		return nil, err
	}
	vocab := cfg.Vocabulary()
	if len(vocab) == 0 {
		return nil, fmt.Errorf("model %q has no registered vocabulary; generation needs one", modelID)
	}

	prev := ""
	if len(prefix) > 0 {
		prev = prefix[len(prefix)-1]
	}

	dist := make(map[string]float64, len(vocab))
	var total float64
	for _, tok := range vocab {
		w := bigramWeight(prev, tok)
		dist[tok] = w
		total += w
	}
	for tok := range dist {
		dist[tok] /= total
	}
	return dist, nil
}

// bigramWeight maps a (prev, tok) pair to a weight in [1, 16]. The spread
// keeps the distribution uneven without starving any candidate.
func bigramWeight(prev, tok string) float64 {
	h := fnv.New64a()
	h.Write([]byte(prev))
	h.Write([]byte{0})
	h.Write([]byte(tok))
	return float64(1 + h.Sum64()%16)
}
