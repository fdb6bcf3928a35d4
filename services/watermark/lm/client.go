package lm

import "context"

// DistributionSource produces next-token probability distributions for a
// registered model. Implementations back the /v1/generate endpoint; the
// sampler turns each distribution into a watermarked pick.
type DistributionSource interface {
	NextDistribution(ctx context.Context, modelID string, prefix []string) (map[string]float64, error)
}
