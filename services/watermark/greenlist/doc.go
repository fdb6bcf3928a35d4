// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package greenlist implements the soft green-list text watermark: the
// keyed partition of candidate tokens into green and red sets, the biased
// sampling step that embeds the signal during generation, and the
// statistical detector that recovers it from plain text.
//
// # Scheme
//
// For every (previous token, candidate token) pair, a keyed hash decides
// whether the candidate is "green" in that context. During generation the
// sampler multiplies green candidates' probabilities by exp(delta) before
// drawing, so watermarked text lands in the green set more often than the
// chance rate gamma. The detector counts green positions in a token
// sequence and reports how many standard deviations the count sits above
// the chance expectation. Neither the model nor its output distribution
// is needed at detection time, only the secret.
//
// # Components
//
//   - KeyStore: per-model configuration registry, the only shared mutable
//     state. Registrations are atomic upserts guarded by a reader-writer
//     lock.
//   - IsGreen: the keyed partition function (HMAC-SHA256).
//   - Sampler: categorical draws over boosted weights, with an injectable
//     randomness Source so tests can script exact outcomes.
//   - Detector: green-count z-score over a token sequence.
//
// All computations are bounded and synchronous; the package performs no
// I/O beyond an optional registration Journal supplied by the caller.
package greenlist
