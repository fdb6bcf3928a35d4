// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package greenlist

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
)

// IsGreen reports whether token falls in the green partition for the
// given context under the supplied keying material.
//
// The partition derives from HMAC-SHA256(secret, prevToken||token): the
// first eight digest bytes, read as a big-endian unsigned integer and
// scaled into [0, 1), are compared against gamma. Context precedes the
// candidate, so membership depends on local word order and cannot be
// predicted or replayed without the secret.
//
// Deterministic: fixed inputs always produce the same answer. Across
// uniformly random inputs the answer is true with probability gamma, and
// distinct secrets produce uncorrelated partitions.
func IsGreen(secret []byte, prevToken, token string, gamma float64) bool {
	return hashUnit(secret, prevToken, token) < gamma
}

// hashUnit maps (secret, prevToken, token) to a uniform value in [0, 1).
//
// The float64 conversion rounds the 64-bit integer once; dividing by 2^64
// is an exact power-of-two scaling, so the result is bit-identical to a
// correctly rounded direct division and interoperates with other
// implementations of the same construction.
func hashUnit(secret []byte, prevToken, token string) float64 {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(prevToken))
	mac.Write([]byte(token))
	digest := mac.Sum(nil)

	return float64(binary.BigEndian.Uint64(digest[:8])) / (1 << 64)
}
