package ir

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// FingerprintLen is the length of a rendered step-sequence fingerprint.
const FingerprintLen = md5.Size * 2

// StepsDigest computes the fingerprint of an ordered step-text list.
// Format: hex(MD5(JSON array of the steps)).
//
// MD5 is kept for compatibility with fingerprints already recorded in
// pending configuration; collision resistance is not a requirement here.
// Step text is hashed exactly as written, without Unicode normalization,
// so the array bytes match JSON.stringify and composed and decomposed
// spellings stay distinct.
func StepsDigest(steps []string) (string, error) {
	canonical, err := stepsArray(steps)
	if err != nil {
		return "", fmt.Errorf("StepsDigest: failed to marshal: %w", err)
	}
	sum := md5.Sum(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// MustStepsDigest is like StepsDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustStepsDigest(steps []string) string {
	d, err := StepsDigest(steps)
	if err != nil {
		panic(err)
	}
	return d
}

func stepsArray(steps []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, s := range steps {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, s); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
