package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Fingerprint returns a stable hex digest of a remote product
// representation. Slice fields are sorted so ordering differences between
// fetches do not change the digest.
func Fingerprint(p *RemoteProduct) string {
	if p == nil {
		return ""
	}
	normalized := *p
	normalized.CategoryIDs = sortedCopy(p.CategoryIDs)
	normalized.AttributeIDs = sortedCopy(p.AttributeIDs)

	data, err := json.Marshal(normalized)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sortedCopy(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
