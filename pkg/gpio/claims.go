package gpio

import (
	"strconv"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// ClaimRegistry records the lines claimed by this process. One registry is
// created per process and shared by every Acquire call.
type ClaimRegistry struct {
	claims cmap.ConcurrentMap[string, string]
}

// NewClaimRegistry creates an empty registry.
func NewClaimRegistry() *ClaimRegistry {
	return &ClaimRegistry{claims: cmap.New[string]()}
}

func claimKey(chip string, offset int) string {
	return chip + ":" + strconv.Itoa(offset)
}

// Claim records consumer as holder of chip:offset. It returns false if the line
// is already held.
func (r *ClaimRegistry) Claim(chip string, offset int, consumer string) bool {
	return r.claims.SetIfAbsent(claimKey(chip, offset), consumer)
}

// Release drops the claim on chip:offset.
func (r *ClaimRegistry) Release(chip string, offset int) {
	r.claims.Remove(claimKey(chip, offset))
}

// Holder returns the consumer holding chip:offset.
func (r *ClaimRegistry) Holder(chip string, offset int) (string, bool) {
	return r.claims.Get(claimKey(chip, offset))
}

// Count returns the number of active claims.
func (r *ClaimRegistry) Count() int {
	return r.claims.Count()
}
