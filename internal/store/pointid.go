package store

import (
	"crypto/sha256"

	"github.com/google/uuid"
)

// PointID derives the deterministic point UUID for a chunk ID. The vector
// store only accepts UUID or integer point IDs, so the string chunk ID is
// hashed and the first 16 bytes shaped into a valid UUID. Same chunk ID,
// same point ID: re-indexing overwrites instead of duplicating.
func PointID(chunkID string) string {
	h := sha256.Sum256([]byte(chunkID))
	var u uuid.UUID
	copy(u[:], h[:16])
	// Force version 5 and variant bits so the result is a valid UUID.
	u[6] = (u[6] & 0x0f) | 0x50
	u[8] = (u[8] & 0x3f) | 0x80
	return u.String()
}
