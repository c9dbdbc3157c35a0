// Package idhash provides the content-addressing primitives shared by
// the WC admin store and the RA session: a BLAKE3 hash of arbitrary
// bytes, and a derived repository UUID.
package idhash

import (
	"encoding/hex"

	"github.com/google/uuid"
	"lukechampine.com/blake3"
)

// Blake3Hash computes a BLAKE3 hash of data.
func Blake3Hash(data []byte) []byte {
	hash := blake3.Sum256(data)
	return hash[:]
}

// Blake3HashHex computes a BLAKE3 hash and returns it hex-encoded.
func Blake3HashHex(data []byte) string {
	return hex.EncodeToString(Blake3Hash(data))
}

// RepositoryUUID derives a stable repository UUID from a root commit
// hash the way describes: "a stable uuid.UUID ... by hashing the
// root commit's hash with blake3 and taking the first 16 bytes". A
// repository's root commit never changes once created, so this UUID is
// stable for the repository's lifetime, standing in for Subversion's
// creation-time-assigned repository UUID.
func RepositoryUUID(rootCommitHash []byte) (uuid.UUID, error) {
	digest := Blake3Hash(rootCommitHash)
	return uuid.FromBytes(digest[:16])
}
