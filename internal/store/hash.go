package store

import (
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// bodyHash hashes symbol body text for the body_hash column. File-level
// hashing uses the same digest over raw file bytes; see ContentHash below.
func bodyHash(body string) string {
	sum := xxhash.Sum64String(body)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(sum >> (8 * (7 - i)))
	}
	return hex.EncodeToString(buf[:])
}

// ContentHash hashes raw file bytes the same way, exported for the indexer
// to compare against files.content_hash before deciding to reparse.
func ContentHash(data []byte) string {
	sum := xxhash.Sum64(data)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(sum >> (8 * (7 - i)))
	}
	return hex.EncodeToString(buf[:])
}
