package collage

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Fingerprint identifies a photo set by its ordered ids. Callers compare the
// fingerprint a request was made for with the current one to detect stale
// responses.
func Fingerprint(photoIDs []string) string {
	h := sha256.New()
	var n [4]byte
	for _, id := range photoIDs {
		binary.BigEndian.PutUint32(n[:], uint32(len(id)))
		h.Write(n[:])
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// defaultSeed derives a reproducible seed from the photo ids so that
// requests without an explicit seed still lay out deterministically.
func defaultSeed(photoIDs []string) uint32 {
	sum := sha256.New()
	for _, id := range photoIDs {
		sum.Write([]byte(id))
		sum.Write([]byte{0})
	}
	return binary.BigEndian.Uint32(sum.Sum(nil)[:4])
}
