package embed

import (
	"hash/fnv"
	"strconv"
)

// ContentHash computes a stable fingerprint of a thought's embeddable text.
//
// The hash covers label and content only; moving a node or changing its
// tags does not invalidate its embedding. Stored alongside the embedding,
// the hash lets a rebuild pass decide cheaply whether a cached vector is
// still current or the text changed underneath it.
//
// FNV-1a, base-36 encoded. Non-cryptographic: this detects edits, it does
// not defend against collisions by an adversary.
func ContentHash(label, content string) string {
	h := fnv.New64a()
	h.Write([]byte(label))
	h.Write([]byte{0x00}) // Separator so "ab"+"c" != "a"+"bc"
	h.Write([]byte(content))
	return strconv.FormatUint(h.Sum64(), 36)
}
