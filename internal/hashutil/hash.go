// Package hashutil provides the stable 64-bit content digest used for
// build fingerprinting. Digests are xxHash64: fast, non-cryptographic,
// and identical across runs and platforms for the same byte sequence.
package hashutil

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Digest hashes a byte sequence with an optional seed. A non-zero seed
// is folded in by prefixing the stream, which keeps two-pass combined
// hashes stable without a seeded hasher variant.
func Digest(data []byte, seed uint64) uint64 {
	if seed == 0 {
		return xxhash.Sum64(data)
	}
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	d.Write(buf[:])
	d.Write(data)
	return d.Sum64()
}

// DigestString hashes a string with seed 0.
func DigestString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Hex formats a digest as lowercase fixed-width hex (16 chars).
func Hex(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

// HashString returns the 16-char hex digest of a string.
func HashString(s string) string {
	return Hex(DigestString(s))
}

// HashFile returns the hex digest of a file's contents, or "" when the
// file cannot be read.
func HashFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return Hex(Digest(data, 0))
}

// CombineHex produces a 32-char two-pass digest over a pre-hashed key:
// the second pass is seeded with the first so related keys do not
// collide structurally.
func CombineHex(data []byte) string {
	h1 := Digest(data, 0)
	h2 := Digest(data, h1)
	return Hex(h1) + Hex(h2)
}
