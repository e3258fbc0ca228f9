package project

import (
	"crypto/sha256"
	"io"
	"os"
)

// Digest is the SHA-256 of an input's content.
type Digest [32]byte

// HashFile digests the content of path.
func HashFile(path string) (Digest, error) {
	var out Digest
	f, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return out, err
	}
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Combine digests content followed by deps, in order.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
