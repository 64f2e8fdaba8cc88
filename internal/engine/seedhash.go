package engine

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// HashSeed returns the hex-encoded SHA-256 commitment for a server seed.
func HashSeed(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// VerifySeed reports whether a revealed server seed matches its published
// commitment.
func VerifySeed(serverSeed, publishedHash string) bool {
	return HashSeed(serverSeed) == publishedHash
}

// NewServerSeed generates a fresh 64-hex-char server seed from a
// cryptographically secure source.
func NewServerSeed() (string, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}

// NewClientSeed generates a short random default client seed for users who
// never supply their own.
func NewClientSeed() (string, error) {
	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}
