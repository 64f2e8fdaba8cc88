package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// ByteGenerator produces the deterministic byte stream for a single round
// using HMAC-SHA256 with the server seed as key and
// "clientSeed:nonce:cursor" as message. The cursor advances by one for
// every 32-byte block, so the stream is unbounded and restartable.
type ByteGenerator struct {
	serverSeed   string
	clientSeed   string
	nonce        uint64
	currentRound uint64
	currentPos   int
	draws        int
	buffer       [32]byte
}

// NewByteGenerator creates a generator positioned at the given byte cursor.
func NewByteGenerator(serverSeed, clientSeed string, nonce uint64, cursor uint64) *ByteGenerator {
	bg := &ByteGenerator{
		serverSeed:   serverSeed,
		clientSeed:   clientSeed,
		nonce:        nonce,
		currentRound: cursor / 32,
		currentPos:   int(cursor % 32),
	}

	bg.generateRound()

	return bg
}

// Next returns the next byte from the stream.
func (bg *ByteGenerator) Next() byte {
	if bg.currentPos >= 32 {
		bg.currentRound++
		bg.currentPos = 0
		bg.generateRound()
	}

	b := bg.buffer[bg.currentPos]
	bg.currentPos++
	return b
}

// nextWindow consumes the next 4-byte window as a big-endian uint32.
// Every window counts as one draw, including windows later rejected by
// NextIntN, so verifiers can replay the consumption exactly.
func (bg *ByteGenerator) nextWindow() uint32 {
	var w [4]byte
	w[0] = bg.Next()
	w[1] = bg.Next()
	w[2] = bg.Next()
	w[3] = bg.Next()
	bg.draws++
	return binary.BigEndian.Uint32(w[:])
}

// NextFloat consumes one window and returns a uniform float in [0, 1).
func (bg *ByteGenerator) NextFloat() float64 {
	return float64(bg.nextWindow()) / 4294967296.0
}

// NextIntN returns a uniform integer in [0, n) using rejection sampling
// over 4-byte windows to avoid modulo bias.
func (bg *ByteGenerator) NextIntN(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("engine: NextIntN called with n=%d", n))
	}
	if n == 1 {
		return 0
	}

	// Largest multiple of n that fits in 2^32; windows at or above it
	// are discarded and redrawn.
	limit := (uint64(1) << 32) / uint64(n) * uint64(n)

	for {
		v := uint64(bg.nextWindow())
		if v < limit {
			return int(v % uint64(n))
		}
	}
}

// Shuffle returns an unbiased permutation of [0, m) via Fisher-Yates from
// the end, drawing a rejection-sampled integer in [0, i] at each step.
func (bg *ByteGenerator) Shuffle(m int) []int {
	p := make([]int, m)
	for i := range p {
		p[i] = i
	}

	for i := m - 1; i > 0; i-- {
		j := bg.NextIntN(i + 1)
		p[i], p[j] = p[j], p[i]
	}

	return p
}

// Draws reports how many 4-byte windows have been consumed so far.
func (bg *ByteGenerator) Draws() int {
	return bg.draws
}

func (bg *ByteGenerator) generateRound() {
	h := hmac.New(sha256.New, []byte(bg.serverSeed))
	message := fmt.Sprintf("%s:%d:%d", bg.clientSeed, bg.nonce, bg.currentRound)
	h.Write([]byte(message))
	copy(bg.buffer[:], h.Sum(nil))
}

// Floats generates count floats starting from the given cursor.
func Floats(serverSeed, clientSeed string, nonce uint64, cursor uint64, count int) []float64 {
	bg := NewByteGenerator(serverSeed, clientSeed, nonce, cursor)
	floats := make([]float64, count)

	for i := 0; i < count; i++ {
		floats[i] = bg.NextFloat()
	}

	return floats
}
