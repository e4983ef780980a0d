// Package shortcode generates short codes and resolves collision-free ones against a store.
//
// Codes are drawn from Alphabet, a 54-symbol set that leaves out glyphs which are easy
// to confuse when read back by a human (0, 1, i, I, l, L, o, O).
package shortcode

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet is the set of symbols short codes are built from.
	Alphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789"
	// MinLength is the shortest code the generator will produce.
	MinLength = 6
)

// Source produces a random string of size symbols taken from alphabet.
type Source func(alphabet string, size int) (string, error)

// RandomSource maps bytes read from r onto the alphabet by modulo indexing.
//
// 256 is not a multiple of len(Alphabet), so lower indices are slightly more likely.
// The source is good enough to keep collisions rare, not a uniform distribution.
// Reads from r are serialized, so r does not have to be safe for concurrent use.
func RandomSource(r io.Reader) Source {
	lr := &lockedReader{r: r}

	return func(alphabet string, size int) (string, error) {
		buf := make([]byte, size)

		if _, err := lr.ReadFull(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}

		for i, b := range buf {
			buf[i] = alphabet[int(b)%len(alphabet)]
		}

		return string(buf), nil
	}
}

// NanoIDSource draws symbols with go-nanoid, which masks and rejects bytes instead of
// using modulo indexing.
func NanoIDSource() Source {
	return gonanoid.Generate
}

type lockedReader struct {
	mu sync.Mutex
	r  io.Reader
}

func (lr *lockedReader) ReadFull(buf []byte) (int, error) {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	return io.ReadFull(lr.r, buf)
}

// Generator produces candidate short codes of a fixed length.
// It holds no per-call state and is safe for concurrent use.
type Generator struct {
	length int
	source Source
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithSource replaces the default crypto/rand backed source.
func WithSource(src Source) GeneratorOption {
	return func(g *Generator) {
		g.source = src
	}
}

// NewGenerator creates a Generator for codes of the given length.
// Lengths below MinLength are raised to MinLength.
func NewGenerator(length int, opts ...GeneratorOption) *Generator {
	g := &Generator{
		length: max(length, MinLength),
		source: RandomSource(rand.Reader),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Length returns the length of the codes produced by g.
func (g *Generator) Length() int {
	return g.length
}

// Generate returns a new candidate code of the configured length.
// It fails only when the random source does.
func (g *Generator) Generate() (string, error) {
	return g.GenerateN(g.length)
}

// GenerateN returns a new candidate code of the given length, floored at MinLength.
func (g *Generator) GenerateN(length int) (string, error) {
	const op = "shortcode.Generator.GenerateN"

	code, err := g.source(Alphabet, max(length, MinLength))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return code, nil
}

// IsValid reports whether code has exactly the given length and consists only of
// Alphabet symbols. The length is floored at MinLength like the generator's.
func IsValid(code string, length int) bool {
	if len(code) != max(length, MinLength) {
		return false
	}

	for _, r := range code {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}

	return true
}
