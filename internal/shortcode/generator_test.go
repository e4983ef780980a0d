package shortcode

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errReader struct {
	err error
}

func (r errReader) Read([]byte) (int, error) {
	return 0, r.err
}

func TestAlphabet(t *testing.T) {
	assert.Len(t, Alphabet, 54)

	for _, ambiguous := range "0O1lIio" {
		assert.NotContains(t, Alphabet, string(ambiguous))
	}

	seen := make(map[rune]bool)
	for _, r := range Alphabet {
		assert.False(t, seen[r], "duplicate symbol %q", r)
		seen[r] = true
	}
}

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{name: "zero length", length: 0, want: MinLength},
		{name: "negative length", length: -3, want: MinLength},
		{name: "below minimum", length: 5, want: MinLength},
		{name: "minimum", length: 6, want: 6},
		{name: "above minimum", length: 10, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(tt.length)

			assert.Equal(t, tt.want, g.Length())

			code, err := g.Generate()

			require.NoError(t, err)
			assert.Len(t, code, tt.want)
		})
	}
}

func TestGenerator_Generate(t *testing.T) {
	t.Run("modulo mapping", func(t *testing.T) {
		src := bytes.NewReader([]byte{0, 1, 53, 54, 55, 255})
		g := NewGenerator(6, WithSource(RandomSource(src)))

		code, err := g.Generate()

		require.NoError(t, err)

		want := string([]byte{
			Alphabet[0],
			Alphabet[1],
			Alphabet[53],
			Alphabet[0],
			Alphabet[1],
			Alphabet[255%len(Alphabet)],
		})
		assert.Equal(t, want, code)
		assert.Equal(t, "ab9abT", code)
	})

	t.Run("random source error", func(t *testing.T) {
		errRandom := errors.New("entropy exhausted")
		g := NewGenerator(6, WithSource(RandomSource(errReader{err: errRandom})))

		code, err := g.Generate()

		assert.ErrorIs(t, err, errRandom)
		assert.Empty(t, code)
	})

	t.Run("short random source", func(t *testing.T) {
		g := NewGenerator(6, WithSource(RandomSource(bytes.NewReader([]byte{1, 2, 3}))))

		code, err := g.Generate()

		assert.Error(t, err)
		assert.Empty(t, code)
	})

	t.Run("nanoid source", func(t *testing.T) {
		g := NewGenerator(8, WithSource(NanoIDSource()))

		code, err := g.Generate()

		require.NoError(t, err)
		assert.True(t, IsValid(code, 8))
	})

	t.Run("concurrent use", func(t *testing.T) {
		const workers = 16
		const perWorker = 200

		g := NewGenerator(8)

		var (
			mu    sync.Mutex
			wg    sync.WaitGroup
			codes = make(map[string]struct{}, workers*perWorker)
		)

		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()

				for range perWorker {
					code, err := g.Generate()
					assert.NoError(t, err)
					assert.True(t, IsValid(code, 8), "invalid code %q", code)

					mu.Lock()
					codes[code] = struct{}{}
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		// 54^8 possible codes make a duplicate among a few thousand practically impossible.
		assert.Len(t, codes, workers*perWorker)
	})
}

func TestGenerator_GenerateN(t *testing.T) {
	g := NewGenerator(6)

	testCases := []struct {
		name   string
		length int
		want   int
	}{
		{"configured length", 6, 6},
		{"longer", 10, 10},
		{"below minimum", 3, MinLength},
		{"negative", -1, MinLength},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			code, err := g.GenerateN(tt.length)

			require.NoError(t, err)
			assert.Len(t, code, tt.want)
			assert.True(t, IsValid(code, tt.want))
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		length int
		want   bool
	}{
		{name: "valid", code: "abcDEF", length: 6, want: true},
		{name: "valid digits", code: "234567", length: 6, want: true},
		{name: "empty", code: "", length: 6, want: false},
		{name: "too short", code: "abcDE", length: 6, want: false},
		{name: "too long", code: "abcDEFG", length: 6, want: false},
		{name: "ambiguous zero", code: "abc0EF", length: 6, want: false},
		{name: "ambiguous lower l", code: "abclEF", length: 6, want: false},
		{name: "ambiguous upper I", code: "abcIEF", length: 6, want: false},
		{name: "symbol", code: "abc-EF", length: 6, want: false},
		{name: "non ascii", code: "abcDEé", length: 6, want: false},
		{name: "length floored", code: "abcDEF", length: 3, want: true},
		{name: "configured length", code: strings.Repeat("a", 8), length: 8, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.code, tt.length))
		})
	}
}
