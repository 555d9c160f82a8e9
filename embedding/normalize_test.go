package embedding

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"collapses whitespace", "a  b\t\tc", "a b c"},
		{"drops newlines", "line one\nline two\r\n", "line one line two"},
		{"trims", "   padded   ", "padded"},
		{"removes dot space comma", "end. , next", "end next"},
		{"double dot", "wait.. what", "wait. what"},
		{"spaced dots", "a. . b", "a. b"},
		{"dot runs", "so....", "so."},
		{"leaves ordinary text", "Hello, world. Bye.", "Hello, world. Bye."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	alphabet := []rune{'a', 'b', ' ', '\n', '\t', '.', ',', '.', ' '}
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 2000; i++ {
		n := rng.IntN(24)
		buf := make([]rune, n)
		for j := range buf {
			buf[j] = alphabet[rng.IntN(len(alphabet))]
		}
		s := string(buf)
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "input %q", s)
	}
}
