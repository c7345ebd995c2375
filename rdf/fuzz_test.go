package rdf

import (
	"bytes"
	"context"
	"testing"
)

const fuzzMaxLineBytes = 8 << 10

func FuzzDecodeNQuads(f *testing.F) {
	f.Add([]byte(`<http://example.org/s> <http://example.org/p> "v" <http://example.org/g> .`))
	f.Add([]byte(`_:a <http://example.org/p> "xé\n"@en _:g .`))
	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = ParseNQuads(context.Background(), bytes.NewReader(data), OptMaxLineBytes(fuzzMaxLineBytes))
	})
}

func FuzzCanonicalizeNQuads(f *testing.F) {
	f.Add([]byte("_:a <http://example.org/p> _:b .\n_:b <http://example.org/p> _:a .\n"))
	f.Add([]byte("_:x <http://example.org/p> \"2\" _:g .\n_:y <http://example.org/p> \"1\" .\n"))
	f.Fuzz(func(t *testing.T, data []byte) {
		opts := []Option{OptMaxLineBytes(fuzzMaxLineBytes), OptMaxQuads(64), OptMaxPermutations(1000), OptMaxDeepIterations(64)}
		out, err := CanonicalizeNQuads(context.Background(), bytes.NewReader(data), opts...)
		if err != nil {
			return
		}
		again, err := CanonicalizeNQuads(context.Background(), bytes.NewReader([]byte(out)), opts...)
		if err != nil {
			t.Fatalf("canonical output did not re-parse: %v\n%s", err, out)
		}
		if again != out {
			t.Fatalf("canonical form is not a fixed point\nfirst:  %q\nsecond: %q", out, again)
		}
	})
}
