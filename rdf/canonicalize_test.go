package rdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const exP = "http://example.org/p"

func mustParse(t *testing.T, input string) []Quad {
	t.Helper()
	quads, err := ParseNQuads(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	return quads
}

func canonicalizeString(t *testing.T, input string, opts ...Option) string {
	t.Helper()
	out, err := Canonicalize(context.Background(), mustParse(t, input), opts...)
	require.NoError(t, err)
	return out
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "empty dataset",
			input:  "",
			expect: "",
		},
		{
			name: "no blank nodes are only sorted",
			input: "<http://example.org/s2> <http://example.org/p> \"b\" .\n" +
				"<http://example.org/s1> <http://example.org/p> \"a\" <http://example.org/g> .\n",
			expect: "<http://example.org/s1> <http://example.org/p> \"a\" <http://example.org/g> .\n" +
				"<http://example.org/s2> <http://example.org/p> \"b\" .\n",
		},
		{
			name:   "single blank node",
			input:  "_:foo <http://example.org/p> \"v\" .\n",
			expect: "_:c14n0 <http://example.org/p> \"v\" .\n",
		},
		{
			name: "unique first degree hashes issue in hash order",
			input: "_:x <http://example.org/p> \"2\" .\n" +
				"_:y <http://example.org/p> \"1\" .\n",
			expect: "_:c14n0 <http://example.org/p> \"1\" .\n" +
				"_:c14n1 <http://example.org/p> \"2\" .\n",
		},
		{
			name: "symmetric pair",
			input: "_:a <http://example.org/p> _:b .\n" +
				"_:b <http://example.org/p> _:a .\n",
			expect: "_:c14n0 <http://example.org/p> _:c14n1 .\n" +
				"_:c14n1 <http://example.org/p> _:c14n0 .\n",
		},
		{
			name: "chain",
			input: "_:a <http://example.org/p> _:b .\n" +
				"_:b <http://example.org/p> _:c .\n" +
				"_:c <http://example.org/q> \"end\" .\n",
			expect: "_:c14n0 <http://example.org/p> _:c14n1 .\n" +
				"_:c14n1 <http://example.org/q> \"end\" .\n" +
				"_:c14n2 <http://example.org/p> _:c14n0 .\n",
		},
		{
			name: "three cycle",
			input: "_:a <http://example.org/p> _:b .\n" +
				"_:b <http://example.org/p> _:c .\n" +
				"_:c <http://example.org/p> _:a .\n",
			expect: "_:c14n0 <http://example.org/p> _:c14n1 .\n" +
				"_:c14n1 <http://example.org/p> _:c14n2 .\n" +
				"_:c14n2 <http://example.org/p> _:c14n0 .\n",
		},
		{
			name: "two isomorphic cycles",
			input: "_:a <http://example.org/p> _:b .\n" +
				"_:b <http://example.org/p> _:a .\n" +
				"_:c <http://example.org/p> _:d .\n" +
				"_:d <http://example.org/p> _:c .\n",
			expect: "_:c14n0 <http://example.org/p> _:c14n1 .\n" +
				"_:c14n1 <http://example.org/p> _:c14n0 .\n" +
				"_:c14n2 <http://example.org/p> _:c14n3 .\n" +
				"_:c14n3 <http://example.org/p> _:c14n2 .\n",
		},
		{
			name: "blank node graph name",
			input: "_:s <http://example.org/p> \"v\" _:g .\n" +
				"<http://example.org/s> <http://example.org/p> _:s <http://example.org/g> .\n",
			expect: "<http://example.org/s> <http://example.org/p> _:c14n0 <http://example.org/g> .\n" +
				"_:c14n0 <http://example.org/p> \"v\" _:c14n1 .\n",
		},
		{
			name: "duplicates are emitted once",
			input: "_:a <http://example.org/p> \"v\" .\n" +
				"_:a <http://example.org/p> \"v\" .\n",
			expect: "_:c14n0 <http://example.org/p> \"v\" .\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, canonicalizeString(t, tc.input))
		})
	}
}

// A quad naming the same blank node in two positions contributes to that
// node's hashes once per position.
func TestCanonicalizeRepeatedNodeInQuad(t *testing.T) {
	input := "_:a <http://example.org/p> _:a .\n" +
		"_:a <http://example.org/q> _:b .\n" +
		"_:b <http://example.org/q> _:c .\n" +
		"_:c <http://example.org/p> _:c <http://example.org/g> .\n"
	expect := "_:c14n0 <http://example.org/p> _:c14n0 .\n" +
		"_:c14n0 <http://example.org/q> _:c14n2 .\n" +
		"_:c14n1 <http://example.org/p> _:c14n1 <http://example.org/g> .\n" +
		"_:c14n2 <http://example.org/q> _:c14n1 .\n"
	require.Equal(t, expect, canonicalizeString(t, input))

	require.Equal(t, "_:c14n0 <http://example.org/p> _:c14n0 _:c14n0 .\n_:c14n1 <http://example.org/p> _:c14n0 .\n",
		canonicalizeString(t, "_:y <http://example.org/p> _:x .\n_:x <http://example.org/p> _:x _:x .\n"))
}

func TestCanonicalizeSwappedInputOrder(t *testing.T) {
	a := canonicalizeString(t, "_:a <http://example.org/p> _:b .\n_:b <http://example.org/p> _:a .\n")
	b := canonicalizeString(t, "_:b <http://example.org/p> _:a .\n_:a <http://example.org/p> _:b .\n")
	require.Equal(t, a, b)
}

func TestCanonicalizeExplicitDefaultGraph(t *testing.T) {
	quads := []Quad{
		{S: BlankNode{ID: "x"}, P: IRI{Value: exP}, O: Literal{Lexical: "v"}, G: DefaultGraph{}},
		{S: BlankNode{ID: "x"}, P: IRI{Value: exP}, O: Literal{Lexical: "v"}},
	}
	out, err := Canonicalize(context.Background(), quads)
	require.NoError(t, err)
	require.Equal(t, "_:c14n0 <http://example.org/p> \"v\" .\n", out)
}

func TestCanonicalizeKeepsCanonicalLabels(t *testing.T) {
	out := canonicalizeString(t, "_:c14n5 <http://example.org/p> \"v\" .\n")
	require.Equal(t, "_:c14n5 <http://example.org/p> \"v\" .\n", out)
}

func TestCanonicalizeFixedPoint(t *testing.T) {
	input := "_:a <http://example.org/p> _:b .\n" +
		"_:b <http://example.org/p> _:c .\n" +
		"_:c <http://example.org/q> \"end\" _:g .\n"
	first := canonicalizeString(t, input)
	second := canonicalizeString(t, first)
	require.Equal(t, first, second)
}

func TestRunResult(t *testing.T) {
	quads := mustParse(t, "_:x <http://example.org/p> \"2\" .\n_:y <http://example.org/p> \"1\" .\n")
	res, err := NewCanonicalizer().Run(context.Background(), quads)
	require.NoError(t, err)

	require.Equal(t, map[string]string{"x": "c14n1", "y": "c14n0"}, res.IssuedIDs)
	require.Len(t, res.Quads, 2)
	require.Equal(t, BlankNode{ID: "c14n0"}, res.Quads[0].S)
	require.Equal(t, Literal{Lexical: "1"}, res.Quads[0].O)

	var rebuilt strings.Builder
	for _, q := range res.Quads {
		rebuilt.WriteString(SerializeQuad(q))
	}
	require.Equal(t, res.NQuads, rebuilt.String())
}

func TestCanonicalizeDoesNotMutateInput(t *testing.T) {
	quads := mustParse(t, "_:x <http://example.org/p> _:y .\n")
	snapshot := append([]Quad(nil), quads...)
	_, err := Canonicalize(context.Background(), quads)
	require.NoError(t, err)
	require.Equal(t, snapshot, quads)
}

func TestCanonicalizeInvalidInput(t *testing.T) {
	p := IRI{Value: exP}
	tests := []struct {
		name     string
		quad     Quad
		position string
	}{
		{"literal subject", Quad{S: Literal{Lexical: "s"}, P: p, O: IRI{Value: "http://example.org/o"}}, "subject"},
		{"missing subject", Quad{P: p, O: IRI{Value: "http://example.org/o"}}, "subject"},
		{"empty predicate", Quad{S: BlankNode{ID: "x"}, O: IRI{Value: "http://example.org/o"}}, "predicate"},
		{"triple term object", Quad{S: BlankNode{ID: "x"}, P: p, O: TripleTerm{S: BlankNode{ID: "y"}, P: p, O: Literal{Lexical: "v"}}}, "object"},
		{"literal graph", Quad{S: BlankNode{ID: "x"}, P: p, O: Literal{Lexical: "v"}, G: Literal{Lexical: "g"}}, "graph"},
		{"empty blank node label", Quad{S: BlankNode{}, P: p, O: Literal{Lexical: "v"}}, "subject"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			valid := Quad{S: IRI{Value: "http://example.org/s"}, P: p, O: Literal{Lexical: "ok"}}
			_, err := Canonicalize(context.Background(), []Quad{valid, tc.quad})
			require.ErrorIs(t, err, ErrInvalidInput)

			var inputErr *InputError
			require.ErrorAs(t, err, &inputErr)
			require.Equal(t, 1, inputErr.Index)
			require.Equal(t, tc.position, inputErr.Position)
			require.Equal(t, ErrCodeInvalidInput, Code(err))
		})
	}
}

func TestCanonicalizeUnsupportedAlgorithm(t *testing.T) {
	_, err := Canonicalize(context.Background(), nil, OptAlgorithm("md5"))
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestCanonicalizeAlternativeAlgorithm(t *testing.T) {
	input := "_:a <http://example.org/p> _:b .\n_:b <http://example.org/p> _:a .\n"
	out := canonicalizeString(t, input, OptAlgorithm("sha384"))
	require.Equal(t, "_:c14n0 <http://example.org/p> _:c14n1 .\n_:c14n1 <http://example.org/p> _:c14n0 .\n", out)
}

func TestCanonicalizeBudgets(t *testing.T) {
	input := "_:a <http://example.org/p> _:b .\n_:b <http://example.org/p> _:a .\n"

	_, err := Canonicalize(context.Background(), mustParse(t, input), OptMaxPermutations(1))
	require.ErrorIs(t, err, ErrResourceExhausted)
	var budgetErr *BudgetError
	require.ErrorAs(t, err, &budgetErr)
	require.Equal(t, "permutations", budgetErr.Budget)
	require.EqualValues(t, 1, budgetErr.Limit)

	_, err = Canonicalize(context.Background(), mustParse(t, input), OptMaxDeepIterations(1))
	require.ErrorIs(t, err, ErrResourceExhausted)
	require.ErrorAs(t, err, &budgetErr)
	require.Equal(t, "deep-iterations", budgetErr.Budget)

	_, err = Canonicalize(context.Background(), mustParse(t, input), OptSafeLimits())
	require.NoError(t, err)
}

func TestCanonicalizeBudgetAdversarialClique(t *testing.T) {
	var b strings.Builder
	labels := []string{"a", "b", "c", "d", "e", "f"}
	for _, s := range labels {
		for _, o := range labels {
			if s != o {
				b.WriteString("_:" + s + " <http://example.org/p> _:" + o + " .\n")
			}
		}
	}
	_, err := Canonicalize(context.Background(), mustParse(t, b.String()), OptMaxPermutations(50))
	require.Equal(t, ErrCodeResourceExhausted, Code(err))
}

func TestCanonicalizeCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Canonicalize(ctx, mustParse(t, "_:a <http://example.org/p> _:b .\n"))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, ErrCodeContextCanceled, Code(err))
}

func TestCanonicalizeWorkers(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 350; i++ {
		fmt.Fprintf(&b, "_:n%d <http://example.org/p> \"%d\" .\n", i, i%120)
	}
	quads := mustParse(t, b.String())
	serial, err := Canonicalize(context.Background(), quads, OptWorkers(1))
	require.NoError(t, err)
	parallel, err := Canonicalize(context.Background(), quads, OptWorkers(8))
	require.NoError(t, err)
	require.Equal(t, serial, parallel)
}

func TestCanonicalizeLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Canonicalize(context.Background(),
		mustParse(t, "_:a <http://example.org/p> _:b .\n_:b <http://example.org/p> _:a .\n"),
		OptLogger(logger))
	require.NoError(t, err)
	require.Contains(t, buf.String(), "dataset canonicalized")
	require.Contains(t, buf.String(), "component=rdfc")
	require.Contains(t, buf.String(), "collision group resolved")
}

func TestCanonicalizeNQuads(t *testing.T) {
	out, err := CanonicalizeNQuads(context.Background(), strings.NewReader("_:x <http://example.org/p> \"2\" .\n_:y <http://example.org/p> \"1\" .\n"))
	require.NoError(t, err)
	require.Equal(t, "_:c14n0 <http://example.org/p> \"1\" .\n_:c14n1 <http://example.org/p> \"2\" .\n", out)

	_, err = CanonicalizeNQuads(context.Background(), strings.NewReader("_:x <http://example.org/p> .\n"))
	require.Equal(t, ErrCodeParseError, Code(err))
}

func TestCanonicalDigestAndCID(t *testing.T) {
	quads := mustParse(t, "_:x <http://example.org/p> \"2\" .\n_:y <http://example.org/p> \"1\" .\n")

	digest, err := CanonicalDigest(context.Background(), quads)
	require.NoError(t, err)
	require.Equal(t, "5f189988f313cbed349154564cf31b6e455b2dd9a6e63ca71e6a4158383fd57c", digest)

	id, err := CanonicalCID(context.Background(), quads)
	require.NoError(t, err)
	require.Equal(t, "bafkreic7dcmyr4ytzpwtjekukzgpgg3oivns3wng4y6kohtkifmdqp6vpq", id.String())

	_, err = CanonicalCID(context.Background(), quads, OptAlgorithm("nope"))
	require.True(t, errors.Is(err, ErrUnsupportedAlgorithm))
}
