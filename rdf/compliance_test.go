package rdf

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// rdfcManifest is the subset of the rdf-canon manifest.jsonld the runner needs.
type rdfcManifest struct {
	Entries []rdfcTestCase `json:"entries"`
}

type rdfcTestCase struct {
	ID                      string `json:"id"`
	Type                    string `json:"type"`
	Name                    string `json:"name"`
	Action                  string `json:"action"`
	Result                  string `json:"result"`
	HashAlgorithm           string `json:"hashAlgorithm"`
	ComputationalComplexity string `json:"computationalComplexity"`
}

// TestRDFCanonConformance runs the W3C rdf-canon test suite.
// Set RDF_CANON_TESTS_DIR to the directory holding manifest.jsonld, e.g. the
// tests/ directory downloaded by scripts/download-rdf-canon-tests.go.
func TestRDFCanonConformance(t *testing.T) {
	root := os.Getenv("RDF_CANON_TESTS_DIR")
	if root == "" {
		t.Skip("RDF_CANON_TESTS_DIR not set; skipping rdf-canon conformance tests")
	}

	data, err := os.ReadFile(filepath.Join(root, "manifest.jsonld"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest rdfcManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if len(manifest.Entries) == 0 {
		t.Fatal("manifest has no entries")
	}

	for _, tc := range manifest.Entries {
		name := strings.TrimPrefix(tc.ID, "#")
		if name == "" {
			name = tc.Name
		}
		t.Run(name, func(t *testing.T) {
			runRDFCTestCase(t, root, tc)
		})
	}
}

func runRDFCTestCase(t *testing.T, root string, tc rdfcTestCase) {
	input, err := os.Open(filepath.Join(root, tc.Action))
	if err != nil {
		t.Fatalf("open action: %v", err)
	}
	defer input.Close()

	quads, err := ParseNQuads(context.Background(), input)
	if err != nil {
		t.Fatalf("parse action: %v", err)
	}

	opts := []Option{OptSafeLimits()}
	if tc.HashAlgorithm != "" {
		opts = append(opts, OptAlgorithm(tc.HashAlgorithm))
	}

	switch {
	case strings.HasSuffix(tc.Type, "RDFC10EvalTest"):
		got, err := Canonicalize(context.Background(), quads, opts...)
		if err != nil {
			t.Fatalf("canonicalize: %v", err)
		}
		want := readExpected(t, root, tc.Result)
		if got != want {
			t.Fatalf("canonical form mismatch\n got:\n%s\nwant:\n%s", got, want)
		}

	case strings.HasSuffix(tc.Type, "RDFC10MapTest"):
		res, err := NewCanonicalizer(opts...).Run(context.Background(), quads)
		if err != nil {
			t.Fatalf("canonicalize: %v", err)
		}
		var want map[string]string
		if err := json.Unmarshal([]byte(readExpected(t, root, tc.Result)), &want); err != nil {
			t.Fatalf("decode issued identifiers map: %v", err)
		}
		if len(want) != len(res.IssuedIDs) {
			t.Fatalf("issued %d identifiers, want %d", len(res.IssuedIDs), len(want))
		}
		for from, to := range want {
			if res.IssuedIDs[from] != to {
				t.Fatalf("identifier %s mapped to %s, want %s", from, res.IssuedIDs[from], to)
			}
		}

	case strings.HasSuffix(tc.Type, "RDFC10NegativeEvalTest"):
		opts = append(opts, OptMaxDeepIterations(8))
		_, err := Canonicalize(context.Background(), quads, opts...)
		if !errors.Is(err, ErrResourceExhausted) {
			t.Fatalf("expected ErrResourceExhausted, got %v", err)
		}

	default:
		t.Skipf("unsupported test type %s", tc.Type)
	}
}

func readExpected(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	return string(data)
}
