// Package rdf canonicalizes RDF datasets with the URDNA2015 algorithm
// (RDF Dataset Canonicalization, RDFC-1.0).
//
// Copyright 2026 Geoknoesis LLC (www.geoknoesis.com)
//
// Author: Stephane Fellah (stephanef@geoknoesis.com)
// Geosemantic-AI expert with 30 years of experience
//
// Two datasets that differ only in blank node labels and quad order produce
// byte-identical canonical N-Quads, which can then be hashed or signed:
//   - Canonicalize and CanonicalizeNQuads return the canonical N-Quads document.
//   - Canonicalizer.Run also returns the relabeled quads and the issued
//     identifier map.
//   - CanonicalDigest and CanonicalCID hash the canonical document.
//
// The package also carries a small line-based codec (N-Quads and N-Triples)
// used to read inputs and to emit canonical lines:
//   - Decode: NewQuadReader returns a pull-style reader; Parse and ParseNQuads
//     provide streaming and buffered helpers.
//   - Encode: NewQuadWriter and SerializeQuad emit canonical N-Quads lines.
//
// Example:
//
//	out, err := rdf.CanonicalizeNQuads(ctx, strings.NewReader(input))
//	if err != nil {
//	    // handle error
//	}
//	fmt.Print(out)
//
// Blank node disambiguation is exponential in the worst case. For untrusted
// input use OptSafeLimits, or bound the search with OptMaxPermutations and
// OptMaxDeepIterations; exceeding a budget fails with ErrResourceExhausted.
// Cancellation through the context is checked while permutations are explored.
//
// The digest defaults to SHA-256; OptAlgorithm selects any algorithm listed by
// SupportedAlgorithms. Datasets produced by json-gold (for example from
// JSON-LD) can be converted with FromLDDataset.
//
// Quoted triples (TripleTerm) are parsed and serialized by the codec but are
// rejected by canonicalization.
package rdf
