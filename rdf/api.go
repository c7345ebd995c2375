package rdf

import (
	"context"
	"io"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Canonicalize returns the canonical N-Quads form of a dataset.
// If ctx is nil, context.Background() is used.
func Canonicalize(ctx context.Context, quads []Quad, opts ...Option) (string, error) {
	return NewCanonicalizer(opts...).Canonicalize(ctx, quads)
}

// CanonicalizeNQuads parses an N-Quads document and canonicalizes it.
// Decoder limits in opts apply to the parse.
func CanonicalizeNQuads(ctx context.Context, r io.Reader, opts ...Option) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	quads, err := ParseNQuads(ctx, r, opts...)
	if err != nil {
		return "", err
	}
	return Canonicalize(ctx, quads, opts...)
}

// CanonicalDigest canonicalizes the dataset and returns the hex digest of the
// canonical N-Quads, computed with the configured algorithm.
func CanonicalDigest(ctx context.Context, quads []Quad, opts ...Option) (string, error) {
	c := NewCanonicalizer(opts...)
	canonical, err := c.Canonicalize(ctx, quads)
	if err != nil {
		return "", err
	}
	return DigestNQuads(canonical, c.opts.Algorithm)
}

// CanonicalCID canonicalizes the dataset and returns a CIDv1 (raw codec) over
// the canonical N-Quads, hashed with the configured algorithm.
func CanonicalCID(ctx context.Context, quads []Quad, opts ...Option) (cid.Cid, error) {
	c := NewCanonicalizer(opts...)
	canonical, err := c.Canonicalize(ctx, quads)
	if err != nil {
		return cid.Undef, err
	}
	return NQuadsCID(canonical, c.opts.Algorithm)
}

// DigestNQuads returns the hex digest of an already canonical document.
func DigestNQuads(canonical, algorithm string) (string, error) {
	alg, err := LookupAlgorithm(algorithm)
	if err != nil {
		return "", err
	}
	return alg.hashString(canonical), nil
}

// NQuadsCID returns a CIDv1 (raw codec) of an already canonical document.
func NQuadsCID(canonical, algorithm string) (cid.Cid, error) {
	alg, err := LookupAlgorithm(algorithm)
	if err != nil {
		return cid.Undef, err
	}
	sum, err := multihash.Sum([]byte(canonical), alg.Code(), -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
