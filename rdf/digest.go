package rdf

import (
	"encoding/hex"
	"hash"
	"sort"
	"strings"

	"github.com/multiformats/go-multihash"
	mhcore "github.com/multiformats/go-multihash/core"
)

// MessageDigest is an incremental hash with a hex encoded result.
// Digest finalizes; Update must not be called afterwards.
type MessageDigest interface {
	Update(s string)
	Digest() string
}

// algorithms maps accepted names to multihash function codes.
var algorithms = map[string]uint64{
	"sha1":        multihash.SHA1,
	"sha-1":       multihash.SHA1,
	"sha256":      multihash.SHA2_256,
	"sha-256":     multihash.SHA2_256,
	"sha2-256":    multihash.SHA2_256,
	"sha384":      mhcore.SHA2_384,
	"sha-384":     mhcore.SHA2_384,
	"sha2-384":    mhcore.SHA2_384,
	"sha512":      multihash.SHA2_512,
	"sha-512":     multihash.SHA2_512,
	"sha2-512":    multihash.SHA2_512,
	"sha3-256":    multihash.SHA3_256,
	"sha3-512":    multihash.SHA3_512,
	"blake2b-256": multihash.BLAKE2B_MIN + 31,
	"blake2b-512": multihash.BLAKE2B_MAX,
}

// Algorithm is a resolved digest algorithm.
type Algorithm struct {
	name string
	code uint64
}

// LookupAlgorithm resolves a digest algorithm by name (case-insensitive).
func LookupAlgorithm(name string) (Algorithm, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	code, ok := algorithms[key]
	if !ok {
		return Algorithm{}, &AlgorithmError{Algorithm: name}
	}
	if _, err := multihash.GetHasher(code); err != nil {
		return Algorithm{}, &AlgorithmError{Algorithm: name}
	}
	return Algorithm{name: key, code: code}, nil
}

// SupportedAlgorithms lists the accepted algorithm names.
func SupportedAlgorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name returns the normalized algorithm name.
func (a Algorithm) Name() string { return a.name }

// Code returns the multihash function code.
func (a Algorithm) Code() uint64 { return a.code }

// New returns a fresh MessageDigest.
func (a Algorithm) New() MessageDigest {
	h, err := multihash.GetHasher(a.code)
	if err != nil {
		// LookupAlgorithm already proved the hasher exists.
		panic(err)
	}
	return &hashDigest{h: h}
}

// NewMessageDigest resolves name and returns a fresh digest.
func NewMessageDigest(name string) (MessageDigest, error) {
	alg, err := LookupAlgorithm(name)
	if err != nil {
		return nil, err
	}
	return alg.New(), nil
}

type hashDigest struct {
	h hash.Hash
}

func (d *hashDigest) Update(s string) {
	// hash.Hash writes never fail
	_, _ = d.h.Write([]byte(s))
}

func (d *hashDigest) Digest() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// hashString digests a single string.
func (a Algorithm) hashString(s string) string {
	md := a.New()
	md.Update(s)
	return md.Digest()
}
