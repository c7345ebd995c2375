package rdf

import (
	"context"
	"io"
	"log/slog"
	"runtime"
)

const (
	// DefaultMaxLineBytes bounds a single N-Quads line.
	DefaultMaxLineBytes = 1 << 20
	// DefaultMaxQuads bounds the number of quads read by a decoder (0 = unlimited).
	DefaultMaxQuads = 0
	// DefaultAlgorithm is the digest algorithm used by canonicalization.
	DefaultAlgorithm = "sha256"

	safeMaxLineBytes = 64 << 10
	safeMaxQuads     = 1_000_000
	// safe budgets stop adversarial symmetric graphs long before they exhaust memory.
	safeMaxPermutations    = 1 << 16
	safeMaxDeepIterations  = 1 << 10
	firstDegreeBatchSize   = 100
	permutationYieldPeriod = 3
)

// Option configures reader and canonicalizer behavior.
type Option func(*Options)

// Options configures decoding and canonicalization.
type Options struct {
	// Context for cancellation of decoding. Canonicalization uses the context
	// passed to Canonicalize.
	Context context.Context

	// Decoder limits for untrusted input. Zero or negative disables a limit.
	MaxLineBytes int
	MaxQuads     int64

	// Algorithm names the digest used for every hash of a run.
	Algorithm string

	// MaxPermutations bounds the permutations explored in one run (0 = unlimited).
	MaxPermutations int64
	// MaxDeepIterations bounds HashNDegreeQuads calls per blank node (0 = unlimited).
	MaxDeepIterations int

	// Workers is the parallelism of the first degree hashing pass.
	Workers int

	// Logger receives debug output. Nil discards.
	Logger *slog.Logger
}

// OptContext sets the context for cancellation and timeouts.
func OptContext(ctx context.Context) Option {
	return func(opts *Options) {
		opts.Context = ctx
	}
}

// OptMaxLineBytes sets the maximum line size limit.
func OptMaxLineBytes(maxBytes int) Option {
	return func(opts *Options) {
		opts.MaxLineBytes = maxBytes
	}
}

// OptMaxQuads sets the maximum number of quads to read.
func OptMaxQuads(maxQuads int64) Option {
	return func(opts *Options) {
		opts.MaxQuads = maxQuads
	}
}

// OptAlgorithm selects the digest algorithm, e.g. "sha256" or "sha384".
func OptAlgorithm(name string) Option {
	return func(opts *Options) {
		opts.Algorithm = name
	}
}

// OptMaxPermutations limits the total number of permutations explored while
// disambiguating blank nodes. Exceeding it fails the run with ErrResourceExhausted.
func OptMaxPermutations(n int64) Option {
	return func(opts *Options) {
		opts.MaxPermutations = n
	}
}

// OptMaxDeepIterations limits how many times the N-degree hash may run for any
// single blank node. Exceeding it fails the run with ErrResourceExhausted.
func OptMaxDeepIterations(n int) Option {
	return func(opts *Options) {
		opts.MaxDeepIterations = n
	}
}

// OptWorkers sets the number of goroutines used for first degree hashing.
func OptWorkers(n int) Option {
	return func(opts *Options) {
		opts.Workers = n
	}
}

// OptLogger sets the structured logger.
func OptLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// OptSafeLimits applies limits suitable for untrusted input: bounded lines and
// quad counts when decoding, bounded permutation search when canonicalizing.
func OptSafeLimits() Option {
	return func(opts *Options) {
		opts.MaxLineBytes = safeMaxLineBytes
		opts.MaxQuads = safeMaxQuads
		opts.MaxPermutations = safeMaxPermutations
		opts.MaxDeepIterations = safeMaxDeepIterations
	}
}

func defaultOptions() Options {
	return Options{
		MaxLineBytes: DefaultMaxLineBytes,
		MaxQuads:     DefaultMaxQuads,
		Algorithm:    DefaultAlgorithm,
		Workers:      runtime.GOMAXPROCS(0),
	}
}

func buildOptions(opts []Option) Options {
	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.Algorithm == "" {
		options.Algorithm = DefaultAlgorithm
	}
	if options.Workers < 1 {
		options.Workers = 1
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return options
}
