// Package canoncmd implements the canon command of rdfc.
package canoncmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geoknoesis/rdf-canon/rdf"
)

const (
	// output flag.
	outputFlagName      = "output"
	outputEnvKey        = "RDFC_OUTPUT"
	outputFlagShorthand = "o"
	outputFlagUsage     = "Output kind. Possible values [nquads] [digest] [cid] [map]. Defaults to nquads if not set." +
		" Alternatively, this can be set with the following environment variable: " + outputEnvKey

	// algorithm flag.
	algorithmFlagName      = "algorithm"
	algorithmEnvKey        = "RDFC_ALGORITHM"
	algorithmFlagShorthand = "a"
	algorithmFlagUsage     = "Hash algorithm used by canonicalization, e.g. sha256 or sha384. Defaults to sha256 if not set." +
		" Alternatively, this can be set with the following environment variable: " + algorithmEnvKey

	// budgets.
	maxPermutationsFlagName  = "max-permutations"
	maxPermutationsEnvKey    = "RDFC_MAX_PERMUTATIONS"
	maxPermutationsFlagUsage = "Maximum number of permutations explored in one run. 0 means unlimited." +
		" Alternatively, this can be set with the following environment variable: " + maxPermutationsEnvKey

	maxDeepIterationsFlagName  = "max-deep-iterations"
	maxDeepIterationsEnvKey    = "RDFC_MAX_DEEP_ITERATIONS"
	maxDeepIterationsFlagUsage = "Maximum number of N-degree hash runs per blank node. 0 means unlimited." +
		" Alternatively, this can be set with the following environment variable: " + maxDeepIterationsEnvKey

	safeLimitsFlagName  = "safe-limits"
	safeLimitsEnvKey    = "RDFC_SAFE_LIMITS"
	safeLimitsFlagUsage = "Apply limits suited to untrusted input (true/false)." +
		" Explicit budgets still override them." +
		" Alternatively, this can be set with the following environment variable: " + safeLimitsEnvKey

	// workers flag.
	workersFlagName      = "workers"
	workersEnvKey        = "RDFC_WORKERS"
	workersFlagShorthand = "w"
	workersFlagUsage     = "Number of goroutines hashing blank nodes. Defaults to GOMAXPROCS if not set." +
		" Alternatively, this can be set with the following environment variable: " + workersEnvKey

	// config file flag.
	configFlagName      = "config"
	configEnvKey        = "RDFC_CONFIG"
	configFlagShorthand = "c"
	configFlagUsage     = "Path to a YAML config file. Flags and environment variables override its values." +
		" Alternatively, this can be set with the following environment variable: " + configEnvKey

	// log level.
	logLevelFlagName  = "log-level"
	logLevelEnvKey    = "RDFC_LOG_LEVEL"
	logLevelFlagUsage = "Log level." +
		" Possible values [DEBUG] [INFO] [WARN] [ERROR]. Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + logLevelEnvKey
)

const (
	outputNQuads = "nquads"
	outputDigest = "digest"
	outputCID    = "cid"
	outputMap    = "map"
)

var errInvalidOutput = errors.New("invalid output kind")

// settings are the resolved parameters of one invocation.
type settings struct {
	output            string
	algorithm         string
	maxPermutations   *int64
	maxDeepIterations *int64
	workers           int
	safeLimits        bool
	logLevel          slog.Level
}

// Cmd returns the Cobra canon command.
func Cmd() *cobra.Command {
	canonCmd := createCanonCMD()

	createFlags(canonCmd)

	return canonCmd
}

func createCanonCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "canon [file]",
		Short: "Canonicalize an N-Quads document",
		Long: "Canonicalize an N-Quads (or N-Triples) document with URDNA2015." +
			" Reads standard input when no file, or '-', is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			params, err := resolveSettings(cmd, config)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: params.logLevel}))

			name := "-"
			if len(args) == 1 {
				name = args[0]
			}

			return runCanon(cmd, name, params, logger)
		},
	}
}

func createFlags(canonCmd *cobra.Command) {
	canonCmd.Flags().StringP(outputFlagName, outputFlagShorthand, "", outputFlagUsage)
	canonCmd.Flags().StringP(algorithmFlagName, algorithmFlagShorthand, "", algorithmFlagUsage)
	canonCmd.Flags().StringP(maxPermutationsFlagName, "", "", maxPermutationsFlagUsage)
	canonCmd.Flags().StringP(maxDeepIterationsFlagName, "", "", maxDeepIterationsFlagUsage)
	canonCmd.Flags().StringP(safeLimitsFlagName, "", "", safeLimitsFlagUsage)
	canonCmd.Flags().StringP(workersFlagName, workersFlagShorthand, "", workersFlagUsage)
	canonCmd.Flags().StringP(configFlagName, configFlagShorthand, "", configFlagUsage)
	canonCmd.Flags().StringP(logLevelFlagName, "", "", logLevelFlagUsage)
}

func runCanon(cmd *cobra.Command, name string, params *settings, logger *slog.Logger) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		input  io.Reader = cmd.InOrStdin()
		format           = rdf.FormatNQuads
	)

	if name != "-" {
		f, err := os.Open(name) //nolint:gosec
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()

		input = f

		if detected, ok := rdf.FormatFromPath(name); ok {
			format = detected
		}
	}

	opts := params.options(logger)

	var quads []rdf.Quad

	err := rdf.Parse(ctx, input, format, func(q rdf.Quad) error {
		quads = append(quads, q)
		return nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}

	res, err := rdf.NewCanonicalizer(opts...).Run(ctx, quads)
	if err != nil {
		logger.Error("canonicalization failed", "component", "rdfc", "input", name, "code", rdf.Code(err))
		return err
	}

	logger.Info("dataset canonicalized", "component", "rdfc",
		"input", name, "quads", len(res.Quads), "blankNodes", len(res.IssuedIDs))

	return writeResult(cmd.OutOrStdout(), res, params)
}

func writeResult(w io.Writer, res *rdf.Result, params *settings) error {
	switch params.output {
	case outputNQuads:
		_, err := io.WriteString(w, res.NQuads)
		return err
	case outputDigest:
		digest, err := rdf.DigestNQuads(res.NQuads, params.algorithm)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(w, digest)

		return err
	case outputCID:
		id, err := rdf.NQuadsCID(res.NQuads, params.algorithm)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(w, id.String())

		return err
	case outputMap:
		data, err := json.MarshalIndent(res.IssuedIDs, "", "  ")
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(w, string(data))

		return err
	default:
		return fmt.Errorf("%w: %s", errInvalidOutput, params.output)
	}
}

func (s *settings) options(logger *slog.Logger) []rdf.Option {
	opts := []rdf.Option{
		rdf.OptAlgorithm(s.algorithm),
		rdf.OptLogger(logger),
	}

	if s.safeLimits {
		opts = append(opts, rdf.OptSafeLimits())
	}

	if s.maxPermutations != nil {
		opts = append(opts, rdf.OptMaxPermutations(*s.maxPermutations))
	}

	if s.maxDeepIterations != nil {
		opts = append(opts, rdf.OptMaxDeepIterations(int(*s.maxDeepIterations)))
	}

	if s.workers > 0 {
		opts = append(opts, rdf.OptWorkers(s.workers))
	}

	return opts
}

func loadConfig(cmd *cobra.Command) (*Config, error) {
	path, err := getUserSetVar(cmd, configFlagName, configEnvKey, true)
	if err != nil {
		return nil, err
	}

	if path == "" {
		return &Config{}, nil
	}

	return LoadConfig(path)
}

func resolveSettings(cmd *cobra.Command, config *Config) (*settings, error) { //nolint:funlen,gocyclo
	params := &settings{
		output:            outputNQuads,
		algorithm:         rdf.DefaultAlgorithm,
		maxPermutations:   config.MaxPermutations,
		maxDeepIterations: config.MaxDeepIterations,
		workers:           config.Workers,
		safeLimits:        config.SafeLimits,
	}

	if config.Output != "" {
		params.output = config.Output
	}

	if config.Algorithm != "" {
		params.algorithm = config.Algorithm
	}

	output, err := getUserSetVar(cmd, outputFlagName, outputEnvKey, true)
	if err != nil {
		return nil, err
	}

	if output != "" {
		params.output = output
	}

	params.output = strings.ToLower(params.output)

	switch params.output {
	case outputNQuads, outputDigest, outputCID, outputMap:
	default:
		return nil, fmt.Errorf("%w: %s", errInvalidOutput, params.output)
	}

	algorithm, err := getUserSetVar(cmd, algorithmFlagName, algorithmEnvKey, true)
	if err != nil {
		return nil, err
	}

	if algorithm != "" {
		params.algorithm = algorithm
	}

	if _, err := rdf.LookupAlgorithm(params.algorithm); err != nil {
		return nil, err
	}

	perms, err := getInt64Var(cmd, maxPermutationsFlagName, maxPermutationsEnvKey)
	if err != nil {
		return nil, err
	}

	if perms != nil {
		params.maxPermutations = perms
	}

	deep, err := getInt64Var(cmd, maxDeepIterationsFlagName, maxDeepIterationsEnvKey)
	if err != nil {
		return nil, err
	}

	if deep != nil {
		params.maxDeepIterations = deep
	}

	workers, err := getInt64Var(cmd, workersFlagName, workersEnvKey)
	if err != nil {
		return nil, err
	}

	if workers != nil {
		params.workers = int(*workers)
	}

	safe, err := getUserSetVar(cmd, safeLimitsFlagName, safeLimitsEnvKey, true)
	if err != nil {
		return nil, err
	}

	if safe != "" {
		params.safeLimits, err = strconv.ParseBool(safe)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", safeLimitsFlagName, err)
		}
	}

	level, err := getUserSetVar(cmd, logLevelFlagName, logLevelEnvKey, true)
	if err != nil {
		return nil, err
	}

	if level == "" {
		level = config.LogLevel
	}

	params.logLevel, err = parseLogLevel(level)
	if err != nil {
		return nil, err
	}

	return params, nil
}

func parseLogLevel(level string) (slog.Level, error) {
	if level == "" {
		return slog.LevelInfo, nil
	}

	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return l, nil
}

// getInt64Var returns the flag or environment value, or nil when neither is set.
func getInt64Var(cmd *cobra.Command, flagName, envKey string) (*int64, error) {
	raw, err := getUserSetVar(cmd, flagName, envKey, true)
	if err != nil {
		return nil, err
	}

	if raw == "" {
		return nil, nil //nolint:nilnil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%s: expected a non-negative integer, got %q", flagName, raw)
	}

	return &n, nil
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}
