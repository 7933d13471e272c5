package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arloliu/patpack/config"
	"github.com/arloliu/patpack/engine"
	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
	"github.com/arloliu/patpack/regression"
)

var version = "dev"

func main() {
	os.Exit(run())
}

type globalFlags struct {
	configPath  string
	codec       string
	fec         string
	redundancy  float64
	workers     int
	benchmark   bool
	calibration string
	verbose     bool
}

func run() int {
	var flags globalFlags

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "patpack",
		Short:         "Content-adaptive compression",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if flags.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "configuration file (TOML, or YAML by .yaml/.yml extension)")
	pf.StringVar(&flags.codec, "codec", "", "codec name or \"auto\" (overrides config)")
	pf.StringVar(&flags.fec, "fec", "", "FEC type: none or reed-solomon (overrides config)")
	pf.Float64Var(&flags.redundancy, "redundancy", 0, "FEC redundancy factor >= 1.0 (overrides config)")
	pf.IntVar(&flags.workers, "workers", -1, "concurrent workers, 0 for GOMAXPROCS (overrides config)")
	pf.BoolVar(&flags.benchmark, "benchmark", false, "probe reference codecs during analysis")
	pf.StringVar(&flags.calibration, "calibration", "", "CBOR calibration file (overrides config)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		analyzeCmd(&flags),
		compressCmd(&flags),
		decompressCmd(&flags),
		batchCmd(&flags),
		calibrateCmd(&flags),
		configCmd(&flags),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error("patpack failed", "error", err, "kind", errs.KindOf(err).String())
		return 1
	}

	return 0
}

// loadConfig reads the configuration file and applies flag overrides.
func (f *globalFlags) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return config.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("codec") {
		cfg.Codec.Name = f.codec
	}
	if flags.Changed("fec") {
		t, err := format.ParseFECType(f.fec)
		if err != nil {
			return config.Config{}, errs.Wrap(errs.KindConfigError, "flags", err)
		}
		cfg.FEC.Type = t
	}
	if flags.Changed("redundancy") {
		cfg.FEC.Redundancy = f.redundancy
	}
	if flags.Changed("workers") {
		cfg.Engine.Workers = f.workers
	}
	if flags.Changed("benchmark") {
		cfg.Engine.Benchmark = f.benchmark
	}
	if flags.Changed("calibration") {
		cfg.Strategy.Calibration = f.calibration
	}

	return cfg, cfg.Validate()
}

func (f *globalFlags) newEngine(cmd *cobra.Command) (*engine.Engine, error) {
	cfg, err := f.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	return engine.New(engine.WithConfig(cfg), engine.WithLogger(slog.Default()))
}

func analyzeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Detect, analyze and print the selected strategy",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.newEngine(cmd)
			if err != nil {
				return err
			}

			for _, path := range args {
				res, err := e.AnalyzeFile(cmd.Context(), path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				printAnalysis(cmd.OutOrStdout(), path, res)
			}

			return nil
		},
	}
}

func printAnalysis(w io.Writer, path string, res *engine.FileAnalysisResult) {
	fmt.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  size:       %d bytes\n", res.Size)
	fmt.Fprintf(w, "  category:   %s (confidence %.2f)\n", res.Info.Category, res.Info.Confidence)
	fmt.Fprintf(w, "  sampling:   %s, %d bytes\n", res.Sampling.Mode, res.Sampling.SampleSize)
	fmt.Fprintf(w, "  patterns:   %d (short density %.3f, overall %.3f)\n",
		res.Patterns.TotalPatterns, res.Patterns.ShortDensity(), res.Patterns.OverallDensity())
	fmt.Fprintf(w, "  strategy:   %s\n", res.Strategy)
	if res.Strategy.Reason != "" {
		fmt.Fprintf(w, "  reason:     %s\n", res.Strategy.Reason)
	}
	fmt.Fprintf(w, "  elapsed:    %s, ~%d bytes peak\n", res.Elapsed, res.PeakMemory)

	if res.Benchmark != nil {
		for _, r := range res.Benchmark.Results {
			if r.Err != nil {
				fmt.Fprintf(w, "  bench %-12s failed: %v\n", r.Algorithm, r.Err)
				continue
			}
			fmt.Fprintf(w, "  bench %-12s %8d bytes  %7.2fx  %s\n", r.Algorithm, r.CompressedSize, r.Ratio, r.Elapsed)
		}
	}
}

func compressCmd(flags *globalFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "compress FILE",
		Short: "Compress a file into an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.newEngine(cmd)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return errs.Wrap(errs.KindIoFailure, "read input", err)
			}

			artifact, st, err := e.Compress(cmd.Context(), data)
			if err != nil {
				return err
			}

			if output == "" {
				output = args[0] + ".ppk"
			}
			if err := os.WriteFile(output, artifact, 0o644); err != nil { //nolint: gosec
				return errs.Wrap(errs.KindIoFailure, "write artifact", err)
			}

			slog.Info("compressed", "input", args[0], "output", output,
				"size", len(data), "artifact", len(artifact), "algorithm", st.Algorithm.String())
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %d -> %d bytes, %s\n",
				args[0], output, len(data), len(artifact), st)

			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "artifact path (default FILE.ppk)")

	return cmd
}

func decompressCmd(flags *globalFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "decompress ARTIFACT",
		Short: "Restore the original bytes of an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.newEngine(cmd)
			if err != nil {
				return err
			}

			artifact, err := os.ReadFile(args[0])
			if err != nil {
				return errs.Wrap(errs.KindIoFailure, "read artifact", err)
			}

			data, err := e.Decompress(artifact)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil { //nolint: gosec
				return errs.Wrap(errs.KindIoFailure, "write output", err)
			}

			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path, - or empty for stdout")

	return cmd
}

func batchCmd(flags *globalFlags) *cobra.Command {
	var compress bool

	cmd := &cobra.Command{
		Use:   "batch FILE...",
		Short: "Analyze (or compress) many files, continuing past failures",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.newEngine(cmd)
			if err != nil {
				return err
			}

			inputs := engine.FileInputs(args...)
			var report *engine.BatchReport
			if compress {
				report = e.CompressBatch(cmd.Context(), inputs)
			} else {
				report = e.AnalyzeBatch(cmd.Context(), inputs)
			}

			w := cmd.OutOrStdout()
			for _, res := range report.Results {
				switch {
				case res.Err != nil:
					fmt.Fprintf(w, "FAIL %s: %v\n", res.Path, res.Err)
				case compress:
					if err := os.WriteFile(res.Path+".ppk", res.Artifact, 0o644); err != nil { //nolint: gosec
						fmt.Fprintf(w, "FAIL %s: %v\n", res.Path, err)
						report.Succeeded--
						report.Failed++

						continue
					}
					fmt.Fprintf(w, "ok   %s: %d -> %d bytes, %s\n", res.Path, res.Size, len(res.Artifact), res.Strategy)
				default:
					fmt.Fprintf(w, "ok   %s: %s\n", res.Path, res.Analysis)
				}
			}
			fmt.Fprintf(w, "%d succeeded, %d failed in %s\n", report.Succeeded, report.Failed, report.Elapsed)

			if report.Failed > 0 {
				return fmt.Errorf("%d of %d inputs failed", report.Failed, len(report.Results))
			}

			return nil
		},
	}
	cmd.Flags().BoolVar(&compress, "compress", false, "compress each file to FILE.ppk")

	return cmd
}

func calibrateCmd(flags *globalFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "calibrate FILE...",
		Short: "Fit density-to-ratio models over a reference corpus",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.newEngine(cmd)
			if err != nil {
				return err
			}

			corpus := make([][]byte, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return errs.Wrap(errs.KindIoFailure, "read corpus", err)
				}
				corpus = append(corpus, data)
			}

			cal, err := regression.Calibrate(cmd.Context(), corpus, regression.WithRegistry(e.Registry()))
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, algo := range slices.Sorted(maps.Keys(cal.Models)) {
				ref, _ := cal.ReferenceDensity(algo)
				fmt.Fprintf(w, "%-12s reference density %.3f  %s\n", algo, ref, cal.Models[algo])
			}

			encoded, err := cal.Encode()
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, encoded, 0o644); err != nil { //nolint: gosec
				return errs.Wrap(errs.KindIoFailure, "write calibration", err)
			}

			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "calibration.cbor", "calibration output path")

	return cmd
}

func configCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig(cmd)
			if err != nil {
				return err
			}

			out, err := cfg.TOML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)

			return err
		},
	}
}
