package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	service "github.com/okian/takraw/internal/app"
	"github.com/okian/takraw/internal/simulator"
	"github.com/okian/takraw/pkg/logger"
)

// validFormats lists the accepted output formats.
var validFormats = []string{"text", "json"}

// rootOptions holds flags shared by every command.
type rootOptions struct {
	URL       string
	Format    string
	LogLevel  string
	LogFormat string
	cfg       simulator.Config
}

// newRootCommand creates the takraw-sim command tree.
func newRootCommand(stderr io.Writer) *cobra.Command {
	opts := &rootOptions{cfg: simulator.DefaultConfig()}

	cmd := &cobra.Command{
		Use:   "takraw-sim",
		Short: "Bot matches and scripted scenarios for the takraw scoring service",
		Long: `Plays seeded bot matches or replays YAML scenarios against the scoring
service. Without --url an in-process service is started for the run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return logger.InitWith(stderr, opts.LogFormat, opts.LogLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.URL, "url", "", "base URL of a running server (default: in-process service)")
	cmd.PersistentFlags().DurationVar(&opts.cfg.Timeout, "timeout", simulator.DefaultTimeout, "HTTP request timeout")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log format (text|json)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newReplayCommand(opts))
	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play seeded bot matches",
		Long: `Creates two bot teams per match and plays the set to the end, picking a
legal play for every rally stage. Match i uses seed+i.

Examples:
  takraw-sim run --seed 7
  takraw-sim run --matches 20 --workers 8 --url http://localhost:9080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDriver(cmd.Context(), opts, func(ctx context.Context, d simulator.Driver) error {
				sums, err := simulator.NewRunner(d, opts.cfg, logger.Get()).Run(ctx)
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), sums)
				}
				return simulator.RenderSummaries(cmd.OutOrStdout(), sums)
			})
		},
	}

	cmd.Flags().Uint64Var(&opts.cfg.Seed, "seed", 1, "seed of the first match")
	cmd.Flags().IntVar(&opts.cfg.Matches, "matches", simulator.DefaultMatches, "number of matches")
	cmd.Flags().IntVar(&opts.cfg.Workers, "workers", simulator.DefaultWorkers, "concurrent matches")
	cmd.Flags().IntVar(&opts.cfg.MaxSteps, "max-steps", simulator.DefaultMaxSteps, "commands per match before giving up")
	return cmd
}

func newReplayCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <scenario.yaml>...",
		Short: "Replay scripted scenarios and print their timelines",
		Long: `Replays each scenario file step by step. A step with an expect code must
be rejected with that code; any other rejection fails the replay.

Examples:
  takraw-sim replay internal/simulator/testdata/scenarios/full_rally.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios := make([]*simulator.Scenario, 0, len(args))
			for _, path := range args {
				sc, err := simulator.LoadScenario(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				scenarios = append(scenarios, sc)
			}
			return withDriver(cmd.Context(), opts, func(ctx context.Context, d simulator.Driver) error {
				for _, sc := range scenarios {
					res, err := simulator.Replay(ctx, d, sc)
					if err != nil {
						return fmt.Errorf("scenario %s: %w", sc.Name, err)
					}
					if opts.Format == "json" {
						err = writeJSON(cmd.OutOrStdout(), res)
					} else {
						err = simulator.RenderReplay(cmd.OutOrStdout(), res)
					}
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

// withDriver runs fn against the configured server, or against a service
// started for the duration of fn.
func withDriver(ctx context.Context, opts *rootOptions, fn func(context.Context, simulator.Driver) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.URL != "" {
		return fn(ctx, simulator.NewHTTPDriver(opts.URL, opts.cfg.Timeout))
	}

	svc := service.New(service.WithLogger(logger.Get().Named("service")))
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer func() { _ = svc.Stop(context.WithoutCancel(ctx)) }()
	return fn(ctx, simulator.NewLocalDriver(svc))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
