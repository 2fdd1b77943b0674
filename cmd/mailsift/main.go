package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/mailsift/internal/config"
	"github.com/crimson-sun/mailsift/internal/logging"
	"github.com/crimson-sun/mailsift/internal/source"
)

var configFile string

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "mailsift",
		Short:         "Parse and normalize raw email corpora",
		Long:          "mailsift splits raw emails into headers and body, extracts header fields, normalizes text and optionally tags PII.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv("MAILSIFT_CONFIG"), "Path to YAML config file")

	rootCmd.AddCommand(runCmd(), providersCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mailsift: %v\n", err)
		os.Exit(1)
	}
}

type runFlags struct {
	source  string
	path    string
	limit   int
	formats []string
	out     string
	workers int
}

func runCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load, parse and write a corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if err := f.apply(cmd, cfg); err != nil {
				return err
			}

			log := logging.New(cfg.Log.Level, cfg.Log.Format)
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			p, err := buildPipeline(cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := p.Close(); err != nil {
					log.Errorw("close failed", "error", err)
				}
			}()

			log.Infow("starting", "source", cfg.Source.Provider, "path", cfg.Source.Path, "outputs", cfg.Output.Format)
			report, err := p.Run(ctx, sourceConfig(cfg))
			if err != nil {
				if errors.Is(err, context.Canceled) {
					log.Warn("interrupted")
				}
				return err
			}
			log.Infow("done",
				"loaded", report.Loaded,
				"written", report.Written,
				"filtered", report.Filtered,
				"classification_failures", report.ClassificationFailures,
				"duration", report.Duration,
			)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.source, "source", "", "Source provider (csv, maildir)")
	fl.StringVarP(&f.path, "input", "i", "", "Source path: CSV file or maildir root")
	fl.IntVarP(&f.limit, "limit", "n", 0, "Read at most n records (0 = all)")
	fl.StringSliceVarP(&f.formats, "format", "f", nil, "Output formats (stdout, csv, sqlite)")
	fl.StringVarP(&f.out, "output", "o", "", "CSV output path")
	fl.IntVarP(&f.workers, "workers", "w", 0, "Worker goroutines")
	return cmd
}

// apply overrides cfg with the flags the user actually set.
func (f runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("source") {
		cfg.Source.Provider = f.source
	}
	if changed("input") {
		cfg.Source.Path = f.path
	}
	if changed("limit") {
		cfg.Source.Limit = f.limit
	}
	if changed("format") {
		cfg.Output.Format = f.formats
	}
	if changed("output") {
		cfg.Output.Path = f.out
	}
	if changed("workers") {
		cfg.Pipeline.Workers = f.workers
	}
	return config.Validate(cfg)
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List registered source providers",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range source.Providers() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
