package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"trgmatch/internal/config"
	"trgmatch/internal/event"
	"trgmatch/internal/metrics"
	"trgmatch/internal/ntuple"
	"trgmatch/pkg/trigger"
)

var (
	version = "dev"
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:           "trgmatch",
	Short:         "Match reconstructed candidates to HLT trigger objects",
	Long:          `trgmatch reads events with trigger objects and reconstructed candidates and writes, per candidate, a bitmask of the trigger filters it matches.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMatch,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("filters", "", "filter table file (default: built-in table)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	rootCmd.Flags().StringP("input", "i", "-", "input events, JSON lines (- for stdin)")
	rootCmd.Flags().StringP("output", "o", "-", "output records, JSON lines (- for stdout)")
	rootCmd.Flags().Bool("full-reco-format", false, "read full-format (AOD) trigger summaries instead of standalone objects")
	rootCmd.Flags().Float64("pt-tolerance", 0.5, "maximum relative pt difference")
	rootCmd.Flags().Float64("dr-tolerance", 0.3, "maximum angular distance")
	rootCmd.Flags().String("metrics", "", "metrics HTTP address, e.g. :9090 (disabled when empty)")
	rootCmd.Flags().Bool("skip-bad-events", false, "skip events with missing trigger data instead of aborting")

	cobra.CheckErr(bindFlags(v, rootCmd))

	rootCmd.AddCommand(filtersCmd)
}

// bindFlags maps command-line flags onto config keys.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	persistent := map[string]string{
		"filters": "filters",
		"verbose": "verbose",
	}
	local := map[string]string{
		"input":             "input",
		"output":            "output",
		"full_reco_format":  "full-reco-format",
		"tolerance.pt":      "pt-tolerance",
		"tolerance.delta_r": "dr-tolerance",
		"metrics_addr":      "metrics",
		"skip_bad_events":   "skip-bad-events",
	}

	var errs []error
	for key, name := range persistent {
		if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(name)); err != nil {
			errs = append(errs, fmt.Errorf("binding --%s: %w", name, err))
		}
	}
	for key, name := range local {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			errs = append(errs, fmt.Errorf("binding --%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func loadConfig() (config.Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, err
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	return cfg, nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tables, err := config.LoadFilterTables(cfg.Filters)
	if err != nil {
		return err
	}
	tagger, err := trigger.NewTagger(trigger.NewRegistry(), tables, cfg.TaggerOptions())
	if err != nil {
		return fmt.Errorf("building filter registry: %w", err)
	}

	log.Info().Msgf("trgmatch %s", version)
	log.Info().Msgf("Trigger format: %s", cfg.Format())
	log.Info().Msgf("Tolerances: pt %.3g, deltaR %.3g", cfg.Tolerance.Pt, cfg.Tolerance.DeltaR)
	for _, s := range trigger.AllSpecies {
		log.Info().Msgf("Registered %d %s filters", len(tagger.Registry().Filters(s)), s)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		log.Info().Msgf("Metrics endpoint: http://%s/metrics", cfg.MetricsAddr)
		go func() {
			if err := metrics.StartMetricsServer(ctx, cfg.MetricsAddr); err != nil {
				log.Err(err).Msg("Metrics server error:")
			}
		}()
	}

	in, err := openInput(cfg.Input)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	out, err := openOutput(cfg.Output)
	if err != nil {
		return fmt.Errorf("opening output: %w", err)
	}

	proc := ntuple.NewProcessor(tagger, out, cfg.Format(), cfg.SkipBadEvents, cfg.Verbose)
	st, runErr := proc.Run(ctx, event.NewReader(in))
	if err := out.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("closing output: %w", err)
	}

	log.Info().Msgf("Processed %d events, skipped %d", st.Events, st.Skipped)
	return runErr
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Err(err).Msg("trgmatch failed")
		os.Exit(1)
	}
}
