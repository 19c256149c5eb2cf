package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hanpama/hwptext"
	"github.com/hanpama/hwptext/internal/config"
)

type rootFlags struct {
	cfgFile string
	verbose bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var flags rootFlags
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "hwpcat [flags] <file>",
		Short: "Print the text of an HWP or HWPX document",
		Long: `hwpcat extracts plain text from Hangul Word Processor documents.

Binary HWP v5 files (.hwp) are decoded in-process; by default every decoder
runs and the longest result wins. HWPX files (.hwpx) are read as zipped XML.
Failures are printed in place of the text as a line starting with "ERROR:".

Settings can also come from HWPCAT_* environment variables or hwpcat.yaml.`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		Version:       buildVersion(),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(v, flags, stderr)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			strategy, err := hwptext.ParseStrategy(cfg.Strategy)
			if err != nil {
				return err
			}

			path := args[0]
			text, err := hwptext.Extract(cmd.Context(), path, extractOptions(cfg, strategy, log)...)
			if err != nil {
				log.Debug("extraction failed", zap.String("path", path), zap.Error(err))
				fmt.Fprintln(stdout, hwptext.FormatError(err))
				if errors.Is(err, hwptext.ErrFileNotFound) {
					return &exitError{code: 1}
				}
				return nil
			}
			fmt.Fprintln(stdout, text)
			return nil
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.cfgFile, "config", "", "config file (default: ./hwpcat.yaml or ~/.config/hwpcat/hwpcat.yaml)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log decoder diagnostics to stderr")

	f := cmd.Flags()
	names := strategyNames()
	f.StringP("strategy", "s", "auto", "extraction strategy: "+strings.Join(names, ", "))
	f.Duration("timeout", config.DefaultConfig().Timeout, "time limit for external converters")
	f.String("hwp5txt", config.DefaultConfig().HWP5Txt, "hwp5txt executable")
	f.String("libreoffice", config.DefaultConfig().LibreOffice, "office suite executable")
	for _, name := range []string{"strategy", "timeout", "hwp5txt", "libreoffice"} {
		if err := v.BindPFlag(name, f.Lookup(name)); err != nil {
			panic(err)
		}
	}

	_ = cmd.RegisterFlagCompletionFunc("strategy", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.AddCommand(newStrategiesCmd(v, &flags, stdout, stderr))
	cmd.AddCommand(newVersionCmd(stdout))
	return cmd
}

func strategyNames() []string {
	var names []string
	for _, s := range hwptext.Strategies() {
		names = append(names, s.String())
	}
	return names
}

// loadConfig resolves settings and builds the logger they describe.
func loadConfig(v *viper.Viper, flags rootFlags, stderr io.Writer) (config.Config, *zap.Logger, error) {
	if err := config.Setup(v, flags.cfgFile); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return cfg, nil, err
	}
	log, err := newLogger(stderr, cfg.LogLevel, flags.verbose)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

func extractOptions(cfg config.Config, strategy hwptext.Strategy, log *zap.Logger) []hwptext.Option {
	return []hwptext.Option{
		hwptext.WithStrategy(strategy),
		hwptext.WithLogger(log),
		hwptext.WithTimeout(cfg.Timeout),
		hwptext.WithHWP5Txt(cfg.HWP5Txt),
		hwptext.WithLibreOffice(cfg.LibreOffice),
	}
}
