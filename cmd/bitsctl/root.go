package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/danmuck/bits/internal/bits"
	"github.com/danmuck/bits/internal/config"
	"github.com/danmuck/bits/internal/logging"
	"github.com/danmuck/bits/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type app struct {
	root *cobra.Command

	// global flags
	configPath      string
	inputFile       string
	hexMode         string
	maxDepth        int
	logLevel        string
	metricsTextfile string

	cfg     config.Config
	decoder *bits.Decoder
}

func newRootCmd() *cobra.Command {
	a := &app{}
	a.root = &cobra.Command{
		Use:   "bitsctl",
		Short: "Decode and evaluate BITS transmissions",
		Long: `bitsctl decodes hexadecimal BITS transcripts into packet trees and
reports the version total and the value of the encoded expression.

The transcript is taken from the first argument, from --file, or from stdin
when neither is given (or the argument is "-").`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := a.root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to a bitsctl TOML config")
	flags.StringVarP(&a.inputFile, "file", "f", "", "Read the transcript from a file")
	flags.StringVar(&a.hexMode, "hex-mode", "", "Hex input handling: lenient|strict")
	flags.IntVar(&a.maxDepth, "max-depth", 0, "Maximum packet nesting depth")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: trace|debug|info|warn|error|off")
	flags.StringVar(&a.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file after each run")

	a.root.AddCommand(
		a.newRunCmd(),
		a.newSumCmd(),
		a.newEvalCmd(),
		a.newExprCmd(),
		a.newDumpCmd(),
		a.newConfigCmd(),
	)
	return a.root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := a.root.PersistentFlags()
	if flags.Changed("hex-mode") {
		cfg.Decoder.HexMode = strings.ToLower(strings.TrimSpace(a.hexMode))
	}
	if flags.Changed("max-depth") {
		cfg.Decoder.MaxDepth = a.maxDepth
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("metrics-textfile") {
		cfg.Metrics.Enabled = a.metricsTextfile != ""
		cfg.Metrics.Textfile = a.metricsTextfile
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	logCfg := cfg.LoggingConfig()
	logCfg.Out = cmd.ErrOrStderr()
	logging.Apply(logCfg)

	a.cfg = cfg
	a.decoder = bits.NewDecoder(cfg.DecoderOptions())
	log.Debug().
		Str("command", cmd.Name()).
		Str("hex_mode", cfg.Decoder.HexMode).
		Int("max_depth", cfg.Decoder.MaxDepth).
		Msg("bitsctl: configured")
	return nil
}

// readInput resolves the transcript from args, --file or stdin. Every source
// is held to the same byte cap derived from decoder.max_input_bits.
func (a *app) readInput(cmd *cobra.Command, args []string) (string, error) {
	limit := a.inputByteLimit()
	if len(args) == 1 && args[0] != "-" {
		if int64(len(args[0])) > limit {
			return "", inputTooLarge(limit)
		}
		return args[0], nil
	}
	if a.inputFile != "" {
		f, err := os.Open(a.inputFile)
		if err != nil {
			return "", fmt.Errorf("read transcript: %w", err)
		}
		defer f.Close()
		return readCapped(f, limit)
	}
	return readCapped(cmd.InOrStdin(), limit)
}

// inputByteLimit allows one byte per hex digit the decoder accepts plus
// slack for separators and line endings.
func (a *app) inputByteLimit() int64 {
	return int64(a.cfg.Decoder.MaxInputBits/4) + 4096
}

func readCapped(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	if int64(len(data)) > limit {
		return "", inputTooLarge(limit)
	}
	return string(data), nil
}

func inputTooLarge(limit int64) error {
	return fmt.Errorf("%w: transcript exceeds %d bytes", bits.ErrInputTooLarge, limit)
}

// withPacket decodes the transcript, hands the tree to fn and records the
// outcome.
func (a *app) withPacket(fn func(cmd *cobra.Command, p *bits.Packet) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		text, err := a.readInput(cmd, args)
		if err != nil {
			return err
		}

		start := time.Now()
		tr, err := a.decoder.DecodeTranscript(text)
		if err == nil {
			err = fn(cmd, tr.Root)
		}
		elapsed := time.Since(start)

		observability.RecordDecode(cmd.Name(), tr.Root, tr.InputBits, err, elapsed)
		if a.cfg.Metrics.Enabled {
			if werr := observability.WriteTextfile(a.cfg.Metrics.Textfile); werr != nil {
				log.Warn().Err(werr).Str("path", a.cfg.Metrics.Textfile).Msg("bitsctl: metrics textfile not written")
			}
		}
		if err != nil {
			log.Debug().Err(err).Str("command", cmd.Name()).Msg("bitsctl: failed")
			return err
		}
		log.Debug().Str("command", cmd.Name()).Dur("elapsed", elapsed).Msg("bitsctl: done")
		return nil
	}
}
