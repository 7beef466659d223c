// Monoprice controls a Monoprice 6-zone amplifier over its RS-232 port.
//
// Usage:
//
//	monoprice [command] [flags]
//
// Settings are read from monoprice.toml in the user config directory, or from
// the file named by $MONOPRICE_CFG or --config. Flags override the file.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pior/monoprice"
	"github.com/pior/monoprice/internal/config"
	"github.com/pior/monoprice/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := &app{fs: afero.NewOsFs(), errOut: os.Stderr}
	err := newRootCmd(cli).ExecuteContext(ctx)
	cli.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// app carries the state shared by all commands.
type app struct {
	fs          afero.Fs
	portFactory monoprice.PortFactory
	errOut      io.Writer

	configPath string
	port       string
	timeout    time.Duration
	async      bool
	logLevel   string
	format     string

	vals     config.Values
	logger   zerolog.Logger
	closeLog io.Closer
}

func newRootCmd(cli *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "monoprice",
		Short: "Control a Monoprice 6-zone amplifier",
		Long: `Query and control a Monoprice 6-zone amplifier over its serial port.

Zones are numbered {unit}{zone}: 11 to 16 for the first unit, 21 to 26 for a
second chained unit and 31 to 36 for a third.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: cli.setup,
	}

	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&cli.configPath, "config", "", "Config file (default $"+config.CfgEnv+" or user config dir)")
	flags.StringVar(&cli.port, "port", "", "Serial port of the amplifier")
	flags.DurationVar(&cli.timeout, "timeout", 0, "Timeout of one exchange")
	flags.BoolVar(&cli.async, "async", false, "Open the port in the background")
	flags.StringVar(&cli.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error, disabled)")
	flags.StringVar(&cli.format, "format", "text", "Output format (text, json)")

	root.AddCommand(
		newStatusCmd(cli),
		newUnitCmd(cli),
		newSetCmd(cli),
		newRestoreCmd(cli),
		newWatchCmd(cli),
		newRawCmd(cli),
	)
	return root
}

// setup loads the config file, applies the flags on top and builds the logger.
func (cli *app) setup(cmd *cobra.Command, _ []string) error {
	vals, err := config.Load(cli.fs, cli.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		vals.Port = cli.port
	}
	if flags.Changed("timeout") {
		vals.Timeout = config.Duration(cli.timeout)
	}
	if flags.Changed("async") {
		vals.Async = cli.async
	}
	if flags.Changed("log-level") {
		vals.LogLevel = cli.logLevel
	}
	if err := vals.Validate(); err != nil {
		return err
	}

	switch cli.format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown output format %q", cli.format)
	}

	logger, closer, err := logging.New(logging.Options{
		Level:   vals.LogLevel,
		File:    vals.LogFile,
		Console: cli.errOut,
	})
	if err != nil {
		return err
	}

	cli.vals = vals
	cli.logger = logger
	cli.closeLog = closer
	return nil
}

func (cli *app) close() {
	if cli.closeLog != nil {
		_ = cli.closeLog.Close()
	}
}

// withClient opens the amplifier, runs fn and closes it.
func (cli *app) withClient(cmd *cobra.Command, fn func(ctx context.Context, client *monoprice.Client) error) error {
	cfg := cli.vals.ClientConfig(&cli.logger)
	cfg.PortFactory = cli.portFactory

	var (
		client *monoprice.Client
		err    error
	)
	if cli.vals.Async {
		client, err = monoprice.OpenAsync(cli.vals.Port, cfg)
	} else {
		client, err = monoprice.Open(cli.vals.Port, cfg)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			cli.logger.Warn().Err(err).Msg("failed to close port")
		}
	}()

	err = fn(cmd.Context(), client)

	stats := client.SessionStats()
	cli.logger.Debug().
		Uint64("exchanges", stats.Exchanges).
		Uint64("timeouts", stats.Timeouts).
		Uint64("bytes_out", stats.BytesOut).
		Uint64("bytes_in", stats.BytesIn).
		Msg("session stats")

	return err
}
