// Package cli implements the aespl-http command line tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ashep/esp-lib/client"
)

// app holds the state shared by all subcommands of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	logFormat  string
	transport  string
	timeout    time.Duration
	deadline   time.Duration
	noColor    bool

	config *client.Config
	logger zerolog.Logger
}

// NewRootCommand builds the command tree writing to stdout and stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "aespl-http",
		Short: "Minimal HTTP/1.0 client",
		Long: `aespl-http sends HTTP/1.0 requests the way the device firmware does:
one request per connection, the response read until the server closes it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path to a YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, disabled)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format (console, json)")
	flags.StringVarP(&a.transport, "transport", "t", "", "transport (tcp, unix, uring, uring-v2)")
	flags.DurationVar(&a.timeout, "timeout", 0, "per-read timeout")
	flags.DurationVar(&a.deadline, "deadline", 0, "bound on a whole request")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		a.getCommand(),
		a.requestCommand(),
		a.pollCommand(),
		a.configCommand(),
	)
	return rootCmd
}

// setup loads the configuration and applies flag overrides.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := client.LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = client.LogFormat(a.logFormat)
	}
	if flags.Changed("transport") {
		cfg.Transport = a.transport
	}
	if flags.Changed("timeout") {
		cfg.ReadTimeout = a.timeout
	}
	if flags.Changed("deadline") {
		cfg.Deadline = a.deadline
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if a.noColor {
		color.NoColor = true
	}

	a.config = cfg
	a.logger = client.NewLogger(cfg.Log, a.stderr)
	return nil
}

func (a *app) newClient() (*client.HttpClient, error) {
	return client.NewHttpClient(a.config, client.WithLogger(a.logger))
}

func cmdFunc(fn func(context.Context, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return fn(cmd.Context(), args)
	}
}

// Execute runs the command line with the process arguments and exits on
// failure.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := NewRootCommand(os.Stdout, os.Stderr)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("ERR:"), err)
		os.Exit(1)
	}
}
