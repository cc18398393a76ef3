package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vango-dev/vtree/internal/config"
	"github.com/vango-dev/vtree/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app holds state shared by every subcommand.
type app struct {
	configPath string
	overrides  []string

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "vtree",
		Short: "Reactive virtual tree renderer",
		Long: `vtree renders reactive component trees into an in-memory host tree.

It can play the built-in demo scenarios, benchmark keyed list
reordering, and serve a live document to websocket viewers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default: vtree.yaml, vtree.yml or vtree.json in the working directory)")
	rootCmd.PersistentFlags().StringArrayVar(&a.overrides, "set", nil, "Override a config value, e.g. --set server.address=:9090 (repeatable)")

	rootCmd.AddCommand(
		demoCmd(a),
		benchCmd(a),
		serveCmd(a),
		configCmd(a),
		versionCmd(),
	)
	return rootCmd
}

// load reads the config and installs the logger.
func (a *app) load() error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath, a.overrides...)
	} else {
		a.cfg, err = config.Load(".", a.overrides...)
	}
	if err != nil {
		return err
	}

	a.logger, err = a.cfg.Log.NewLogger(os.Stderr, isTerminal(os.Stderr))
	if err != nil {
		return errors.New("E102").Wrap(err).WithSuggestion("log.level is one of debug, info, warn or error")
	}
	slog.SetDefault(a.logger)
	if path := a.cfg.Path(); path != "" {
		a.logger.Debug("loaded config", "path", path)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("%s %s\n", green("✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("%s %s\n", yellow("⚠"), fmt.Sprintf(format, args...))
}
