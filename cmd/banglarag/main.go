// Package main is the banglarag CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/banglarag/internal/cli"
	"github.com/hyperjump/banglarag/internal/config"
	"github.com/hyperjump/banglarag/internal/notify"
	"github.com/hyperjump/banglarag/pkg/utils"
)

var version = "dev"

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	debug      bool
	format     string
}

// env is what a command needs after flags are parsed.
type env struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	format     cli.OutputFormat
	debug      bool
	stderr     io.Writer
}

// errOut is the command's error stream.
func (e *env) errOut() io.Writer {
	if e.stderr != nil {
		return e.stderr
	}
	return os.Stderr
}

// componentLogger is the logger handed to components: only debug runs log from inside them.
func (e *env) componentLogger() *zap.Logger {
	if e.debug {
		return e.logger
	}
	return zap.NewNop()
}

// notifier renders progress and warnings on stderr.
func (e *env) notifier() notify.Notifier {
	n := notify.Notifier(notify.NewWriter(e.errOut()))
	if e.debug {
		n = notify.WithLogger(n, e.logger)
	}
	return n
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "banglarag",
		Short:         "Question answering over Bengali PDF documents",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (default: ./config.yaml, then "+config.DefaultConfigPath+")")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&opts.format, "format", "text", "output format: text or json")

	root.AddCommand(
		newProcessCmd(opts),
		newAskCmd(opts),
		newChatCmd(opts),
		newExtractCmd(opts),
		newSearchCmd(opts),
		newStatusCmd(opts),
		newServeCmd(opts),
		newWatchCmd(opts),
		newInitCmd(opts),
		newVersionCmd(),
	)
	return root
}

// setup loads .env and the config, and builds the logger.
func setup(cmd *cobra.Command, opts *rootOptions) (*env, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	format, err := cli.ParseFormat(opts.format)
	if err != nil {
		return nil, err
	}
	cfg, path, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	debug := cfg.Debug || opts.debug
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", path), zap.Bool("debug", debug))
	return &env{
		cfg:        cfg,
		configPath: path,
		logger:     logger,
		format:     format,
		debug:      debug,
		stderr:     cmd.ErrOrStderr(),
	}, nil
}

// loadConfig loads the config at path. Without an explicit path it looks for config.yaml
// in the current directory, then at the default location, and otherwise uses defaults.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(config.ResolvePath(path))
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	candidates := []string{config.ResolvePath(config.DefaultConfigPath)}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append([]string{filepath.Join(cwd, "config.yaml")}, candidates...)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			cfg, err := config.Load(c)
			if err != nil {
				return nil, "", err
			}
			return cfg, c, nil
		}
	}
	return config.Default(), "", nil
}

// requireConfigured fails closed, naming every missing setting.
func requireConfigured(e *env) error {
	if err := e.cfg.Validate(); err != nil {
		w := e.errOut()
		fmt.Fprintln(w, "Azure OpenAI is not configured. Set these variables (or the azure section of the config):")
		for _, m := range e.cfg.MissingSettings() {
			fmt.Fprintf(w, "  %s\n", m)
		}
		return err
	}
	return nil
}

// signalContext is canceled on interrupt or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var errNoIndex = errors.New("no index found; run `banglarag process` first")

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "banglarag version %s\n", version)
		},
	}
}
