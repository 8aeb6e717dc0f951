// Package commands implements the refbuilder command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/refbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/refbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/refbuilder/internal/observability"
	"git.home.luguber.info/inful/refbuilder/internal/version"
)

// LogLevelEnv overrides the configured log level.
const LogLevelEnv = "REFBUILDER_LOG_LEVEL"

// Global carries process-wide state into subcommands.
type Global struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"refbuilder.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build menus, reference pages and search records for configured libraries"`
	Flatten FlattenCmd `cmd:"" help:"Print the flattened sections of a navigation file"`
	Menu    MenuCmd    `cmd:"" help:"Print the sidebar menu of a navigation file filtered by a library spec"`
	Resolve ResolveCmd `cmd:"" help:"Resolve function references against TypeDoc JSON"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild whenever library inputs change"`
	Daemon  DaemonCmd  `cmd:"" help:"Rebuild on a schedule and serve metrics"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
	Ver     VersionCmd `cmd:"" name:"version" help:"Print version information"`
}

// configureLogging picks the level: -v, then REFBUILDER_LOG_LEVEL, then config.
func configureLogging(w io.Writer, verbose bool, cfg *config.Config) {
	if w == nil {
		w = os.Stderr
	}
	level := config.LogLevelInfo
	format := config.LogFormatText
	if cfg != nil {
		level = cfg.Logging.Level
		format = cfg.Logging.Format
	}
	if env := os.Getenv(LogLevelEnv); env != "" {
		level = config.NormalizeLogLevel(env)
	}
	if verbose {
		level = config.LogLevelDebug
	}
	slog.SetDefault(observability.NewLogger(w, level.SlogLevel(), format == config.LogFormatJSON))
}

// loadConfig loads the configuration, logs normalization warnings and applies its
// logging settings.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, res, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	configureLogging(g.Stderr, c.Verbose, cfg)
	if res != nil {
		for _, w := range res.Warnings {
			slog.Warn("Config normalized", slog.String("detail", w))
		}
	}
	return cfg, nil
}

// Main runs the command line and returns the process exit code.
func Main(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args, stdout, stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var cli CLI
	exitCode := -1
	parser, err := kong.New(&cli,
		kong.Name("refbuilder"),
		kong.Description("Generate reference navigation, pages and search records from library specs."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { exitCode = code }),
	)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	kctx, err := parser.Parse(args)
	if exitCode >= 0 {
		return exitCode
	}
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}

	configureLogging(stderr, cli.Verbose, nil)
	global := &Global{Ctx: ctx, Stdout: stdout, Stderr: stderr}
	err = kctx.Run(global, &cli)
	adapter := ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
	return adapter.Report(stderr, err)
}
