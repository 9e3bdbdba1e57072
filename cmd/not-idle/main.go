package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/Veraticus/not-idle/pkg/config"
	"github.com/Veraticus/not-idle/pkg/logging"
)

// options are the command line flags.
type options struct {
	configPath string
	window     float64
	scale      time.Duration
	immediate  bool
	quiet      bool
	help       bool
}

// parseArgs parses our flags and returns the command to wrap. Parsing stops
// at the first non-flag argument or at "--", so the command keeps its own flags.
func parseArgs(args []string) (*flag.FlagSet, *options, []string, error) {
	opts := &options{}
	fs := flag.NewFlagSet("not-idle", flag.ContinueOnError)
	fs.SetInterspersed(false)

	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.Float64Var(&opts.window, "window", 0, "Window length in units of --scale")
	fs.DurationVar(&opts.scale, "scale", 0, "Unit of --window (default 1m)")
	fs.BoolVar(&opts.immediate, "immediate", false, "Report activity as soon as it starts a window")
	fs.BoolVar(&opts.quiet, "quiet", false, "Disable activity reports")
	fs.BoolVarP(&opts.help, "help", "h", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return fs, nil, nil, err
	}
	return fs, opts, fs.Args(), nil
}

// applyFlags overrides cfg with the flags that were given.
func applyFlags(fs *flag.FlagSet, opts *options, cfg *config.Config) error {
	if fs.Changed("window") {
		cfg.Window = opts.window
	}
	if fs.Changed("scale") {
		cfg.Scale = opts.scale
	}
	if fs.Changed("immediate") {
		cfg.Immediate = opts.immediate
	}
	if fs.Changed("quiet") {
		cfg.Quiet = opts.quiet
	}
	return cfg.Validate()
}

// loadConfig loads the config file named by --config, or the default one.
// A missing default file means defaults; a missing --config file is an error.
func loadConfig(opts *options) (*config.Config, error) {
	if opts.configPath != "" {
		if _, err := os.Stat(opts.configPath); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		return config.LoadFile(opts.configPath)
	}
	return config.Load()
}

func main() {
	fs, opts, command, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(fs)
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if opts.help || len(command) == 0 {
		printUsage(fs)
		if opts.help {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := applyFlags(fs, opts, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := logging.Setup(cfg.Logging, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}

	deps, err := NewDependencies(cfg, Streams{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating dependencies: %v\n", err)
		closeLog()
		os.Exit(1)
	}

	stopMetrics := func() {}
	if deps.Registry != nil {
		stopMetrics, err = serveMetrics(cfg.Metrics.Listen, deps.Registry, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error starting metrics server: %v\n", err)
			closeLog()
			os.Exit(1)
		}
	}

	restore := enterRawMode(os.Stdin, logger)

	app := NewApplication(deps)

	// Ensure terminal restoration on panic
	defer func() {
		if r := recover(); r != nil {
			restore()
			_ = app.Stop()
			panic(r)
		}
	}()

	// SIGTERM and friends reach the command through the process manager's
	// forwarding; Run returns once it exits.
	runErr := app.Run(command[0], command[1:])

	restore()
	deps.Close()

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error running %s: %v\n", command[0], runErr)
		}
	}
	if !cfg.Quiet {
		fmt.Fprintf(os.Stderr, "not-idle: %s\n", app.Summary())
	}

	stopMetrics()
	closeLog()
	os.Exit(app.ExitCode())
}

func printUsage(fs *flag.FlagSet) {
	fmt.Println("not-idle - run a command and report when its terminal is active")
	fmt.Println()
	fmt.Println("Usage: not-idle [OPTIONS] [--] COMMAND [ARGS...]")
	fmt.Println()
	fmt.Println("Options:")
	fs.PrintDefaults()
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  NOT_IDLE_WINDOW          Window length (default: 1)")
	fmt.Println("  NOT_IDLE_SCALE           Window unit (default: 1m)")
	fmt.Println("  NOT_IDLE_IMMEDIATE       Report at the start of activity (true/false)")
	fmt.Println("  NOT_IDLE_QUIET           Disable activity reports (true/false)")
	fmt.Println("  NOT_IDLE_EVENTS          Events to watch (comma-separated)")
	fmt.Println("  NOT_IDLE_LOG_LEVEL       Log level (default: warn)")
	fmt.Println("  NOT_IDLE_METRICS_LISTEN  Address to serve /metrics on")
	fmt.Println("  NOT_IDLE_CONFIG          Path to config file")
	fmt.Println()
	fmt.Println("Configuration file: ~/.config/not-idle/config.yaml")
}
