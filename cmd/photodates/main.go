package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type extractCmd struct {
	Dir    string `arg:"positional,required" help:"Directory containing photos"`
	Output string `arg:"-o,--output" help:"Output CSV file path"`
}

type updateCmd struct {
	CSV string `arg:"positional,required" help:"CSV file with Folder, Filename and Set Date columns"`
}

// args holds the command-line arguments
var args struct {
	Extract          *extractCmd `arg:"subcommand:extract" help:"Extract date metadata from a photo tree into a CSV report"`
	Update           *updateCmd  `arg:"subcommand:update" help:"Apply Set Date values from a CSV report back into EXIF metadata"`
	ConfigFile       string      `arg:"--config" help:"Path to config file"`
	Verbose          bool        `arg:"-v,--verbose" help:"Enable verbose output"`
	JSONLogs         bool        `arg:"--json" help:"Log in JSON instead of pretty printing"`
	ExiftoolFallback bool        `arg:"--exiftool-fallback" help:"Fall back to an exiftool subprocess for files the native parsers reject"`
}

// config holds the application configuration
type config struct {
	Output           string `yaml:"output_file"`
	ConfigFile       string `yaml:"-"`
	Verbose          bool   `yaml:"verbose"`
	JSONLogs         bool   `yaml:"json_logs"`
	ExiftoolFallback bool   `yaml:"exiftool_fallback"`
}

// setDefaults initializes the config with default values
func setDefaults(cfg *config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %v", err)
	}

	cfg.Output = "image_metadata.csv"
	cfg.ConfigFile = filepath.Join(homeDir, ".photodatesrc")
	cfg.Verbose = false
	cfg.JSONLogs = false
	cfg.ExiftoolFallback = false
	return nil
}

// parseConfigFile reads and parses the YAML configuration file
func parseConfigFile(cfg *config) error {
	data, err := os.ReadFile(cfg.ConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file doesn't exist, just return without an error
			return nil
		}
		return fmt.Errorf("failed to read config file: %v", err)
	}

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse config file: %v", err)
	}

	return nil
}

// wasFlagProvided checks if a CLI flag was explicitly provided
func wasFlagProvided(flagName string) bool {
	for _, a := range os.Args[1:] {
		if a == flagName || strings.HasPrefix(a, flagName+"=") {
			return true
		}
	}
	return false
}

// setupLogging configures the global zerolog logger
func setupLogging(cfg config) {
	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if cfg.JSONLogs {
		w = os.Stderr
	}
	log.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func run() error {
	// Create an instance of the config struct
	cfg := config{}

	// Set default values first
	if err := setDefaults(&cfg); err != nil {
		return fmt.Errorf("setting defaults: %w", err)
	}

	// Parse command-line arguments
	p := arg.MustParse(&args)

	// Apply config file path from command-line argument if provided
	if args.ConfigFile != "" {
		cfg.ConfigFile = args.ConfigFile
	}

	// Parse configuration file
	if err := parseConfigFile(&cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	// Override with command-line arguments
	if wasFlagProvided("-v") || wasFlagProvided("--verbose") {
		cfg.Verbose = args.Verbose
	}
	if wasFlagProvided("--json") {
		cfg.JSONLogs = args.JSONLogs
	}
	if wasFlagProvided("--exiftool-fallback") {
		cfg.ExiftoolFallback = args.ExiftoolFallback
	}

	setupLogging(cfg)

	switch {
	case args.Extract != nil:
		if args.Extract.Output != "" {
			cfg.Output = args.Extract.Output
		}
		info, err := os.Stat(args.Extract.Dir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("invalid directory path: %s", args.Extract.Dir)
		}
		ex := newExtractor(cfg, args.Extract.Dir)
		defer ex.close()
		return ex.run()
	case args.Update != nil:
		info, err := os.Stat(args.Update.CSV)
		if err != nil || info.IsDir() {
			return fmt.Errorf("cannot find or access the CSV file provided: %s", args.Update.CSV)
		}
		return newUpdater(cfg).run(args.Update.CSV)
	default:
		p.Fail("expected a subcommand: extract or update")
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
