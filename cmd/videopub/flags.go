package main

import (
	"flag"
	"fmt"
	"os"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	InputPath   string
	LogLevel    string
	LogFormat   string
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("VIDEOPUB_CONFIG", "configs/bot.json"),
		"Path to configuration file (env: VIDEOPUB_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("VIDEOPUB_CONFIG", "configs/bot.json"),
		"Path to configuration file (env: VIDEOPUB_CONFIG)")

	flag.StringVar(&cfg.InputPath, "input",
		getEnv("VIDEOPUB_INPUT", ""),
		"Input file of base64-encoded frames, one per line (env: VIDEOPUB_INPUT)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("VIDEOPUB_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: VIDEOPUB_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("VIDEOPUB_LOG_FORMAT", "json"),
		"Log format: json, text (env: VIDEOPUB_LOG_FORMAT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Parse()
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp || cfg.Validate {
		return nil
	}
	if cfg.InputPath == "" {
		return fmt.Errorf("missing -input argument")
	}
	return nil
}

func printHelp() {
	fmt.Printf("%s publishes an encoded video file to a messaging channel\n\n", appName)
	flag.Usage()
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
