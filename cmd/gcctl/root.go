package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/gckit/internal/config"
	"github.com/joshuapare/gckit/pkg/gc"
)

var (
	// Global flags
	configPath string
	verbose    bool
	quiet      bool
	jsonOut    bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "gcctl",
	Short: "Drive and inspect the gckit conservative garbage collector",
	Long: `gcctl exercises the gckit heap: it runs the built-in smoke scenarios,
executes mutator scripts against a fresh heap, and reports allocator and
collector statistics for configurable workloads.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// loadConfig returns the --config file, or the defaults when none is given.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	printVerbose("Loading config: %s\n", configPath)
	return config.Load(configPath)
}

// newHeap creates and initializes a heap from cfg.
func newHeap(cfg *config.Config) (*gc.Heap, error) {
	opts := cfg.Options()
	opts.Fatal = gc.DefaultFatal
	h, err := gc.New(opts)
	if err != nil {
		return nil, err
	}
	if err := h.Init(); err != nil {
		_ = h.Close()
		return nil, err
	}
	return h, nil
}

// Helper functions for output

const (
	colorReset = "\x1b[0m"
	colorRed   = "\x1b[31m"
	colorGreen = "\x1b[32m"
	colorBold  = "\x1b[1m"
)

// stdout returns the output writer. Escape sequences are translated on
// Windows consoles and stripped entirely with --no-color.
func stdout() io.Writer {
	if noColor {
		return colorable.NewNonColorable(os.Stdout)
	}
	return colorable.NewColorableStdout()
}

// colorize wraps s in an escape sequence.
func colorize(color, s string) string {
	return color + s + colorReset
}

// numbers formats counts with thousands separators.
var numbers = message.NewPrinter(language.English)

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(stdout(), format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(colorable.NewColorableStderr(), colorize(colorRed, "Error: ")+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(stdout(), format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
